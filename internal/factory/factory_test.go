package factory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/chessgame-go/internal/config"
	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/storage/memory"
	redisstorage "github.com/mcoot/chessgame-go/internal/storage/redis"
	"github.com/mcoot/chessgame-go/internal/testutil"
)

func TestNewDefaultsToMemory(t *testing.T) {
	app, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.Equal(t, StorageTypeMemory, app.StorageType)
	assert.IsType(t, &memory.Storage{}, app.Storage)
	require.NoError(t, app.Shutdown(context.Background()))
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown storage", Config{StorageType: "sqlite"}},
		{"redis without config", Config{StorageType: StorageTypeRedis}},
		{"postgres without dsn", Config{StorageType: StorageTypePostgres}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewWithRedis(t *testing.T) {
	mini := miniredis.RunT(t)

	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + mini.Addr()
	app, err := New(context.Background(), Config{StorageType: StorageTypeRedis, RedisConfig: &redisCfg})
	require.NoError(t, err)
	defer func() { _ = app.Shutdown(context.Background()) }()
	assert.Equal(t, StorageTypeRedis, app.StorageType)

	g, err := app.GameController.CreateGame(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, mini.Exists("chessgame:game:"+string(g.ID)))

	seat, err := app.GameController.JoinGame(context.Background(), g.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.SeatWhite, seat)
}

func TestConfigFromServer(t *testing.T) {
	sc := config.ServerConfig{
		StorageType:        StorageTypeRedis,
		RedisURL:           "redis://cache:6379",
		GameTTL:            time.Hour,
		ValidateMoves:      false,
		OwnerKeySecret:     "s3cret",
		AllowedOrigins:     []string{"https://chess.test"},
		StoreRetryInterval: 3 * time.Second,
	}

	cfg := ConfigFromServer(sc, nil)
	require.NotNil(t, cfg.RedisConfig)
	assert.Equal(t, "redis://cache:6379", cfg.RedisConfig.URL)
	assert.Equal(t, time.Hour, cfg.RedisConfig.GameTTL)
	assert.False(t, cfg.RedisConfig.FailFast)
	require.NotNil(t, cfg.Game)
	assert.False(t, cfg.Game.ValidateMoves)
	assert.Equal(t, "s3cret", cfg.OwnerKeySecret)
	assert.Equal(t, []string{"https://chess.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.StoreRetryInterval)

	cfg = ConfigFromServer(config.ServerConfig{StorageType: StorageTypeMemory}, nil)
	assert.Nil(t, cfg.RedisConfig)
}

func TestRedisDownAtStartup(t *testing.T) {
	mini := miniredis.RunT(t)
	addr := mini.Addr()
	mini.Close()

	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + addr
	redisCfg.FailFast = false
	app, err := New(context.Background(), Config{StorageType: StorageTypeRedis, RedisConfig: &redisCfg})
	require.NoError(t, err, "server starts without its store")
	defer func() { _ = app.Shutdown(context.Background()) }()

	_, err = app.GameController.CreateGame(context.Background(), "alice")
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

// pingStore fails Ping while down is set
type pingStore struct {
	*memory.Storage
	down bool
}

func (p *pingStore) Ping(ctx context.Context) error {
	if p.down {
		return errors.New("connection refused")
	}
	return nil
}

func TestStoreMonitorLogsTransitionsOnce(t *testing.T) {
	logger, logs := testutil.BufferLogger()
	store := &pingStore{Storage: memory.New(), down: true}
	recovered := 0
	m := newStoreMonitor(store, func(context.Context) error {
		recovered++
		return nil
	}, time.Second, logger)

	ctx := context.Background()
	m.check(ctx)
	m.check(ctx)
	assert.True(t, m.isDown())
	assert.Equal(t, 1, strings.Count(logs.String(), "game store unreachable"))

	store.down = false
	m.check(ctx)
	m.check(ctx)
	assert.False(t, m.isDown())
	assert.Equal(t, 1, strings.Count(logs.String(), "game store reachable again"))
	assert.Equal(t, 1, recovered)
}

func TestStoreMonitorRetriesFailedRecovery(t *testing.T) {
	logger, logs := testutil.BufferLogger()
	store := &pingStore{Storage: memory.New()}
	attempts := 0
	m := newStoreMonitor(store, func(context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("relation does not exist")
		}
		return nil
	}, time.Second, logger)
	m.markDown()

	m.check(context.Background())
	assert.True(t, m.isDown())
	m.check(context.Background())
	assert.False(t, m.isDown())
	assert.Equal(t, 1, strings.Count(logs.String(), "game store reachable again"))
}

func TestStoreMonitorRunStopsWithContext(t *testing.T) {
	m := newStoreMonitor(&pingStore{Storage: memory.New()}, nil, 10*time.Millisecond, testutil.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}
