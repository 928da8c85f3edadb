package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/chessgame-go/internal/config"
	"github.com/mcoot/chessgame-go/internal/dependencies/clock"
	"github.com/mcoot/chessgame-go/internal/dependencies/random"
	"github.com/mcoot/chessgame-go/internal/realtime"
	"github.com/mcoot/chessgame-go/internal/services/game"
	"github.com/mcoot/chessgame-go/internal/services/identity"
	"github.com/mcoot/chessgame-go/internal/services/rules"
	"github.com/mcoot/chessgame-go/internal/storage"
	"github.com/mcoot/chessgame-go/internal/storage/memory"
	pgstorage "github.com/mcoot/chessgame-go/internal/storage/postgres"
	redisstorage "github.com/mcoot/chessgame-go/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage     storage.GameStore
	StorageType string

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	IdentityService *identity.Service
	RulesService    *rules.Service
	GameController  *game.Controller

	// Realtime
	Coordinator *realtime.Coordinator
	WSServer    *realtime.Server

	monitor *storeMonitor
	closer  func() error
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresDSN is the connection string (required if StorageType is "postgres")
	PostgresDSN string
	// OwnerKeySecret keys seat owner fingerprints
	OwnerKeySecret string
	// Game holds game controller settings
	// If zero value, defaults to game.DefaultConfig()
	Game *game.Config
	// AllowedOrigins restricts websocket upgrades
	AllowedOrigins []string
	// StoreRetryInterval is how often an unreachable store is pinged
	StoreRetryInterval time.Duration
}

// ConfigFromServer maps environment settings onto factory settings
func ConfigFromServer(sc config.ServerConfig, logger *slog.Logger) Config {
	cfg := Config{
		Logger:             logger,
		StorageType:        sc.StorageType,
		PostgresDSN:        sc.PostgresDSN,
		OwnerKeySecret:     sc.OwnerKeySecret,
		Game:               &game.Config{ValidateMoves: sc.ValidateMoves},
		AllowedOrigins:     sc.AllowedOrigins,
		StoreRetryInterval: sc.StoreRetryInterval,
	}
	if sc.StorageType == StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = sc.RedisURL
		redisCfg.GameTTL = sc.GameTTL
		// Start even when redis is down; the store monitor reports recovery
		redisCfg.FailFast = false
		cfg.RedisConfig = &redisCfg
	}
	return cfg
}

// New creates a new application with all dependencies wired.
// An unreachable store does not fail New; Run watches it until it answers.
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	var (
		store     storage.GameStore
		closer    func() error
		onRecover func(context.Context) error
	)
	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store, closer = redisStore, redisStore.Close
	case StorageTypePostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("PostgresDSN required when StorageType is postgres")
		}
		pgStore, err := pgstorage.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		store, closer, onRecover = pgStore, pgStore.Close, pgStore.Migrate
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'postgres'")
	}

	gameCfg := game.DefaultConfig()
	if cfg.Game != nil {
		gameCfg = *cfg.Game
	}

	app := newWithDependencies(store, clock.New(), random.New(), cfg.OwnerKeySecret, gameCfg, cfg.AllowedOrigins, logger)
	app.StorageType = storageType
	app.closer = closer
	app.monitor = newStoreMonitor(store, onRecover, cfg.StoreRetryInterval, logger)

	// Postgres needs its table before serving; if the database is down the
	// monitor migrates once it comes back
	if onRecover != nil {
		if err := onRecover(ctx); err != nil {
			logger.Warn("game store not ready at startup", slog.String("error", err.Error()))
			app.monitor.markDown()
		}
	}
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.GameStore,
	clk clock.Clock,
	rnd random.Random,
	secret string,
	gameCfg game.Config,
	allowedOrigins []string,
	logger *slog.Logger,
) *App {
	identityService := identity.New(secret)
	rulesService := rules.New()
	gameController := game.NewController(store, identityService, rulesService, clk, rnd, gameCfg, logger)
	coordinator := realtime.NewCoordinator(gameController, logger)
	wsServer := realtime.NewServer(coordinator, rnd, realtime.ServerConfig{AllowedOrigins: allowedOrigins}, logger)

	return &App{
		Storage:         store,
		StorageType:     StorageTypeMemory,
		Clock:           clk,
		Random:          rnd,
		IdentityService: identityService,
		RulesService:    rulesService,
		GameController:  gameController,
		Coordinator:     coordinator,
		WSServer:        wsServer,
	}
}

// Run watches the game store until ctx ends, logging when it becomes
// unreachable and once when it recovers
func (a *App) Run(ctx context.Context) {
	if a.monitor != nil {
		a.monitor.run(ctx)
	}
}

// Shutdown closes every websocket connection, then the store
func (a *App) Shutdown(ctx context.Context) error {
	err := a.WSServer.Shutdown(ctx)
	if a.closer != nil {
		err = errors.Join(err, a.closer())
	}
	return err
}
