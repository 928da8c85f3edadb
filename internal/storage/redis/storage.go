package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/storage"
)

var errTxContention = errors.New("redis transaction retries exhausted")

// Storage is a Redis-backed implementation of the game store.
// Each game is a single JSON document; read-modify-write operations run
// under WATCH so concurrent seat claims from any process stay exclusive.
type Storage struct {
	client *redis.Client
	cfg    Config
	now    func() time.Time
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil && cfg.FailFast {
		_ = client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = DefaultConfig().MaxTxRetries
	}
	return &Storage{
		client: client,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.GameStore = (*Storage)(nil)

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}

	return storage.Unavailable(s.client.Set(ctx, gameKey(game.ID), data, s.cfg.GameTTL).Err())
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	data, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameNotFound
		}
		return nil, storage.Unavailable(err)
	}

	var game model.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *Storage) AssignSeat(ctx context.Context, id model.GameID, owner model.OwnerKey) (model.Seat, error) {
	var seat model.Seat
	_, err := s.update(ctx, id, func(game *model.Game) (bool, error) {
		var claimed bool
		var err error
		seat, claimed, err = game.AssignSeat(owner)
		return claimed, err
	})
	if err != nil {
		return "", err
	}
	return seat, nil
}

func (s *Storage) CurrentSeat(ctx context.Context, id model.GameID, owner model.OwnerKey) (model.Seat, bool, error) {
	game, err := s.GetGame(ctx, id)
	if err != nil {
		return "", false, err
	}
	seat, ok := game.SeatOf(owner)
	return seat, ok, nil
}

func (s *Storage) CurrentTurn(ctx context.Context, id model.GameID) (model.Seat, error) {
	game, err := s.GetGame(ctx, id)
	if err != nil {
		return "", err
	}
	return game.State.Turn, nil
}

func (s *Storage) ApplyState(ctx context.Context, id model.GameID, state model.GameState, moveDelta int) (*model.Game, error) {
	return s.update(ctx, id, func(game *model.Game) (bool, error) {
		game.State = state
		game.MoveCount += moveDelta
		return true, nil
	})
}

func (s *Storage) Ping(ctx context.Context) error {
	return storage.Unavailable(s.client.Ping(ctx).Err())
}

// update runs fn against the stored game inside an optimistic transaction.
// fn reports whether it changed the game; unchanged games are not rewritten.
func (s *Storage) update(ctx context.Context, id model.GameID, fn func(game *model.Game) (bool, error)) (*model.Game, error) {
	key := gameKey(id)
	var result *model.Game

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrGameNotFound
			}
			return err
		}

		var game model.Game
		if err := json.Unmarshal(data, &game); err != nil {
			return err
		}

		changed, err := fn(&game)
		if err != nil {
			return err
		}
		result = &game
		if !changed {
			return nil
		}

		game.UpdatedAt = s.now()
		updated, err := json.Marshal(&game)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, s.cfg.GameTTL)
			return nil
		})
		return err
	}

	for i := 0; i < s.cfg.MaxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, storage.Unavailable(err)
	}
	return nil, storage.Unavailable(errTxContention)
}
