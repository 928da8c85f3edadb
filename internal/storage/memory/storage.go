package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/storage"
)

// Storage is an in-memory implementation of the game store
type Storage struct {
	mu    sync.RWMutex
	games map[model.GameID]*model.Game
	now   func() time.Time
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		games: make(map[model.GameID]*model.Game),
		now:   time.Now,
	}
}

// Ensure Storage implements the interface
var _ storage.GameStore = (*Storage)(nil)

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *game
	s.games[game.ID] = &stored
	return nil
}

// GetGame returns a copy so callers cannot mutate the stored record
func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	out := *game
	return &out, nil
}

func (s *Storage) AssignSeat(ctx context.Context, id model.GameID, owner model.OwnerKey) (model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return "", model.ErrGameNotFound
	}
	seat, claimed, err := game.AssignSeat(owner)
	if err != nil {
		return "", err
	}
	if claimed {
		game.UpdatedAt = s.now()
	}
	return seat, nil
}

func (s *Storage) CurrentSeat(ctx context.Context, id model.GameID, owner model.OwnerKey) (model.Seat, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return "", false, model.ErrGameNotFound
	}
	seat, ok := game.SeatOf(owner)
	return seat, ok, nil
}

func (s *Storage) CurrentTurn(ctx context.Context, id model.GameID) (model.Seat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return "", model.ErrGameNotFound
	}
	return game.State.Turn, nil
}

func (s *Storage) ApplyState(ctx context.Context, id model.GameID, state model.GameState, moveDelta int) (*model.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	game.State = state
	game.MoveCount += moveDelta
	game.UpdatedAt = s.now()
	out := *game
	return &out, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

// GameCount returns the number of stored games
func (s *Storage) GameCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}
