package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcoot/chessgame-go/internal/model"
)

// GameStore defines the durable record of games, seats and state
type GameStore interface {
	// CreateGame persists a new game record
	CreateGame(ctx context.Context, game *model.Game) error
	// GetGame returns model.ErrGameNotFound when the game does not exist
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)

	// AssignSeat returns the seat owner already holds, otherwise claims the
	// first free seat atomically. Returns model.ErrGameFull when both seats
	// belong to other owners.
	AssignSeat(ctx context.Context, id model.GameID, owner model.OwnerKey) (model.Seat, error)
	// CurrentSeat reports the seat held by owner, if any
	CurrentSeat(ctx context.Context, id model.GameID, owner model.OwnerKey) (model.Seat, bool, error)
	// CurrentTurn returns the seat to move
	CurrentTurn(ctx context.Context, id model.GameID) (model.Seat, error)

	// ApplyState replaces the game state wholesale, adding moveDelta to the
	// move count. Seat assignments are left untouched.
	ApplyState(ctx context.Context, id model.GameID, state model.GameState, moveDelta int) (*model.Game, error)

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error
}

// Unavailable wraps a backend failure so callers can match
// model.ErrStoreUnavailable. Domain errors pass through unchanged.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrGameNotFound) || errors.Is(err, model.ErrGameFull) ||
		errors.Is(err, model.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
}
