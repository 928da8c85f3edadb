package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/chessgame-go/internal/dependencies/clock"
	"github.com/mcoot/chessgame-go/internal/dependencies/random"
	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/services/identity"
	"github.com/mcoot/chessgame-go/internal/services/rules"
	"github.com/mcoot/chessgame-go/internal/storage"
)

const (
	gameIDLength    = 10
	maxIDCollisions = 5
)

// Config holds game controller settings
type Config struct {
	// ValidateMoves replays each reported position through the rules engine.
	// When false the reported position and outcome are trusted as sent.
	ValidateMoves bool
}

// DefaultConfig returns the default controller configuration
func DefaultConfig() Config {
	return Config{ValidateMoves: true}
}

// Controller owns every transition of a game's persisted state
type Controller struct {
	store    storage.GameStore
	identity *identity.Service
	rules    *rules.Service
	clock    clock.Clock
	random   random.Random
	cfg      Config
	logger   *slog.Logger
}

// NewController creates a new GameController
func NewController(
	store storage.GameStore,
	identity *identity.Service,
	rules *rules.Service,
	clock clock.Clock,
	random random.Random,
	cfg Config,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		store:    store,
		identity: identity,
		rules:    rules,
		clock:    clock,
		random:   random,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "game")),
	}
}

// CreateGame records a new game in the starting position. The owner is
// remembered but not seated; seats go to whoever joins first.
func (c *Controller) CreateGame(ctx context.Context, owner model.UserID) (*model.Game, error) {
	ownerKey, err := c.identity.OwnerKey(owner)
	if err != nil {
		return nil, err
	}

	id, err := c.newGameID(ctx)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	game := &model.Game{
		ID:        id,
		Owner:     ownerKey,
		State:     model.InitialGameState(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.store.CreateGame(ctx, game); err != nil {
		c.logger.Error("failed to save game",
			slog.String("game_id", string(id)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	c.logger.Info("game created",
		slog.String("game_id", string(id)),
		slog.String("owner", ownerKey.Short()),
	)
	return game, nil
}

func (c *Controller) newGameID(ctx context.Context) (model.GameID, error) {
	for i := 0; i < maxIDCollisions; i++ {
		id := model.GameID(c.random.String(gameIDLength, random.GameCodeAlphabet))
		_, err := c.store.GetGame(ctx, id)
		if errors.Is(err, model.ErrGameNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not allocate a free game id after %d attempts", maxIDCollisions)
}

// GetGame retrieves a game by ID
func (c *Controller) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	return c.store.GetGame(ctx, id)
}

// JoinGame returns the seat user already holds or claims the first free one
func (c *Controller) JoinGame(ctx context.Context, id model.GameID, user model.UserID) (model.Seat, error) {
	owner, err := c.identity.OwnerKey(user)
	if err != nil {
		return "", err
	}
	seat, err := c.store.AssignSeat(ctx, id, owner)
	if err != nil {
		return "", err
	}

	c.logger.Debug("seat assigned",
		slog.String("game_id", string(id)),
		slog.String("seat", string(seat)),
		slog.String("owner", owner.Short()),
	)
	return seat, nil
}

// CurrentSeat reports the seat user holds, if any
func (c *Controller) CurrentSeat(ctx context.Context, id model.GameID, user model.UserID) (model.Seat, bool, error) {
	owner, err := c.identity.OwnerKey(user)
	if err != nil {
		return "", false, err
	}
	return c.store.CurrentSeat(ctx, id, owner)
}

// CurrentTurn returns the seat to move
func (c *Controller) CurrentTurn(ctx context.Context, id model.GameID) (model.Seat, error) {
	return c.store.CurrentTurn(ctx, id)
}

// ApplyMove persists the position seat reports after moving. It returns
// the updated game and the move to forward to the opponent.
func (c *Controller) ApplyMove(ctx context.Context, id model.GameID, seat model.Seat, reported model.GameState, move model.Move) (*model.Game, model.Move, error) {
	if reported.FEN == "" || reported.PGN == "" {
		return nil, model.Move{}, model.ErrInvalidMove
	}
	if reported.Outcome == "" {
		reported.Outcome = model.OutcomeNone
	}
	if !reported.Outcome.Valid() {
		return nil, model.Move{}, model.ErrInvalidMove
	}

	game, err := c.store.GetGame(ctx, id)
	if err != nil {
		return nil, model.Move{}, err
	}
	if game.State.Outcome.IsTerminal() {
		return nil, model.Move{}, model.ErrGameOver
	}
	if game.State.Turn != seat {
		return nil, model.Move{}, model.ErrNotYourTurn
	}

	next := model.GameState{
		FEN:     reported.FEN,
		PGN:     reported.PGN,
		Turn:    seat.Opponent(),
		Outcome: reported.Outcome,
	}

	if c.cfg.ValidateMoves {
		result, err := c.rules.Verify(game.State.FEN, reported.FEN)
		if err != nil {
			c.logger.Info("move rejected",
				slog.String("game_id", string(id)),
				slog.String("seat", string(seat)),
				slog.String("error", err.Error()),
			)
			return nil, model.Move{}, err
		}
		next.FEN = result.FEN
		next.Winner = result.Winner
		// Repetition draws depend on history the position does not carry,
		// so a reported draw stands when the engine sees the game as live.
		if result.Outcome != model.OutcomeNone || reported.Outcome != model.OutcomeDraw {
			next.Outcome = result.Outcome
		}
		move = result.Move
	} else if next.Outcome == model.OutcomeCheckmate {
		next.Winner = seat
	}

	updated, err := c.store.ApplyState(ctx, id, next, 1)
	if err != nil {
		c.logger.Error("failed to persist move",
			slog.String("game_id", string(id)),
			slog.String("error", err.Error()),
		)
		return nil, model.Move{}, err
	}

	c.logger.Debug("move applied",
		slog.String("game_id", string(id)),
		slog.String("seat", string(seat)),
		slog.String("san", move.SAN),
		slog.Int("move_count", updated.MoveCount),
	)
	if next.Outcome.IsTerminal() {
		c.logger.Info("game finished",
			slog.String("game_id", string(id)),
			slog.String("outcome", string(next.Outcome)),
			slog.String("winner", string(next.Winner)),
		)
	}
	return updated, move, nil
}

// AcceptDraw ends the game drawn, leaving position and turn as they were
func (c *Controller) AcceptDraw(ctx context.Context, id model.GameID) (*model.Game, error) {
	return c.finish(ctx, id, model.OutcomeDraw, "")
}

// Resign ends the game as a win for the opponent of seat
func (c *Controller) Resign(ctx context.Context, id model.GameID, seat model.Seat) (*model.Game, error) {
	return c.finish(ctx, id, model.OutcomeCheckmate, seat.Opponent())
}

func (c *Controller) finish(ctx context.Context, id model.GameID, outcome model.Outcome, winner model.Seat) (*model.Game, error) {
	game, err := c.store.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if game.State.Outcome.IsTerminal() {
		return nil, model.ErrGameOver
	}

	state := game.State
	state.Outcome = outcome
	state.Winner = winner

	updated, err := c.store.ApplyState(ctx, id, state, 0)
	if err != nil {
		return nil, err
	}

	c.logger.Info("game finished",
		slog.String("game_id", string(id)),
		slog.String("outcome", string(outcome)),
		slog.String("winner", string(winner)),
	)
	return updated, nil
}
