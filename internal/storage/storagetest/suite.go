// Package storagetest holds the behaviour every GameStore backend must share.
package storagetest

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/storage"
)

// GameStoreSuite runs the game store contract against a backend.
// Embed it and call SetupStore from the backend's SetupTest.
type GameStoreSuite struct {
	suite.Suite
	Store storage.GameStore
	Ctx   context.Context
}

// SetupStore points the shared cases at a fresh backend
func (s *GameStoreSuite) SetupStore(store storage.GameStore) {
	s.Store = store
	s.Ctx = context.Background()
}

func (s *GameStoreSuite) newGame(id model.GameID) *model.Game {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	game := &model.Game{
		ID:        id,
		Owner:     "owner",
		State:     model.InitialGameState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.Store.CreateGame(s.Ctx, game))
	return game
}

func (s *GameStoreSuite) TestCreateAndGetGame() {
	s.newGame("GAME1")

	game, err := s.Store.GetGame(s.Ctx, "GAME1")
	s.Require().NoError(err)
	s.Equal(model.GameID("GAME1"), game.ID)
	s.Equal(model.OwnerKey("owner"), game.Owner)
	s.Equal(model.StartingFEN, game.State.FEN)
	s.Equal(model.SeatWhite, game.State.Turn)
	s.Equal(model.OutcomeNone, game.State.Outcome)
	s.Empty(game.White)
	s.Empty(game.Black)
}

func (s *GameStoreSuite) TestGetGameNotFound() {
	_, err := s.Store.GetGame(s.Ctx, "MISSING")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *GameStoreSuite) TestAssignSeatWhiteThenBlack() {
	s.newGame("GAME1")

	seat, err := s.Store.AssignSeat(s.Ctx, "GAME1", "alice")
	s.Require().NoError(err)
	s.Equal(model.SeatWhite, seat)

	seat, err = s.Store.AssignSeat(s.Ctx, "GAME1", "bob")
	s.Require().NoError(err)
	s.Equal(model.SeatBlack, seat)

	_, err = s.Store.AssignSeat(s.Ctx, "GAME1", "carol")
	s.ErrorIs(err, model.ErrGameFull)
}

func (s *GameStoreSuite) TestAssignSeatIsStickyForSameOwner() {
	s.newGame("GAME1")

	_, err := s.Store.AssignSeat(s.Ctx, "GAME1", "alice")
	s.Require().NoError(err)
	_, err = s.Store.AssignSeat(s.Ctx, "GAME1", "bob")
	s.Require().NoError(err)

	for i := 0; i < 3; i++ {
		seat, err := s.Store.AssignSeat(s.Ctx, "GAME1", "bob")
		s.Require().NoError(err)
		s.Equal(model.SeatBlack, seat)
	}
}

func (s *GameStoreSuite) TestAssignSeatGameNotFound() {
	_, err := s.Store.AssignSeat(s.Ctx, "MISSING", "alice")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *GameStoreSuite) TestAssignSeatConcurrentClaimsNeverShareASeat() {
	s.newGame("GAME1")

	owners := []model.OwnerKey{"a", "b", "c", "d", "e", "f"}
	results := make([]model.Seat, len(owners))
	errs := make([]error, len(owners))

	var wg sync.WaitGroup
	for i, owner := range owners {
		wg.Add(1)
		go func(i int, owner model.OwnerKey) {
			defer wg.Done()
			results[i], errs[i] = s.Store.AssignSeat(s.Ctx, "GAME1", owner)
		}(i, owner)
	}
	wg.Wait()

	seated := map[model.Seat]int{}
	for i := range owners {
		if errs[i] == nil {
			seated[results[i]]++
		}
	}
	s.Equal(1, seated[model.SeatWhite])
	s.Equal(1, seated[model.SeatBlack])

	game, err := s.Store.GetGame(s.Ctx, "GAME1")
	s.Require().NoError(err)
	s.NotEmpty(game.White)
	s.NotEmpty(game.Black)
	s.NotEqual(game.White, game.Black)
}

func (s *GameStoreSuite) TestCurrentSeat() {
	s.newGame("GAME1")
	_, err := s.Store.AssignSeat(s.Ctx, "GAME1", "alice")
	s.Require().NoError(err)

	seat, ok, err := s.Store.CurrentSeat(s.Ctx, "GAME1", "alice")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(model.SeatWhite, seat)

	_, ok, err = s.Store.CurrentSeat(s.Ctx, "GAME1", "bob")
	s.Require().NoError(err)
	s.False(ok)

	_, _, err = s.Store.CurrentSeat(s.Ctx, "MISSING", "alice")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *GameStoreSuite) TestApplyStateReplacesStateAndKeepsSeats() {
	s.newGame("GAME1")
	_, err := s.Store.AssignSeat(s.Ctx, "GAME1", "alice")
	s.Require().NoError(err)

	next := model.GameState{
		FEN:     "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
		PGN:     "1. e4",
		Turn:    model.SeatBlack,
		Outcome: model.OutcomeNone,
	}
	game, err := s.Store.ApplyState(s.Ctx, "GAME1", next, 1)
	s.Require().NoError(err)
	s.Equal(next, game.State)
	s.Equal(1, game.MoveCount)
	s.Equal(model.OwnerKey("alice"), game.White)

	turn, err := s.Store.CurrentTurn(s.Ctx, "GAME1")
	s.Require().NoError(err)
	s.Equal(model.SeatBlack, turn)

	reloaded, err := s.Store.GetGame(s.Ctx, "GAME1")
	s.Require().NoError(err)
	s.Equal(next, reloaded.State)
	s.Equal(model.OwnerKey("alice"), reloaded.White)
}

func (s *GameStoreSuite) TestApplyStateGameNotFound() {
	_, err := s.Store.ApplyState(s.Ctx, "MISSING", model.InitialGameState(), 1)
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *GameStoreSuite) TestCurrentTurnGameNotFound() {
	_, err := s.Store.CurrentTurn(s.Ctx, "MISSING")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *GameStoreSuite) TestPing() {
	s.NoError(s.Store.Ping(s.Ctx))
}
