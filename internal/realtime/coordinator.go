package realtime

import (
	"context"
	"log/slog"

	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/services/game"
)

// Coordinator runs every game-level operation a connection can trigger.
// Each operation holds its game's lock for its whole duration, so seat
// claims, moves, draw and resign transitions and disconnects on one game
// never interleave. It is the only writer of the registry.
type Coordinator struct {
	games     *game.Controller
	registry  *Registry
	broadcast *Broadcaster
	locks     *gameLocks
	logger    *slog.Logger
}

// NewCoordinator creates a coordinator with an empty registry
func NewCoordinator(games *game.Controller, logger *slog.Logger) *Coordinator {
	registry := NewRegistry()
	return &Coordinator{
		games:     games,
		registry:  registry,
		broadcast: NewBroadcaster(registry, games, logger),
		locks:     newGameLocks(),
		logger:    logger.With(slog.String("component", "coordinator")),
	}
}

// Registry exposes the live seat map for inspection
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// Connect binds conn to user's seat in id, claiming a free seat if user
// has none. Repeating it with the same inputs rebinds the same seat and
// leaves the stored game untouched. On success conn receives its seat and
// the full state, then both seats receive the turn.
func (c *Coordinator) Connect(ctx context.Context, conn Conn, user model.UserID, id model.GameID) (model.Seat, error) {
	unlock := c.locks.lock(id)
	defer unlock()

	if bound, _, ok := c.registry.Locate(conn.ID()); ok && bound != id {
		return "", model.ErrAlreadyBound
	}

	g, err := c.games.GetGame(ctx, id)
	if err != nil {
		return "", err
	}

	seat, ok, err := c.games.CurrentSeat(ctx, id, user)
	if err != nil {
		return "", err
	}
	if !ok {
		if seat, err = c.games.JoinGame(ctx, id, user); err != nil {
			return "", err
		}
	}

	if prev, replaced := c.registry.Bind(id, seat, conn); replaced {
		c.logger.Info("seat rebound to new connection",
			slog.String("game_id", string(id)),
			slog.String("seat", string(seat)),
			slog.String("conn_id", string(conn.ID())),
			slog.String("previous_conn_id", string(prev.ID())))
	}

	c.broadcast.Send(conn, Event{Name: EventSeatAssigned, Payload: SeatAssignedPayload{GameID: id, Seat: seat}})
	c.broadcast.Send(conn, stateSync(g))
	c.broadcast.BroadcastCurrentTurn(ctx, id)

	c.logger.Info("connection bound",
		slog.String("game_id", string(id)),
		slog.String("seat", string(seat)),
		slog.String("conn_id", string(conn.ID())))
	return seat, nil
}

// Join claims a seat for user without binding the connection
func (c *Coordinator) Join(ctx context.Context, conn Conn, user model.UserID, id model.GameID) (model.Seat, error) {
	unlock := c.locks.lock(id)
	defer unlock()

	seat, err := c.games.JoinGame(ctx, id, user)
	if err != nil {
		return "", err
	}
	c.broadcast.Send(conn, Event{Name: EventGameJoined, Payload: GameJoinedPayload{GameID: id, Seat: seat}})
	return seat, nil
}

// Create makes a new game owned by owner and replies with its id
func (c *Coordinator) Create(ctx context.Context, conn Conn, owner model.UserID) (model.GameID, error) {
	g, err := c.games.CreateGame(ctx, owner)
	if err != nil {
		return "", err
	}
	c.broadcast.Send(conn, Event{Name: EventGameCreated, Payload: GameCreatedPayload{GameID: g.ID}})
	return g.ID, nil
}

// Sync resends the stored state of id to conn
func (c *Coordinator) Sync(ctx context.Context, conn Conn, id model.GameID) error {
	if _, err := c.seatOf(conn, id); err != nil {
		return err
	}
	g, err := c.games.GetGame(ctx, id)
	if err != nil {
		return err
	}
	c.broadcast.Send(conn, stateSync(g))
	return nil
}

// Move persists the position conn reports, forwards the move to the
// opponent and broadcasts the new turn. Nothing is sent unless the
// position was stored.
func (c *Coordinator) Move(ctx context.Context, conn Conn, id model.GameID, reported model.GameState, move model.Move) error {
	unlock := c.locks.lock(id)
	defer unlock()

	seat, err := c.seatOf(conn, id)
	if err != nil {
		return err
	}

	g, move, err := c.games.ApplyMove(ctx, id, seat, reported, move)
	if err != nil {
		return err
	}
	c.registry.ClearDrawOffer(id)

	c.broadcast.ToSeat(id, seat.Opponent(), Event{Name: EventOpponentMove, Payload: OpponentMovePayload{
		GameID: id,
		Move:   move,
		FEN:    g.State.FEN,
		PGN:    g.State.PGN,
	}})
	c.broadcast.BroadcastCurrentTurn(ctx, id)
	return nil
}

// OfferDraw records conn's draw offer and tells the opponent
func (c *Coordinator) OfferDraw(ctx context.Context, conn Conn, id model.GameID) error {
	unlock := c.locks.lock(id)
	defer unlock()

	seat, err := c.seatOf(conn, id)
	if err != nil {
		return err
	}
	g, err := c.games.GetGame(ctx, id)
	if err != nil {
		return err
	}
	if g.State.Outcome.IsTerminal() {
		return model.ErrGameOver
	}

	c.registry.OfferDraw(id, seat)
	c.broadcast.ToSeat(id, seat.Opponent(), Event{Name: EventDrawOffered, Payload: DrawOfferedPayload{GameID: id, By: seat}})
	return nil
}

// RespondDraw answers the opponent's outstanding draw offer. Accepting
// ends the game drawn and tells both seats; declining tells the offerer.
func (c *Coordinator) RespondDraw(ctx context.Context, conn Conn, id model.GameID, accepted bool) error {
	unlock := c.locks.lock(id)
	defer unlock()

	seat, err := c.seatOf(conn, id)
	if err != nil {
		return err
	}
	offerer, ok := c.registry.DrawOffer(id)
	if !ok || offerer != seat.Opponent() {
		return model.ErrNoDrawOffer
	}

	if !accepted {
		c.registry.ClearDrawOffer(id)
		c.broadcast.ToSeat(id, offerer, Event{Name: EventDrawDeclined, Payload: GameOnlyPayload{GameID: id}})
		return nil
	}

	if _, err := c.games.AcceptDraw(ctx, id); err != nil {
		return err
	}
	c.registry.ClearDrawOffer(id)
	c.broadcast.ToSeats(id, Event{Name: EventGameDrawn, Payload: GameOnlyPayload{GameID: id}})
	return nil
}

// Resign ends the game as a win for conn's opponent
func (c *Coordinator) Resign(ctx context.Context, conn Conn, id model.GameID) error {
	unlock := c.locks.lock(id)
	defer unlock()

	seat, err := c.seatOf(conn, id)
	if err != nil {
		return err
	}
	if _, err := c.games.Resign(ctx, id, seat); err != nil {
		return err
	}
	c.registry.ClearDrawOffer(id)

	payload := ResignedPayload{GameID: id, ResigningColor: seat}
	c.broadcast.ToSeat(id, seat.Opponent(), Event{Name: EventOpponentResigned, Payload: payload})
	c.broadcast.Send(conn, Event{Name: EventYouResigned, Payload: payload})
	return nil
}

// Disconnect releases conn's seat, if it holds one, after telling the
// opponent. The stored game is not touched.
func (c *Coordinator) Disconnect(conn Conn) {
	id, _, ok := c.registry.Locate(conn.ID())
	if !ok {
		return
	}

	unlock := c.locks.lock(id)
	defer unlock()

	// The seat may have been rebound while waiting for the lock
	seat, ok := c.registry.SeatOf(id, conn.ID())
	if !ok {
		return
	}

	c.broadcast.ToSeat(id, seat.Opponent(), Event{Name: EventOpponentDisconnected, Payload: OpponentDisconnectedPayload{GameID: id, Seat: seat}})
	c.registry.Unbind(id, seat)

	c.logger.Info("connection released",
		slog.String("game_id", string(id)),
		slog.String("seat", string(seat)),
		slog.String("conn_id", string(conn.ID())),
		slog.Bool("game_idle", c.registry.IsEmpty(id)))
}

// seatOf returns conn's seat in id or the access error explaining why
// conn may not act on id
func (c *Coordinator) seatOf(conn Conn, id model.GameID) (model.Seat, error) {
	bound, seat, ok := c.registry.Locate(conn.ID())
	if !ok {
		return "", model.ErrNotBound
	}
	if bound != id {
		return "", model.ErrWrongGame
	}
	return seat, nil
}

func stateSync(g *model.Game) Event {
	return Event{Name: EventStateSync, Payload: StateSyncPayload{GameID: g.ID, GameState: g.State}}
}
