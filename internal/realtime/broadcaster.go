package realtime

import (
	"context"
	"log/slog"

	"github.com/mcoot/chessgame-go/internal/model"
)

// Broadcaster pushes events to the live seats of a game. Seats with no
// connection are skipped.
type Broadcaster struct {
	registry *Registry
	turns    TurnSource
	logger   *slog.Logger
}

// TurnSource reports the stored side to move
type TurnSource interface {
	CurrentTurn(ctx context.Context, id model.GameID) (model.Seat, error)
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(registry *Registry, turns TurnSource, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		turns:    turns,
		logger:   logger.With(slog.String("component", "broadcaster")),
	}
}

// BroadcastCurrentTurn reads the turn from the store and sends it to both
// seats along with whether both are currently connected
func (b *Broadcaster) BroadcastCurrentTurn(ctx context.Context, game model.GameID) {
	turn, err := b.turns.CurrentTurn(ctx, game)
	if err != nil {
		b.logger.Warn("could not read current turn",
			slog.String("game_id", string(game)),
			slog.String("error", err.Error()))
		return
	}

	b.ToSeats(game, Event{Name: EventTurn, Payload: TurnPayload{
		GameID:            game,
		Color:             turn,
		BothSeatsOccupied: b.registry.BothOccupied(game),
	}})
}

// ToSeats sends event to every live seat of game
func (b *Broadcaster) ToSeats(game model.GameID, event Event) {
	for _, seat := range model.Seats {
		b.ToSeat(game, seat, event)
	}
}

// ToSeat sends event to the connection in seat, if there is one
func (b *Broadcaster) ToSeat(game model.GameID, seat model.Seat, event Event) {
	conn, ok := b.registry.Lookup(game, seat)
	if !ok {
		return
	}
	b.Send(conn, event)
}

// Send delivers event to conn, logging rather than failing on a dead peer
func (b *Broadcaster) Send(conn Conn, event Event) {
	if err := conn.Send(event); err != nil {
		b.logger.Debug("event not delivered",
			slog.String("conn_id", string(conn.ID())),
			slog.String("event", event.Name),
			slog.String("error", err.Error()))
	}
}
