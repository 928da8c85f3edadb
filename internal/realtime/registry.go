package realtime

import (
	"sync"

	"github.com/mcoot/chessgame-go/internal/model"
)

// binding is the live state of one game: who is connected in each seat
// and which seat, if any, has a draw offer outstanding
type binding struct {
	seats     map[model.Seat]Conn
	drawOffer model.Seat
}

type location struct {
	game model.GameID
	seat model.Seat
}

// Registry maps games to the connections currently sitting in their seats.
// It starts empty, gains an entry on the first bind for a game and drops
// it on the last unbind. Nothing in it is persisted.
type Registry struct {
	mu     sync.RWMutex
	games  map[model.GameID]*binding
	byConn map[ConnID]location
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		games:  make(map[model.GameID]*binding),
		byConn: make(map[ConnID]location),
	}
}

// Bind places conn in seat, replacing whichever connection held it.
// It returns the replaced connection, if any.
func (r *Registry) Bind(game model.GameID, seat model.Seat, conn Conn) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A connection carries at most one claim
	if loc, ok := r.byConn[conn.ID()]; ok && loc != (location{game, seat}) {
		r.unbindLocked(loc.game, loc.seat)
	}

	b, ok := r.games[game]
	if !ok {
		b = &binding{seats: make(map[model.Seat]Conn, 2)}
		r.games[game] = b
	}

	prev, hadPrev := b.seats[seat]
	if hadPrev && prev.ID() != conn.ID() {
		delete(r.byConn, prev.ID())
	}
	b.seats[seat] = conn
	r.byConn[conn.ID()] = location{game, seat}

	if hadPrev && prev.ID() != conn.ID() {
		return prev, true
	}
	return nil, false
}

// Unbind removes whatever connection holds seat. The game's entry is
// deleted once neither seat is held.
func (r *Registry) Unbind(game model.GameID, seat model.Seat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unbindLocked(game, seat)
}

func (r *Registry) unbindLocked(game model.GameID, seat model.Seat) {
	b, ok := r.games[game]
	if !ok {
		return
	}
	if conn, ok := b.seats[seat]; ok {
		delete(r.byConn, conn.ID())
		delete(b.seats, seat)
	}
	b.drawOffer = ""
	if len(b.seats) == 0 {
		delete(r.games, game)
	}
}

// SeatOf returns the seat conn occupies in game
func (r *Registry) SeatOf(game model.GameID, conn ConnID) (model.Seat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.byConn[conn]
	if !ok || loc.game != game {
		return "", false
	}
	return loc.seat, true
}

// Locate returns the game and seat conn occupies, wherever that is
func (r *Registry) Locate(conn ConnID) (model.GameID, model.Seat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.byConn[conn]
	return loc.game, loc.seat, ok
}

// Lookup returns the connection in seat
func (r *Registry) Lookup(game model.GameID, seat model.Seat) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.games[game]
	if !ok {
		return nil, false
	}
	conn, ok := b.seats[seat]
	return conn, ok
}

// Opponent returns the connection in the seat facing seat
func (r *Registry) Opponent(game model.GameID, seat model.Seat) (Conn, bool) {
	return r.Lookup(game, seat.Opponent())
}

// IsEmpty reports whether neither seat of game is held
func (r *Registry) IsEmpty(game model.GameID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.games[game]
	return !ok
}

// BothOccupied reports whether both seats of game are held
func (r *Registry) BothOccupied(game model.GameID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.games[game]
	return ok && len(b.seats) == 2
}

// OfferDraw records that seat offered a draw, replacing any earlier offer
func (r *Registry) OfferDraw(game model.GameID, seat model.Seat) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.games[game]
	if !ok {
		return false
	}
	b.drawOffer = seat
	return true
}

// DrawOffer returns the seat with an outstanding draw offer
func (r *Registry) DrawOffer(game model.GameID) (model.Seat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.games[game]
	if !ok || b.drawOffer == "" {
		return "", false
	}
	return b.drawOffer, true
}

// ClearDrawOffer drops any outstanding draw offer
func (r *Registry) ClearDrawOffer(game model.GameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.games[game]; ok {
		b.drawOffer = ""
	}
}

// GameCount returns the number of games with at least one live seat
func (r *Registry) GameCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// ConnCount returns the number of bound connections
func (r *Registry) ConnCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
