package model

import (
	"fmt"
	"time"
)

// GameID uniquely identifies a game
type GameID string

// StartingFEN is the standard chess starting position
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Seat is one of the two playing roles in a game
type Seat string

const (
	SeatWhite Seat = "white"
	SeatBlack Seat = "black"
)

// Seats lists both seats in assignment order
var Seats = [2]Seat{SeatWhite, SeatBlack}

// Opponent returns the other seat
func (s Seat) Opponent() Seat {
	if s == SeatWhite {
		return SeatBlack
	}
	return SeatWhite
}

// ParseSeat converts a wire or stored value into a Seat
func ParseSeat(v string) (Seat, error) {
	seat := Seat(v)
	if !seat.Valid() {
		return "", fmt.Errorf("unknown seat %q", v)
	}
	return seat, nil
}

// Valid reports whether s is white or black
func (s Seat) Valid() bool {
	return s == SeatWhite || s == SeatBlack
}

// Outcome is the terminal classification of a game
type Outcome string

const (
	OutcomeNone      Outcome = "none"
	OutcomeCheckmate Outcome = "checkmate"
	OutcomeDraw      Outcome = "draw"
)

// IsTerminal returns true once the game has finished
func (o Outcome) IsTerminal() bool {
	return o == OutcomeCheckmate || o == OutcomeDraw
}

// Valid reports whether o is a known outcome
func (o Outcome) Valid() bool {
	return o == OutcomeNone || o.IsTerminal()
}

// GameState is the authoritative snapshot of a game's progress
type GameState struct {
	FEN     string  `json:"fen"`
	PGN     string  `json:"pgn"`
	Turn    Seat    `json:"turn"`
	Outcome Outcome `json:"outcome"`
	Winner  Seat    `json:"winner,omitempty"` // Set on checkmate and resignation
}

// InitialGameState returns the state of a freshly created game
func InitialGameState() GameState {
	return GameState{
		FEN:     StartingFEN,
		PGN:     "",
		Turn:    SeatWhite,
		Outcome: OutcomeNone,
	}
}

// Game is the durable record held by the game store
type Game struct {
	ID    GameID   `json:"id"`
	Owner OwnerKey `json:"owner"`

	// Seat owners; empty while the seat is unclaimed
	White OwnerKey `json:"white,omitempty"`
	Black OwnerKey `json:"black,omitempty"`

	State     GameState `json:"state"`
	MoveCount int       `json:"move_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SeatOf returns the seat held by owner, if any
func (g *Game) SeatOf(owner OwnerKey) (Seat, bool) {
	switch {
	case owner == "":
		return "", false
	case g.White == owner:
		return SeatWhite, true
	case g.Black == owner:
		return SeatBlack, true
	}
	return "", false
}

// FreeSeat returns the first unclaimed seat, white before black
func (g *Game) FreeSeat() (Seat, bool) {
	if g.White == "" {
		return SeatWhite, true
	}
	if g.Black == "" {
		return SeatBlack, true
	}
	return "", false
}

// Claim records owner in seat
func (g *Game) Claim(seat Seat, owner OwnerKey) {
	if seat == SeatWhite {
		g.White = owner
	} else {
		g.Black = owner
	}
}

// AssignSeat returns the seat owner already holds, or claims the first free one.
// Shared by the store backends so they agree on assignment order.
func (g *Game) AssignSeat(owner OwnerKey) (Seat, bool, error) {
	if seat, ok := g.SeatOf(owner); ok {
		return seat, false, nil
	}
	seat, ok := g.FreeSeat()
	if !ok {
		return "", false, ErrGameFull
	}
	g.Claim(seat, owner)
	return seat, true, nil
}

// Move describes a single move as clients exchange it. The server
// forwards it to the opponent as reported.
type Move struct {
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	SAN       string `json:"san,omitempty"`
	Promotion string `json:"promotion,omitempty"`
}
