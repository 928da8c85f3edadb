// Package rules checks reported positions against the laws of chess.
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/notnil/chess"

	"github.com/mcoot/chessgame-go/internal/model"
)

// Result is the authoritative position after a verified move
type Result struct {
	FEN     string
	Move    model.Move
	Outcome model.Outcome
	Winner  model.Seat
}

// Service validates moves with a chess engine
type Service struct{}

// New creates a rules service
func New() *Service {
	return &Service{}
}

// Verify finds the single legal move that turns prevFEN into the board
// placement and side to move of reportedFEN. Castling rights, en passant
// and clocks are taken from the engine rather than the report.
func (s *Service) Verify(prevFEN, reportedFEN string) (Result, error) {
	game, err := gameFromFEN(prevFEN)
	if err != nil {
		return Result{}, fmt.Errorf("%w: stored position: %v", model.ErrIllegalMove, err)
	}
	if _, err := chess.FEN(reportedFEN); err != nil {
		return Result{}, fmt.Errorf("%w: %v", model.ErrInvalidMove, err)
	}
	fields := strings.Fields(reportedFEN)

	pos := game.Position()
	for _, m := range game.ValidMoves() {
		next := pos.Update(m)
		if next.Board().String() != fields[0] || colorToken(next.Turn()) != fields[1] {
			continue
		}
		move := describe(pos, m)
		if err := game.Move(m); err != nil {
			return Result{}, fmt.Errorf("%w: %v", model.ErrIllegalMove, err)
		}
		outcome, winner := outcomeOf(game)
		return Result{
			FEN:     game.Position().String(),
			Move:    move,
			Outcome: outcome,
			Winner:  winner,
		}, nil
	}
	return Result{}, model.ErrIllegalMove
}

// ApplySAN plays san on top of state and returns the resulting state
// with the move appended to the PGN movetext
func (s *Service) ApplySAN(state model.GameState, san string) (model.GameState, model.Move, error) {
	game, err := gameFromFEN(state.FEN)
	if err != nil {
		return model.GameState{}, model.Move{}, err
	}
	pos := game.Position()
	m, err := chess.AlgebraicNotation{}.Decode(pos, strings.TrimSpace(san))
	if err != nil {
		return model.GameState{}, model.Move{}, fmt.Errorf("%w: %v", model.ErrIllegalMove, err)
	}
	move := describe(pos, m)
	if err := game.Move(m); err != nil {
		return model.GameState{}, model.Move{}, fmt.Errorf("%w: %v", model.ErrIllegalMove, err)
	}

	outcome, winner := outcomeOf(game)
	next := model.GameState{
		FEN:     game.Position().String(),
		PGN:     appendMovetext(state.PGN, state.FEN, move.SAN),
		Turn:    seatOf(game.Position().Turn()),
		Outcome: outcome,
		Winner:  winner,
	}
	return next, move, nil
}

// TurnOf returns the side to move encoded in fen
func (s *Service) TurnOf(fen string) (model.Seat, error) {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return "", fmt.Errorf("%w: malformed position", model.ErrInvalidMove)
	}
	switch fields[1] {
	case "w":
		return model.SeatWhite, nil
	case "b":
		return model.SeatBlack, nil
	}
	return "", fmt.Errorf("%w: unknown side to move %q", model.ErrInvalidMove, fields[1])
}

// Diagram renders the board of fen as text, white at the bottom
func (s *Service) Diagram(fen string) (string, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrInvalidMove, err)
	}
	return game.Position().Board().Draw(), nil
}

func gameFromFEN(fen string) (*chess.Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return chess.NewGame(opt), nil
}

func describe(pos *chess.Position, m *chess.Move) model.Move {
	move := model.Move{
		From: m.S1().String(),
		To:   m.S2().String(),
		SAN:  chess.AlgebraicNotation{}.Encode(pos, m),
	}
	if m.Promo() != chess.NoPieceType {
		move.Promotion = m.Promo().String()
	}
	return move
}

func outcomeOf(game *chess.Game) (model.Outcome, model.Seat) {
	switch game.Outcome() {
	case chess.WhiteWon:
		return model.OutcomeCheckmate, model.SeatWhite
	case chess.BlackWon:
		return model.OutcomeCheckmate, model.SeatBlack
	case chess.Draw:
		return model.OutcomeDraw, ""
	}
	return model.OutcomeNone, ""
}

func colorToken(c chess.Color) string {
	if c == chess.White {
		return "w"
	}
	return "b"
}

func seatOf(c chess.Color) model.Seat {
	if c == chess.White {
		return model.SeatWhite
	}
	return model.SeatBlack
}

// appendMovetext adds san to pgn, numbering from the fullmove counter in fen
func appendMovetext(pgn, fen, san string) string {
	fields := strings.Fields(fen)
	number := 1
	if len(fields) == 6 {
		if n, err := strconv.Atoi(fields[5]); err == nil && n > 0 {
			number = n
		}
	}
	white := len(fields) < 2 || fields[1] == "w"

	var b strings.Builder
	b.WriteString(strings.TrimSpace(pgn))
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	switch {
	case white:
		fmt.Fprintf(&b, "%d. ", number)
	case b.Len() == 0:
		fmt.Fprintf(&b, "%d... ", number)
	}
	b.WriteString(san)
	return b.String()
}
