package model

import "errors"

// Common errors used across the application
var (
	// Identity errors
	ErrInvalidUserID = errors.New("invalid user id")

	// Game errors
	ErrGameNotFound = errors.New("game not found")
	ErrGameFull     = errors.New("both seats are taken")
	ErrGameOver     = errors.New("game is already over")
	ErrNotYourTurn  = errors.New("not this seat's turn")
	ErrInvalidMove  = errors.New("invalid move data")
	ErrIllegalMove  = errors.New("reported position is not reachable by a legal move")
	ErrNoDrawOffer  = errors.New("no draw offer pending")

	// Connection errors
	ErrNotBound     = errors.New("connection is not bound to a seat")
	ErrWrongGame    = errors.New("connection is bound to a different game")
	ErrAlreadyBound = errors.New("connection is already bound")

	// Storage errors
	ErrStoreUnavailable = errors.New("game store unavailable")
)

// IsAccessError reports whether err rejects an intent from a connection
// that is not bound to the referenced game
func IsAccessError(err error) bool {
	return errors.Is(err, ErrNotBound) || errors.Is(err, ErrWrongGame) || errors.Is(err, ErrAlreadyBound)
}
