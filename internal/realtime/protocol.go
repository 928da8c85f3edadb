package realtime

import (
	"encoding/json"
	"errors"

	"github.com/mcoot/chessgame-go/internal/model"
)

// ProtocolVersion is bumped whenever an event name or payload shape changes
const ProtocolVersion = 1

// Client-originated events
const (
	EventIdentify      = "identify"
	EventConnectToGame = "connect-to-game"
	EventCreateGame    = "create-game"
	EventJoinGame      = "join-game"
	EventSyncRequest   = "sync-request"
	EventMove          = "move"
	EventOfferDraw     = "offer-draw"
	EventRespondDraw   = "respond-draw"
	EventResign        = "resign"
)

// Server-originated events
const (
	EventIdentified           = "identified"
	EventGameCreated          = "game-created"
	EventGameJoined           = "game-joined"
	EventSeatAssigned         = "seat-assigned"
	EventStateSync            = "state-sync"
	EventOpponentMove         = "opponent-move"
	EventTurn                 = "turn"
	EventDrawOffered          = "draw-offered"
	EventDrawDeclined         = "draw-declined"
	EventGameDrawn            = "game-drawn"
	EventOpponentResigned     = "opponent-resigned"
	EventYouResigned          = "you-resigned"
	EventOpponentDisconnected = "opponent-disconnected"
	EventError                = "error"
)

// Envelope is the wire frame for every message in both directions
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is an outbound message before encoding
type Event struct {
	Name    string
	Payload any
}

// MarshalJSON encodes the event as an Envelope
func (e Event) MarshalJSON() ([]byte, error) {
	var payload json.RawMessage
	if e.Payload != nil {
		data, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, err
		}
		payload = data
	}
	return json.Marshal(Envelope{Event: e.Name, Payload: payload})
}

// Inbound payloads

// ClaimPayload is sent with identify, connect-to-game and join-game
type ClaimPayload struct {
	UserID model.UserID `json:"user_id"`
	GameID model.GameID `json:"game_id"`
}

type CreateGamePayload struct {
	OwnerUserID model.UserID `json:"owner_user_id"`
}

// GameRefPayload names the game an intent applies to
type GameRefPayload struct {
	GameID model.GameID `json:"game_id"`
}

// MovePayload reports the position after the sender's move
type MovePayload struct {
	GameID model.GameID    `json:"game_id"`
	State  model.GameState `json:"state"`
	Move   model.Move      `json:"move"`
}

type RespondDrawPayload struct {
	GameID   model.GameID `json:"game_id"`
	Accepted bool         `json:"accepted"`
}

// Outbound payloads

type IdentifiedPayload struct {
	GameID model.GameID `json:"game_id"`
}

type GameCreatedPayload struct {
	GameID model.GameID `json:"game_id"`
}

type GameJoinedPayload struct {
	GameID model.GameID `json:"game_id"`
	Seat   model.Seat   `json:"seat"`
}

type SeatAssignedPayload struct {
	GameID model.GameID `json:"game_id"`
	Seat   model.Seat   `json:"seat"`
}

// StateSyncPayload carries the stored GameState verbatim
type StateSyncPayload struct {
	GameID model.GameID `json:"game_id"`
	model.GameState
}

type OpponentMovePayload struct {
	GameID model.GameID `json:"game_id"`
	Move   model.Move   `json:"move"`
	FEN    string       `json:"fen"`
	PGN    string       `json:"pgn"`
}

type TurnPayload struct {
	GameID            model.GameID `json:"game_id"`
	Color             model.Seat   `json:"color"`
	BothSeatsOccupied bool         `json:"both_seats_occupied"`
}

type DrawOfferedPayload struct {
	GameID model.GameID `json:"game_id"`
	By     model.Seat   `json:"by"`
}

// GameOnlyPayload is used by notifications that carry nothing but the game
type GameOnlyPayload struct {
	GameID model.GameID `json:"game_id"`
}

type ResignedPayload struct {
	GameID         model.GameID `json:"game_id"`
	ResigningColor model.Seat   `json:"resigning_color"`
}

type OpponentDisconnectedPayload struct {
	GameID model.GameID `json:"game_id"`
	Seat   model.Seat   `json:"seat"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Intent is the client event that failed, if any
	Intent string `json:"intent,omitempty"`
}

// Protocol errors raised before an intent reaches the coordinator
var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownEvent     = errors.New("unknown event")
)

// Error codes
const (
	CodeBadRequest   = "bad_request"
	CodeAccessDenied = "access_denied"
	CodeNotFound     = "game_not_found"
	CodeGameFull     = "game_full"
	CodeInvalidUser  = "invalid_user"
	CodeInvalidMove  = "invalid_move"
	CodeIllegalMove  = "illegal_move"
	CodeNotYourTurn  = "not_your_turn"
	CodeGameOver     = "game_over"
	CodeNoDrawOffer  = "no_draw_offer"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal_error"
)

var failureMessages = map[string]string{
	EventConnectToGame: "Failed to connect to game",
	EventCreateGame:    "Failed to create game. Please try again.",
	EventJoinGame:      "Failed to join game",
	EventSyncRequest:   "Failed to sync board",
	EventMove:          "Failed to make move",
	EventOfferDraw:     "Failed to offer draw",
	EventRespondDraw:   "Failed to respond to draw",
	EventResign:        "Failed to resign",
}

// ErrorEvent maps err raised while handling intent to an error event.
// Store and unexpected failures get a generic per-intent message.
func ErrorEvent(intent string, err error) Event {
	code, message := classify(err)
	if message == "" {
		message = failureMessages[intent]
		if message == "" {
			message = "Request failed"
		}
	}
	return Event{Name: EventError, Payload: ErrorPayload{Code: code, Message: message, Intent: intent}}
}

func classify(err error) (string, string) {
	switch {
	case errors.Is(err, ErrMalformedMessage):
		return CodeBadRequest, "Malformed message"
	case errors.Is(err, ErrUnknownEvent):
		return CodeBadRequest, "Unknown event"
	case model.IsAccessError(err):
		return CodeAccessDenied, "Invalid game access"
	case errors.Is(err, model.ErrGameNotFound):
		return CodeNotFound, "Game not found"
	case errors.Is(err, model.ErrGameFull):
		return CodeGameFull, "Failed to join game"
	case errors.Is(err, model.ErrInvalidUserID):
		return CodeInvalidUser, "Invalid user id"
	case errors.Is(err, model.ErrInvalidMove):
		return CodeInvalidMove, "Invalid move data"
	case errors.Is(err, model.ErrIllegalMove):
		return CodeIllegalMove, "Illegal move"
	case errors.Is(err, model.ErrNotYourTurn):
		return CodeNotYourTurn, "Not your turn"
	case errors.Is(err, model.ErrGameOver):
		return CodeGameOver, "Game is already over"
	case errors.Is(err, model.ErrNoDrawOffer):
		return CodeNoDrawOffer, "No draw offer to respond to"
	case errors.Is(err, model.ErrStoreUnavailable):
		return CodeUnavailable, ""
	}
	return CodeInternal, ""
}
