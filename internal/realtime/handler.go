package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/chessgame-go/internal/model"
)

// DefaultOpTimeout bounds the store work behind a single intent
const DefaultOpTimeout = 10 * time.Second

type connState int

const (
	stateUnidentified connState = iota
	stateIdentified
	stateBound
)

func (s connState) String() string {
	switch s {
	case stateIdentified:
		return "identified"
	case stateBound:
		return "bound"
	}
	return "unidentified"
}

// Handler decodes the intents arriving on one connection and routes them
// to the coordinator. It tracks what the connection claims to be:
// unidentified, identified as (user, game), or bound to a seat.
// Messages for one connection must be handled sequentially.
type Handler struct {
	coord     *Coordinator
	conn      Conn
	logger    *slog.Logger
	opTimeout time.Duration

	state connState
	user  model.UserID
	game  model.GameID
}

// NewHandler creates the handler for a freshly opened connection
func NewHandler(coord *Coordinator, conn Conn, logger *slog.Logger) *Handler {
	return &Handler{
		coord:     coord,
		conn:      conn,
		logger:    logger.With(slog.String("conn_id", string(conn.ID()))),
		opTimeout: DefaultOpTimeout,
	}
}

// HandleMessage processes one inbound frame. Failures are reported to
// this connection only and never close it.
func (h *Handler) HandleMessage(ctx context.Context, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
		h.fail("", fmt.Errorf("%w: bad envelope", ErrMalformedMessage))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.opTimeout)
	defer cancel()

	if err := h.dispatch(ctx, env); err != nil {
		h.fail(env.Event, err)
	}
}

// Close runs the disconnect path for whatever seat the connection holds
func (h *Handler) Close() {
	h.coord.Disconnect(h.conn)
	h.logger.Debug("connection closed", slog.String("state", h.state.String()))
}

func (h *Handler) dispatch(ctx context.Context, env Envelope) error {
	switch env.Event {
	case EventIdentify:
		var p ClaimPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		return h.identify(p)

	case EventConnectToGame:
		var p ClaimPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		return h.connect(ctx, p)

	case EventCreateGame:
		var p CreateGamePayload
		if err := decode(env, &p); err != nil {
			return err
		}
		if p.OwnerUserID == "" {
			p.OwnerUserID = h.user
		}
		_, err := h.coord.Create(ctx, h.conn, p.OwnerUserID)
		return err

	case EventJoinGame:
		var p ClaimPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		p = h.withClaim(p)
		if err := validateClaim(p); err != nil {
			return err
		}
		_, err := h.coord.Join(ctx, h.conn, p.UserID, p.GameID)
		return err

	case EventSyncRequest:
		var p GameRefPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		if err := h.requireBound(p.GameID); err != nil {
			return err
		}
		return h.coord.Sync(ctx, h.conn, p.GameID)

	case EventMove:
		var p MovePayload
		if err := decode(env, &p); err != nil {
			return err
		}
		if err := h.requireBound(p.GameID); err != nil {
			return err
		}
		return h.coord.Move(ctx, h.conn, p.GameID, p.State, p.Move)

	case EventOfferDraw:
		var p GameRefPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		if err := h.requireBound(p.GameID); err != nil {
			return err
		}
		return h.coord.OfferDraw(ctx, h.conn, p.GameID)

	case EventRespondDraw:
		var p RespondDrawPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		if err := h.requireBound(p.GameID); err != nil {
			return err
		}
		return h.coord.RespondDraw(ctx, h.conn, p.GameID, p.Accepted)

	case EventResign:
		var p GameRefPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		if err := h.requireBound(p.GameID); err != nil {
			return err
		}
		return h.coord.Resign(ctx, h.conn, p.GameID)
	}

	return fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
}

// identify records the connection's claim without touching the store
func (h *Handler) identify(p ClaimPayload) error {
	if err := validateClaim(p); err != nil {
		return err
	}
	if h.state == stateBound {
		if p.UserID != h.user || p.GameID != h.game {
			return model.ErrAlreadyBound
		}
	} else {
		h.user, h.game = p.UserID, p.GameID
		h.state = stateIdentified
	}
	h.coord.broadcast.Send(h.conn, Event{Name: EventIdentified, Payload: IdentifiedPayload{GameID: p.GameID}})
	return nil
}

// connect binds the connection to a seat. Repeating it for the game the
// connection is already bound to resends the seat and state.
func (h *Handler) connect(ctx context.Context, p ClaimPayload) error {
	p = h.withClaim(p)
	if err := validateClaim(p); err != nil {
		return err
	}
	if h.state == stateBound && (p.UserID != h.user || p.GameID != h.game) {
		return model.ErrAlreadyBound
	}

	if _, err := h.coord.Connect(ctx, h.conn, p.UserID, p.GameID); err != nil {
		return err
	}
	h.user, h.game = p.UserID, p.GameID
	h.state = stateBound
	return nil
}

// withClaim fills fields the client left out from its earlier identify
func (h *Handler) withClaim(p ClaimPayload) ClaimPayload {
	if h.state == stateUnidentified {
		return p
	}
	if p.UserID == "" {
		p.UserID = h.user
	}
	if p.GameID == "" {
		p.GameID = h.game
	}
	return p
}

func (h *Handler) requireBound(game model.GameID) error {
	if h.state != stateBound {
		return model.ErrNotBound
	}
	if game != h.game {
		return model.ErrWrongGame
	}
	return nil
}

func (h *Handler) fail(intent string, err error) {
	level := slog.LevelDebug
	if errors.Is(err, model.ErrStoreUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		level = slog.LevelError
	}
	h.logger.Log(context.Background(), level, "intent rejected",
		slog.String("event", intent),
		slog.String("state", h.state.String()),
		slog.String("error", err.Error()))
	h.coord.broadcast.Send(h.conn, ErrorEvent(intent, err))
}

func validateClaim(p ClaimPayload) error {
	if err := p.UserID.Validate(); err != nil {
		return err
	}
	if p.GameID == "" {
		return fmt.Errorf("%w: game_id required", ErrMalformedMessage)
	}
	return nil
}

func decode(env Envelope, v any) error {
	if len(env.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}
