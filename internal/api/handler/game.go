package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/chessgame-go/internal/api/request"
	"github.com/mcoot/chessgame-go/internal/api/response"
	"github.com/mcoot/chessgame-go/internal/model"
	"github.com/mcoot/chessgame-go/internal/realtime"
	"github.com/mcoot/chessgame-go/internal/services/game"
)

const maxRequestBody = 4 * 1024

// GameHandler handles game-related endpoints
type GameHandler struct {
	gameController *game.Controller
	registry       *realtime.Registry
}

// NewGameHandler creates a new game handler. registry may be nil, in
// which case no seat is reported as connected.
func NewGameHandler(gameController *game.Controller, registry *realtime.Registry) *GameHandler {
	return &GameHandler{
		gameController: gameController,
		registry:       registry,
	}
}

// Create handles POST /api/v1/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGameRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}
	if req.OwnerUserID == "" {
		WriteError(w, NewInvalidRequestError("owner_user_id is required"))
		return
	}

	g, err := h.gameController.CreateGame(r.Context(), model.UserID(req.OwnerUserID))
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/games/"+string(g.ID))
	response.JSON(w, http.StatusCreated, response.CreatedGame{GameID: string(g.ID)})
}

// Get handles GET /api/v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.GameID(mux.Vars(r)["id"])

	g, err := h.gameController.GetGame(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	var connected func(model.Seat) bool
	if h.registry != nil {
		connected = func(seat model.Seat) bool {
			_, ok := h.registry.Lookup(id, seat)
			return ok
		}
	}
	response.JSON(w, http.StatusOK, response.GameViewFromModel(g, connected))
}
