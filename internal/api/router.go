package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/chessgame-go/internal/api/apierr"
	"github.com/mcoot/chessgame-go/internal/api/handler"
	"github.com/mcoot/chessgame-go/internal/middleware"
	"github.com/mcoot/chessgame-go/internal/realtime"
	"github.com/mcoot/chessgame-go/internal/services/game"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	GameController *game.Controller
	Store          handler.Pinger
	StorageType    string
	// Registry reports live connections in game views (optional)
	Registry *realtime.Registry
	// WebSocket serves /ws (optional)
	WebSocket http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	healthHandler := handler.NewHealthHandler(cfg.Store, cfg.StorageType, cfg.Logger)
	gameHandler := handler.NewGameHandler(cfg.GameController, cfg.Registry)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, jsonPanicHandler)

	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	// API subrouter
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/games", gameHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/games/{id}", gameHandler.Get).Methods(http.MethodGet)

	// Realtime endpoint
	if cfg.WebSocket != nil {
		r.Handle("/ws", cfg.WebSocket).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewNotFoundError())
	})

	return r
}

func jsonPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
