package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/chessgame-go/internal/api/response"
	"github.com/mcoot/chessgame-go/internal/realtime"
)

const healthPingTimeout = 2 * time.Second

// Pinger checks a backend is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness, the storage backend and protocol version
type HealthHandler struct {
	store       Pinger
	storageType string
	logger      *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store Pinger, storageType string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, storageType: storageType, logger: logger}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	resp := response.Health{
		Status:   "ok",
		Storage:  h.storageType,
		Protocol: realtime.ProtocolVersion,
	}
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		resp.Status = "unavailable"
		response.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	response.JSON(w, http.StatusOK, resp)
}
