package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/roomserver/internal/api/response"
)

// Pinger checks a backing store
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionCounter reports live WebSocket sessions
type ConnectionCounter interface {
	Count() int
}

// HealthHandler reports process liveness
type HealthHandler struct {
	storage     Pinger
	connections ConnectionCounter
	logger      *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(storage Pinger, connections ConnectionCounter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage:     storage,
		connections: connections,
		logger:      logger,
	}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := response.Health{
		Status:      response.HealthOK,
		Connections: h.connections.Count(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.storage.Ping(ctx); err != nil {
		h.logger.Warn("storage ping failed", "error", err)
		resp.Status = response.HealthDegraded
		response.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	response.JSON(w, http.StatusOK, resp)
}
