package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/roomserver/internal/api/handler"
	"github.com/mcoot/roomserver/internal/api/middleware"
	rootmw "github.com/mcoot/roomserver/internal/middleware"
	"github.com/mcoot/roomserver/internal/services/rooms"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Rooms       rooms.ControllerInterface
	Verifier    middleware.Verifier
	Storage     handler.Pinger
	Connections handler.ConnectionCounter
	// WebSocket serves the signaling endpoint
	WebSocket http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	roomHandler := handler.NewRoomHandler(cfg.Rooms)
	healthHandler := handler.NewHealthHandler(cfg.Storage, cfg.Connections, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.Verifier)
	loggingMiddleware := rootmw.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	// Signaling socket; commands carry their own credentials
	r.Handle("/ws", cfg.WebSocket).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	roomRoutes := api.PathPrefix("/rooms").Subrouter()
	roomRoutes.Use(authMiddleware)
	roomRoutes.HandleFunc("/{room_id}", roomHandler.Get).Methods(http.MethodGet)

	return r
}
