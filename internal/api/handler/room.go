package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/roomserver/internal/api/response"
	"github.com/mcoot/roomserver/internal/services/rooms"
)

// RoomHandler serves read-only room lookups
type RoomHandler struct {
	rooms rooms.ControllerInterface
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms rooms.ControllerInterface) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// Get handles GET /api/v1/rooms/{room_id}. The id may be the private id or
// the five digit join code.
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.GetRoom(r.Context(), mux.Vars(r)["room_id"])
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := response.Room(w, http.StatusOK, room); err != nil {
		WriteError(w, err)
	}
}
