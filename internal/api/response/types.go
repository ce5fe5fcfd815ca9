package response

import (
	"net/http"

	"github.com/mcoot/roomserver/internal/model"
)

// Health statuses
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// Health is the response for the health endpoint
type Health struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// Room writes the room's canonical JSON, the same document WebSocket
// clients receive in the room field
func Room(w http.ResponseWriter, status int, room *model.Room) error {
	body, err := room.Canonical()
	if err != nil {
		return err
	}
	Raw(w, status, []byte(body))
	return nil
}
