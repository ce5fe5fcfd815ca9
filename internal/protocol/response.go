package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/mcoot/roomserver/internal/model"
)

// Response is the outbound envelope. Room is the room's canonical JSON,
// carried as a string, and only present on success.
type Response struct {
	Status Status  `json:"status"`
	Room   *string `json:"room,omitempty"`
}

// Success renders {"status":200,"room":"<json>"}
func Success(room *model.Room) ([]byte, error) {
	canonical, err := room.Canonical()
	if err != nil {
		return nil, err
	}
	return json.Marshal(Response{Status: StatusOK, Room: &canonical})
}

// Failure renders {"status":<code>}
func Failure(status Status) []byte {
	// Marshalling a struct of an int can not fail
	b, _ := json.Marshal(Response{Status: status})
	return b
}

// DecodeResponse parses an outbound envelope
func DecodeResponse(b []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(b, &r); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return r, nil
}

// DecodeRoom parses the room payload of a success response
func (r Response) DecodeRoom() (*model.Room, error) {
	if r.Room == nil {
		return nil, fmt.Errorf("response with status %d has no room", r.Status)
	}
	var room model.Room
	if err := json.Unmarshal([]byte(*r.Room), &room); err != nil {
		return nil, fmt.Errorf("decode room: %w", err)
	}
	return &room, nil
}
