package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mcoot/roomserver/internal/model"
)

// Destination names accepted in the envelope
const (
	DestinationCreateRoom    = "create-room"
	DestinationJoinRoom      = "join-room"
	DestinationLeaveRoom     = "leave-room"
	DestinationStartRoom     = "start-room"
	DestinationConfigureRoom = "configure-room"
)

// Envelope is the outer shape of every inbound frame. Data holds a JSON
// document, normally as an encoded string.
type Envelope struct {
	Destination string          `json:"destination"`
	Data        json.RawMessage `json:"data"`
}

// Command is one decoded inbound frame. The concrete types below are the
// complete set; Unknown and Malformed are the failure variants.
type Command interface {
	Destination() string
	isCommand()
}

type CreateRoom struct {
	JWT string `json:"jwt"`
}

type JoinRoom struct {
	JWT    string  `json:"jwt"`
	RoomID RoomRef `json:"room_id"`
}

type LeaveRoom struct {
	JWT    string  `json:"jwt"`
	RoomID RoomRef `json:"room_id"`
}

type StartRoom struct {
	JWT    string  `json:"jwt"`
	RoomID RoomRef `json:"room_id"`
}

type ConfigureRoom struct {
	JWT        string  `json:"jwt"`
	RoomID     RoomRef `json:"room_id"`
	MaxPlayers *uint8  `json:"max_players,omitempty"`
	Private    *bool   `json:"private,omitempty"`
}

// Unknown is a well-formed envelope naming a destination we do not serve
type Unknown struct {
	Name string
}

// Malformed is a frame that could not be decoded
type Malformed struct {
	Err error
}

func (CreateRoom) Destination() string    { return DestinationCreateRoom }
func (JoinRoom) Destination() string      { return DestinationJoinRoom }
func (LeaveRoom) Destination() string     { return DestinationLeaveRoom }
func (StartRoom) Destination() string     { return DestinationStartRoom }
func (ConfigureRoom) Destination() string { return DestinationConfigureRoom }
func (u Unknown) Destination() string     { return u.Name }
func (Malformed) Destination() string     { return "" }

func (CreateRoom) isCommand()    {}
func (JoinRoom) isCommand()      {}
func (LeaveRoom) isCommand()     {}
func (StartRoom) isCommand()     {}
func (ConfigureRoom) isCommand() {}
func (Unknown) isCommand()       {}
func (Malformed) isCommand()     {}

// RoomRef is a room id given either as a JSON string or a JSON number.
// Any other value decodes to the empty ref, which the room controller
// rejects only after the credential has been checked.
type RoomRef string

func (r *RoomRef) UnmarshalJSON(b []byte) error {
	*r = ""
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = RoomRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return nil
	}
	if _, err := strconv.ParseUint(n.String(), 10, 32); err != nil {
		return nil
	}
	*r = RoomRef(n.String())
	return nil
}

func (r RoomRef) String() string { return string(r) }

// Decode parses a text frame. It never fails: problems are reported as the
// Malformed or Unknown variants.
func Decode(frame []byte) Command {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Malformed{Err: fmt.Errorf("%w: envelope: %w", model.ErrMalformedFrame, err)}
	}
	if env.Destination == "" {
		return Malformed{Err: fmt.Errorf("%w: missing destination", model.ErrMalformedFrame)}
	}

	var cmd Command
	switch env.Destination {
	case DestinationCreateRoom:
		var c CreateRoom
		if err := decodeData(env.Data, &c); err != nil {
			return Malformed{Err: err}
		}
		cmd = c
	case DestinationJoinRoom:
		var c JoinRoom
		if err := decodeData(env.Data, &c); err != nil {
			return Malformed{Err: err}
		}
		cmd = c
	case DestinationLeaveRoom:
		var c LeaveRoom
		if err := decodeData(env.Data, &c); err != nil {
			return Malformed{Err: err}
		}
		cmd = c
	case DestinationStartRoom:
		var c StartRoom
		if err := decodeData(env.Data, &c); err != nil {
			return Malformed{Err: err}
		}
		cmd = c
	case DestinationConfigureRoom:
		var c ConfigureRoom
		if err := decodeData(env.Data, &c); err != nil {
			return Malformed{Err: err}
		}
		cmd = c
	default:
		return Unknown{Name: env.Destination}
	}
	return cmd
}

// decodeData unwraps the data field, which is normally a string holding
// JSON but may also be the object itself
func decodeData(raw json.RawMessage, into any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fmt.Errorf("%w: missing data", model.ErrMalformedFrame)
	}

	payload := []byte(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("%w: data: %w", model.ErrMalformedFrame, err)
		}
		payload = []byte(s)
	}

	if err := json.Unmarshal(payload, into); err != nil {
		return fmt.Errorf("%w: data: %w", model.ErrMalformedFrame, err)
	}
	return nil
}

// Encode builds the envelope for a command, with data as a JSON string
func Encode(cmd Command) ([]byte, error) {
	switch cmd.(type) {
	case Unknown, Malformed:
		return nil, fmt.Errorf("%w: cannot encode %T", model.ErrMalformedFrame, cmd)
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Destination string `json:"destination"`
		Data        string `json:"data"`
	}{
		Destination: cmd.Destination(),
		Data:        string(data),
	})
}
