package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcoot/roomserver/internal/model"
)

// Status is the numeric code carried in every response envelope
type Status int

const (
	StatusOK Status = 200

	// StatusBadFrame covers malformed envelopes, unknown destinations and
	// non-text frames. The session stays open.
	StatusBadFrame Status = 400

	// StatusUnauthorized also covers unknown rooms and rejected membership
	// changes, so clients cannot probe which rooms exist.
	StatusUnauthorized        Status = 401
	StatusDelegateUnreachable Status = 402
	StatusRoomRead            Status = 404
	StatusRoomEncode          Status = 405
	StatusRoomWrite           Status = 406
	StatusCorruptedRoom       Status = 407
	StatusTimeout             Status = 408

	StatusParseAccountAPIRes     Status = 420
	StatusParseAccountAPIResText Status = 421
	StatusPlayerParse            Status = 422
	StatusRoomUpdatePlayers      Status = 423

	StatusInternal Status = 500
)

var statusNames = map[Status]string{
	StatusOK:                     "ok",
	StatusBadFrame:               "bad frame",
	StatusUnauthorized:           "unauthorized",
	StatusDelegateUnreachable:    "identity service unreachable",
	StatusRoomRead:               "room read failed",
	StatusRoomEncode:             "room encode failed",
	StatusRoomWrite:              "room write failed",
	StatusCorruptedRoom:          "corrupted room",
	StatusTimeout:                "timeout",
	StatusParseAccountAPIRes:     "account manager request failed",
	StatusParseAccountAPIResText: "account manager response unparseable",
	StatusPlayerParse:            "player profile unparseable",
	StatusRoomUpdatePlayers:      "room players update failed",
	StatusInternal:               "internal error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status %d", int(s))
}

// StatusFromError converts a domain error to its wire status
func StatusFromError(err error) Status {
	switch {
	case err == nil:
		return StatusOK

	case errors.Is(err, model.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout

	case errors.Is(err, model.ErrMalformedFrame),
		errors.Is(err, model.ErrUnknownDestination),
		errors.Is(err, model.ErrNonTextFrame):
		return StatusBadFrame

	// Auth errors
	case errors.Is(err, model.ErrDelegateUnreachable):
		return StatusDelegateUnreachable
	case errors.Is(err, model.ErrAccountRequest):
		return StatusParseAccountAPIRes
	case errors.Is(err, model.ErrAccountResponseText):
		return StatusParseAccountAPIResText
	case errors.Is(err, model.ErrPlayerParse):
		return StatusPlayerParse
	case errors.Is(err, model.ErrUnauthorized):
		return StatusUnauthorized

	// Membership rejections
	case errors.Is(err, model.ErrRoomNotFound),
		errors.Is(err, model.ErrInvalidRoomID),
		errors.Is(err, model.ErrRoomFull),
		errors.Is(err, model.ErrAlreadyInRoom),
		errors.Is(err, model.ErrNotInRoom),
		errors.Is(err, model.ErrNotLeader),
		errors.Is(err, model.ErrInvalidMaxPlayers):
		return StatusUnauthorized

	// Persistence errors
	case errors.Is(err, model.ErrCorruptedRoom):
		return StatusCorruptedRoom
	case errors.Is(err, model.ErrRoomUpdatePlayers),
		errors.Is(err, model.ErrVersionConflict):
		return StatusRoomUpdatePlayers
	case errors.Is(err, model.ErrRoomEncode):
		return StatusRoomEncode
	case errors.Is(err, model.ErrRoomWrite),
		errors.Is(err, model.ErrPublicIDTaken):
		return StatusRoomWrite
	case errors.Is(err, model.ErrRoomRead):
		return StatusRoomRead

	default:
		return StatusInternal
	}
}
