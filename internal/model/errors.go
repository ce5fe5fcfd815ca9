package model

import "errors"

// Common errors used across the application
var (
	// Auth errors
	ErrUnauthorized        = errors.New("unauthorized")
	ErrDelegateUnreachable = errors.New("identity service unreachable")
	ErrAccountRequest      = errors.New("account manager request failed")
	ErrAccountResponseText = errors.New("account manager response is not a suid envelope")
	ErrPlayerParse         = errors.New("player profile could not be parsed")

	// Room errors
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room is full")
	ErrAlreadyInRoom     = errors.New("player is already in room")
	ErrNotInRoom         = errors.New("player is not in room")
	ErrNotLeader         = errors.New("player is not the room leader")
	ErrInvalidMaxPlayers = errors.New("invalid max players")
	ErrInvalidRoomID     = errors.New("invalid room id")

	// Persistence errors
	ErrCorruptedRoom     = errors.New("room is corrupted")
	ErrRoomRead          = errors.New("room read failed")
	ErrRoomEncode        = errors.New("room encode failed")
	ErrRoomWrite         = errors.New("room write failed")
	ErrRoomUpdatePlayers = errors.New("room players update failed")
	ErrVersionConflict   = errors.New("room was modified concurrently")
	ErrPublicIDTaken     = errors.New("public id already in use")

	// Protocol errors
	ErrMalformedFrame     = errors.New("malformed frame")
	ErrUnknownDestination = errors.New("unknown destination")
	ErrNonTextFrame       = errors.New("frame is not text")

	ErrTimeout = errors.New("operation timed out")
)
