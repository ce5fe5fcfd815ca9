package storage

import (
	"context"

	"github.com/mcoot/roomserver/internal/model"
)

// Storage defines the interface for room persistence.
//
// Writes that take a *model.Room are compare-and-set on room.Version: the
// persisted version must equal room.Version or model.ErrVersionConflict is
// returned. On success room.Version is advanced to the stored value.
type Storage interface {
	// CreateRoom persists a new room and claims its public id. Either both
	// the room and its public id index exist afterwards or neither does.
	CreateRoom(ctx context.Context, room *model.Room) error

	// GetRoom loads a room by private id. A room missing any field, or one
	// that breaks the membership invariants, yields model.ErrCorruptedRoom.
	GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error)

	// ResolvePublicID maps a join code to the room's private id
	ResolvePublicID(ctx context.Context, code model.PublicID) (model.RoomID, error)

	RoomExists(ctx context.Context, id model.RoomID) (bool, error)

	// UpdateMembers rewrites the member list and leader only
	UpdateMembers(ctx context.Context, room *model.Room) error

	// UpdateSettings rewrites max players, started and private only
	UpdateSettings(ctx context.Context, room *model.Room) error

	// DeleteRoom removes the room and its public id index. It is
	// compare-and-set like the updates.
	DeleteRoom(ctx context.Context, room *model.Room) error

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error
}
