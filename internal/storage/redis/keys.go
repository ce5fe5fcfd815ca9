package redis

import (
	"fmt"

	"github.com/mcoot/roomserver/internal/model"
)

// Key prefix for all room data
const keyPrefix = "roomserver"

// roomKey returns the Redis key for a Room hash
func roomKey(id model.RoomID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, id)
}

// publicIDIndexKey returns the Redis key for the public id -> private id index
func publicIDIndexKey(code model.PublicID) string {
	return fmt.Sprintf("%s:idx:public_id:%d", keyPrefix, code)
}
