package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mcoot/roomserver/internal/model"
)

// Hash field names. "max-players" keeps the hyphen used by existing data.
const (
	fieldPrivateID  = "private_id"
	fieldPublicID   = "public_id"
	fieldLeader     = "leader"
	fieldPlayers    = "players"
	fieldMaxPlayers = "max-players"
	fieldStarted    = "started"
	fieldPrivate    = "private"
	fieldVersion    = "version"
	fieldCreatedAt  = "created_at"
)

func encodeBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// decodeBool accepts any unsigned integer; zero is false
func decodeBool(s string) (bool, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

func encodeMembers(room *model.Room) (map[string]any, error) {
	leader, err := msgpack.Marshal(room.Leader)
	if err != nil {
		return nil, fmt.Errorf("%w: leader: %w", model.ErrRoomEncode, err)
	}
	players, err := msgpack.Marshal(room.Players)
	if err != nil {
		return nil, fmt.Errorf("%w: players: %w", model.ErrRoomEncode, err)
	}
	return map[string]any{
		fieldLeader:  leader,
		fieldPlayers: players,
	}, nil
}

func encodeSettings(room *model.Room) map[string]any {
	return map[string]any{
		fieldMaxPlayers: strconv.FormatUint(uint64(room.MaxPlayers), 10),
		fieldStarted:    encodeBool(room.Started),
		fieldPrivate:    encodeBool(room.Private),
	}
}

// encodeRoom renders every hash field of the room
func encodeRoom(room *model.Room) (map[string]any, error) {
	fields, err := encodeMembers(room)
	if err != nil {
		return nil, err
	}
	for k, v := range encodeSettings(room) {
		fields[k] = v
	}
	fields[fieldPrivateID] = string(room.PrivateID)
	fields[fieldPublicID] = room.PublicID.String()
	fields[fieldVersion] = strconv.FormatUint(room.Version, 10)
	fields[fieldCreatedAt] = strconv.FormatInt(room.CreatedAt.Unix(), 10)
	return fields, nil
}

// decodeRoom rebuilds a room from its hash. Any missing or unparseable field
// fails the whole load.
func decodeRoom(fields map[string]string) (*model.Room, error) {
	get := func(name string) (string, error) {
		v, ok := fields[name]
		if !ok {
			return "", fmt.Errorf("%w: missing field %q", model.ErrCorruptedRoom, name)
		}
		return v, nil
	}
	corrupt := func(name string, err error) error {
		return fmt.Errorf("%w: field %q: %w", model.ErrCorruptedRoom, name, err)
	}

	var room model.Room

	privateID, err := get(fieldPrivateID)
	if err != nil {
		return nil, err
	}
	room.PrivateID = model.RoomID(privateID)

	publicID, err := get(fieldPublicID)
	if err != nil {
		return nil, err
	}
	code, err := strconv.ParseUint(publicID, 10, 32)
	if err != nil {
		return nil, corrupt(fieldPublicID, err)
	}
	room.PublicID = model.PublicID(code)

	leader, err := get(fieldLeader)
	if err != nil {
		return nil, err
	}
	if err := msgpack.Unmarshal([]byte(leader), &room.Leader); err != nil {
		return nil, corrupt(fieldLeader, err)
	}

	players, err := get(fieldPlayers)
	if err != nil {
		return nil, err
	}
	if err := msgpack.Unmarshal([]byte(players), &room.Players); err != nil {
		return nil, corrupt(fieldPlayers, err)
	}

	maxPlayers, err := get(fieldMaxPlayers)
	if err != nil {
		return nil, err
	}
	n, err := strconv.ParseUint(maxPlayers, 10, 8)
	if err != nil {
		return nil, corrupt(fieldMaxPlayers, err)
	}
	room.MaxPlayers = uint8(n)

	started, err := get(fieldStarted)
	if err != nil {
		return nil, err
	}
	if room.Started, err = decodeBool(started); err != nil {
		return nil, corrupt(fieldStarted, err)
	}

	private, err := get(fieldPrivate)
	if err != nil {
		return nil, err
	}
	if room.Private, err = decodeBool(private); err != nil {
		return nil, corrupt(fieldPrivate, err)
	}

	version, err := get(fieldVersion)
	if err != nil {
		return nil, err
	}
	if room.Version, err = strconv.ParseUint(version, 10, 64); err != nil {
		return nil, corrupt(fieldVersion, err)
	}

	createdAt, err := get(fieldCreatedAt)
	if err != nil {
		return nil, err
	}
	secs, err := strconv.ParseInt(createdAt, 10, 64)
	if err != nil {
		return nil, corrupt(fieldCreatedAt, err)
	}
	room.CreatedAt = time.Unix(secs, 0).UTC()

	if err := room.Validate(); err != nil {
		return nil, err
	}
	return &room, nil
}
