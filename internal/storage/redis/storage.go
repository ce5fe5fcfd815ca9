package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/roomserver/internal/model"
	"github.com/mcoot/roomserver/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	key := roomKey(room.PrivateID)
	idxKey := publicIDIndexKey(room.PublicID)

	created := room.Clone()
	created.Version = 1
	fields, err := encodeRoom(created)
	if err != nil {
		return err
	}

	// Claim the join code first; losing the race here is a normal collision
	claimed, err := s.client.SetNX(ctx, idxKey, string(room.PrivateID), s.cfg.RoomTTL).Result()
	if err != nil {
		return fmt.Errorf("%w: claim public id: %w", model.ErrRoomWrite, err)
	}
	if !claimed {
		return model.ErrPublicIDTaken
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: room %s already exists", model.ErrRoomWrite, room.PrivateID)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			if s.cfg.RoomTTL > 0 {
				pipe.Expire(ctx, key, s.cfg.RoomTTL)
			}
			return nil
		})
		return err
	}, key)
	if err != nil {
		// Release the code so a half-created room never becomes joinable
		_ = s.client.Del(context.WithoutCancel(ctx), idxKey).Err()
		if errors.Is(err, model.ErrRoomWrite) {
			return err
		}
		return fmt.Errorf("%w: %w", model.ErrRoomWrite, err)
	}

	room.Version = created.Version
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	fields, err := s.client.HGetAll(ctx, roomKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrRoomRead, err)
	}
	if len(fields) == 0 {
		return nil, model.ErrRoomNotFound
	}
	return decodeRoom(fields)
}

func (s *Storage) ResolvePublicID(ctx context.Context, code model.PublicID) (model.RoomID, error) {
	id, err := s.client.Get(ctx, publicIDIndexKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrRoomNotFound
		}
		return "", fmt.Errorf("%w: %w", model.ErrRoomRead, err)
	}
	return model.RoomID(id), nil
}

func (s *Storage) RoomExists(ctx context.Context, id model.RoomID) (bool, error) {
	n, err := s.client.Exists(ctx, roomKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", model.ErrRoomRead, err)
	}
	return n > 0, nil
}

func (s *Storage) UpdateMembers(ctx context.Context, room *model.Room) error {
	fields, err := encodeMembers(room)
	if err != nil {
		return err
	}
	return s.compareAndSet(ctx, room, fields)
}

func (s *Storage) UpdateSettings(ctx context.Context, room *model.Room) error {
	return s.compareAndSet(ctx, room, encodeSettings(room))
}

// compareAndSet writes fields only if the stored version still equals
// room.Version. WATCH aborts the transaction if another writer touches the
// hash between the version read and EXEC.
func (s *Storage) compareAndSet(ctx context.Context, room *model.Room, fields map[string]any) error {
	key := roomKey(room.PrivateID)
	next := room.Version + 1
	fields[fieldVersion] = strconv.FormatUint(next, 10)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldVersion).Uint64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrRoomNotFound
			}
			return fmt.Errorf("%w: %w", model.ErrRoomRead, err)
		}
		if current != room.Version {
			return model.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			if s.cfg.RoomTTL > 0 {
				pipe.Expire(ctx, key, s.cfg.RoomTTL)
				pipe.Expire(ctx, publicIDIndexKey(room.PublicID), s.cfg.RoomTTL)
			}
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		room.Version = next
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return model.ErrVersionConflict
	case errors.Is(err, model.ErrRoomNotFound),
		errors.Is(err, model.ErrVersionConflict),
		errors.Is(err, model.ErrRoomRead):
		return err
	default:
		return fmt.Errorf("%w: %w", model.ErrRoomWrite, err)
	}
}

func (s *Storage) DeleteRoom(ctx context.Context, room *model.Room) error {
	key := roomKey(room.PrivateID)
	idxKey := publicIDIndexKey(room.PublicID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldVersion).Uint64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrRoomNotFound
			}
			return fmt.Errorf("%w: %w", model.ErrRoomRead, err)
		}
		if current != room.Version {
			return model.ErrVersionConflict
		}

		owner, err := tx.Get(ctx, idxKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %w", model.ErrRoomRead, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			// The code may have expired and been reclaimed by another room
			if owner == string(room.PrivateID) {
				pipe.Del(ctx, idxKey)
			}
			return nil
		})
		return err
	}, key, idxKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return model.ErrVersionConflict
	case errors.Is(err, model.ErrRoomNotFound),
		errors.Is(err, model.ErrVersionConflict),
		errors.Is(err, model.ErrRoomRead):
		return err
	default:
		return fmt.Errorf("%w: delete: %w", model.ErrRoomWrite, err)
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
