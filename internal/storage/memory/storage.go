package memory

import (
	"context"
	"sync"

	"github.com/mcoot/roomserver/internal/model"
	"github.com/mcoot/roomserver/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	rooms map[model.RoomID]*model.Room
	codes map[model.PublicID]model.RoomID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		rooms: make(map[model.RoomID]*model.Room),
		codes: make(map[model.PublicID]model.RoomID),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.codes[room.PublicID]; taken {
		return model.ErrPublicIDTaken
	}
	if _, exists := s.rooms[room.PrivateID]; exists {
		return model.ErrRoomWrite
	}
	room.Version = 1
	s.rooms[room.PrivateID] = room.Clone()
	s.codes[room.PublicID] = room.PrivateID
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *Storage) ResolvePublicID(ctx context.Context, code model.PublicID) (model.RoomID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codes[code]
	if !ok {
		return "", model.ErrRoomNotFound
	}
	return id, nil
}

func (s *Storage) RoomExists(ctx context.Context, id model.RoomID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[id]
	return ok, nil
}

func (s *Storage) UpdateMembers(ctx context.Context, room *model.Room) error {
	return s.update(room, func(stored *model.Room) {
		stored.Players = room.Clone().Players
		stored.Leader = room.Leader
	})
}

func (s *Storage) UpdateSettings(ctx context.Context, room *model.Room) error {
	return s.update(room, func(stored *model.Room) {
		stored.MaxPlayers = room.MaxPlayers
		stored.Started = room.Started
		stored.Private = room.Private
	})
}

func (s *Storage) update(room *model.Room, apply func(stored *model.Room)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rooms[room.PrivateID]
	if !ok {
		return model.ErrRoomNotFound
	}
	if stored.Version != room.Version {
		return model.ErrVersionConflict
	}
	apply(stored)
	stored.Version++
	room.Version = stored.Version
	return nil
}

func (s *Storage) DeleteRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rooms[room.PrivateID]
	if !ok {
		return model.ErrRoomNotFound
	}
	if stored.Version != room.Version {
		return model.ErrVersionConflict
	}
	delete(s.rooms, room.PrivateID)
	if s.codes[room.PublicID] == room.PrivateID {
		delete(s.codes, room.PublicID)
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return nil
}
