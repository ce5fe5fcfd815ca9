package memory

import (
	"context"
	"testing"
	"time"

	"github.com/mcoot/roomserver/internal/model"
	"github.com/stretchr/testify/suite"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
	leader  model.Player
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
	s.leader = model.Player{SUID: "u1", Username: "alice", DisplayName: "Alice"}
}

func (s *StorageSuite) newRoom(id model.RoomID, code model.PublicID) *model.Room {
	return model.NewRoom(s.leader, id, code, time.Now())
}

func (s *StorageSuite) TestCreateAndGetRoom() {
	room := s.newRoom("room-1", 12345)

	s.Require().NoError(s.storage.CreateRoom(s.ctx, room))
	s.Equal(uint64(1), room.Version)

	retrieved, err := s.storage.GetRoom(s.ctx, "room-1")
	s.Require().NoError(err)
	s.Equal(room.PublicID, retrieved.PublicID)
	s.Equal(room.Leader, retrieved.Leader)
	s.Equal(room.Players, retrieved.Players)
}

func (s *StorageSuite) TestGetRoomNotFound() {
	_, err := s.storage.GetRoom(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestGetRoomReturnsCopy() {
	s.Require().NoError(s.storage.CreateRoom(s.ctx, s.newRoom("room-1", 12345)))

	first, _ := s.storage.GetRoom(s.ctx, "room-1")
	first.Players = append(first.Players, model.NewMember(model.Player{SUID: "u2"}))

	second, _ := s.storage.GetRoom(s.ctx, "room-1")
	s.Len(second.Players, 1)
}

func (s *StorageSuite) TestCreateRoomRejectsTakenPublicID() {
	s.Require().NoError(s.storage.CreateRoom(s.ctx, s.newRoom("room-1", 12345)))

	err := s.storage.CreateRoom(s.ctx, s.newRoom("room-2", 12345))
	s.ErrorIs(err, model.ErrPublicIDTaken)

	exists, _ := s.storage.RoomExists(s.ctx, "room-2")
	s.False(exists)
}

func (s *StorageSuite) TestResolvePublicID() {
	s.Require().NoError(s.storage.CreateRoom(s.ctx, s.newRoom("room-1", 12345)))

	id, err := s.storage.ResolvePublicID(s.ctx, 12345)
	s.Require().NoError(err)
	s.Equal(model.RoomID("room-1"), id)

	_, err = s.storage.ResolvePublicID(s.ctx, 54321)
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestUpdateMembersBumpsVersion() {
	room := s.newRoom("room-1", 12345)
	s.Require().NoError(s.storage.CreateRoom(s.ctx, room))

	s.Require().NoError(room.AddPlayer(model.Player{SUID: "u2"}))
	s.Require().NoError(s.storage.UpdateMembers(s.ctx, room))
	s.Equal(uint64(2), room.Version)

	retrieved, _ := s.storage.GetRoom(s.ctx, "room-1")
	s.Len(retrieved.Players, 2)
	s.Equal(uint64(2), retrieved.Version)
}

func (s *StorageSuite) TestUpdateMembersDetectsConflict() {
	s.Require().NoError(s.storage.CreateRoom(s.ctx, s.newRoom("room-1", 12345)))

	first, _ := s.storage.GetRoom(s.ctx, "room-1")
	second, _ := s.storage.GetRoom(s.ctx, "room-1")

	s.Require().NoError(first.AddPlayer(model.Player{SUID: "u2"}))
	s.Require().NoError(s.storage.UpdateMembers(s.ctx, first))

	s.Require().NoError(second.AddPlayer(model.Player{SUID: "u3"}))
	s.ErrorIs(s.storage.UpdateMembers(s.ctx, second), model.ErrVersionConflict)

	retrieved, _ := s.storage.GetRoom(s.ctx, "room-1")
	s.Len(retrieved.Players, 2)
	s.True(retrieved.HasMember("u2"))
}

func (s *StorageSuite) TestUpdateSettingsLeavesMembersAlone() {
	room := s.newRoom("room-1", 12345)
	s.Require().NoError(s.storage.CreateRoom(s.ctx, room))

	room.Start()
	room.SetPrivate(true)
	s.Require().NoError(room.ChangeMaxPlayers(3))
	s.Require().NoError(s.storage.UpdateSettings(s.ctx, room))

	retrieved, _ := s.storage.GetRoom(s.ctx, "room-1")
	s.True(retrieved.Started)
	s.True(retrieved.Private)
	s.Equal(uint8(3), retrieved.MaxPlayers)
	s.Len(retrieved.Players, 1)
}

func (s *StorageSuite) TestDeleteRoomReleasesPublicID() {
	room := s.newRoom("room-1", 12345)
	s.Require().NoError(s.storage.CreateRoom(s.ctx, room))

	s.Require().NoError(s.storage.DeleteRoom(s.ctx, room))

	exists, _ := s.storage.RoomExists(s.ctx, "room-1")
	s.False(exists)
	_, err := s.storage.ResolvePublicID(s.ctx, 12345)
	s.ErrorIs(err, model.ErrRoomNotFound)

	s.NoError(s.storage.CreateRoom(s.ctx, s.newRoom("room-2", 12345)))
}

func (s *StorageSuite) TestDeleteRoomStaleVersionConflicts() {
	room := s.newRoom("room-1", 12345)
	s.Require().NoError(s.storage.CreateRoom(s.ctx, room))
	stale := room.Clone()

	s.Require().NoError(room.AddPlayer(model.Player{SUID: "u2"}))
	s.Require().NoError(s.storage.UpdateMembers(s.ctx, room))

	s.ErrorIs(s.storage.DeleteRoom(s.ctx, stale), model.ErrVersionConflict)
	exists, _ := s.storage.RoomExists(s.ctx, "room-1")
	s.True(exists)
}
