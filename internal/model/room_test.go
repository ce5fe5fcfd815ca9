package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RoomSuite struct {
	suite.Suite
	alice Player
	bob   Player
	carol Player
	room  *Room
}

func TestRoomSuite(t *testing.T) {
	suite.Run(t, new(RoomSuite))
}

func (s *RoomSuite) SetupTest() {
	s.alice = Player{SUID: "u1", Username: "alice", DisplayName: "Alice"}
	s.bob = Player{SUID: "u2", Username: "bob", DisplayName: "Bob"}
	s.carol = Player{SUID: "u3", Username: "carol", DisplayName: "Carol"}
	s.room = NewRoom(s.alice, "room-1", 12345, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
}

func (s *RoomSuite) TestNewRoomDefaults() {
	s.Len(s.room.Players, 1)
	s.Equal(s.alice.SUID, s.room.Leader.SUID)
	s.Equal(DefaultMaxPlayers, s.room.MaxPlayers)
	s.False(s.room.Started)
	s.False(s.room.Private)
	s.Equal(RoomStateCreated, s.room.State())
	s.NoError(s.room.Validate())
}

func (s *RoomSuite) TestAddPlayerAppendsInOrder() {
	s.Require().NoError(s.room.AddPlayer(s.bob))
	s.Require().NoError(s.room.AddPlayer(s.carol))

	s.Equal([]SUID{"u1", "u2", "u3"}, suids(s.room))
	s.True(s.room.IsLeader("u1"))
}

func (s *RoomSuite) TestAddPlayerRejectsDuplicate() {
	s.ErrorIs(s.room.AddPlayer(s.alice), ErrAlreadyInRoom)
	s.Len(s.room.Players, 1)
}

func (s *RoomSuite) TestAddPlayerRejectsWhenFull() {
	s.Require().NoError(s.room.ChangeMaxPlayers(2))
	s.Require().NoError(s.room.AddPlayer(s.bob))

	s.ErrorIs(s.room.AddPlayer(s.carol), ErrRoomFull)
	s.Len(s.room.Players, 2)
}

func (s *RoomSuite) TestRemoveLeaderPromotesNextMember() {
	s.Require().NoError(s.room.AddPlayer(s.bob))
	s.Require().NoError(s.room.AddPlayer(s.carol))

	disband, err := s.room.RemovePlayer("u1")
	s.Require().NoError(err)
	s.False(disband)
	s.Equal(SUID("u2"), s.room.Leader.SUID)
	s.Equal([]SUID{"u2", "u3"}, suids(s.room))
	s.NoError(s.room.Validate())
}

func (s *RoomSuite) TestRemoveNonLeaderKeepsLeader() {
	s.Require().NoError(s.room.AddPlayer(s.bob))
	s.Require().NoError(s.room.AddPlayer(s.carol))

	disband, err := s.room.RemovePlayer("u2")
	s.Require().NoError(err)
	s.False(disband)
	s.Equal(SUID("u1"), s.room.Leader.SUID)
	s.Equal([]SUID{"u1", "u3"}, suids(s.room))
}

func (s *RoomSuite) TestRemoveLastMemberDisbands() {
	disband, err := s.room.RemovePlayer("u1")
	s.Require().NoError(err)
	s.True(disband)
	s.Empty(s.room.Players)
	s.Equal(RoomStateDisbanded, s.room.State())
}

func (s *RoomSuite) TestRemoveUnknownPlayer() {
	_, err := s.room.RemovePlayer("nobody")
	s.ErrorIs(err, ErrNotInRoom)
}

func (s *RoomSuite) TestChangeMaxPlayersBelowMembership() {
	s.Require().NoError(s.room.AddPlayer(s.bob))

	s.ErrorIs(s.room.ChangeMaxPlayers(1), ErrInvalidMaxPlayers)
	s.ErrorIs(s.room.ChangeMaxPlayers(0), ErrInvalidMaxPlayers)
	s.NoError(s.room.ChangeMaxPlayers(2))
	s.Equal(uint8(2), s.room.MaxPlayers)
}

func (s *RoomSuite) TestStartLatches() {
	s.room.Start()
	s.room.Start()
	s.True(s.room.Started)
	s.Equal(RoomStateStarted, s.room.State())
}

func (s *RoomSuite) TestValidateCatchesBrokenInvariants() {
	orphan := s.room.Clone()
	orphan.Leader = s.bob
	s.ErrorIs(orphan.Validate(), ErrCorruptedRoom)

	dup := s.room.Clone()
	dup.Players = append(dup.Players, NewMember(s.alice))
	s.ErrorIs(dup.Validate(), ErrCorruptedRoom)

	badCode := s.room.Clone()
	badCode.PublicID = 99
	s.ErrorIs(badCode.Validate(), ErrCorruptedRoom)
}

func (s *RoomSuite) TestCloneDoesNotAlias() {
	c := s.room.Clone()
	s.Require().NoError(c.AddPlayer(s.bob))
	s.Len(s.room.Players, 1)
}

func (s *RoomSuite) TestCanonicalForm() {
	out, err := s.room.Canonical()
	s.Require().NoError(err)

	var decoded map[string]any
	s.Require().NoError(json.Unmarshal([]byte(out), &decoded))
	s.Equal("room-1", decoded["private_id"])
	s.InDelta(12345, decoded["public_id"], 0)
	s.InDelta(5, decoded["max_players"], 0)
	s.Equal(false, decoded["started"])
	s.Equal(false, decoded["private"])
	s.NotContains(decoded, "Version")

	leader := decoded["leader"].(map[string]any)
	s.Equal("u1", leader["suid"])
	players := decoded["players"].([]any)
	s.Require().Len(players, 1)
	s.Equal("alice", players[0].(map[string]any)["username"])
}

func TestParsePublicID(t *testing.T) {
	id, err := ParsePublicID("12345")
	require.NoError(t, err)
	assert.Equal(t, PublicID(12345), id)

	for _, bad := range []string{"9999", "100000", "abc", "", "-1"} {
		_, err := ParsePublicID(bad)
		assert.ErrorIs(t, err, ErrInvalidRoomID, bad)
	}
}

func suids(r *Room) []SUID {
	out := make([]SUID, 0, len(r.Players))
	for _, m := range r.Players {
		out = append(out, m.SUID)
	}
	return out
}
