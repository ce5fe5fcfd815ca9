//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/mcoot/roomserver/internal/model"
)

// ContainerSuite runs the store against a real Redis, where WATCH/MULTI
// behaves exactly as in production
type ContainerSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
	alice   model.Player
}

func TestContainerSuite(t *testing.T) {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	suite.Run(t, new(ContainerSuite))
}

func (s *ContainerSuite) SetupSuite() {
	s.ctx = context.Background()

	ctr, err := tcredis.Run(s.ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(s.T(), ctr)
	s.Require().NoError(err)

	url, err := ctr.ConnectionString(s.ctx)
	s.Require().NoError(err)

	cfg := DefaultConfig()
	cfg.URL = url
	cfg.RoomTTL = time.Hour

	s.storage, err = New(cfg)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = s.storage.Close() })
}

func (s *ContainerSuite) SetupTest() {
	s.Require().NoError(s.storage.client.FlushDB(s.ctx).Err())
	s.alice = model.Player{SUID: "u1", Username: "alice", DisplayName: "Alice"}
}

func (s *ContainerSuite) TestRoundTripWithTTL() {
	room := model.NewRoom(s.alice, "room-1", 12345, time.Unix(1700000000, 0).UTC())
	s.Require().NoError(s.storage.CreateRoom(s.ctx, room))

	loaded, err := s.storage.GetRoom(s.ctx, "room-1")
	s.Require().NoError(err)
	s.Equal(room.Players, loaded.Players)
	s.Equal(uint64(1), loaded.Version)

	for _, key := range []string{roomKey("room-1"), publicIDIndexKey(12345)} {
		ttl, err := s.storage.client.TTL(s.ctx, key).Result()
		s.Require().NoError(err)
		s.Positive(ttl, key)
	}
}

func (s *ContainerSuite) TestConcurrentJoinsLoseNoMember() {
	const joiners = 12
	final, errs := joinConcurrently(s.T(), s.ctx, s.storage, joiners)
	for _, err := range errs {
		s.NoError(err)
	}
	s.Len(final.Players, joiners+1)
}
