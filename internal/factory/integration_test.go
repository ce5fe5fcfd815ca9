package factory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/roomserver/internal/dispatch"
	"github.com/mcoot/roomserver/internal/model"
	"github.com/mcoot/roomserver/internal/protocol"
	"github.com/mcoot/roomserver/internal/services/identity"
	redisstorage "github.com/mcoot/roomserver/internal/storage/redis"
	"github.com/mcoot/roomserver/internal/testutil"
)

// inbox collects replies for one registered connection
type inbox struct {
	msgs [][]byte
}

func (i *inbox) Send(msg []byte) error {
	i.msgs = append(i.msgs, msg)
	return nil
}

type IntegrationSuite struct {
	suite.Suite
	accounts *testutil.FakeAccounts
	app      *TestApp
	ctx      context.Context
	alice    model.Player
	bob      model.Player
	carol    model.Player
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.accounts = testutil.NewFakeAccounts(s.T())
	s.app = NewTestApp(s.accounts.URL())
	s.ctx = context.Background()

	s.alice = model.Player{SUID: "u1", Username: "alice", DisplayName: "Alice"}
	s.bob = model.Player{SUID: "u2", Username: "bob", DisplayName: "Bob"}
	s.carol = model.Player{SUID: "u3", Username: "carol", DisplayName: "Carol"}
	for token, p := range map[string]model.Player{"abc": s.alice, "def": s.bob, "ghi": s.carol} {
		s.accounts.AddPlayer(p)
		s.accounts.AddToken(token, p.SUID)
	}
}

func (s *IntegrationSuite) TearDownTest() {
	s.NoError(s.app.Close())
}

// send pushes a command through the dispatcher as connection connID
func (s *IntegrationSuite) send(connID string, box *inbox, cmd protocol.Command) protocol.Response {
	frame, err := protocol.Encode(cmd)
	s.Require().NoError(err)

	before := len(box.msgs)
	s.app.Dispatcher.Handle(s.ctx, connID, dispatch.FrameText, frame)
	s.Require().Len(box.msgs, before+1)

	resp, err := protocol.DecodeResponse(box.msgs[before])
	s.Require().NoError(err)
	return resp
}

func (s *IntegrationSuite) room(resp protocol.Response) *model.Room {
	s.Require().Equal(protocol.StatusOK, resp.Status)
	room, err := resp.DecodeRoom()
	s.Require().NoError(err)
	return room
}

// Test: Complete room lifecycle from creation to disband
func (s *IntegrationSuite) TestCompleteRoomLifecycle() {
	s.app.MockRandom.QueueIntn(2345)

	aliceBox, bobBox, carolBox := &inbox{}, &inbox{}, &inbox{}
	s.app.Registry.Register("c-alice", aliceBox)
	s.app.Registry.Register("c-bob", bobBox)
	s.app.Registry.Register("c-carol", carolBox)

	// Step 1: Alice creates a room
	room := s.room(s.send("c-alice", aliceBox, protocol.CreateRoom{JWT: "abc"}))
	s.Equal(model.PublicID(12345), room.PublicID)
	s.Equal(s.alice.SUID, room.Leader.SUID)

	// Step 2: Bob joins by code, Carol by private id
	s.room(s.send("c-bob", bobBox, protocol.JoinRoom{JWT: "def", RoomID: "12345"}))
	room = s.room(s.send("c-carol", carolBox, protocol.JoinRoom{JWT: "ghi", RoomID: protocol.RoomRef(room.PrivateID)}))
	s.Len(room.Players, 3)

	// Step 3: Alice shrinks the room to its current size
	maxPlayers := uint8(3)
	room = s.room(s.send("c-alice", aliceBox, protocol.ConfigureRoom{JWT: "abc", RoomID: "12345", MaxPlayers: &maxPlayers}))
	s.Equal(uint8(3), room.MaxPlayers)

	// Step 4: Alice leaves, Bob inherits leadership
	room = s.room(s.send("c-alice", aliceBox, protocol.LeaveRoom{JWT: "abc", RoomID: "12345"}))
	s.Equal(s.bob.SUID, room.Leader.SUID)

	// Step 5: Bob starts the room
	room = s.room(s.send("c-bob", bobBox, protocol.StartRoom{JWT: "def", RoomID: "12345"}))
	s.True(room.Started)
	s.Equal(model.RoomStateStarted, room.State())

	// Step 6: Everyone leaves and the code is released
	s.room(s.send("c-bob", bobBox, protocol.LeaveRoom{JWT: "def", RoomID: "12345"}))
	room = s.room(s.send("c-carol", carolBox, protocol.LeaveRoom{JWT: "ghi", RoomID: "12345"}))
	s.Empty(room.Players)

	_, err := s.app.Storage.ResolvePublicID(s.ctx, 12345)
	s.ErrorIs(err, model.ErrRoomNotFound)

	// No reply ever crossed connections
	s.Len(aliceBox.msgs, 3)
	s.Len(bobBox.msgs, 3)
	s.Len(carolBox.msgs, 2)
}

func (s *IntegrationSuite) TestRouterServesHealthAndRooms() {
	s.app.MockRandom.QueueIntn(2345)
	room, err := s.app.RoomController.CreateRoom(s.ctx, "abc")
	s.Require().NoError(err)

	router := s.app.Router()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"status":"ok","connections":0}`, rr.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/12345", nil)
	req.Header.Set("token", "def")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	s.Equal(http.StatusOK, rr.Code)

	canonical, err := room.Canonical()
	s.Require().NoError(err)
	s.JSONEq(canonical, rr.Body.String())
}

func identityConfig() identity.Config {
	return identity.Config{BaseURL: "http://127.0.0.1:1/"}
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err, "identity url is required")

	_, err = New(Config{StorageType: "postgres", IdentityConfig: identityConfig()})
	assert.Error(t, err)

	_, err = New(Config{StorageType: StorageTypeRedis, IdentityConfig: identityConfig()})
	assert.Error(t, err)
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := redisstorage.DefaultConfig()
	cfg.URL = "redis://" + mr.Addr()

	app, err := New(Config{
		StorageType:    StorageTypeRedis,
		RedisConfig:    &cfg,
		IdentityConfig: identityConfig(),
	})
	require.NoError(t, err)
	defer app.Close()

	assert.IsType(t, &redisstorage.Storage{}, app.Storage)
	assert.NoError(t, app.Storage.Ping(context.Background()))
}

func TestRedisTestAppRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	accounts := testutil.NewFakeAccounts(t)
	alice := model.Player{SUID: "u1", Username: "alice"}

	app := NewRedisTestApp(client, accounts.URL())
	defer app.Close()

	room, err := app.RoomController.CreateRoom(context.Background(), accounts.Login(alice))
	require.NoError(t, err)
	assert.True(t, mr.Exists("roomserver:room:"+string(room.PrivateID)))
}
