package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/roomserver/internal/model"
	"github.com/mcoot/roomserver/internal/testutil"
)

type ClientSuite struct {
	suite.Suite
	accounts *testutil.FakeAccounts
	client   *Client
	ctx      context.Context
	alice    model.Player
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.accounts = testutil.NewFakeAccounts(s.T())
	s.client = New(Config{BaseURL: s.accounts.URL(), Timeout: time.Second}, testutil.NopLogger())
	s.ctx = context.Background()
	s.alice = model.Player{
		SUID:        "u1",
		Username:    "alice",
		DisplayName: "Alice",
		Statistics:  model.Statistics{GamesWon: 1, GamesPlayed: 2, WordsWritten: 30},
	}
}

// Verify

func (s *ClientSuite) TestVerifyAcceptsValidToken() {
	s.NoError(s.client.Verify(s.ctx, s.accounts.Login(s.alice)))
}

func (s *ClientSuite) TestVerifyRejectsInvalidToken() {
	s.ErrorIs(s.client.Verify(s.ctx, "not-a-token"), model.ErrUnauthorized)
}

func (s *ClientSuite) TestVerifyRejectsExpiredToken() {
	s.accounts.AddPlayer(s.alice)
	s.ErrorIs(s.client.Verify(s.ctx, s.accounts.ExpiredToken(s.alice.SUID)), model.ErrUnauthorized)
}

func (s *ClientSuite) TestVerifyAnyNonOKIsUnauthorized() {
	s.accounts.OverrideVerify(http.StatusInternalServerError, "boom")
	s.ErrorIs(s.client.Verify(s.ctx, "abc"), model.ErrUnauthorized)
}

func (s *ClientSuite) TestVerifyUnreachable() {
	s.accounts.Close()
	s.ErrorIs(s.client.Verify(s.ctx, "abc"), model.ErrDelegateUnreachable)
}

func (s *ClientSuite) TestVerifyTimeout() {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	client := New(Config{BaseURL: slow.URL, Timeout: 5 * time.Second}, testutil.NopLogger())
	ctx, cancel := context.WithTimeout(s.ctx, 50*time.Millisecond)
	defer cancel()

	s.ErrorIs(client.Verify(ctx, "abc"), model.ErrTimeout)
}

func (s *ClientSuite) TestVerifySendsTokenHeader() {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get(TokenHeader)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, testutil.NopLogger())
	s.Require().NoError(client.Verify(s.ctx, "abc"))
	s.Equal("abc", <-got)
}

// Resolve

func (s *ClientSuite) TestResolveReturnsProfile() {
	player, err := s.client.Resolve(s.ctx, s.accounts.Login(s.alice))
	s.Require().NoError(err)
	s.Equal(s.alice, player)
	s.Equal(1, s.accounts.VerifyCalls())
	s.Equal(1, s.accounts.ProfileCalls())
}

func (s *ClientSuite) TestResolveOpaqueToken() {
	s.accounts.AddPlayer(s.alice)
	s.accounts.AddToken("abc", s.alice.SUID)

	player, err := s.client.Resolve(s.ctx, "abc")
	s.Require().NoError(err)
	s.Equal(model.SUID("u1"), player.SUID)
}

func (s *ClientSuite) TestResolveRequestFailure() {
	s.accounts.Close()
	_, err := s.client.Resolve(s.ctx, "abc")
	s.ErrorIs(err, model.ErrAccountRequest)
}

func (s *ClientSuite) TestResolveEmptyBodyIsUnauthorized() {
	s.accounts.OverrideVerify(http.StatusOK, "")
	_, err := s.client.Resolve(s.ctx, "abc")
	s.ErrorIs(err, model.ErrUnauthorized)
}

func (s *ClientSuite) TestResolveUnparseableSUIDEnvelope() {
	s.accounts.OverrideVerify(http.StatusOK, "Unauthorized")
	_, err := s.client.Resolve(s.ctx, "abc")
	s.ErrorIs(err, model.ErrAccountResponseText)

	s.accounts.OverrideVerify(http.StatusOK, `{"id":"u1"}`)
	_, err = s.client.Resolve(s.ctx, "abc")
	s.ErrorIs(err, model.ErrAccountResponseText)
}

func (s *ClientSuite) TestResolveUnknownProfile() {
	s.accounts.AddToken("abc", "ghost")
	_, err := s.client.Resolve(s.ctx, "abc")
	s.ErrorIs(err, model.ErrPlayerParse)
}

func (s *ClientSuite) TestResolveUnparseableProfile() {
	s.accounts.AddPlayer(s.alice)
	s.accounts.AddToken("abc", s.alice.SUID)
	s.accounts.OverrideProfile(http.StatusOK, "{not json")

	_, err := s.client.Resolve(s.ctx, "abc")
	s.ErrorIs(err, model.ErrPlayerParse)
}

func (s *ClientSuite) TestBaseURLWithoutTrailingSlash() {
	s.accounts.AddPlayer(s.alice)
	s.accounts.AddToken("abc", s.alice.SUID)
	base := s.accounts.URL()
	client := New(Config{BaseURL: base[:len(base)-1]}, testutil.NopLogger())

	player, err := client.Resolve(s.ctx, "abc")
	s.Require().NoError(err)
	s.Equal(s.alice.Username, player.Username)
}
