package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/roomserver/internal/model"
)

// FakeAccounts is an in-process Account Manager. It signs HS256 tokens whose
// subject is the player's suid, and also accepts fixed opaque tokens
// registered with AddToken.
type FakeAccounts struct {
	server *httptest.Server
	secret []byte

	mu       sync.RWMutex
	profiles map[model.SUID]model.Player
	tokens   map[string]model.SUID

	verifyOverride  *fakeResponse
	profileOverride *fakeResponse

	verifyCalls  atomic.Int64
	profileCalls atomic.Int64
}

type fakeResponse struct {
	status int
	body   string
}

// NewFakeAccounts starts a fake Account Manager that is closed with the test
func NewFakeAccounts(t testing.TB) *FakeAccounts {
	t.Helper()
	f := &FakeAccounts{
		secret:   []byte("fake-account-manager-secret"),
		profiles: make(map[model.SUID]model.Player),
		tokens:   make(map[string]model.SUID),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /profile/verify-token", f.handleVerify)
	mux.HandleFunc("GET /profile/data/by_suid/{suid}", f.handleProfile)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL with a trailing slash
func (f *FakeAccounts) URL() string {
	return f.server.URL + "/"
}

// Close stops the server early, making it unreachable
func (f *FakeAccounts) Close() {
	f.server.Close()
}

// AddPlayer registers a profile
func (f *FakeAccounts) AddPlayer(p model.Player) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.SUID] = p
}

// AddToken maps an opaque token to a suid
func (f *FakeAccounts) AddToken(token string, suid model.SUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = suid
}

// Token mints a signed token for the suid valid for an hour
func (f *FakeAccounts) Token(suid model.SUID) string {
	return f.sign(suid, time.Now().Add(time.Hour))
}

// ExpiredToken mints a signed token that has already expired
func (f *FakeAccounts) ExpiredToken(suid model.SUID) string {
	return f.sign(suid, time.Now().Add(-time.Minute))
}

// Login registers the player and returns a fresh token for them
func (f *FakeAccounts) Login(p model.Player) string {
	f.AddPlayer(p)
	return f.Token(p.SUID)
}

// OverrideVerify makes every verify-token call answer with status and body
func (f *FakeAccounts) OverrideVerify(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyOverride = &fakeResponse{status: status, body: body}
}

// OverrideProfile makes every profile lookup answer with status and body
func (f *FakeAccounts) OverrideProfile(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileOverride = &fakeResponse{status: status, body: body}
}

// VerifyCalls returns how many verify-token requests were served
func (f *FakeAccounts) VerifyCalls() int {
	return int(f.verifyCalls.Load())
}

// ProfileCalls returns how many profile requests were served
func (f *FakeAccounts) ProfileCalls() int {
	return int(f.profileCalls.Load())
}

func (f *FakeAccounts) sign(suid model.SUID, expires time.Time) string {
	claims := jwt.RegisteredClaims{
		Subject:   string(suid),
		Issuer:    "fake-account-manager",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(f.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (f *FakeAccounts) lookupToken(token string) (model.SUID, bool) {
	f.mu.RLock()
	suid, ok := f.tokens[token]
	f.mu.RUnlock()
	if ok {
		return suid, true
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return f.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", false
	}
	return model.SUID(claims.Subject), true
}

func (f *FakeAccounts) handleVerify(w http.ResponseWriter, r *http.Request) {
	f.verifyCalls.Add(1)

	f.mu.RLock()
	override := f.verifyOverride
	f.mu.RUnlock()
	if override != nil {
		w.WriteHeader(override.status)
		_, _ = w.Write([]byte(override.body))
		return
	}

	suid, ok := f.lookupToken(strings.TrimSpace(r.Header.Get("token")))
	if !ok {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"suid": string(suid)})
}

func (f *FakeAccounts) handleProfile(w http.ResponseWriter, r *http.Request) {
	f.profileCalls.Add(1)

	f.mu.RLock()
	override := f.profileOverride
	player, ok := f.profiles[model.SUID(r.PathValue("suid"))]
	f.mu.RUnlock()

	if override != nil {
		w.WriteHeader(override.status)
		_, _ = w.Write([]byte(override.body))
		return
	}
	if !ok {
		http.Error(w, "no such player", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(player)
}
