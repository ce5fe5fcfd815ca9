package factory

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/roomserver/internal/dependencies/mocks"
	"github.com/mcoot/roomserver/internal/services/identity"
	"github.com/mcoot/roomserver/internal/storage"
	"github.com/mcoot/roomserver/internal/storage/memory"
	redisstorage "github.com/mcoot/roomserver/internal/storage/redis"
	"github.com/mcoot/roomserver/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App over in-memory storage with mocked dependencies.
// accountsURL points at a fake Account Manager.
func NewTestApp(accountsURL string) *TestApp {
	return newTestApp(memory.New(), accountsURL)
}

// NewRedisTestApp creates an App over a Redis client, typically one
// connected to miniredis
func NewRedisTestApp(client *redis.Client, accountsURL string) *TestApp {
	return newTestApp(redisstorage.NewWithClient(client, redisstorage.DefaultConfig()), accountsURL)
}

func newTestApp(store storage.Storage, accountsURL string) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, mockClock, mockRandom, Config{
		IdentityConfig: identity.Config{BaseURL: accountsURL, Timeout: 2 * time.Second},
		CommandTimeout: 2 * time.Second,
	}, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
