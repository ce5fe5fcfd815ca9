package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/roomserver/internal/api"
	"github.com/mcoot/roomserver/internal/dependencies/clock"
	"github.com/mcoot/roomserver/internal/dependencies/random"
	"github.com/mcoot/roomserver/internal/dispatch"
	"github.com/mcoot/roomserver/internal/registry"
	"github.com/mcoot/roomserver/internal/services/identity"
	"github.com/mcoot/roomserver/internal/services/rooms"
	"github.com/mcoot/roomserver/internal/storage"
	"github.com/mcoot/roomserver/internal/storage/memory"
	redisstorage "github.com/mcoot/roomserver/internal/storage/redis"
	"github.com/mcoot/roomserver/internal/transport/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock    clock.Clock
	Random   random.Random
	Identity *identity.Client

	// Services
	RoomController *rooms.Controller
	Registry       *registry.Registry
	Dispatcher     *dispatch.Dispatcher
	WebSocket      *ws.Handler

	logger *slog.Logger
	cancel context.CancelFunc
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// IdentityConfig locates the Account Manager
	IdentityConfig identity.Config
	// RoomsConfig holds retry bounds; zero fields take defaults
	RoomsConfig rooms.Config
	// CommandTimeout bounds each WebSocket command; zero takes the default
	CommandTimeout time.Duration
	// WebSocketConfig holds transport settings; zero fields take defaults
	WebSocketConfig ws.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if cfg.IdentityConfig.BaseURL == "" {
		return nil, errors.New("IdentityConfig.BaseURL is required")
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	return newWithDependencies(store, clock.New(), random.New(), cfg, logger), nil
}

func newStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return redisStore, nil
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory' or 'redis'", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) *App {
	baseCtx, cancel := context.WithCancel(context.Background())

	identityClient := identity.New(cfg.IdentityConfig, logger)
	roomController := rooms.NewController(store, identityClient, clk, rnd, logger, cfg.RoomsConfig)
	reg := registry.New(logger)
	dispatcher := dispatch.New(roomController, reg, logger, cfg.CommandTimeout)
	wsHandler := ws.NewHandler(baseCtx, reg, dispatcher, rnd, logger, cfg.WebSocketConfig)

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		Identity:       identityClient,
		RoomController: roomController,
		Registry:       reg,
		Dispatcher:     dispatcher,
		WebSocket:      wsHandler,
		logger:         logger,
		cancel:         cancel,
	}
}

// Router builds the HTTP handler serving the socket and the REST surface
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:      a.logger,
		Rooms:       a.RoomController,
		Verifier:    a.Identity,
		Storage:     a.Storage,
		Connections: a.Registry,
		WebSocket:   a.WebSocket,
	})
}

// EndSessions asks every WebSocket session to close without waiting
func (a *App) EndSessions() {
	a.cancel()
}

// Close ends every WebSocket session, waits for them, then releases storage
func (a *App) Close() error {
	a.cancel()
	a.WebSocket.Wait()

	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
