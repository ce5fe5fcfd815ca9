package rooms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/roomserver/internal/dependencies/clock"
	"github.com/mcoot/roomserver/internal/dependencies/random"
	"github.com/mcoot/roomserver/internal/model"
	"github.com/mcoot/roomserver/internal/storage"
)

// Authenticator resolves bearer credentials to players
type Authenticator interface {
	// Verify returns nil when the credential is authorized
	Verify(ctx context.Context, jwt string) error
	// Resolve fetches the profile of the credential's owner
	Resolve(ctx context.Context, jwt string) (model.Player, error)
}

// Config holds retry bounds for the room controller
type Config struct {
	// MaxCodeAttempts bounds retries when a generated public id is taken
	MaxCodeAttempts int
	// MaxWriteAttempts bounds load-modify-write retries on version conflicts.
	// A writer only loses a round to another writer's successful write, so
	// N contending writers all land within N attempts.
	MaxWriteAttempts int
	// RetryBaseDelay and RetryMaxDelay shape the jittered backoff between
	// conflicting attempts
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// DefaultConfig returns default room controller configuration
func DefaultConfig() Config {
	return Config{
		MaxCodeAttempts:  10,
		MaxWriteAttempts: 64,
		RetryBaseDelay:   time.Millisecond,
		RetryMaxDelay:    50 * time.Millisecond,
	}
}

// Settings are the leader-controlled room options. Nil fields are left unchanged.
type Settings struct {
	MaxPlayers *uint8
	Private    *bool
}

// Controller drives the room lifecycle over the identity service and storage
type Controller struct {
	storage storage.Storage
	auth    Authenticator
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
	cfg     Config
}

// NewController creates a new room Controller
func NewController(
	storage storage.Storage,
	auth Authenticator,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	defaults := DefaultConfig()
	if cfg.MaxCodeAttempts <= 0 {
		cfg.MaxCodeAttempts = defaults.MaxCodeAttempts
	}
	if cfg.MaxWriteAttempts <= 0 {
		cfg.MaxWriteAttempts = defaults.MaxWriteAttempts
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaults.RetryBaseDelay
	}
	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		cfg.RetryMaxDelay = max(defaults.RetryMaxDelay, cfg.RetryBaseDelay)
	}
	return &Controller{
		storage: storage,
		auth:    auth,
		clock:   clock,
		random:  random,
		logger:  logger,
		cfg:     cfg,
	}
}

// GenPrivateID returns a fresh unguessable room id
func (c *Controller) GenPrivateID() model.RoomID {
	return model.RoomID(c.random.UUID())
}

// GenPublicID returns a uniformly random join code in [10000, 100000)
func (c *Controller) GenPublicID() model.PublicID {
	return model.PublicIDMin + model.PublicID(c.random.Intn(int(model.PublicIDMax-model.PublicIDMin)))
}

// authenticate verifies the credential and resolves its owner
func (c *Controller) authenticate(ctx context.Context, jwt string) (model.Player, error) {
	if err := c.auth.Verify(ctx, jwt); err != nil {
		return model.Player{}, err
	}
	return c.auth.Resolve(ctx, jwt)
}

// CreateRoom creates a room led by the credential's owner
func (c *Controller) CreateRoom(ctx context.Context, jwt string) (*model.Room, error) {
	leader, err := c.authenticate(ctx, jwt)
	if err != nil {
		return nil, err
	}

	privateID := c.GenPrivateID()
	for attempt := 1; attempt <= c.cfg.MaxCodeAttempts; attempt++ {
		room := model.NewRoom(leader, privateID, c.GenPublicID(), c.clock.Now())

		err := c.storage.CreateRoom(ctx, room)
		if err == nil {
			c.logger.Info("room created",
				"room_id", room.PrivateID,
				"public_id", room.PublicID,
				"leader", leader.SUID,
			)
			return room, nil
		}
		if !errors.Is(err, model.ErrPublicIDTaken) {
			return nil, err
		}
		c.logger.Debug("public id collision", "public_id", room.PublicID, "attempt", attempt)
	}

	return nil, fmt.Errorf("%w: no free public id after %d attempts", model.ErrRoomWrite, c.cfg.MaxCodeAttempts)
}

// GetRoom loads a room by private id or five digit public id
func (c *Controller) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	id, err := c.resolveRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return c.storage.GetRoom(ctx, id)
}

// JoinRoom adds the credential's owner to the room. Joining a room the
// player is already in returns it unchanged.
func (c *Controller) JoinRoom(ctx context.Context, jwt string, roomID string) (*model.Room, error) {
	player, err := c.authenticate(ctx, jwt)
	if err != nil {
		return nil, err
	}
	id, err := c.resolveRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	room, err := c.update(ctx, id, func(room *model.Room) (change, error) {
		if room.HasMember(player.SUID) {
			return changeNone, nil
		}
		if err := room.AddPlayer(player); err != nil {
			return changeNone, err
		}
		return changeMembers, nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("player joined room", "room_id", room.PrivateID, "suid", player.SUID, "members", len(room.Players))
	return room, nil
}

// LeaveRoom removes the credential's owner from the room. A departing leader
// hands over to the next member in join order; the last member out disbands
// the room and the final, empty snapshot is returned.
func (c *Controller) LeaveRoom(ctx context.Context, jwt string, roomID string) (*model.Room, error) {
	player, err := c.authenticate(ctx, jwt)
	if err != nil {
		return nil, err
	}
	id, err := c.resolveRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	room, err := c.update(ctx, id, func(room *model.Room) (change, error) {
		disband, err := room.RemovePlayer(player.SUID)
		if err != nil {
			return changeNone, err
		}
		if disband {
			return changeDisband, nil
		}
		return changeMembers, nil
	})
	if err != nil {
		return nil, err
	}

	if room.State() == model.RoomStateDisbanded {
		c.logger.Info("room disbanded", "room_id", room.PrivateID, "public_id", room.PublicID)
	} else {
		c.logger.Info("player left room", "room_id", room.PrivateID, "suid", player.SUID, "leader", room.Leader.SUID)
	}
	return room, nil
}

// StartRoom latches the room into the started state. Leader only.
func (c *Controller) StartRoom(ctx context.Context, jwt string, roomID string) (*model.Room, error) {
	player, err := c.authenticate(ctx, jwt)
	if err != nil {
		return nil, err
	}
	id, err := c.resolveRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	room, err := c.update(ctx, id, func(room *model.Room) (change, error) {
		if !room.IsLeader(player.SUID) {
			return changeNone, model.ErrNotLeader
		}
		if room.Started {
			return changeNone, nil
		}
		room.Start()
		return changeSettings, nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("room started", "room_id", room.PrivateID, "members", len(room.Players))
	return room, nil
}

// ConfigureRoom applies leader-controlled settings
func (c *Controller) ConfigureRoom(ctx context.Context, jwt string, roomID string, settings Settings) (*model.Room, error) {
	player, err := c.authenticate(ctx, jwt)
	if err != nil {
		return nil, err
	}
	id, err := c.resolveRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	return c.update(ctx, id, func(room *model.Room) (change, error) {
		if !room.IsLeader(player.SUID) {
			return changeNone, model.ErrNotLeader
		}
		changed := false
		if settings.MaxPlayers != nil && *settings.MaxPlayers != room.MaxPlayers {
			if err := room.ChangeMaxPlayers(*settings.MaxPlayers); err != nil {
				return changeNone, err
			}
			changed = true
		}
		if settings.Private != nil && *settings.Private != room.Private {
			room.SetPrivate(*settings.Private)
			changed = true
		}
		if !changed {
			return changeNone, nil
		}
		return changeSettings, nil
	})
}

// resolveRoomID accepts a public join code or a private id
func (c *Controller) resolveRoomID(ctx context.Context, raw string) (model.RoomID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", model.ErrInvalidRoomID
	}
	if code, err := model.ParsePublicID(raw); err == nil {
		return c.storage.ResolvePublicID(ctx, code)
	}
	return model.RoomID(raw), nil
}

type change int

const (
	changeNone change = iota
	changeMembers
	changeSettings
	changeDisband
)

// update runs a load-modify-write cycle, retrying from a fresh load whenever
// another writer bumped the room version in between.
func (c *Controller) update(ctx context.Context, id model.RoomID, apply func(room *model.Room) (change, error)) (*model.Room, error) {
	for attempt := 1; ; attempt++ {
		room, err := c.storage.GetRoom(ctx, id)
		if err != nil {
			return nil, err
		}

		kind, err := apply(room)
		if err != nil {
			return nil, err
		}

		switch kind {
		case changeNone:
			return room, nil
		case changeMembers:
			err = c.storage.UpdateMembers(ctx, room)
		case changeSettings:
			err = c.storage.UpdateSettings(ctx, room)
		case changeDisband:
			err = c.storage.DeleteRoom(ctx, room)
		}
		if err == nil {
			return room, nil
		}

		if !errors.Is(err, model.ErrVersionConflict) {
			if kind == changeMembers && errors.Is(err, model.ErrRoomWrite) {
				return nil, fmt.Errorf("%w: %w", model.ErrRoomUpdatePlayers, err)
			}
			return nil, err
		}
		if attempt >= c.cfg.MaxWriteAttempts {
			return nil, fmt.Errorf("%w: gave up after %d attempts: %w", model.ErrRoomUpdatePlayers, attempt, err)
		}
		c.logger.Debug("room version conflict, retrying", "room_id", id, "attempt", attempt)
		if err := c.backoff(ctx, attempt); err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrTimeout, err)
		}
	}
}

// backoff sleeps a random duration below an exponentially growing ceiling
func (c *Controller) backoff(ctx context.Context, attempt int) error {
	ceiling := c.cfg.RetryMaxDelay
	if shift := attempt - 1; shift < 16 {
		ceiling = min(ceiling, c.cfg.RetryBaseDelay<<shift)
	}
	delay := time.Duration(c.random.Intn(int(ceiling) + 1))
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ControllerInterface for dependency injection
type ControllerInterface interface {
	CreateRoom(ctx context.Context, jwt string) (*model.Room, error)
	GetRoom(ctx context.Context, roomID string) (*model.Room, error)
	JoinRoom(ctx context.Context, jwt string, roomID string) (*model.Room, error)
	LeaveRoom(ctx context.Context, jwt string, roomID string) (*model.Room, error)
	StartRoom(ctx context.Context, jwt string, roomID string) (*model.Room, error)
	ConfigureRoom(ctx context.Context, jwt string, roomID string, settings Settings) (*model.Room, error)
}

var _ ControllerInterface = (*Controller)(nil)
