package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/roomserver/internal/model"
	"github.com/mcoot/roomserver/internal/protocol"
	"github.com/mcoot/roomserver/internal/services/rooms"
)

// DefaultCommandTimeout bounds a single command end to end
const DefaultCommandTimeout = 5 * time.Second

// FrameKind distinguishes text frames from everything else the transport reads
type FrameKind int

const (
	FrameText FrameKind = iota
	FrameBinary
)

// Sender delivers a reply to one connection
type Sender interface {
	Send(connID string, msg []byte) error
}

// Dispatcher turns inbound frames into room operations and sends exactly one
// reply per frame back to the originating connection
type Dispatcher struct {
	rooms   rooms.ControllerInterface
	sender  Sender
	logger  *slog.Logger
	timeout time.Duration
}

// New creates a Dispatcher. A non-positive timeout selects the default.
func New(rooms rooms.ControllerInterface, sender Sender, logger *slog.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &Dispatcher{
		rooms:   rooms,
		sender:  sender,
		logger:  logger,
		timeout: timeout,
	}
}

// Handle processes one frame from connID
func (d *Dispatcher) Handle(ctx context.Context, connID string, kind FrameKind, frame []byte) {
	start := time.Now()
	reply, destination, err := d.process(ctx, kind, frame)
	status := protocol.StatusFromError(err)

	attrs := []any{
		"conn_id", connID,
		"destination", destination,
		"status", int(status),
		"duration", time.Since(start),
	}
	switch {
	case err == nil:
		d.logger.Info("command handled", attrs...)
	case status == protocol.StatusBadFrame || status == protocol.StatusUnauthorized:
		d.logger.Warn("command rejected", append(attrs, "error", err)...)
	default:
		d.logger.Error("command failed", append(attrs, "error", err)...)
	}

	if err := d.sender.Send(connID, reply); err != nil {
		d.logger.Warn("reply not delivered", "conn_id", connID, "destination", destination, "error", err)
	}
}

// process never returns a nil reply
func (d *Dispatcher) process(ctx context.Context, kind FrameKind, frame []byte) ([]byte, string, error) {
	if kind != FrameText {
		return protocol.Failure(protocol.StatusBadFrame), "", model.ErrNonTextFrame
	}

	cmd := protocol.Decode(frame)
	switch c := cmd.(type) {
	case protocol.Malformed:
		return protocol.Failure(protocol.StatusBadFrame), "", c.Err
	case protocol.Unknown:
		return protocol.Failure(protocol.StatusBadFrame), c.Name, fmt.Errorf("%w: %q", model.ErrUnknownDestination, c.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	room, err := d.execute(ctx, cmd)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, model.ErrTimeout) {
			err = fmt.Errorf("%w: %w", model.ErrTimeout, err)
		}
		return protocol.Failure(protocol.StatusFromError(err)), cmd.Destination(), err
	}

	reply, err := protocol.Success(room)
	if err != nil {
		return protocol.Failure(protocol.StatusFromError(err)), cmd.Destination(), err
	}
	return reply, cmd.Destination(), nil
}

func (d *Dispatcher) execute(ctx context.Context, cmd protocol.Command) (*model.Room, error) {
	switch c := cmd.(type) {
	case protocol.CreateRoom:
		return d.rooms.CreateRoom(ctx, c.JWT)
	case protocol.JoinRoom:
		return d.rooms.JoinRoom(ctx, c.JWT, c.RoomID.String())
	case protocol.LeaveRoom:
		return d.rooms.LeaveRoom(ctx, c.JWT, c.RoomID.String())
	case protocol.StartRoom:
		return d.rooms.StartRoom(ctx, c.JWT, c.RoomID.String())
	case protocol.ConfigureRoom:
		return d.rooms.ConfigureRoom(ctx, c.JWT, c.RoomID.String(), rooms.Settings{
			MaxPlayers: c.MaxPlayers,
			Private:    c.Private,
		})
	default:
		return nil, fmt.Errorf("%w: %T", model.ErrUnknownDestination, cmd)
	}
}
