package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/mcoot/roomserver/internal/dependencies/random"
	"github.com/mcoot/roomserver/internal/dispatch"
	"github.com/mcoot/roomserver/internal/protocol"
	"github.com/mcoot/roomserver/internal/registry"
)

// Config holds WebSocket transport settings
type Config struct {
	// SendBuffer is the per-connection outbound queue length
	SendBuffer int
	// PingInterval is how often idle connections are pinged
	PingInterval time.Duration
	// WriteTimeout bounds a single frame write or ping
	WriteTimeout time.Duration
	// ReadLimit is the largest accepted inbound frame in bytes
	ReadLimit int64
	// OriginPatterns are host patterns allowed to open cross-origin sockets
	OriginPatterns []string
}

// DefaultConfig returns default transport configuration
func DefaultConfig() Config {
	return Config{
		SendBuffer:   16,
		PingInterval: 30 * time.Second,
		WriteTimeout: 5 * time.Second,
		ReadLimit:    64 << 10,
	}
}

// FrameHandler consumes inbound frames
type FrameHandler interface {
	Handle(ctx context.Context, connID string, kind dispatch.FrameKind, frame []byte)
}

// Handler upgrades HTTP requests to WebSocket sessions. Each session gets a
// fresh id, a registry entry, a sequential read loop and a write pump.
type Handler struct {
	baseCtx  context.Context
	registry *registry.Registry
	frames   FrameHandler
	random   random.Random
	logger   *slog.Logger
	cfg      Config

	// mu orders session admission against Wait
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// NewHandler creates a Handler. Commands run under baseCtx rather than the
// request context, and cancelling baseCtx closes every open session.
func NewHandler(
	baseCtx context.Context,
	reg *registry.Registry,
	frames FrameHandler,
	rnd random.Random,
	logger *slog.Logger,
	cfg Config,
) *Handler {
	defaults := DefaultConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaults.SendBuffer
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = defaults.ReadLimit
	}
	return &Handler{
		baseCtx:  baseCtx,
		registry: reg,
		frames:   frames,
		random:   rnd,
		logger:   logger,
		cfg:      cfg,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Server-wide read and write timeouts would otherwise cut long-lived sessions
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	if !h.admit() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.wg.Done()

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.OriginPatterns,
	})
	if err != nil {
		// Accept has already written the HTTP error
		h.logger.Warn("websocket accept failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	c.SetReadLimit(h.cfg.ReadLimit)

	conn := newConnection(h.random.UUID(), h.cfg.SendBuffer)
	h.registry.Register(conn.id, conn)
	h.logger.Info("connection opened", "conn_id", conn.id, "remote_addr", r.RemoteAddr)

	// Hijacked requests outlive server shutdown, so tie the session to baseCtx too
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(h.baseCtx, cancel)
	defer stop()

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		h.writePump(ctx, cancel, c, conn)
	}()

	h.readLoop(ctx, c, conn)

	h.registry.Remove(conn.id)
	conn.close()
	cancel()
	<-pumpDone

	_ = c.Close(websocket.StatusNormalClosure, "")
	h.logger.Info("connection closed", "conn_id", conn.id)
}

// admit counts a new session unless the handler is shutting down
func (h *Handler) admit() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing || h.baseCtx.Err() != nil {
		return false
	}
	h.wg.Add(1)
	return true
}

// Wait refuses new sessions and blocks until every open one has finished
func (h *Handler) Wait() {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()
	h.wg.Wait()
}

// readLoop hands frames to the dispatcher one at a time until the socket fails
func (h *Handler) readLoop(ctx context.Context, c *websocket.Conn, conn *connection) {
	for {
		typ, frame, err := c.Read(ctx)
		if err != nil {
			h.logReadError(conn.id, err)
			return
		}

		kind := dispatch.FrameText
		if typ != websocket.MessageText {
			kind = dispatch.FrameBinary
		}
		h.handleFrame(conn.id, kind, frame)
	}
}

// handleFrame runs one frame through the dispatcher. A panicking command is
// answered with an internal error and the session carries on.
func (h *Handler) handleFrame(connID string, kind dispatch.FrameKind, frame []byte) {
	defer func() {
		if err := recover(); err != nil {
			h.logger.Error("frame handler panicked",
				"conn_id", connID,
				"error", err,
				"stack", string(debug.Stack()),
			)
			_ = h.registry.Send(connID, protocol.Failure(protocol.StatusInternal))
		}
	}()

	h.frames.Handle(h.baseCtx, connID, kind, frame)
}

func (h *Handler) logReadError(connID string, err error) {
	switch status := websocket.CloseStatus(err); {
	case status == websocket.StatusNormalClosure, status == websocket.StatusGoingAway:
		h.logger.Debug("peer closed connection", "conn_id", connID, "close_status", int(status))
	case errors.Is(err, context.Canceled):
		h.logger.Debug("connection cancelled", "conn_id", connID)
	default:
		h.logger.Warn("connection read failed", "conn_id", connID, "close_status", int(status), "error", err)
	}
}

// writePump drains the outbound queue and pings the peer. A failed write
// cancels the session so the read loop exits too.
func (h *Handler) writePump(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, conn *connection) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-conn.out:
			if !ok {
				return
			}
			writeCtx, writeCancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
			err := c.Write(writeCtx, websocket.MessageText, msg)
			writeCancel()
			if err != nil {
				h.logger.Warn("websocket write failed", "conn_id", conn.id, "error", err)
				cancel()
				return
			}

		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
			err := c.Ping(pingCtx)
			pingCancel()
			if err != nil {
				h.logger.Warn("websocket ping failed", "conn_id", conn.id, "error", err)
				cancel()
				return
			}
		}
	}
}
