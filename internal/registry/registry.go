package registry

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
)

var (
	// ErrNotConnected means the id is unknown or its channel has closed
	ErrNotConnected = errors.New("connection not connected")
	// ErrSendBufferFull means the connection is not draining its queue
	ErrSendBufferFull = errors.New("connection send buffer full")
)

// Outbound delivers messages to one live connection. Send must not block.
type Outbound interface {
	Send(msg []byte) error
}

// Registry tracks live connections. One instance is shared by every
// connection handler. The lock is never held while delivering.
type Registry struct {
	mu     sync.Mutex
	conns  map[string]Outbound
	logger *slog.Logger
}

// New creates an empty Registry
func New(logger *slog.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]Outbound),
		logger: logger,
	}
}

// Register inserts or replaces the handle for id
func (r *Registry) Register(id string, out Outbound) {
	r.mu.Lock()
	_, replaced := r.conns[id]
	r.conns[id] = out
	count := len(r.conns)
	r.mu.Unlock()

	r.logger.Debug("connection registered", "conn_id", id, "replaced", replaced, "connections", count)
}

// Remove drops id; unknown ids are ignored
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	_, ok := r.conns[id]
	delete(r.conns, id)
	count := len(r.conns)
	r.mu.Unlock()

	if ok {
		r.logger.Debug("connection removed", "conn_id", id, "connections", count)
	}
}

// Send delivers msg to exactly one connection. It is never retried.
func (r *Registry) Send(id string, msg []byte) error {
	r.mu.Lock()
	out, ok := r.conns[id]
	r.mu.Unlock()

	if !ok {
		return ErrNotConnected
	}
	return out.Send(msg)
}

// Broadcast offers msg to every connection and returns how many accepted it.
// A failing recipient never stops delivery to the rest.
func (r *Registry) Broadcast(msg []byte) int {
	r.mu.Lock()
	targets := make(map[string]Outbound, len(r.conns))
	for id, out := range r.conns {
		targets[id] = out
	}
	r.mu.Unlock()

	delivered := 0
	for id, out := range targets {
		if err := out.Send(msg); err != nil {
			r.logger.Warn("broadcast delivery failed", "conn_id", id, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Has reports whether id is registered
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[id]
	return ok
}

// Count returns the number of live connections
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// IDs returns the registered connection ids in sorted order
func (r *Registry) IDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Strings(ids)
	return ids
}
