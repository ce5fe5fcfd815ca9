package ws

import (
	"sync"

	"github.com/mcoot/roomserver/internal/registry"
)

// connection is the registry's handle on one socket. Messages are queued
// for the write pump; Send never blocks.
type connection struct {
	id string

	mu     sync.Mutex
	out    chan []byte
	closed bool
}

var _ registry.Outbound = (*connection)(nil)

func newConnection(id string, buffer int) *connection {
	return &connection{
		id:  id,
		out: make(chan []byte, buffer),
	}
}

func (c *connection) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return registry.ErrNotConnected
	}
	select {
	case c.out <- msg:
		return nil
	default:
		return registry.ErrSendBufferFull
	}
}

// close stops accepting messages and ends the write pump. Safe to call twice.
func (c *connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.out)
	}
}
