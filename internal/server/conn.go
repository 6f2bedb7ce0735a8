package server

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/avinashweb85/task-devops-monitor/internal/broadcast"
)

// queueConn hands messages from the delivery goroutine to the handler
// goroutine that owns the network connection.
//
// Send blocks until the handler takes the message, the delivery context is
// cancelled or the connection is closed. Only the handler writes to the wire.
type queueConn struct {
	id     string
	ch     chan broadcast.Message
	closed chan struct{}
	once   sync.Once
}

func newQueueConn(transport string) *queueConn {
	return &queueConn{
		id:     transport + "-" + uuid.NewString(),
		ch:     make(chan broadcast.Message),
		closed: make(chan struct{}),
	}
}

func (c *queueConn) ID() string { return c.id }

func (c *queueConn) Send(ctx context.Context, msg broadcast.Message) error {
	select {
	case <-c.closed:
		return broadcast.ErrConnClosed
	default:
	}

	select {
	case c.ch <- msg:
		return nil
	case <-c.closed:
		return broadcast.ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages returns the channel the handler reads from.
func (c *queueConn) Messages() <-chan broadcast.Message {
	return c.ch
}

// Close marks the connection gone. Pending and future sends fail with
// [broadcast.ErrConnClosed]. Safe to call multiple times.
func (c *queueConn) Close() {
	c.once.Do(func() { close(c.closed) })
}
