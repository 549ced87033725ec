package realtime

import (
	"sync"
)

// Client is one live connection. It is inert until authenticated; the user id is
// set once, by the hub, at handshake time.
type Client struct {
	ID       string
	Outbound chan []byte

	userID    string // guarded by Hub.mu
	done      chan struct{}
	closeOnce sync.Once
}

// Done is closed when the client is unregistered. Outbound is never closed.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// enqueue never blocks: a full buffer drops the payload.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Outbound <- payload:
		return true
	default:
		return false
	}
}
