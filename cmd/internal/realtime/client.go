package realtime

import (
	"sync"
)

// Client is one open session watch.
//
// Send is never closed by the server so concurrent broadcasters cannot
// panic. done signals goroutines to stop; Close is idempotent.
type Client struct {
	WatchID   string
	SubjectID string
	Send      chan Envelope

	done      chan struct{}
	closeOnce sync.Once

	// Set once, before done is closed. Zero means a plain shutdown.
	closeCode   int
	closeReason string
}

// NewClient constructs a Client with a bounded send queue.
func NewClient(subjectID, watchID string, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 16
	}
	return &Client{
		WatchID:   watchID,
		SubjectID: subjectID,
		Send:      make(chan Envelope, sendQueueSize),
		done:      make(chan struct{}),
	}
}

// Done is closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	if c == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

func (c *Client) Close() {
	c.closeWith(0, "")
}

// closeWith shuts the client down and records the close status the
// connection writer should send. Only the first call has any effect.
func (c *Client) closeWith(code int, reason string) {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		c.closeCode, c.closeReason = code, reason
		close(c.done)
	})
}

// closeStatus is safe to read once Done is closed.
func (c *Client) closeStatus() (int, string) {
	return c.closeCode, c.closeReason
}

// offer enqueues env without blocking. It reports false when the queue is
// full or the client is closing.
func (c *Client) offer(env Envelope) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- env:
		return true
	default:
		return false
	}
}
