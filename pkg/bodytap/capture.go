package bodytap

import (
	"bytes"
	"context"
	"sync"
)

// Capture receives a copy of a tapped body.
// It is resolved exactly once: either when the transport reached the end of the body
// or when the body was abandoned.
type Capture struct {
	done chan struct{}

	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int64
	total     int64
	err       error
	completed bool
}

func newCapture(limit int64) *Capture {
	return &Capture{done: make(chan struct{}), limit: limit}
}

func (c *Capture) write(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return
	}
	c.total += int64(len(p))
	if c.limit > 0 {
		room := c.limit - int64(c.buf.Len())
		if room <= 0 {
			return
		}
		if int64(len(p)) > room {
			p = p[:room]
		}
	}
	c.buf.Write(p)
}

// resolve completes the capture. Only the first call has an effect.
func (c *Capture) resolve(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return
	}
	c.completed = true
	c.err = err
	close(c.done)
}

// Done returns a channel which is closed when the capture is resolved.
func (c *Capture) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the capture is resolved or ctx is done.
// It returns the captured bytes or an error wrapping [ErrAbandoned] or the context error.
// A resolved capture takes precedence over a done context.
func (c *Capture) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-c.done:
	case <-ctx.Done():
		select {
		case <-c.done:
		default:
			return nil, ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return bytes.Clone(c.buf.Bytes()), nil
}

// Size returns the number of bytes the transport consumed so far.
func (c *Capture) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Truncated returns the number of consumed bytes which were not kept because of the limit.
func (c *Capture) Truncated() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total - int64(c.buf.Len())
}
