package sink

import (
	"context"

	"github.com/hazyhaar/adprobe/probe/message"
)

// MessageFunc is called for each message (in-process, zero serialisation).
type MessageFunc func(ctx context.Context, msg message.Message) error

// Callback delivers messages via Go function calls, for embedding adprobe
// in a process that stores results itself.
type Callback struct {
	fn MessageFunc
}

// NewCallback creates a Callback sink. fn may be nil.
func NewCallback(fn MessageFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, msg message.Message) error {
	if c.fn != nil {
		return c.fn(ctx, msg)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
