// Package sink defines the storage backends adprobe messages are sent to.
package sink

import (
	"context"

	"github.com/hazyhaar/adprobe/probe/message"
)

// Sink is the output interface. Implementations deliver messages to
// different backends (stdout, webhook, sqlite, NATS, in-process callback).
type Sink interface {
	Send(ctx context.Context, msg message.Message) error
	Close() error
}
