package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hazyhaar/adprobe/probe/message"
)

// publisher is the subset of *nats.Conn the sink needs.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATS publishes each message as JSON on "<prefix>.<kind>".
type NATS struct {
	pub       publisher
	prefix    string
	closeConn func()
}

// NewNATS publishes on an existing connection. Close flushes but leaves
// the connection open.
func NewNATS(conn *nats.Conn, prefix string) *NATS {
	return &NATS{pub: conn, prefix: subjectPrefix(prefix)}
}

// DialNATS connects to url with unlimited reconnects. Close drains and
// closes the connection.
func DialNATS(url, name, prefix string) (*NATS, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats: connect %s: %w", url, err)
	}
	n := NewNATS(conn, prefix)
	n.closeConn = conn.Close
	return n, nil
}

func subjectPrefix(p string) string {
	if p == "" {
		return "adprobe"
	}
	return p
}

// Subject returns the subject a message of kind k is published on.
func (n *NATS) Subject(k message.Kind) string {
	return n.prefix + "." + string(k)
}

func (n *NATS) Send(_ context.Context, msg message.Message) error {
	data, err := message.Marshal(&msg)
	if err != nil {
		return fmt.Errorf("nats: marshal: %w", err)
	}
	if err := n.pub.Publish(n.Subject(msg.Kind), data); err != nil {
		return fmt.Errorf("nats: publish %s: %w", msg.ID, err)
	}
	return nil
}

func (n *NATS) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := n.pub.FlushWithContext(ctx)
	if n.closeConn != nil {
		n.closeConn()
	}
	if err != nil {
		return fmt.Errorf("nats: flush: %w", err)
	}
	return nil
}
