// CLAUDE:SUMMARY Writes messages as JSON lines to an io.Writer (defaults to stdout).
package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/adprobe/probe/message"
)

// Stdout writes JSON lines to an io.Writer (default os.Stdout).
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) Send(_ context.Context, msg message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(envelope{Type: string(msg.Kind), Data: msg})
}

func (s *Stdout) Close() error { return nil }

// envelope is the JSON-lines and webhook wire shape: {"type": kind, "data": message}.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
