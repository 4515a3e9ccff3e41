package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/hazyhaar/adprobe/probe/internal/sink"
	"github.com/hazyhaar/adprobe/probe/message"
)

// Sink is the output interface for adprobe messages.
type Sink = sink.Sink

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process callback sink.
func NewCallbackSink(fn func(ctx context.Context, msg message.Message) error) Sink {
	return sink.NewCallback(fn)
}

// OpenSQLiteSink opens the sqlite sink at path. The modernc.org/sqlite
// driver must be registered by the binary.
func OpenSQLiteSink(path string) (Sink, error) {
	return sink.OpenSQLite(path)
}

// DialNATSSink connects to a NATS server and publishes on <prefix>.<kind>.
func DialNATSSink(url, prefix string) (Sink, error) {
	return sink.DialNATS(url, "adprobe", prefix)
}

// OpenSinks builds every sink listed in cfg. sqlite paths are relative to
// cfg.DataDir. On error the sinks already opened are closed.
func OpenSinks(cfg *Config, w io.Writer, logger *slog.Logger) ([]Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var out []Sink
	fail := func(err error) ([]Sink, error) {
		for _, s := range out {
			s.Close()
		}
		return nil, err
	}

	for i, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			out = append(out, NewStdoutSink(w))
		case "webhook":
			out = append(out, sink.NewWebhook(sc.URL,
				sink.WithWebhookLogger(logger), sink.WithWebhookRetries(sc.Retries)))
		case "sqlite":
			path := sc.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(cfg.DataDir, path)
			}
			s, err := OpenSQLiteSink(path)
			if err != nil {
				return fail(fmt.Errorf("probe: sinks[%d]: %w", i, err))
			}
			out = append(out, s)
		case "nats":
			s, err := DialNATSSink(sc.URL, sc.SubjectPrefix)
			if err != nil {
				return fail(fmt.Errorf("probe: sinks[%d]: %w", i, err))
			}
			out = append(out, s)
		default:
			return fail(fmt.Errorf("probe: sinks[%d]: unknown type %q", i, sc.Type))
		}
	}
	if len(out) == 0 {
		return fail(errors.New("probe: no sink configured"))
	}
	return out, nil
}
