// CLAUDE:SUMMARY Command contract and per-visit environment: session, data dir, sink, settle timings, interaction strategy.
// Package command implements the per-page commands run during a visit:
// ad slot interaction, privacy link interaction, Prebid.js bid extraction
// and the supporting visit/screenshot commands.
//
// Commands drive a single Session strictly sequentially. Per-target
// failures are logged and isolated; only document enumeration, script
// result marshaling and navigation restoration abort a command.
package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/adprobe/idgen"
	"github.com/hazyhaar/adprobe/probe/internal/docconv"
	"github.com/hazyhaar/adprobe/probe/message"
)

// Command is one step of a visit. Execute returns nil on normal completion
// (including "nothing to do") or a fatal error; there is no partial result.
type Command interface {
	Name() string
	Execute(ctx context.Context, env *Env) error
}

// Emitter is the storage collaborator commands send messages to.
type Emitter interface {
	Send(ctx context.Context, msg message.Message) error
}

// Params carries the collaborator-provided output root.
type Params struct {
	// DataDir is the root under which ads/, pages/ and screenshots/ are created.
	DataDir string
}

// Env is everything a command needs for one visit.
type Env struct {
	Session  Session
	Params   Params
	Sink     Emitter
	Logger   *slog.Logger
	Settle   Settle
	Strategy Strategy

	// VisitID and SiteURL tag emitted messages.
	VisitID string
	SiteURL string

	conv *docconv.Converter
}

func (e *Env) log() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Env) converter() *docconv.Converter {
	if e.conv == nil {
		e.conv = docconv.New()
	}
	return e.conv
}

func (e *Env) strategy() Strategy {
	if e.Strategy == "" {
		return StrategyPoint
	}
	return e.Strategy
}

// emit sends a tagged message to the sink. A nil sink drops the message.
func (e *Env) emit(ctx context.Context, kind message.Kind, cmd string, value any) error {
	if e.Sink == nil {
		return nil
	}
	return e.Sink.Send(ctx, message.Message{
		ID:        idgen.Message(),
		Kind:      kind,
		VisitID:   e.VisitID,
		PageURL:   e.SiteURL,
		Command:   cmd,
		Value:     value,
		Timestamp: time.Now().UnixMilli(),
	})
}

// emitReport sends one interaction_outcome message per target. Sink errors
// are logged, not returned: outcomes are informational.
func (e *Env) emitReport(ctx context.Context, cmd string, rep Report) {
	for _, o := range rep.Outcomes {
		v := message.Outcome{
			Target:     o.Target.Key(),
			TargetKind: o.Target.Kind(),
			Artifact:   o.Artifact.Path,
		}
		if o.Err != nil {
			v.Error = o.Err.Error()
		}
		if err := e.emit(ctx, message.KindOutcome, cmd, v); err != nil {
			e.log().Warn("command: emit outcome failed", "target", v.Target, "error", err)
		}
	}
}
