package command

import (
	"context"
	"fmt"
)

// Pipeline is the per-target work run under failure isolation.
type Pipeline func(ctx context.Context, t Target) (Artifact, error)

// ForEachTarget runs pipeline for every target in order. A failing (or
// panicking) pipeline is logged with the target identity and does not stop
// the loop. Whatever happened, the session is navigated back to original
// exactly once per target, followed by the between-targets pause.
//
// A failed restoration is fatal: the loop stops and the error is returned
// with the outcomes gathered so far.
func ForEachTarget(ctx context.Context, env *Env, original string, targets []Target, pipeline Pipeline) (Report, error) {
	var rep Report
	for _, t := range targets {
		out, err := runTarget(ctx, env, original, t, pipeline)
		rep.Outcomes = append(rep.Outcomes, out)
		if err != nil {
			return rep, fmt.Errorf("command: restore %s after target %q: %w", original, t.Key(), err)
		}
	}
	return rep, nil
}

// runTarget holds the navigation focus for one target: the deferred
// release restores original on every exit path.
func runTarget(ctx context.Context, env *Env, original string, t Target, pipeline Pipeline) (out Outcome, restoreErr error) {
	out.Target = t
	defer func() {
		if r := recover(); r != nil {
			out.Artifact = Artifact{}
			out.Err = fmt.Errorf("panic: %v", r)
		}
		if out.Err != nil {
			env.log().Warn("command: could not process target",
				"kind", t.Kind(), "target", t.Key(), "error", out.Err)
		}
		restoreErr = restore(ctx, env, original)
	}()

	out.Artifact, out.Err = pipeline(ctx, t)
	return out, nil
}

func restore(ctx context.Context, env *Env, original string) error {
	if err := env.Session.Navigate(ctx, original); err != nil {
		return err
	}
	return sleep(ctx, env.Settle.BetweenTargets)
}

// interactAndCapture is the standard pipeline: interact, then capture.
func interactAndCapture(env *Env) Pipeline {
	return func(ctx context.Context, t Target) (Artifact, error) {
		if err := interact(ctx, env, t); err != nil {
			return Artifact{}, err
		}
		return capture(ctx, env, t)
	}
}
