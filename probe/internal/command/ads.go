package command

import (
	"context"
	"fmt"
)

// AdInteraction clicks every ad slot reported by the Prebid.js auction and
// saves a screenshot per slot under <data_dir>/ads/.
type AdInteraction struct{}

func (AdInteraction) Name() string { return "ad_interaction" }

func (c AdInteraction) Execute(ctx context.Context, env *Env) error {
	log := env.log().With("command", c.Name())

	original, err := env.Session.URL(ctx)
	if err != nil {
		return fmt.Errorf("command: %s: current url: %w", c.Name(), err)
	}

	ready, err := waitAuction(ctx, env)
	if err != nil {
		return err
	}
	if !ready {
		log.Info("command: auction reported no bid responses before timeout",
			"url", original, "timeout", env.Settle.AuctionTimeout)
	}

	targets, err := LocateSlots(ctx, env.Session)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		log.Info("command: no ad slot ids found, ending", "url", original)
		return nil
	}
	log.Info("command: ad slots found", "url", original, "slots", keys(targets),
		"strategy", env.strategy())

	rep, err := ForEachTarget(ctx, env, original, targets, interactAndCapture(env))
	env.emitReport(ctx, c.Name(), rep)
	log.Info("command: ad interaction done", "url", original,
		"succeeded", rep.Succeeded(), "failed", rep.Failed())
	return err
}

func keys(targets []Target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.Key()
	}
	return out
}
