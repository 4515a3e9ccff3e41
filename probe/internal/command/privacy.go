package command

import (
	"context"
	"fmt"
)

// PrivacyLinkInteraction follows every anchor whose visible text contains
// a privacy phrase and saves the destination as Markdown under
// <data_dir>/pages/.
type PrivacyLinkInteraction struct {
	// Phrases defaults to PrivacyPhrases.
	Phrases PhraseSet
}

func (PrivacyLinkInteraction) Name() string { return "privacy_links" }

func (c PrivacyLinkInteraction) Execute(ctx context.Context, env *Env) error {
	log := env.log().With("command", c.Name())

	phrases := c.Phrases
	if phrases.Len() == 0 {
		phrases = PrivacyPhrases
	}

	original, err := env.Session.URL(ctx)
	if err != nil {
		return fmt.Errorf("command: %s: current url: %w", c.Name(), err)
	}
	log.Info("command: scanning anchors", "url", original, "phrases", phrases.Len())

	targets, err := LocatePhraseLinks(ctx, env.Session, phrases, log)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		log.Info("command: no matching anchor text found", "url", original)
		return nil
	}
	log.Info("command: privacy links found", "url", original, "hrefs", keys(targets))

	rep, err := ForEachTarget(ctx, env, original, targets, interactAndCapture(env))
	env.emitReport(ctx, c.Name(), rep)
	log.Info("command: privacy link interaction done", "url", original,
		"succeeded", rep.Succeeded(), "failed", rep.Failed())
	return err
}
