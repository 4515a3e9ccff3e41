package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// scriptBidResponseCount returns how many ad units Prebid.js holds bid
// responses for, 0 when pbjs is absent.
const scriptBidResponseCount = `() => {
	if (!window.pbjs || typeof window.pbjs.getBidResponses !== 'function') return 0;
	return Object.keys(window.pbjs.getBidResponses() || {}).length;
}`

// scriptSlotIDs returns the ad unit codes keyed in the auction results.
const scriptSlotIDs = `() => {
	if (!window.pbjs || typeof window.pbjs.getBidResponses !== 'function') return [];
	return Object.keys(window.pbjs.getBidResponses() || {});
}`

// waitAuction polls the auction results until at least one ad unit has
// responses or the auction timeout elapses.
func waitAuction(ctx context.Context, env *Env) (bool, error) {
	s := env.Settle
	return waitUntil(ctx, s.PollInterval, s.AuctionTimeout, func(ctx context.Context) (bool, error) {
		raw, err := env.Session.Eval(ctx, scriptBidResponseCount)
		if err != nil {
			return false, fmt.Errorf("command: poll auction: %w", err)
		}
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return false, fmt.Errorf("command: poll auction: decode %s: %w", raw, err)
		}
		return n > 0, nil
	})
}

// LocateSlots reads the auction results mapping and returns one SlotTarget
// per key, in mapping order. An absent or empty mapping yields no targets
// and no error.
func LocateSlots(ctx context.Context, sess Session) ([]Target, error) {
	raw, err := sess.Eval(ctx, scriptSlotIDs)
	if err != nil {
		return nil, fmt.Errorf("command: read auction results: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("command: decode slot ids %s: %w", raw, err)
	}

	seen := make(map[string]bool, len(ids))
	var targets []Target
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		targets = append(targets, SlotTarget{SlotID: id})
	}
	return targets, nil
}

// LocatePhraseLinks enumerates every anchor, keeps those whose trimmed
// lowercase visible text contains a phrase, and returns their hrefs
// deduplicated in first-seen order. Anchors without an href are dropped.
//
// Only the enumeration itself is fatal; an anchor that goes stale between
// enumeration and reading is skipped.
func LocatePhraseLinks(ctx context.Context, sess Session, phrases PhraseSet, logger *slog.Logger) ([]Target, error) {
	if logger == nil {
		logger = slog.Default()
	}

	anchors, err := sess.Elements(ctx, "a")
	if err != nil {
		return nil, fmt.Errorf("command: enumerate anchors: %w", err)
	}

	seen := make(map[string]bool)
	var targets []Target
	for _, a := range anchors {
		text, err := a.Text(ctx)
		if err != nil {
			logger.Debug("command: skip anchor, text unreadable", "error", err)
			continue
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			continue
		}
		phrase, ok := phrases.Match(text)
		if !ok {
			continue
		}

		href, ok, err := a.Attribute(ctx, "href")
		if err != nil {
			logger.Debug("command: skip anchor, href unreadable", "text", text, "error", err)
			continue
		}
		href = strings.TrimSpace(href)
		if !ok || href == "" || seen[href] {
			continue
		}
		seen[href] = true
		logger.Debug("command: anchor matched", "phrase", phrase, "text", text, "href", href)
		targets = append(targets, LinkTarget{Href: href})
	}
	return targets, nil
}
