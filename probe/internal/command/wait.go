package command

import (
	"context"
	"time"
)

// Settle holds the waits inserted between interaction steps.
type Settle struct {
	// AuctionTimeout bounds the wait for Prebid.js to report bid responses.
	AuctionTimeout time.Duration
	// PollInterval is the readiness polling period.
	PollInterval time.Duration
	// ClickSettle is the fixed pause after clicking a slot; no page signal
	// tells when a creative has reacted to a click.
	ClickSettle time.Duration
	// LinkSettle is the pause after a followed link finished loading.
	LinkSettle time.Duration
	// BetweenTargets is the pause after restoring the original URL.
	BetweenTargets time.Duration
}

// DefaultSettle returns the timings used when none are configured.
func DefaultSettle() Settle {
	return Settle{
		AuctionTimeout: 20 * time.Second,
		PollInterval:   500 * time.Millisecond,
		ClickSettle:    2 * time.Second,
		LinkSettle:     2 * time.Second,
		BetweenTargets: 2 * time.Second,
	}
}

// sleep pauses for d, returning early with the context error.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// waitUntil polls cond every interval until it returns true, it fails, or
// timeout elapses. ok is false on timeout; that is not an error.
func waitUntil(ctx context.Context, interval, timeout time.Duration, cond func(context.Context) (bool, error)) (ok bool, err error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	for {
		ok, err := cond(ctx)
		if err != nil || ok {
			return ok, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		if err := sleep(ctx, min(interval, remaining)); err != nil {
			return false, err
		}
	}
}
