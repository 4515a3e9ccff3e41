package command

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/adprobe/probe/internal/urlcheck"
)

// Strategy selects how ad slots are clicked. It is a deployment choice:
//
//   - StrategyFrame enters the slot's <iframe> and clicks its <body>.
//     Precise, but fails when the driver cannot enter a cross-origin frame.
//   - StrategyPoint clicks the centroid of the slot's bounding box in page
//     coordinates with a synthetic mouse event, hitting whatever element is
//     topmost there. No frame switching, so cross-origin creatives work;
//     an overlay covering the slot receives the click instead.
type Strategy string

const (
	StrategyFrame Strategy = "frame"
	StrategyPoint Strategy = "point"
)

// ParseStrategy validates a configured strategy name. Empty means point.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyPoint:
		return StrategyPoint, nil
	case StrategyFrame:
		return StrategyFrame, nil
	}
	return "", fmt.Errorf("command: unknown interaction strategy %q (want frame or point)", s)
}

// scriptScrollToCentroid computes the element's bounding-box centroid in
// page coordinates, scrolls so the point sits mid-viewport, and returns the
// point in viewport coordinates after scrolling.
const scriptScrollToCentroid = `() => {
	const r = this.getBoundingClientRect();
	const px = r.left + window.scrollX + r.width / 2;
	const py = r.top + window.scrollY + r.height / 2;
	window.scrollTo(Math.max(0, px - window.innerWidth / 2), Math.max(0, py - window.innerHeight / 2));
	return {x: px - window.scrollX, y: py - window.scrollY, width: r.width, height: r.height};
}`

type centroid struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// interact runs the bounded action sequence for one target and leaves the
// page ready for capture. It never restores navigation; ForEachTarget does.
func interact(ctx context.Context, env *Env, t Target) error {
	switch t := t.(type) {
	case SlotTarget:
		if env.strategy() == StrategyFrame {
			return clickSlotFrame(ctx, env, t)
		}
		return clickSlotPoint(ctx, env, t)
	case LinkTarget:
		return followLink(ctx, env, t)
	default:
		return fmt.Errorf("command: unsupported target %T", t)
	}
}

func clickSlotFrame(ctx context.Context, env *Env, t SlotTarget) error {
	slot, err := env.Session.ElementByID(ctx, t.SlotID)
	if err != nil {
		return fmt.Errorf("slot container %q: %w", t.SlotID, err)
	}
	iframe, err := slot.Element(ctx, "iframe")
	if err != nil {
		return fmt.Errorf("slot %q iframe: %w", t.SlotID, err)
	}
	if err := iframe.ScrollIntoView(ctx); err != nil {
		return fmt.Errorf("slot %q scroll: %w", t.SlotID, err)
	}

	frame, err := iframe.Frame(ctx)
	if err != nil {
		return fmt.Errorf("slot %q enter frame: %w", t.SlotID, err)
	}
	defer func() {
		if err := frame.Leave(); err != nil {
			env.log().Debug("command: leave frame", "slot", t.SlotID, "error", err)
		}
	}()

	body, err := frame.Element(ctx, "body")
	if err != nil {
		return fmt.Errorf("slot %q frame body: %w", t.SlotID, err)
	}
	if err := body.Click(ctx); err != nil {
		return fmt.Errorf("slot %q click: %w", t.SlotID, err)
	}
	return sleep(ctx, env.Settle.ClickSettle)
}

func clickSlotPoint(ctx context.Context, env *Env, t SlotTarget) error {
	slot, err := env.Session.ElementByID(ctx, t.SlotID)
	if err != nil {
		return fmt.Errorf("slot container %q: %w", t.SlotID, err)
	}

	raw, err := slot.Eval(ctx, scriptScrollToCentroid)
	if err != nil {
		return fmt.Errorf("slot %q centroid: %w", t.SlotID, err)
	}
	var c centroid
	if err := json.Unmarshal(raw, &c); err != nil {
		return fmt.Errorf("slot %q centroid: decode %s: %w", t.SlotID, raw, err)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("slot %q has an empty bounding box", t.SlotID)
	}

	if err := env.Session.ClickAt(ctx, c.X, c.Y); err != nil {
		return fmt.Errorf("slot %q click at (%.0f,%.0f): %w", t.SlotID, c.X, c.Y, err)
	}
	return sleep(ctx, env.Settle.ClickSettle)
}

func followLink(ctx context.Context, env *Env, t LinkTarget) error {
	if err := urlcheck.Navigable(t.Href); err != nil {
		return err
	}
	if err := env.Session.Navigate(ctx, t.Href); err != nil {
		return fmt.Errorf("navigate %s: %w", t.Href, err)
	}
	return sleep(ctx, env.Settle.LinkSettle)
}
