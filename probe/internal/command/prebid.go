package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/hazyhaar/adprobe/probe/message"
)

// scriptBidPairs flattens the auction results into [bidder, hb_pb] pairs.
// The price is null when the bid carries no adserverTargeting.hb_pb.
const scriptBidPairs = `() => {
	if (!window.pbjs || typeof window.pbjs.getBidResponses !== 'function') return [];
	const resp = window.pbjs.getBidResponses() || {};
	return Object.values(resp).flatMap(unit =>
		(unit.bids || []).map(bid => [
			bid.adapterCode || bid.bidderCode,
			bid.adserverTargeting ? (bid.adserverTargeting.hb_pb ?? null) : null,
		])
	);
}`

// ValidationError reports a script result that does not have the expected
// shape. Index is the offending entry, or -1 for the whole result.
type ValidationError struct {
	Index  int
	Reason string
	Raw    string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("command: invalid script result: %s", e.Reason)
	}
	return fmt.Sprintf("command: invalid script result at index %d: %s", e.Index, e.Reason)
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DecodeBidPairs validates the raw return of the bid-pair script: an array
// of [bidder, price] arrays where bidder is a non-empty string and price is
// a string, a number or null.
func DecodeBidPairs(raw json.RawMessage) ([]message.BidPair, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil || entries == nil {
		return nil, &ValidationError{Index: -1, Reason: "not an array", Raw: string(raw)}
	}

	pairs := make([]message.BidPair, 0, len(entries))
	for i, e := range entries {
		var tuple []json.RawMessage
		if err := json.Unmarshal(e, &tuple); err != nil || len(tuple) != 2 {
			return nil, &ValidationError{Index: i, Reason: "not a [bidder, price] pair", Raw: string(e)}
		}

		var bidder string
		if err := json.Unmarshal(tuple[0], &bidder); err != nil || bidder == "" {
			return nil, &ValidationError{Index: i, Reason: "bidder is not a non-empty string", Raw: string(e)}
		}

		price, err := decodePrice(tuple[1])
		if err != nil {
			return nil, &ValidationError{Index: i, Reason: err.Error(), Raw: string(e)}
		}
		pairs = append(pairs, message.BidPair{Bidder: bidder, Price: price})
	}
	return pairs, nil
}

func decodePrice(raw json.RawMessage) (*string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	switch p := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &p, nil
	case float64:
		s := strconv.FormatFloat(p, 'f', -1, 64)
		return &s, nil
	}
	return nil, fmt.Errorf("price has type %T, want string, number or null", v)
}

// GetPrebids waits for the auction, evaluates the bid-pair script once and
// forwards the validated pairs as a js_result message.
type GetPrebids struct{}

func (GetPrebids) Name() string { return "get_prebids" }

func (c GetPrebids) Execute(ctx context.Context, env *Env) error {
	log := env.log().With("command", c.Name())

	current, err := env.Session.URL(ctx)
	if err != nil {
		return fmt.Errorf("command: %s: current url: %w", c.Name(), err)
	}

	ready, err := waitAuction(ctx, env)
	if err != nil {
		return err
	}
	if !ready {
		log.Info("command: auction reported no bid responses before timeout", "url", current)
	}

	raw, err := env.Session.Eval(ctx, scriptBidPairs)
	if err != nil {
		return fmt.Errorf("command: %s: evaluate: %w", c.Name(), err)
	}
	pairs, err := DecodeBidPairs(raw)
	if err != nil {
		return err
	}

	log.Info("command: bids collected", "url", current, "bids", len(pairs))
	if err := env.emit(ctx, message.KindJSResult, c.Name(), pairs); err != nil {
		return fmt.Errorf("command: %s: send js_result: %w", c.Name(), err)
	}
	return nil
}

// StoreJSResult evaluates an arbitrary script and forwards its JSON return
// value untouched as a js_result message.
type StoreJSResult struct {
	Script string
}

func (StoreJSResult) Name() string { return "store_js_result" }

func (c StoreJSResult) Execute(ctx context.Context, env *Env) error {
	if c.Script == "" {
		return fmt.Errorf("command: %s: empty script", c.Name())
	}
	raw, err := env.Session.Eval(ctx, c.Script)
	if err != nil {
		return fmt.Errorf("command: %s: evaluate: %w", c.Name(), err)
	}
	if !json.Valid(raw) {
		return &ValidationError{Index: -1, Reason: "result is not valid JSON", Raw: string(raw)}
	}
	if err := env.emit(ctx, message.KindJSResult, c.Name(), json.RawMessage(raw)); err != nil {
		return fmt.Errorf("command: %s: send js_result: %w", c.Name(), err)
	}
	return nil
}
