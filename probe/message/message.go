// Package message defines the tagged messages adprobe emits to its storage
// collaborators. Any consumer (sqlite, webhook receiver, NATS subscriber)
// imports this package to decode what a visit produced.
package message

import "encoding/json"

// Kind tags the payload carried by a Message.
type Kind string

const (
	KindJSResult Kind = "js_result"           // script return value ([]BidPair for prebids)
	KindOutcome  Kind = "interaction_outcome" // one per interacted target
	KindVisit    Kind = "visit_result"        // one per command sequence
)

// Message is the envelope delivered to sinks. Kind and Value are the
// contract; the remaining fields locate the message in a crawl.
type Message struct {
	ID        string `json:"id"` // msg_<UUIDv7>
	Kind      Kind   `json:"kind"`
	VisitID   string `json:"visit_id,omitempty"`
	PageURL   string `json:"page_url,omitempty"`
	Command   string `json:"command,omitempty"`
	Value     any    `json:"value"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// BidPair is one bid read from the page's Prebid.js auction results.
// Price is nil when the auction set no hb_pb targeting value.
type BidPair struct {
	Bidder string  `json:"bidder"`
	Price  *string `json:"price"`
}

// Outcome records what happened to a single target.
type Outcome struct {
	Target     string `json:"target"`      // slot id or href
	TargetKind string `json:"target_kind"` // "slot" | "link"
	Artifact   string `json:"artifact,omitempty"`
	Error      string `json:"error,omitempty"`
}

// VisitResult closes a command sequence for one site.
type VisitResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Marshal serialises a Message to JSON.
func Marshal(m *Message) ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal deserialises a Message. Value is left as decoded by
// encoding/json (map, slice, string, float64, bool or nil); use DecodeValue
// to obtain a typed payload.
func Unmarshal(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodeValue re-decodes m.Value into out.
func DecodeValue(m *Message, out any) error {
	raw, err := json.Marshal(m.Value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
