package command

// Target identifies one candidate for interaction. Targets are produced by
// the locators, once per command, and never mutated afterwards.
type Target interface {
	// Key is the target identity: the slot id or the href.
	Key() string
	// Kind is "slot" or "link".
	Kind() string
}

// SlotTarget is an ad slot reported by the page's Prebid.js auction state.
type SlotTarget struct {
	SlotID string
}

func (t SlotTarget) Key() string  { return t.SlotID }
func (t SlotTarget) Kind() string { return "slot" }

// LinkTarget is a disclosure link discovered by its anchor text.
type LinkTarget struct {
	Href string
}

func (t LinkTarget) Key() string  { return t.Href }
func (t LinkTarget) Kind() string { return "link" }

// ArtifactKind is the type of file a capture produced.
type ArtifactKind string

const (
	ArtifactScreenshot ArtifactKind = "screenshot"
	ArtifactDocument   ArtifactKind = "document"
)

// Artifact is a file written for a target.
type Artifact struct {
	Kind ArtifactKind
	Path string
}

// Outcome is the result of one target's pipeline. Err is nil on success.
type Outcome struct {
	Target   Target
	Artifact Artifact
	Err      error
}

// Success reports whether the pipeline completed for this target.
func (o Outcome) Success() bool { return o.Err == nil }

// Report aggregates the outcomes of a command, in target order.
type Report struct {
	Outcomes []Outcome
}

// Succeeded returns the number of successful targets.
func (r Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Success() {
			n++
		}
	}
	return n
}

// Failed returns the number of failed targets.
func (r Report) Failed() int { return len(r.Outcomes) - r.Succeeded() }
