package command

import "strings"

// PhraseSet is an ordered set of lowercase phrases matched against element
// text. It is immutable once built.
type PhraseSet struct {
	phrases []string
}

// NewPhraseSet lowercases and trims phrases, dropping empty and duplicate
// entries while keeping the first-seen order.
func NewPhraseSet(phrases ...string) PhraseSet {
	seen := make(map[string]bool, len(phrases))
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return PhraseSet{phrases: out}
}

// Phrases returns a copy of the phrases in order.
func (s PhraseSet) Phrases() []string {
	return append([]string(nil), s.phrases...)
}

// Len returns the number of phrases.
func (s PhraseSet) Len() int { return len(s.phrases) }

// Match reports whether text contains any phrase, case-insensitively, and
// returns the first phrase that matched.
//
// Matching is substring containment, not word matching: "privacy policy"
// also matches "our privacy policy-related cookies". This is a known source
// of false positives and is kept for compatibility with existing crawls.
func (s PhraseSet) Match(text string) (string, bool) {
	text = strings.ToLower(text)
	for _, p := range s.phrases {
		if strings.Contains(text, p) {
			return p, true
		}
	}
	return "", false
}

// PrivacyPhrases are the anchor texts that identify privacy disclosures
// and "Do Not Sell My Personal Information" (DNSMPI) opt-out links.
var PrivacyPhrases = NewPhraseSet(
	"dnsmpi",
	"privacy policy",
	"do not sell my information",
	"do not sell my info",
	"do not sell my personal info",
	"do not sell or share my personal information",
	"do not sell or share my information",
	"do not sell or share my info",
	"do not sell or share my personal info",
)
