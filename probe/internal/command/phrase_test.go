package command

import "testing"

func TestPhraseSet_CaseInsensitiveSubstring(t *testing.T) {
	p, ok := PrivacyPhrases.Match("Please review our Privacy Policy here")
	if !ok {
		t.Fatal("expected match")
	}
	if p != "privacy policy" {
		t.Errorf("phrase: got %q, want %q", p, "privacy policy")
	}
}

func TestPhraseSet_SubstringFalsePositive(t *testing.T) {
	// Substring matching is kept on purpose: unrelated text containing a
	// phrase still matches.
	if _, ok := PrivacyPhrases.Match("cookies under our privacy policyholder programme"); !ok {
		t.Error("expected substring match inside a longer word")
	}
}

func TestPhraseSet_NoMatch(t *testing.T) {
	if _, ok := PrivacyPhrases.Match("Terms of Service"); ok {
		t.Error("unexpected match")
	}
}

func TestNewPhraseSet_Normalises(t *testing.T) {
	s := NewPhraseSet("  Privacy Policy ", "privacy policy", "", "DNSMPI")
	got := s.Phrases()
	if len(got) != 2 {
		t.Fatalf("Phrases: got %v, want 2 entries", got)
	}
	if got[0] != "privacy policy" || got[1] != "dnsmpi" {
		t.Errorf("Phrases: got %v", got)
	}

	got[0] = "mutated"
	if s.Phrases()[0] != "privacy policy" {
		t.Error("Phrases must return a copy")
	}
}
