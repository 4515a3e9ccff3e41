package browser

import "testing"

func TestShouldBlock(t *testing.T) {
	set := blockSetOf([]string{"Images", " fonts ", "xhr"})

	cases := map[string]bool{
		"Image":      true,
		"Font":       true,
		"XHR":        true,
		"Stylesheet": false,
		"Media":      false,
		"Document":   false,
		"Script":     false,
	}
	for typ, want := range cases {
		if got := shouldBlock(set, typ); got != want {
			t.Errorf("shouldBlock(%q) = %v, want %v", typ, got, want)
		}
	}
}

func TestShouldBlock_NeverDocument(t *testing.T) {
	if shouldBlock(blockSetOf([]string{"document"}), "Document") {
		t.Error("documents must never be blocked")
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeHeadless, "headless": ModeHeadless, "headful": ModeHeadful} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("http"); err == nil {
		t.Error("expected error")
	}
}

func TestManager_OpenSessionBeforeStart(t *testing.T) {
	m := NewManager(Config{})
	if _, err := m.OpenSession(t.Context()); err != ErrNoSession {
		t.Fatalf("got %v, want ErrNoSession", err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(t.Context()); err == nil {
		t.Fatal("Start after Close must fail")
	}
}
