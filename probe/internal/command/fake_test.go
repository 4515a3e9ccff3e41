package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"testing"

	"github.com/hazyhaar/adprobe/probe/message"
)

// fakeSession is an in-memory Session. Navigate moves url; side effects
// (navigations, clicks, screenshots) are recorded in calls.
type fakeSession struct {
	url     string
	html    map[string]string // by url
	shot    []byte
	evals   map[string]json.RawMessage
	evalErr map[string]error
	anchors []Element
	byID    map[string]*fakeElement

	elementsErr error
	urlErr      error
	navErr      map[string]error

	calls []string
}

func newFakeSession(url string) *fakeSession {
	return &fakeSession{
		url:     url,
		html:    make(map[string]string),
		shot:    []byte("\x89PNG fake"),
		evals:   make(map[string]json.RawMessage),
		evalErr: make(map[string]error),
		byID:    make(map[string]*fakeElement),
		navErr:  make(map[string]error),
	}
}

func (s *fakeSession) URL(context.Context) (string, error) {
	if s.urlErr != nil {
		return "", s.urlErr
	}
	return s.url, nil
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.calls = append(s.calls, "navigate "+url)
	if err := s.navErr[url]; err != nil {
		return err
	}
	s.url = url
	return nil
}

func (s *fakeSession) Eval(_ context.Context, js string, _ ...any) (json.RawMessage, error) {
	if err := s.evalErr[js]; err != nil {
		return nil, err
	}
	if raw, ok := s.evals[js]; ok {
		return raw, nil
	}
	return json.RawMessage("null"), nil
}

func (s *fakeSession) Elements(_ context.Context, selector string) ([]Element, error) {
	if s.elementsErr != nil {
		return nil, s.elementsErr
	}
	if selector != "a" {
		return nil, nil
	}
	return s.anchors, nil
}

func (s *fakeSession) ElementByID(_ context.Context, id string) (Element, error) {
	el, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("#%s: %w", id, ErrNotFound)
	}
	return el, nil
}

func (s *fakeSession) HTML(context.Context) (string, error) {
	h, ok := s.html[s.url]
	if !ok {
		return "", errors.New("no html for " + s.url)
	}
	return h, nil
}

func (s *fakeSession) Screenshot(context.Context, bool) ([]byte, error) {
	s.calls = append(s.calls, "screenshot")
	return s.shot, nil
}

func (s *fakeSession) ClickAt(_ context.Context, x, y float64) error {
	s.calls = append(s.calls, fmt.Sprintf("click %.0f,%.0f", x, y))
	return nil
}

// sideEffects returns calls that touched navigation, pointer or capture.
func (s *fakeSession) sideEffects() []string { return s.calls }

type fakeElement struct {
	sess     *fakeSession
	name     string
	text     string
	textErr  error
	attrs    map[string]string // raw content attributes
	props    map[string]string // resolved DOM properties
	children map[string]*fakeElement
	eval     json.RawMessage
	frame    *fakeFrame
	frameErr error
	clickErr error
	panics   bool
}

func (e *fakeElement) Text(context.Context) (string, error) { return e.text, e.textErr }

// Attribute follows the browser adapter: a missing or blank raw attribute
// is absent, otherwise the resolved property wins over the raw value.
func (e *fakeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	raw, ok := e.attrs[name]
	if !ok || strings.TrimSpace(raw) == "" {
		return "", false, nil
	}
	if v := e.props[name]; v != "" {
		return v, true, nil
	}
	return raw, true, nil
}

func (e *fakeElement) Element(_ context.Context, selector string) (Element, error) {
	c, ok := e.children[selector]
	if !ok {
		return nil, fmt.Errorf("%s: %w", selector, ErrNotFound)
	}
	return c, nil
}

func (e *fakeElement) ScrollIntoView(context.Context) error {
	if e.panics {
		panic("stale element " + e.name)
	}
	return nil
}

func (e *fakeElement) Click(context.Context) error {
	if e.clickErr != nil {
		return e.clickErr
	}
	e.sess.calls = append(e.sess.calls, "click "+e.name)
	return nil
}

func (e *fakeElement) Eval(context.Context, string, ...any) (json.RawMessage, error) {
	if e.panics {
		panic("stale element " + e.name)
	}
	if e.eval == nil {
		return nil, errors.New("no eval result")
	}
	return e.eval, nil
}

func (e *fakeElement) Frame(context.Context) (Frame, error) {
	if e.frameErr != nil {
		return nil, e.frameErr
	}
	if e.frame == nil {
		return nil, errors.New("not an iframe")
	}
	e.frame.entered++
	return e.frame, nil
}

type fakeFrame struct {
	body     *fakeElement
	entered  int
	left     int
	leaveErr error
}

func (f *fakeFrame) Element(_ context.Context, selector string) (Element, error) {
	if selector == "body" && f.body != nil {
		return f.body, nil
	}
	return nil, ErrNotFound
}

func (f *fakeFrame) Leave() error {
	f.left++
	return f.leaveErr
}

// anchor builds an <a> whose href property resolves against the session
// URL the way HTMLAnchorElement.href does; "-" omits the attribute.
func anchor(s *fakeSession, text, href string) *fakeElement {
	el := &fakeElement{sess: s, name: "a", text: text, attrs: map[string]string{}, props: map[string]string{}}
	if href == "-" {
		return el
	}
	el.attrs["href"] = href
	el.props["href"] = href
	if base, err := url.Parse(s.url); err == nil {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			el.props["href"] = base.ResolveReference(ref).String()
		}
	}
	return el
}

// adSlot registers a slot container with a centroid and an iframe whose
// body is clickable.
func adSlot(s *fakeSession, id string) *fakeElement {
	body := &fakeElement{sess: s, name: "body-" + id}
	iframe := &fakeElement{sess: s, name: "iframe-" + id, frame: &fakeFrame{body: body}}
	slot := &fakeElement{
		sess:     s,
		name:     id,
		children: map[string]*fakeElement{"iframe": iframe},
		eval:     json.RawMessage(`{"x":400,"y":300,"width":300,"height":250}`),
	}
	s.byID[id] = slot
	return slot
}

type recordSink struct {
	msgs []message.Message
	err  error
}

func (r *recordSink) Send(_ context.Context, m message.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *recordSink) kinds(k message.Kind) []message.Message {
	var out []message.Message
	for _, m := range r.msgs {
		if m.Kind == k {
			out = append(out, m)
		}
	}
	return out
}

// logCapture collects structured log lines for assertions.
type logCapture struct {
	records []slog.Record
}

func (l *logCapture) Enabled(context.Context, slog.Level) bool { return true }
func (l *logCapture) Handle(_ context.Context, r slog.Record) error {
	l.records = append(l.records, r)
	return nil
}
func (l *logCapture) WithAttrs([]slog.Attr) slog.Handler { return l }
func (l *logCapture) WithGroup(string) slog.Handler      { return l }

func (l *logCapture) warnings() []slog.Record {
	var out []slog.Record
	for _, r := range l.records {
		if r.Level == slog.LevelWarn {
			out = append(out, r)
		}
	}
	return out
}

func testEnv(t testing.TB, s *fakeSession) (*Env, *recordSink, *logCapture) {
	sink := &recordSink{}
	logs := &logCapture{}
	return &Env{
		Session: s,
		Params:  Params{DataDir: t.TempDir()},
		Sink:    sink,
		Logger:  slog.New(logs),
		VisitID: "visit_test",
		SiteURL: s.url,
	}, sink, logs
}
