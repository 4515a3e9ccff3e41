package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/adprobe/dbopen"
	"github.com/hazyhaar/adprobe/probe/message"
)

func price(s string) *string { return &s }

func testMessage() message.Message {
	return message.Message{
		ID:        "msg_01",
		Kind:      message.KindJSResult,
		VisitID:   "visit_01",
		PageURL:   "https://news.example.com/",
		Command:   "get_prebids",
		Value:     []message.BidPair{{Bidder: "acme", Price: price("1.50")}, {Bidder: "rubicon"}},
		Timestamp: 1700000000000,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStdout_Envelope(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	if err := s.Send(context.Background(), testMessage()); err != nil {
		t.Fatal(err)
	}

	var env struct {
		Type string          `json:"type"`
		Data message.Message `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if env.Type != "js_result" || env.Data.ID != "msg_01" {
		t.Errorf("envelope: %+v", env)
	}
	if !strings.Contains(buf.String(), `{"bidder":"rubicon","price":null}`) {
		t.Errorf("nil price must encode as null: %s", buf.String())
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("expected a JSON line")
	}
}

func TestCallback(t *testing.T) {
	var got message.Message
	c := NewCallback(func(_ context.Context, m message.Message) error {
		got = m
		return nil
	})
	if err := c.Send(context.Background(), testMessage()); err != nil {
		t.Fatal(err)
	}
	if got.ID != "msg_01" {
		t.Errorf("callback got %+v", got)
	}
	if err := NewCallback(nil).Send(context.Background(), testMessage()); err != nil {
		t.Errorf("nil callback: %v", err)
	}
}

type failingSink struct {
	err    error
	closed bool
}

func (f *failingSink) Send(context.Context, message.Message) error { return f.err }
func (f *failingSink) Close() error                                { f.closed = true; return f.err }

func TestRouter_FanOutContinuesOnError(t *testing.T) {
	boom := errors.New("boom")
	bad := &failingSink{err: boom}
	var n int
	good := NewCallback(func(context.Context, message.Message) error { n++; return nil })

	r := NewRouter(quietLogger(), bad, good)
	if err := r.Send(context.Background(), testMessage()); !errors.Is(err, boom) {
		t.Fatalf("Send: got %v, want %v", err, boom)
	}
	if n != 1 {
		t.Errorf("good sink deliveries: got %d, want 1", n)
	}
	if err := r.Close(); !errors.Is(err, boom) {
		t.Errorf("Close: got %v", err)
	}
	if !bad.closed {
		t.Error("sink not closed")
	}
}

func TestWebhook_RetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type: %q", r.Header.Get("Content-Type"))
		}
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !bytes.Contains(body, []byte(`"type":"js_result"`)) {
			t.Errorf("body: %s", body)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond), WithWebhookLogger(quietLogger()))
	if err := w.Send(context.Background(), testMessage()); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 3 {
		t.Errorf("hits: got %d, want 3", hits.Load())
	}
}

func TestWebhook_RetriesExhausted(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL,
		WithWebhookRetries(2),
		WithWebhookBackoff(time.Millisecond),
		WithWebhookLogger(quietLogger()))
	err := w.Send(context.Background(), testMessage())
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("got %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("hits: got %d, want 3", hits.Load())
	}
}

func TestWebhook_RetryResendsRequestAndLogsResponse(t *testing.T) {
	var hits atomic.Int32
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, "upstream down")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var logs bytes.Buffer
	w := NewWebhook(srv.URL,
		WithWebhookBackoff(time.Millisecond),
		WithWebhookLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	if err := w.Send(context.Background(), testMessage()); err != nil {
		t.Fatal(err)
	}
	if len(bodies) != 2 || bodies[0] != bodies[1] || !strings.Contains(bodies[1], `"type":"js_result"`) {
		t.Errorf("retry must resend the same envelope: %q", bodies)
	}
	if !strings.Contains(logs.String(), "upstream down") {
		t.Errorf("rejected response body not logged: %s", logs.String())
	}
}

func TestWebhook_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Hour), WithWebhookLogger(quietLogger()))
	if err := w.Send(ctx, testMessage()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v", err)
	}
}

func TestSQLite_InsertsRow(t *testing.T) {
	db := dbopen.OpenMemory(t)
	ctx := context.Background()
	s, err := NewSQLite(ctx, db)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Send(ctx, testMessage()); err != nil {
		t.Fatal(err)
	}
	out := message.Message{ID: "msg_02", Kind: message.KindOutcome, VisitID: "visit_01",
		Value: message.Outcome{Target: "div-1", TargetKind: "slot"}, Timestamp: 1}
	if err := s.Send(ctx, out); err != nil {
		t.Fatal(err)
	}

	var kind, value, command string
	var created int64
	err = db.QueryRowContext(ctx,
		`SELECT kind, value, command, created_at FROM extension_messages WHERE id = ?`, "msg_01").
		Scan(&kind, &value, &command, &created)
	if err != nil {
		t.Fatal(err)
	}
	if kind != "js_result" || command != "get_prebids" || created != 1700000000000 {
		t.Errorf("row: kind=%q command=%q created=%d", kind, command, created)
	}
	if value != `[{"bidder":"acme","price":"1.50"},{"bidder":"rubicon","price":null}]` {
		t.Errorf("value: %s", value)
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extension_messages WHERE visit_id = ?`, "visit_01").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("rows: got %d, want 2", n)
	}

	if err := s.Send(ctx, testMessage()); err == nil {
		t.Error("duplicate id must fail")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := db.PingContext(ctx); err != nil {
		t.Errorf("borrowed db must stay open: %v", err)
	}
}

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	flushed  bool
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakePublisher) FlushWithContext(context.Context) error {
	f.flushed = true
	return nil
}

func TestNATS_SubjectPerKind(t *testing.T) {
	pub := &fakePublisher{}
	n := &NATS{pub: pub, prefix: subjectPrefix("crawl")}

	if err := n.Send(context.Background(), testMessage()); err != nil {
		t.Fatal(err)
	}
	if len(pub.subjects) != 1 || pub.subjects[0] != "crawl.js_result" {
		t.Fatalf("subjects: %v", pub.subjects)
	}
	m, err := message.Unmarshal(pub.payloads[0])
	if err != nil {
		t.Fatal(err)
	}
	var pairs []message.BidPair
	if err := message.DecodeValue(m, &pairs); err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 2 || pairs[0].Bidder != "acme" || pairs[1].Price != nil {
		t.Errorf("pairs: %+v", pairs)
	}
	if err := n.Close(); err != nil || !pub.flushed {
		t.Errorf("Close: err=%v flushed=%v", err, pub.flushed)
	}
}

func TestNATS_DefaultPrefix(t *testing.T) {
	n := NewNATS(nil, "")
	if got := n.Subject(message.KindVisit); got != "adprobe.visit_result" {
		t.Errorf("subject: %q", got)
	}
	if n.closeConn != nil {
		t.Error("a borrowed connection must not be closed by the sink")
	}
}
