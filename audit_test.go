package adminGate

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

type blockingSink struct {
	gate chan struct{}
}

func (s *blockingSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAuditDisabledNoDispatcher(t *testing.T) {
	if d := newAuditDispatcher(AuditConfig{Enabled: false}, &countingSink{}); d != nil {
		t.Fatalf("expected nil dispatcher when disabled")
	}
	var d *auditDispatcher
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatalf("nil dispatcher must report zero drops")
	}
}

func TestAuditBufferFullDropIfFull(t *testing.T) {
	sink := &blockingSink{gate: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "x"})
	}
	if d.Dropped() == 0 {
		t.Fatalf("expected dropped events")
	}
	close(sink.gate)
	d.Close()
}

func TestAuditCloseDrainsQueue(t *testing.T) {
	sink := &countingSink{}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16}, sink)
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "x"})
	}
	d.Close()
	d.Close()
	if got := sink.count.Load(); got != 5 {
		t.Fatalf("expected 5 delivered events, got %d", got)
	}
	d.Emit(context.Background(), AuditEvent{EventType: "late"})
}

type enteringSink struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *enteringSink) Emit(context.Context, AuditEvent) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
}

type deadlineSink struct {
	errs chan error
}

func (s *deadlineSink) Emit(ctx context.Context, _ AuditEvent) {
	<-ctx.Done()
	s.errs <- ctx.Err()
}

type panickySink struct {
	delivered atomic.Int64
}

func (s *panickySink) Emit(_ context.Context, ev AuditEvent) {
	if ev.EventType == "boom" {
		panic("sink exploded")
	}
	s.delivered.Add(1)
}

func TestAuditDropsCountedPerEventType(t *testing.T) {
	sink := &enteringSink{entered: make(chan struct{}), release: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	d.Emit(context.Background(), AuditEvent{EventType: "first"})
	<-sink.entered
	d.Emit(context.Background(), AuditEvent{EventType: "queued"})
	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "code_failure"})
	}
	for i := 0; i < 2; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "lockout"})
	}

	byType := d.DroppedByType()
	if byType["code_failure"] != 3 || byType["lockout"] != 2 {
		t.Fatalf("unexpected per-type drops: %v", byType)
	}
	if _, ok := byType["queued"]; ok {
		t.Fatalf("queued event must not count as dropped: %v", byType)
	}
	if d.Dropped() != 5 {
		t.Fatalf("expected 5 drops in total, got %d", d.Dropped())
	}

	byType["code_failure"] = 0
	if d.DroppedByType()["code_failure"] != 3 {
		t.Fatalf("DroppedByType must return a copy")
	}

	close(sink.release)
	d.Close()

	var nilDispatcher *auditDispatcher
	if got := nilDispatcher.DroppedByType(); len(got) != 0 {
		t.Fatalf("nil dispatcher must report no drops, got %v", got)
	}
}

func TestAuditSinkCallIsBounded(t *testing.T) {
	sink := &deadlineSink{errs: make(chan error, 1)}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4, SinkTimeout: 20 * time.Millisecond}, sink)
	d.Emit(context.Background(), AuditEvent{EventType: "x"})

	select {
	case err := <-sink.errs:
		if err != context.DeadlineExceeded {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("sink call was not cancelled")
	}
	d.Close()
}

func TestAuditSinkPanicDoesNotStopDelivery(t *testing.T) {
	sink := &panickySink{}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 8}, sink)
	d.Emit(context.Background(), AuditEvent{EventType: "boom"})
	d.Emit(context.Background(), AuditEvent{EventType: "ok"})
	d.Emit(context.Background(), AuditEvent{EventType: "ok"})
	d.Close()

	if got := d.SinkPanics(); got != 1 {
		t.Fatalf("expected 1 sink panic, got %d", got)
	}
	if got := sink.delivered.Load(); got != 2 {
		t.Fatalf("expected 2 events delivered after the panic, got %d", got)
	}
}

func TestAuditEventsForSignInFlow(t *testing.T) {
	h := newGateHarness(t, DefaultConfig())
	out := &syncBuffer{}
	g, err := New().
		WithStore(h.store).
		WithVerifier(h.verifier).
		WithClock(h.clock.Now).
		WithTickSource(h.ticks).
		WithAuditSink(NewJSONWriterSink(out)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ctx := context.Background()

	_ = g.SubmitCredentials(ctx, "ada@example.com", "wrong-pass")
	if err := g.SubmitCredentials(ctx, "ada@example.com", "correct-horse"); err != nil {
		t.Fatalf("SubmitCredentials: %v", err)
	}
	_ = g.VerifyCode(ctx, "4321")
	if err := g.VerifyCode(ctx, "1234"); err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	g.Close()

	var types []string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var ev AuditEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("bad audit line %q: %v", line, err)
		}
		if ev.EventID == "" || ev.Timestamp.IsZero() {
			t.Fatalf("event missing id or timestamp: %+v", ev)
		}
		if ev.Identifier != hashIdentifier("ada@example.com") {
			t.Fatalf("unexpected identifier %q", ev.Identifier)
		}
		types = append(types, ev.EventType)
	}

	want := []string{
		auditEventCredentialsRejected,
		auditEventCredentialsAccepted,
		auditEventCodeRejected,
		auditEventCodeAccepted,
	}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("expected events %v, got %v", want, types)
	}

	raw := out.String()
	for _, secret := range []string{"ada@example.com", "correct-horse", "wrong-pass", "login-token", "session-"} {
		if strings.Contains(raw, secret) {
			t.Fatalf("audit output leaked %q", secret)
		}
	}
}

func TestAuditLockoutEvent(t *testing.T) {
	h := newGateHarness(t, DefaultConfig())
	sink := NewChannelSink(32)
	cfg := DefaultConfig()
	cfg.PasswordLimit.Threshold = 1
	g, err := New().
		WithConfig(cfg).
		WithStore(h.store).
		WithVerifier(h.verifier).
		WithClock(h.clock.Now).
		WithTickSource(h.ticks).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer g.Close()

	_ = g.SubmitCredentials(context.Background(), "ada@example.com", "wrong-pass")

	select {
	case ev := <-sink.Events():
		if ev.EventType != auditEventLockoutEntered || ev.Scope != string(LockPassword) {
			t.Fatalf("unexpected event %+v", ev)
		}
		if ev.Metadata["lockout_seconds"] != "7200" {
			t.Fatalf("unexpected metadata %v", ev.Metadata)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for lockout event")
	}
}
