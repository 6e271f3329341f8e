package adminGate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/adminGate/session"
	"github.com/MrEthical07/adminGate/store/memstore"
)

var (
	errRejected = fmt.Errorf("%w: invalid credentials", ErrServiceRejected)
	errOffline  = fmt.Errorf("%w: connection refused", ErrServiceUnavailable)
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeVerifier accepts password "correct-horse" and code "1234" unless an error is
// forced.
type fakeVerifier struct {
	mu        sync.Mutex
	credErr   error
	codeErr   error
	role      string
	credCalls int
	codeCalls int
	tokens    int

	// when set, VerifyCredentials signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{role: "ADMIN"}
}

func (v *fakeVerifier) VerifyCredentials(ctx context.Context, email, password string) (*CredentialResult, error) {
	v.mu.Lock()
	v.credCalls++
	entered, release := v.entered, v.release
	err := v.credErr
	v.tokens++
	token := fmt.Sprintf("login-token-%d", v.tokens)
	v.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}
	if err != nil {
		return nil, err
	}
	if password != "correct-horse" {
		return nil, errRejected
	}
	return &CredentialResult{LoginToken: token, Message: "Code sent."}, nil
}

func (v *fakeVerifier) VerifyCode(ctx context.Context, email, code, loginToken string) (*session.Payload, error) {
	v.mu.Lock()
	v.codeCalls++
	err := v.codeErr
	role := v.role
	v.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if loginToken == "" {
		return nil, fmt.Errorf("%w: missing login token", ErrServiceRejected)
	}
	if code != "1234" {
		return nil, fmt.Errorf("%w: invalid code", ErrServiceRejected)
	}
	return &session.Payload{
		SessionToken: "session-" + loginToken,
		User: session.User{
			ID:        "64f0c2",
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     email,
			Role:      role,
		},
	}, nil
}

func (v *fakeVerifier) set(fn func(v *fakeVerifier)) {
	v.mu.Lock()
	fn(v)
	v.mu.Unlock()
}

func (v *fakeVerifier) calls() (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.credCalls, v.codeCalls
}

type gateHarness struct {
	gate     *Gate
	store    *memstore.Store
	clock    *fakeClock
	verifier *fakeVerifier
	ticks    chan time.Time
}

func newGateHarness(t *testing.T, cfg Config) *gateHarness {
	t.Helper()
	clk := newFakeClock()
	h := &gateHarness{
		store:    memstore.New(memstore.WithClock(clk.Now)),
		clock:    clk,
		verifier: newFakeVerifier(),
		ticks:    make(chan time.Time),
	}
	h.gate = h.build(t, cfg)
	return h
}

// build creates another gate over the same store, as a process restart would.
func (h *gateHarness) build(t *testing.T, cfg Config, listeners ...StateListener) *Gate {
	t.Helper()
	b := New().
		WithConfig(cfg).
		WithStore(h.store).
		WithVerifier(h.verifier).
		WithClock(h.clock.Now).
		WithTickSource(h.ticks)
	for _, l := range listeners {
		b.WithStateListener(l)
	}
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(g.Close)
	return g
}

func (h *gateHarness) signInToCode(t *testing.T) {
	t.Helper()
	if err := h.gate.SubmitCredentials(context.Background(), "ada@example.com", "correct-horse"); err != nil {
		t.Fatalf("SubmitCredentials: %v", err)
	}
}

func asFailure(t *testing.T, err error) *Failure {
	t.Helper()
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("expected *Failure, got %T (%v)", err, err)
	}
	return f
}

func expectKind(t *testing.T, err error, kind FailureKind) *Failure {
	t.Helper()
	f := asFailure(t, err)
	if f.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%s)", kind, f.Kind, f.Message)
	}
	return f
}

// sessionWriteBlocker holds the first write of key until release is closed.
type sessionWriteBlocker struct {
	*memstore.Store
	key     string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *sessionWriteBlocker) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == s.key {
		s.once.Do(func() {
			close(s.entered)
			<-s.release
		})
	}
	return s.Store.Set(ctx, key, value, ttl)
}
