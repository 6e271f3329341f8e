package adminGate

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/adminGate/internal/countdown"
	"github.com/MrEthical07/adminGate/internal/limiter"
	"github.com/MrEthical07/adminGate/session"
	"go.uber.org/zap"
)

// Gate is the admin sign-in orchestrator. It is safe for concurrent use, but only one
// of SubmitCredentials, VerifyCode and ResendCode runs at a time; overlapping calls
// fail with [ErrBusy].
type Gate struct {
	config Config

	passwordLimiter *limiter.Limiter
	codeLimiter     *limiter.Limiter
	sessions        *session.Store
	credentials     CredentialVerifier
	codes           CodeVerifier
	clock           *countdown.Clock
	audit           *auditDispatcher
	metrics         *Metrics
	logger          *zap.Logger
	now             func() time.Time

	mu         sync.Mutex
	inflight   bool
	epoch      uint64
	closed     bool
	phase      Phase
	lockedOut  LockKind
	challenge  *challenge
	cooldown   countdown.Cooldown
	credential *session.Credential
	message    string
	listeners  []StateListener
}

// challenge is the pending phase-2 context. The password is kept in memory only so a
// code can be re-sent without asking for it again.
type challenge struct {
	email      string
	password   string
	loginToken string
	issuedAt   time.Time
}

// State returns the current phase and both limiter views. Reading the limiters lazily
// clears expired ledgers.
func (g *Gate) State(ctx context.Context) State {
	if g == nil {
		return State{Phase: PhaseIdle}
	}
	pw, code := g.readLimiters(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked(pw, code)
}

// Session returns a copy of the authenticated credential, or nil.
func (g *Gate) Session() *session.Credential {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.credential == nil {
		return nil
	}
	c := *g.credential
	return &c
}

// MetricsSnapshot returns a copy of the gate counters.
func (g *Gate) MetricsSnapshot() MetricsSnapshot {
	if g == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return g.metrics.Snapshot()
}

// AuditDropped reports audit events lost to a full buffer.
func (g *Gate) AuditDropped() uint64 {
	if g == nil {
		return 0
	}
	return g.audit.Dropped()
}

// AuditDroppedByType breaks AuditDropped down by event type.
func (g *Gate) AuditDroppedByType() map[string]uint64 {
	if g == nil {
		return map[string]uint64{}
	}
	return g.audit.DroppedByType()
}

// Close stops the countdown and flushes queued audit events. The gate must not be
// used afterwards.
func (g *Gate) Close() {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.closed = true
	g.challenge = nil
	g.mu.Unlock()

	g.clock.Stop()
	g.audit.Close()
}

// begin claims the single submission slot.
func (g *Gate) begin() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrGateNotReady
	}
	if g.inflight {
		return &Failure{Kind: KindBusy, Message: "A request is already in progress."}
	}
	g.inflight = true
	return nil
}

func (g *Gate) end() {
	g.mu.Lock()
	g.inflight = false
	g.mu.Unlock()
}

// readLimiters never writes. Lazy resets belong to the serialized request path so a
// tick cannot delete a failure recorded concurrently.
func (g *Gate) readLimiters(ctx context.Context) (limiter.State, limiter.State) {
	pw, err := g.passwordLimiter.Peek(ctx)
	if err != nil {
		g.logger.Warn("password limiter read failed", zap.Error(err))
	}
	code, err := g.codeLimiter.Peek(ctx)
	if err != nil {
		g.logger.Warn("code limiter read failed", zap.Error(err))
	}
	return pw, code
}

func (g *Gate) stateLocked(pw, code limiter.State) State {
	st := State{
		Phase:                 g.phase,
		LockedOut:             g.lockedOut,
		Password:              g.lockInfo(g.passwordLimiter, pw, 0),
		Code:                  g.lockInfo(g.codeLimiter, code, 1),
		ResendCooldownSeconds: g.cooldown.Seconds(),
		Message:               g.message,
	}
	if g.credential != nil {
		u := g.credential.User
		st.User = &u
	}
	return st
}

// lockInfo converts a limiter view. reserve is subtracted from the remaining
// attempts: the code phase reports the attempts left before the last one.
func (g *Gate) lockInfo(l *limiter.Limiter, st limiter.State, reserve int) LockInfo {
	info := LockInfo{
		Locked:            st.Locked,
		Attempts:          st.Count,
		AttemptsRemaining: attemptsRemaining(l.Threshold(), st.Count, reserve),
	}
	if st.Locked {
		info.UnlocksAt = st.UnlocksAt
		info.RemainingSeconds = l.SecondsUntil(st.UnlocksAt)
		info.AttemptsRemaining = 0
	}
	return info
}

func attemptsRemaining(threshold, count, reserve int) int {
	n := threshold - count - reserve
	if n < 0 {
		return 0
	}
	return n
}

// tick runs on the countdown goroutine once per second. It keeps the clock alive while
// a lockout or the resend cooldown is still counting down.
func (g *Gate) tick(time.Time) bool {
	pw, code := g.readLimiters(context.Background())

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return false
	}
	g.cooldown.Tick()
	if g.phase == PhaseLockedOut {
		expired := (g.lockedOut == LockPassword && !pw.Locked) ||
			(g.lockedOut == LockCode && !code.Locked)
		if expired {
			g.logger.Info("lockout expired", zap.String("scope", string(g.lockedOut)))
			g.phase = PhaseIdle
			g.lockedOut = LockNone
			g.message = ""
		}
	}
	st := g.stateLocked(pw, code)
	running := st.Password.RemainingSeconds > 0 ||
		st.Code.RemainingSeconds > 0 ||
		st.ResendCooldownSeconds > 0
	listeners := g.listeners
	g.mu.Unlock()

	notify(listeners, st)
	return running
}

// publish snapshots the state and notifies listeners outside the mutex.
func (g *Gate) publish(ctx context.Context) {
	if len(g.listeners) == 0 {
		return
	}
	pw, code := g.readLimiters(ctx)
	g.mu.Lock()
	st := g.stateLocked(pw, code)
	listeners := g.listeners
	g.mu.Unlock()
	notify(listeners, st)
}

func notify(listeners []StateListener, st State) {
	for _, fn := range listeners {
		fn(st)
	}
}

func (g *Gate) setPhase(p Phase, lock LockKind, message string) {
	g.mu.Lock()
	g.phase = p
	g.lockedOut = lock
	g.message = message
	g.mu.Unlock()
}

func (g *Gate) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, g.config.Service.Timeout)
}
