package adminGate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/adminGate/internal/limiter"
	"go.uber.org/zap"
)

const (
	msgUnavailable = "Sign-in is temporarily unavailable. Try again shortly."
	msgTransient   = "Could not reach the sign-in service."
	msgCodeSent    = "A verification code has been sent to your email."
)

// isTransient reports whether a verifier error is an infrastructure fault rather than
// a decision by the backend.
func isTransient(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func invalidState(msg string) *Failure {
	return &Failure{Kind: KindInvalidState, Message: msg}
}

func (g *Gate) storeFailure(op string, err error) error {
	g.metrics.Inc(MetricStoreFailure)
	g.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
	return &Failure{Kind: KindUnavailable, Message: msgUnavailable}
}

func (g *Gate) limiterFor(kind LockKind) *limiter.Limiter {
	if kind == LockCode {
		return g.codeLimiter
	}
	return g.passwordLimiter
}

// dropChallenge discards the pending code challenge and its resend cooldown.
func (g *Gate) dropChallenge() {
	g.mu.Lock()
	g.challenge = nil
	g.cooldown.Reset(0)
	g.mu.Unlock()
}

// lockout reports a lockout that the current attempt has just triggered. Either lock
// ends the sign-in attempt: the challenge and any session artifacts are purged.
func (g *Gate) lockout(ctx context.Context, kind LockKind, email string) error {
	g.dropChallenge()
	if err := g.sessions.Clear(ctx); err != nil {
		g.metrics.Inc(MetricStoreFailure)
		g.logger.Warn("session purge after lockout failed", zap.String("scope", string(kind)), zap.Error(err))
	}

	l := g.limiterFor(kind)
	unlocksAt := g.now().Add(l.LockoutDuration())
	secs := l.SecondsUntil(unlocksAt)
	msg := lockoutMessage(secs)

	g.setPhase(PhaseLockedOut, kind, msg)
	g.clock.Ensure()

	if kind == LockCode {
		g.metrics.Inc(MetricCodeLockout)
	} else {
		g.metrics.Inc(MetricPasswordLockout)
	}
	g.logger.Warn("lockout entered",
		zap.String("scope", string(kind)),
		zap.String("identifier", hashIdentifier(email)),
		zap.Time("unlocks_at", unlocksAt),
	)
	g.emitAudit(ctx, auditEventLockoutEntered, false, email, "", kind, nil, func() map[string]string {
		return map[string]string{"lockout_seconds": fmt.Sprint(secs)}
	})
	g.publish(ctx)

	return &Failure{
		Kind:           KindLockedOut,
		Lock:           kind,
		LockoutSeconds: secs,
		UnlocksAt:      unlocksAt,
		Message:        msg,
	}
}

// blocked reports an attempt refused by a lockout that was already active.
func (g *Gate) blocked(ctx context.Context, kind LockKind, email string, unlocksAt time.Time) error {
	g.dropChallenge()
	secs := g.limiterFor(kind).SecondsUntil(unlocksAt)
	msg := lockoutMessage(secs)

	g.setPhase(PhaseLockedOut, kind, msg)
	g.clock.Ensure()

	g.metrics.Inc(MetricRateLimitHit)
	g.emitAudit(ctx, auditEventRateLimitBlocked, false, email, "", kind, ErrLockedOut, nil)
	g.publish(ctx)

	return &Failure{
		Kind:           KindLockedOut,
		Lock:           kind,
		LockoutSeconds: secs,
		UnlocksAt:      unlocksAt,
		Message:        msg,
	}
}

func lockoutMessage(secs int) string {
	d := time.Duration(secs) * time.Second
	return fmt.Sprintf("Too many failed attempts. Try again in %s.", d)
}

func attemptsMessage(prefix string, n int) string {
	if n == 1 {
		return prefix + " 1 attempt remaining."
	}
	return fmt.Sprintf("%s %d attempts remaining.", prefix, n)
}
