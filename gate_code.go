package adminGate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/adminGate/session"
	"go.uber.org/zap"
)

// VerifyCode runs phase 2 against the pending challenge. On success the session is
// persisted, both limiters are cleared and the gate becomes Authenticated.
//
// A verified identity without the admin role is refused with [ErrAccessDenied]; its
// session is purged and no limiter is charged.
func (g *Gate) VerifyCode(ctx context.Context, code string) error {
	if g == nil {
		return ErrGateNotReady
	}
	if err := g.begin(); err != nil {
		g.metrics.Inc(MetricBusyRejected)
		return err
	}
	defer g.end()

	code = strings.TrimSpace(code)
	if !validCode(code, g.config.Challenge.CodeLength) {
		g.metrics.Inc(MetricValidationFailure)
		return validationFailure(fmt.Sprintf("Enter the %d-digit code.", g.config.Challenge.CodeLength))
	}

	st, err := g.codeLimiter.CheckLocked(ctx)
	if err != nil {
		return g.storeFailure("code limiter check", err)
	}
	if st.Locked {
		g.mu.Lock()
		email := ""
		if g.challenge != nil {
			email = g.challenge.email
		}
		g.mu.Unlock()
		return g.blocked(ctx, LockCode, email, st.UnlocksAt)
	}

	g.mu.Lock()
	ch := g.challenge
	if ch == nil {
		g.mu.Unlock()
		return invalidState("No verification is pending. Sign in again.")
	}
	g.phase = PhaseVerifying
	g.message = ""
	g.mu.Unlock()
	g.publish(ctx)
	g.metrics.Inc(MetricCodeSubmitted)

	payload, err := g.callCode(ctx, ch, code)
	if err != nil {
		return g.codeFailure(ctx, ch, err)
	}

	if !g.pending(ch) {
		return invalidState("Sign-in was cancelled.")
	}

	cred, err := g.sessions.Establish(ctx, payload)
	switch {
	case errors.Is(err, session.ErrAccessDenied):
		return g.accessDenied(ctx, ch, payload)
	case errors.Is(err, session.ErrInvalidPayload):
		g.logger.Warn("verification returned an unusable session", zap.Error(err))
		g.metrics.Inc(MetricTransientFailure)
		g.backTo(ch, PhaseAwaitingCode, msgTransient)
		return &Failure{Kind: KindTransientService, Message: msgTransient}
	case err != nil:
		g.backTo(ch, PhaseAwaitingCode, msgUnavailable)
		return g.storeFailure("session establish", err)
	}

	g.mu.Lock()
	if g.challenge != ch {
		// Cancelled or signed out while the session was being written.
		g.mu.Unlock()
		if err := g.sessions.Clear(ctx); err != nil {
			g.metrics.Inc(MetricStoreFailure)
			g.logger.Warn("session purge after cancelled sign-in failed", zap.Error(err))
		}
		return invalidState("Sign-in was cancelled.")
	}
	g.challenge = nil
	g.credential = cred
	g.phase = PhaseAuthenticated
	g.lockedOut = LockNone
	g.cooldown.Reset(0)
	g.message = "Welcome, " + cred.User.DisplayName() + "."
	g.mu.Unlock()

	if err := g.passwordLimiter.Reset(ctx); err != nil {
		g.metrics.Inc(MetricStoreFailure)
		g.logger.Warn("password limiter reset failed", zap.Error(err))
	}
	if err := g.codeLimiter.Reset(ctx); err != nil {
		g.metrics.Inc(MetricStoreFailure)
		g.logger.Warn("code limiter reset failed", zap.Error(err))
	}

	g.metrics.Inc(MetricCodeAccepted)
	g.metrics.Inc(MetricSessionEstablished)
	g.logger.Info("admin signed in",
		zap.String("identifier", hashIdentifier(ch.email)),
		zap.String("user_id", cred.User.ID),
	)
	g.emitAudit(ctx, auditEventCodeAccepted, true, ch.email, cred.User.ID, LockNone, nil, nil)
	g.publish(ctx)
	return nil
}

func (g *Gate) callCode(ctx context.Context, ch *challenge, code string) (*session.Payload, error) {
	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	payload, err := g.codes.VerifyCode(callCtx, ch.email, code, ch.loginToken)
	g.metrics.Observe(MetricServiceLatency, time.Since(start))
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: empty session payload", ErrServiceUnavailable)
	}
	return payload, nil
}

func (g *Gate) codeFailure(ctx context.Context, ch *challenge, cause error) error {
	transient := isTransient(cause)
	g.logger.Info("code not accepted",
		zap.String("identifier", hashIdentifier(ch.email)),
		zap.Bool("transient", transient),
		zap.Error(cause),
	)
	if transient {
		g.metrics.Inc(MetricTransientFailure)
		if !g.config.Service.CountTransientFailures {
			g.backTo(ch, PhaseAwaitingCode, msgTransient)
			return &Failure{Kind: KindTransientService, Message: msgTransient}
		}
	}

	count, locked, err := g.codeLimiter.RecordFailure(ctx)
	if err != nil {
		g.backTo(ch, PhaseAwaitingCode, msgUnavailable)
		return g.storeFailure("code limiter record", err)
	}
	if locked {
		return g.lockout(ctx, LockCode, ch.email)
	}

	remaining := attemptsRemaining(g.codeLimiter.Threshold(), count, 1)
	kind := KindCodeRejected
	msg := attemptsMessage("Invalid verification code.", remaining)
	if transient {
		kind = KindTransientService
		msg = attemptsMessage(msgTransient, remaining)
	} else {
		g.metrics.Inc(MetricCodeRejected)
	}

	g.backTo(ch, PhaseAwaitingCode, msg)
	g.emitAudit(ctx, auditEventCodeRejected, false, ch.email, "", LockCode, cause, func() map[string]string {
		return map[string]string{"attempts": fmt.Sprint(count)}
	})
	g.publish(ctx)

	return &Failure{
		Kind:              kind,
		HasAttempts:       true,
		AttemptsRemaining: remaining,
		Message:           msg,
	}
}

func (g *Gate) accessDenied(ctx context.Context, ch *challenge, p *session.Payload) error {
	if err := g.sessions.Clear(ctx); err != nil {
		g.metrics.Inc(MetricStoreFailure)
		g.logger.Warn("session purge after access denial failed", zap.Error(err))
	}

	const msg = "This account does not have admin access."
	g.mu.Lock()
	if g.challenge == ch {
		g.challenge = nil
	}
	g.cooldown.Reset(0)
	g.phase = PhaseCredentialsPending
	g.lockedOut = LockNone
	g.message = msg
	g.mu.Unlock()

	g.metrics.Inc(MetricAccessDenied)
	g.logger.Warn("non-admin sign-in refused",
		zap.String("identifier", hashIdentifier(ch.email)),
		zap.String("user_id", p.User.ID),
	)
	g.emitAudit(ctx, auditEventAccessDenied, false, ch.email, p.User.ID, LockNone, ErrAccessDenied, nil)
	g.publish(ctx)

	return &Failure{Kind: KindAccessDenied, Message: msg}
}

// pending reports whether ch is still the active challenge.
func (g *Gate) pending(ch *challenge) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.challenge == ch
}

// backTo moves the phase only if ch was not cancelled meanwhile.
func (g *Gate) backTo(ch *challenge, p Phase, msg string) {
	g.mu.Lock()
	if g.challenge == ch {
		g.phase = p
		g.message = msg
	}
	g.mu.Unlock()
}
