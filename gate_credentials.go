package adminGate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SubmitCredentials runs phase 1. On success the gate holds a login token and waits for
// the one-time code; the password limiter is not reset until phase 2 succeeds.
//
// Every error is a *[Failure]. Validation failures never reach the limiter or the
// backend, and an active password lockout is reported without calling the backend.
func (g *Gate) SubmitCredentials(ctx context.Context, email, password string) error {
	if g == nil {
		return ErrGateNotReady
	}
	if err := g.begin(); err != nil {
		g.metrics.Inc(MetricBusyRejected)
		return err
	}
	defer g.end()

	email = normalizeEmail(email)
	if f := g.validateCredentials(email, password); f != nil {
		g.metrics.Inc(MetricValidationFailure)
		return f
	}

	g.mu.Lock()
	if g.phase == PhaseAuthenticated {
		g.mu.Unlock()
		return invalidState("Already signed in.")
	}
	epoch := g.epoch
	g.mu.Unlock()

	st, err := g.passwordLimiter.CheckLocked(ctx)
	if err != nil {
		return g.storeFailure("password limiter check", err)
	}
	if st.Locked {
		return g.blocked(ctx, LockPassword, email, st.UnlocksAt)
	}

	// A new phase-1 attempt supersedes any pending challenge.
	g.mu.Lock()
	g.challenge = nil
	g.cooldown.Reset(0)
	g.phase = PhaseCredentialsPending
	g.lockedOut = LockNone
	g.message = ""
	g.mu.Unlock()
	g.metrics.Inc(MetricCredentialsSubmitted)

	res, err := g.callCredentials(ctx, email, password)
	if err != nil {
		return g.passwordFailure(ctx, email, err)
	}

	message := res.Message
	if message == "" {
		message = msgCodeSent
	}

	g.mu.Lock()
	if g.epoch != epoch {
		g.mu.Unlock()
		return invalidState("Sign-in was cancelled.")
	}
	g.challenge = &challenge{
		email:      email,
		password:   password,
		loginToken: res.LoginToken,
		issuedAt:   g.now(),
	}
	g.phase = PhaseAwaitingCode
	g.lockedOut = LockNone
	g.message = message
	g.cooldown.Reset(g.resendSeconds())
	g.mu.Unlock()

	g.clock.Ensure()
	g.metrics.Inc(MetricCredentialsAccepted)
	g.logger.Info("credentials accepted", zap.String("identifier", hashIdentifier(email)))
	g.emitAudit(ctx, auditEventCredentialsAccepted, true, email, "", LockNone, nil, nil)
	g.publish(ctx)
	return nil
}

func (g *Gate) callCredentials(ctx context.Context, email, password string) (*CredentialResult, error) {
	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := g.credentials.VerifyCredentials(callCtx, email, password)
	g.metrics.Observe(MetricServiceLatency, time.Since(start))
	if err != nil {
		return nil, err
	}
	if res == nil || res.LoginToken == "" {
		return nil, fmt.Errorf("%w: empty login token", ErrServiceUnavailable)
	}
	return res, nil
}

func (g *Gate) passwordFailure(ctx context.Context, email string, cause error) error {
	transient := isTransient(cause)
	g.logger.Info("credentials not accepted",
		zap.String("identifier", hashIdentifier(email)),
		zap.Bool("transient", transient),
		zap.Error(cause),
	)
	if transient {
		g.metrics.Inc(MetricTransientFailure)
		if !g.config.Service.CountTransientFailures {
			g.setPhase(PhaseCredentialsPending, LockNone, msgTransient)
			return &Failure{Kind: KindTransientService, Message: msgTransient}
		}
	}

	count, locked, err := g.passwordLimiter.RecordFailure(ctx)
	if err != nil {
		return g.storeFailure("password limiter record", err)
	}
	if locked {
		return g.lockout(ctx, LockPassword, email)
	}

	remaining := attemptsRemaining(g.passwordLimiter.Threshold(), count, 0)
	kind := KindCredentialsRejected
	msg := attemptsMessage("Invalid email or password.", remaining)
	if transient {
		kind = KindTransientService
		msg = attemptsMessage(msgTransient, remaining)
	} else {
		g.metrics.Inc(MetricCredentialsRejected)
	}

	g.setPhase(PhaseCredentialsPending, LockNone, msg)
	g.emitAudit(ctx, auditEventCredentialsRejected, false, email, "", LockPassword, cause, func() map[string]string {
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

// ResendCode asks the backend for a new code using the credentials held for the
// pending challenge. It never touches the password limiter.
func (g *Gate) ResendCode(ctx context.Context) error {
	if g == nil {
		return ErrGateNotReady
	}
	if err := g.begin(); err != nil {
		g.metrics.Inc(MetricBusyRejected)
		return err
	}
	defer g.end()

	g.mu.Lock()
	if g.cooldown.Active() {
		secs := g.cooldown.Seconds()
		g.mu.Unlock()
		g.metrics.Inc(MetricResendThrottled)
		return &Failure{
			Kind:            KindCooldownActive,
			CooldownSeconds: secs,
			Message:         fmt.Sprintf("You can request a new code in %d seconds.", secs),
		}
	}
	ch := g.challenge
	g.mu.Unlock()
	if ch == nil {
		return invalidState("No verification is pending.")
	}

	res, err := g.callCredentials(ctx, ch.email, ch.password)

	g.mu.Lock()
	if g.challenge != ch {
		g.mu.Unlock()
		return invalidState("Sign-in was cancelled.")
	}
	if err != nil {
		g.mu.Unlock()
		transient := isTransient(err)
		g.logger.Info("code resend failed", zap.Bool("transient", transient), zap.Error(err))
		if transient {
			g.metrics.Inc(MetricTransientFailure)
			return &Failure{Kind: KindTransientService, Message: msgTransient}
		}
		return &Failure{Kind: KindCredentialsRejected, Message: "Could not send a new code."}
	}
	g.challenge = &challenge{
		email:      ch.email,
		password:   ch.password,
		loginToken: res.LoginToken,
		issuedAt:   g.now(),
	}
	g.cooldown.Reset(g.resendSeconds())
	g.message = msgCodeSent
	g.mu.Unlock()

	g.clock.Ensure()
	g.metrics.Inc(MetricResendSent)
	g.emitAudit(ctx, auditEventCodeResent, true, ch.email, "", LockNone, nil, nil)
	g.publish(ctx)
	return nil
}

// Cancel abandons the pending challenge and any session artifacts. Limiters are left
// untouched, and an active password lockout remains in force.
func (g *Gate) Cancel(ctx context.Context) error {
	if g == nil {
		return ErrGateNotReady
	}

	g.mu.Lock()
	if g.phase == PhaseAuthenticated {
		g.mu.Unlock()
		return invalidState("Already signed in.")
	}
	ch := g.challenge
	g.challenge = nil
	g.epoch++
	g.cooldown.Reset(0)
	if g.lockedOut != LockPassword {
		g.phase = PhaseCredentialsPending
		g.lockedOut = LockNone
		g.message = ""
	}
	g.mu.Unlock()

	if err := g.sessions.Clear(ctx); err != nil {
		return g.storeFailure("session clear", err)
	}

	if ch != nil {
		g.metrics.Inc(MetricChallengeCancelled)
		g.emitAudit(ctx, auditEventChallengeCancelled, true, ch.email, "", LockNone, nil, nil)
	}
	g.publish(ctx)
	return nil
}

func (g *Gate) resendSeconds() int {
	return int(g.config.Challenge.ResendCooldown / time.Second)
}
