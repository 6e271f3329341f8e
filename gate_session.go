package adminGate

import (
	"context"

	"go.uber.org/zap"
)

// Restore loads persisted state after a restart: an admin session resumes the
// Authenticated phase, and an active lockout resumes its countdown.
func (g *Gate) Restore(ctx context.Context) error {
	if g == nil {
		return ErrGateNotReady
	}

	cred, err := g.sessions.Restore(ctx)
	if err != nil {
		return g.storeFailure("session restore", err)
	}
	pw, err := g.passwordLimiter.CheckLocked(ctx)
	if err != nil {
		return g.storeFailure("password limiter check", err)
	}
	code, err := g.codeLimiter.CheckLocked(ctx)
	if err != nil {
		return g.storeFailure("code limiter check", err)
	}

	g.mu.Lock()
	g.credential = cred
	g.lockedOut = LockNone
	g.message = ""
	switch {
	case cred != nil:
		g.phase = PhaseAuthenticated
	case pw.Locked:
		g.phase = PhaseLockedOut
		g.lockedOut = LockPassword
		g.message = lockoutMessage(g.passwordLimiter.SecondsUntil(pw.UnlocksAt))
	case code.Locked:
		g.phase = PhaseLockedOut
		g.lockedOut = LockCode
		g.message = lockoutMessage(g.codeLimiter.SecondsUntil(code.UnlocksAt))
	default:
		g.phase = PhaseIdle
	}
	g.mu.Unlock()

	if pw.Locked || code.Locked {
		g.clock.Ensure()
	}
	if cred != nil {
		g.metrics.Inc(MetricSessionRestored)
		g.logger.Info("session restored", zap.String("user_id", cred.User.ID))
		g.emitAudit(ctx, auditEventSessionRestored, true, cred.User.Email, cred.User.ID, LockNone, nil, nil)
	}
	g.publish(ctx)
	return nil
}

// Logout purges the persisted session. It is idempotent.
func (g *Gate) Logout(ctx context.Context) error {
	if g == nil {
		return ErrGateNotReady
	}
	if err := g.sessions.Clear(ctx); err != nil {
		return g.storeFailure("session clear", err)
	}

	g.mu.Lock()
	cred := g.credential
	g.credential = nil
	g.challenge = nil
	g.epoch++
	if g.phase != PhaseLockedOut {
		g.phase = PhaseIdle
		g.message = ""
	}
	g.mu.Unlock()

	if cred != nil {
		g.metrics.Inc(MetricLogout)
		g.logger.Info("admin signed out", zap.String("user_id", cred.User.ID))
		g.emitAudit(ctx, auditEventLogout, true, cred.User.Email, cred.User.ID, LockNone, nil, nil)
	}
	g.publish(ctx)
	return nil
}
