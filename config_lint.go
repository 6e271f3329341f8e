package adminGate

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// LintSeverity ranks a lint finding. Lint never blocks Build; callers decide.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one finding about a valid but questionable setting.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

type LintResult []LintWarning

func (r LintResult) Codes() []string {
	codes := make([]string, len(r))
	for i, w := range r {
		codes[i] = w.Code
	}
	return codes
}

// BySeverity returns findings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins findings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	msgs := make([]string, len(hits))
	for i, w := range hits {
		msgs[i] = fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message)
	}
	return errors.New("config lint: " + strings.Join(msgs, "; "))
}

// Lint reports settings that pass Validate but weaken the gate.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if c.PasswordLimit.Threshold > 10 {
		add("password_threshold_high", LintWarn, "%d password attempts before lockout", c.PasswordLimit.Threshold)
	}
	if c.CodeLimit.Threshold > 10 {
		add("code_threshold_high", LintWarn, "%d code attempts before lockout", c.CodeLimit.Threshold)
	}
	if c.PasswordLimit.LockoutDuration < 5*time.Minute {
		add("password_lockout_short", LintWarn, "password lockout lasts %s", c.PasswordLimit.LockoutDuration)
	}
	if c.CodeLimit.LockoutDuration < 5*time.Minute {
		add("code_lockout_short", LintWarn, "code lockout lasts %s", c.CodeLimit.LockoutDuration)
	}

	// Chance that one lockout window of blind guesses hits the code.
	if c.Challenge.CodeLength > 0 {
		space := math.Pow10(c.Challenge.CodeLength)
		if p := float64(c.CodeLimit.Threshold) / space; p > 0.01 {
			add("code_guess_budget_high", LintHigh, "%.1f%% of the code space is guessable per lockout window", p*100)
		}
	}
	if c.Challenge.ResendCooldown == 0 {
		add("resend_unthrottled", LintWarn, "codes can be re-requested without a cooldown")
	}

	if !c.Service.CountTransientFailures {
		add("transient_uncounted", LintInfo, "network failures do not count toward lockout")
	}
	if c.Service.Timeout > time.Minute {
		add("service_timeout_long", LintInfo, "backend calls may block for %s", c.Service.Timeout)
	}

	if !c.Session.RejectExpiredTokens {
		add("expired_tokens_accepted", LintWarn, "expired session tokens are restored")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "no audit events are emitted")
	}

	return ws
}
