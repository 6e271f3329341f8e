package adminGate

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/adminGate/session"
)

// Phase is the sign-in state of a [Gate].
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseCredentialsPending Phase = "credentials_pending"
	PhaseAwaitingCode       Phase = "awaiting_code"
	PhaseVerifying          Phase = "verifying"
	PhaseAuthenticated      Phase = "authenticated"
	PhaseLockedOut          Phase = "locked_out"
)

// LockKind names which limiter a lockout belongs to.
type LockKind string

const (
	LockNone     LockKind = ""
	LockPassword LockKind = "password"
	LockCode     LockKind = "code"
)

// FailureKind is the closed set of user-facing failure codes.
type FailureKind string

const (
	KindValidation          FailureKind = "validation"
	KindCredentialsRejected FailureKind = "credentials_rejected"
	KindCodeRejected        FailureKind = "code_rejected"
	KindLockedOut           FailureKind = "locked_out"
	KindAccessDenied        FailureKind = "access_denied"
	KindTransientService    FailureKind = "transient_service"
	KindInvalidState        FailureKind = "invalid_state"
	KindBusy                FailureKind = "busy"
	KindCooldownActive      FailureKind = "cooldown_active"
	KindUnavailable         FailureKind = "unavailable"
)

var kindSentinels = map[FailureKind]error{
	KindValidation:          ErrValidation,
	KindCredentialsRejected: ErrCredentialsRejected,
	KindCodeRejected:        ErrCodeRejected,
	KindLockedOut:           ErrLockedOut,
	KindAccessDenied:        ErrAccessDenied,
	KindTransientService:    ErrTransientService,
	KindInvalidState:        ErrInvalidState,
	KindBusy:                ErrBusy,
	KindCooldownActive:      ErrCooldownActive,
	KindUnavailable:         ErrStoreUnavailable,
}

// Failure is the only error type returned by Gate operations. It unwraps to the
// sentinel matching Kind, so callers may use errors.Is.
//
// AttemptsRemaining is meaningful only when HasAttempts is true.
type Failure struct {
	Kind              FailureKind
	Lock              LockKind
	HasAttempts       bool
	AttemptsRemaining int
	LockoutSeconds    int
	UnlocksAt         time.Time
	CooldownSeconds   int
	Message           string
}

func (f *Failure) Error() string {
	if f.Message != "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return string(f.Kind)
}

func (f *Failure) Unwrap() error {
	return kindSentinels[f.Kind]
}

// LockInfo describes one limiter for display.
type LockInfo struct {
	Locked            bool
	Attempts          int
	AttemptsRemaining int
	UnlocksAt         time.Time
	RemainingSeconds  int
}

// State is a point-in-time view of the gate for the UI layer.
type State struct {
	Phase                 Phase
	LockedOut             LockKind
	Password              LockInfo
	Code                  LockInfo
	ResendCooldownSeconds int
	Message               string
	User                  *session.User
}

// CredentialResult is returned by a successful phase-1 verification.
type CredentialResult struct {
	LoginToken string
	Message    string
}

// CredentialVerifier checks email and password and triggers out-of-band delivery of a
// one-time code. It must not create a session.
//
// Implementations wrap refusals with [ErrServiceRejected] and infrastructure faults
// with [ErrServiceUnavailable].
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (*CredentialResult, error)
}

// CodeVerifier completes authentication with the one-time code and login token.
type CodeVerifier interface {
	VerifyCode(ctx context.Context, email, code, loginToken string) (*session.Payload, error)
}

// Verifier is a backend that serves both phases.
type Verifier interface {
	CredentialVerifier
	CodeVerifier
}

// StateListener is notified after every transition and countdown tick.
type StateListener func(State)
