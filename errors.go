package adminGate

import "errors"

var (
	// ErrValidation marks malformed input: email shape, password length, code format.
	ErrValidation = errors.New("validation failed")
	// ErrCredentialsRejected marks a phase-1 rejection by the verification backend.
	ErrCredentialsRejected = errors.New("credentials rejected")
	// ErrCodeRejected marks a phase-2 rejection by the verification backend.
	ErrCodeRejected = errors.New("verification code rejected")
	// ErrLockedOut marks an attempt blocked by an active lockout.
	ErrLockedOut = errors.New("locked out")
	// ErrAccessDenied marks a verified identity without the admin role.
	ErrAccessDenied = errors.New("access denied")
	// ErrTransientService marks a network or timeout failure of a verification call.
	ErrTransientService = errors.New("verification service unavailable")
	// ErrInvalidState marks an operation that does not apply to the current phase.
	ErrInvalidState = errors.New("invalid state")
	// ErrBusy marks a submission rejected because another one is in flight.
	ErrBusy = errors.New("submission in progress")
	// ErrCooldownActive marks a resend attempted before the cooldown elapsed.
	ErrCooldownActive = errors.New("resend cooldown active")
	// ErrStoreUnavailable marks a persistence failure of ledgers or the session.
	ErrStoreUnavailable = errors.New("gate store unavailable")
	// ErrGateNotReady is returned when a nil or unbuilt gate is used.
	ErrGateNotReady = errors.New("gate not initialized")

	// ErrServiceRejected is wrapped by verifiers when the backend refuses the request.
	ErrServiceRejected = errors.New("service rejected request")
	// ErrServiceUnavailable is wrapped by verifiers for infrastructure faults.
	ErrServiceUnavailable = errors.New("service unavailable")
)
