package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	adminGate "github.com/MrEthical07/adminGate"
)

type errorResponse struct {
	Code              string     `json:"code"`
	Message           string     `json:"message"`
	Lock              string     `json:"lock,omitempty"`
	AttemptsRemaining *int       `json:"attempts_remaining,omitempty"`
	LockoutSeconds    int        `json:"lockout_seconds,omitempty"`
	UnlocksAt         *time.Time `json:"unlocks_at,omitempty"`
	CooldownSeconds   int        `json:"cooldown_seconds,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr sends { "code": errCode, "message": message }.
func writeErr(w http.ResponseWriter, code int, errCode string, message string) {
	writeJSON(w, code, errorResponse{Code: errCode, Message: message})
}

// writeFailure renders a gate error with the status for its kind.
func writeFailure(w http.ResponseWriter, err error) {
	var f *adminGate.Failure
	if !errors.As(err, &f) {
		if errors.Is(err, adminGate.ErrGateNotReady) {
			writeErr(w, http.StatusServiceUnavailable, string(adminGate.KindUnavailable), "Sign-in is not available.")
			return
		}
		writeErr(w, http.StatusInternalServerError, "internal_error", "Something went wrong.")
		return
	}

	body := errorResponse{
		Code:            string(f.Kind),
		Message:         f.Message,
		Lock:            string(f.Lock),
		LockoutSeconds:  f.LockoutSeconds,
		CooldownSeconds: f.CooldownSeconds,
	}
	if f.HasAttempts {
		n := f.AttemptsRemaining
		body.AttemptsRemaining = &n
	}
	if !f.UnlocksAt.IsZero() {
		at := f.UnlocksAt.UTC()
		body.UnlocksAt = &at
	}
	if f.CooldownSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(f.CooldownSeconds))
	} else if f.LockoutSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(f.LockoutSeconds))
	}
	writeJSON(w, statusFor(f.Kind), body)
}

func statusFor(kind adminGate.FailureKind) int {
	switch kind {
	case adminGate.KindValidation:
		return http.StatusBadRequest
	case adminGate.KindCredentialsRejected, adminGate.KindCodeRejected:
		return http.StatusUnauthorized
	case adminGate.KindAccessDenied:
		return http.StatusForbidden
	case adminGate.KindInvalidState, adminGate.KindBusy:
		return http.StatusConflict
	case adminGate.KindLockedOut:
		return http.StatusLocked
	case adminGate.KindCooldownActive:
		return http.StatusTooManyRequests
	case adminGate.KindTransientService, adminGate.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
