package adminGate

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const (
	auditEventCredentialsAccepted = "credentials_accepted"
	auditEventCredentialsRejected = "credentials_rejected"
	auditEventCodeAccepted        = "code_accepted"
	auditEventCodeRejected        = "code_rejected"
	auditEventLockoutEntered      = "lockout_entered"
	auditEventRateLimitBlocked    = "rate_limit_blocked"
	auditEventAccessDenied        = "access_denied"
	auditEventCodeResent          = "code_resent"
	auditEventChallengeCancelled  = "challenge_cancelled"
	auditEventSessionRestored     = "session_restored"
	auditEventLogout              = "logout"
)

func (g *Gate) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	email string,
	userID string,
	scope LockKind,
	err error,
	metadataBuilder func() map[string]string,
) {
	if g == nil || g.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventID:   uuid.NewString(),
		Timestamp: g.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Scope:     string(scope),
		Success:   success,
		Metadata:  metadata,
	}
	if email != "" {
		event.Identifier = hashIdentifier(email)
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = code
	}

	g.audit.Emit(ctx, event)
}

func auditErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return string(f.Kind)
	}
	switch {
	case errors.Is(err, ErrServiceRejected):
		return string(KindCredentialsRejected)
	case errors.Is(err, ErrServiceUnavailable):
		return string(KindTransientService)
	default:
		return "internal_error"
	}
}

// hashIdentifier returns a stable, non-reversible tag for an email so logs and audit
// events can be correlated without storing the address.
func hashIdentifier(email string) string {
	sum := blake2b.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:12])
}
