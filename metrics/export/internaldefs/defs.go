package internaldefs

import (
	adminGate "github.com/MrEthical07/adminGate"
)

// CounterDef names one gate counter for exporters.
type CounterDef struct {
	ID   adminGate.MetricID
	Name string
	Help string
}

// HistogramDef names one gate histogram for exporters.
type HistogramDef struct {
	ID   adminGate.MetricID
	Name string
	Help string
}

// AuditDroppedName is exported by every backend alongside the gate counters.
const AuditDroppedName = "admingate_audit_dropped_total"

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: adminGate.MetricCredentialsSubmitted, Name: "admingate_credentials_submitted_total", Help: "Phase-1 submissions that passed input validation."},
	{ID: adminGate.MetricCredentialsAccepted, Name: "admingate_credentials_accepted_total", Help: "Phase-1 submissions accepted by the backend."},
	{ID: adminGate.MetricCredentialsRejected, Name: "admingate_credentials_rejected_total", Help: "Phase-1 submissions rejected by the backend."},
	{ID: adminGate.MetricPasswordLockout, Name: "admingate_password_lockout_total", Help: "Password lockouts entered."},
	{ID: adminGate.MetricCodeSubmitted, Name: "admingate_code_submitted_total", Help: "One-time codes sent for verification."},
	{ID: adminGate.MetricCodeAccepted, Name: "admingate_code_accepted_total", Help: "One-time codes accepted."},
	{ID: adminGate.MetricCodeRejected, Name: "admingate_code_rejected_total", Help: "One-time codes rejected."},
	{ID: adminGate.MetricCodeLockout, Name: "admingate_code_lockout_total", Help: "Code lockouts entered."},
	{ID: adminGate.MetricAccessDenied, Name: "admingate_access_denied_total", Help: "Verified identities refused for lacking the admin role."},
	{ID: adminGate.MetricResendSent, Name: "admingate_resend_sent_total", Help: "One-time codes re-sent."},
	{ID: adminGate.MetricResendThrottled, Name: "admingate_resend_throttled_total", Help: "Resend requests refused by the cooldown."},
	{ID: adminGate.MetricTransientFailure, Name: "admingate_transient_failure_total", Help: "Backend calls that failed for network or timeout reasons."},
	{ID: adminGate.MetricValidationFailure, Name: "admingate_validation_failure_total", Help: "Submissions rejected by input validation."},
	{ID: adminGate.MetricBusyRejected, Name: "admingate_busy_rejected_total", Help: "Submissions rejected while another was in flight."},
	{ID: adminGate.MetricRateLimitHit, Name: "admingate_rate_limit_hit_total", Help: "Attempts refused by an active lockout."},
	{ID: adminGate.MetricChallengeCancelled, Name: "admingate_challenge_cancelled_total", Help: "Pending code challenges cancelled."},
	{ID: adminGate.MetricSessionEstablished, Name: "admingate_session_established_total", Help: "Admin sessions established."},
	{ID: adminGate.MetricSessionRestored, Name: "admingate_session_restored_total", Help: "Admin sessions restored at startup."},
	{ID: adminGate.MetricLogout, Name: "admingate_logout_total", Help: "Admin sign-outs."},
	{ID: adminGate.MetricStoreFailure, Name: "admingate_store_failure_total", Help: "Ledger or session store operations that failed."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: adminGate.MetricServiceLatency, Name: "admingate_service_latency_seconds", Help: "Verification backend round-trip latency."},
}

// HistogramBounds are the upper bounds of the gate histogram buckets, in seconds.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"10",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds as instrument-name suffixes.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"10",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
