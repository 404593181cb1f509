package internaldefs

import (
	"github.com/MrEthical07/identity"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   identity.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   identity.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "identity_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: identity.MetricRegisterSuccess, Name: "identity_register_success_total", Help: "Successful account registrations."},
	{ID: identity.MetricRegisterFailure, Name: "identity_register_failure_total", Help: "Rejected account registrations."},
	{ID: identity.MetricRegisterConflict, Name: "identity_register_conflict_total", Help: "Registrations rejected because the email or phone is taken."},
	{ID: identity.MetricLoginSuccess, Name: "identity_login_success_total", Help: "Successful logins."},
	{ID: identity.MetricLoginFailure, Name: "identity_login_failure_total", Help: "Failed logins."},
	{ID: identity.MetricLogout, Name: "identity_logout_total", Help: "Single-session logouts."},
	{ID: identity.MetricLogoutAll, Name: "identity_logout_all_total", Help: "Logout-all operations."},
	{ID: identity.MetricVerifySuccess, Name: "identity_verify_success_total", Help: "Tokens that passed verification."},
	{ID: identity.MetricVerifyFailure, Name: "identity_verify_failure_total", Help: "Tokens rejected by verification."},
	{ID: identity.MetricRateLimitHit, Name: "identity_rate_limit_hit_total", Help: "Requests rejected by the rate limiter."},
	{ID: identity.MetricRateLimitDegraded, Name: "identity_rate_limit_degraded_total", Help: "Requests admitted while the rate-limit store was unreachable."},
	{ID: identity.MetricSessionCreated, Name: "identity_session_created_total", Help: "Registered sessions."},
	{ID: identity.MetricSessionRevoked, Name: "identity_session_revoked_total", Help: "Revoked sessions."},
	{ID: identity.MetricDependencyFailure, Name: "identity_dependency_failure_total", Help: "Failed calls to the shared store or credential store."},
	{ID: identity.MetricPasswordRehash, Name: "identity_password_rehash_total", Help: "Password hashes upgraded on login."},
	{ID: identity.MetricAccountDeactivated, Name: "identity_account_deactivated_total", Help: "Accounts deactivated by an admin."},
	{ID: identity.MetricProfileUpdated, Name: "identity_profile_updated_total", Help: "Profile updates."},
}

var HistogramDefs = []HistogramDef{
	{ID: identity.MetricVerifyLatency, Name: "identity_verify_latency_seconds", Help: "Token verification latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The engine
// keeps one more bucket for +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf last, for exporters without
// native histogram support.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
