package internaldefs

import (
	goFactor "github.com/MrEthical07/goFactor"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goFactor.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   goFactor.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goFactor.MetricAdmissionSuccess, Name: "gofactor_admission_success_total", Help: "Admission keys that resolved to an identity."},
	{ID: goFactor.MetricAdmissionFailure, Name: "gofactor_admission_failure_total", Help: "Admission keys that did not resolve."},
	{ID: goFactor.MetricEnrollSuccess, Name: "gofactor_enroll_success_total", Help: "Completed factor enrollments."},
	{ID: goFactor.MetricEnrollFailure, Name: "gofactor_enroll_failure_total", Help: "Enrollments aborted by a store failure or missing identity."},
	{ID: goFactor.MetricTOTPKeyEstablished, Name: "gofactor_totp_key_established_total", Help: "Rejected attempts to replace a TOTP secret."},
	{ID: goFactor.MetricBasicSuccess, Name: "gofactor_basic_success_total", Help: "Successful Basic verifications."},
	{ID: goFactor.MetricBasicFailure, Name: "gofactor_basic_failure_total", Help: "Failed Basic verifications."},
	{ID: goFactor.MetricSignatureSuccess, Name: "gofactor_signature_success_total", Help: "Successful signature verifications."},
	{ID: goFactor.MetricSignatureFailure, Name: "gofactor_signature_failure_total", Help: "Failed signature verifications."},
	{ID: goFactor.MetricTOTPSuccess, Name: "gofactor_totp_success_total", Help: "Successful TOTP verifications."},
	{ID: goFactor.MetricTOTPFailure, Name: "gofactor_totp_failure_total", Help: "Failed TOTP verifications."},
	{ID: goFactor.MetricEmailSuccess, Name: "gofactor_email_success_total", Help: "Successful email token verifications."},
	{ID: goFactor.MetricEmailFailure, Name: "gofactor_email_failure_total", Help: "Failed email token verifications."},
	{ID: goFactor.MetricEmailExpired, Name: "gofactor_email_expired_total", Help: "Correct email tokens presented after their deadline."},
	{ID: goFactor.MetricEmailChallengeIssued, Name: "gofactor_email_challenge_issued_total", Help: "Email challenges stored and delivered."},
	{ID: goFactor.MetricEmailChallengeFailed, Name: "gofactor_email_challenge_failed_total", Help: "Email challenges that failed to store or deliver."},
	{ID: goFactor.MetricTokenIssued, Name: "gofactor_token_issued_total", Help: "Service tokens issued."},
	{ID: goFactor.MetricTokenUnknownService, Name: "gofactor_token_unknown_service_total", Help: "Token requests naming an unknown service."},
	{ID: goFactor.MetricTokenVerified, Name: "gofactor_token_verified_total", Help: "Service tokens accepted."},
	{ID: goFactor.MetricTokenRejected, Name: "gofactor_token_rejected_total", Help: "Service tokens rejected."},
	{ID: goFactor.MetricRateLimitHit, Name: "gofactor_rate_limit_hit_total", Help: "Verifications refused by the failure limiter."},
	{ID: goFactor.MetricStoreUnavailable, Name: "gofactor_store_unavailable_total", Help: "Operations aborted by a backend failure."},
	{ID: goFactor.MetricIdentityCreated, Name: "gofactor_identity_created_total", Help: "Identities created."},
	{ID: goFactor.MetricIdentityDeleted, Name: "gofactor_identity_deleted_total", Help: "Identities deleted."},
}

var HistogramDefs = []HistogramDef{
	{ID: goFactor.MetricVerifyLatency, Name: "gofactor_verify_latency_seconds", Help: "Credential verification latency."},
}

// HistogramBounds are the finite bucket upper bounds in seconds. The engine
// keeps one more bucket for everything above the last bound.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// publish buckets as separate instruments.
var HistogramBoundSuffix = []string{"0_005", "0_01", "0_025", "0_05", "0_1", "0_25", "0_5", "inf"}

// AuditDroppedName is the counter of audit events lost to backpressure.
const AuditDroppedName = "gofactor_audit_dropped_total"

// NormalizeBuckets pads or truncates raw to the engine's bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
