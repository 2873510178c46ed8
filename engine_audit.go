package goFactor

import (
	"context"

	internalaudit "github.com/MrEthical07/goFactor/internal/audit"
)

const (
	auditEventIdentityAdmitted     = "identity_admitted"
	auditEventIdentityCreated      = "identity_created"
	auditEventIdentityDeleted      = "identity_deleted"
	auditEventFactorEnrolled       = "factor_enrolled"
	auditEventTOTPEnrolled         = "totp_enrolled"
	auditEventFactorVerified       = "factor_verified"
	auditEventFactorRejected       = "factor_rejected"
	auditEventEmailChallengeIssued = "email_challenge_issued"
	auditEventTokenIssued          = "token_issued"
	auditEventTokenRejected        = "token_rejected"
	auditEventServiceRegistered    = "service_registered"
)

// auditRecord is the subject of one audit event.
type auditRecord struct {
	uid     string
	factor  AuthFactor
	service string
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, rec auditRecord, err error, metadata func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := internalaudit.Event{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UID:       rec.uid,
		Service:   rec.service,
		Success:   err == nil,
		Outcome:   Classify(err).String(),
	}
	if rec.factor.Valid() {
		event.Factor = rec.factor.String()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}
	e.audit.Emit(ctx, event)
}

// verifyEvent picks the audit event type for a verification result.
func verifyEvent(err error) string {
	if err == nil {
		return auditEventFactorVerified
	}
	return auditEventFactorRejected
}
