package goFactor

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goFactor/identity"
	"github.com/MrEthical07/goFactor/internal"
	"github.com/MrEthical07/goFactor/logging"
)

// IssueEmailChallenge stores a fresh hex token with its deadline and hands
// a link containing it to the mailer. Persisted fields are not rolled back
// when delivery fails.
func (e *Engine) IssueEmailChallenge(ctx context.Context, id ClientIdentity) error {
	if err := e.ready(); err != nil {
		return err
	}
	err := e.issueEmailChallenge(ctx, id.UID)
	if err != nil {
		e.metricInc(MetricEmailChallengeFailed)
	} else {
		e.metricInc(MetricEmailChallengeIssued)
	}
	e.emitAudit(ctx, auditEventEmailChallengeIssued, auditRecord{uid: id.UID, factor: FactorEmail}, err, nil)
	return err
}

func (e *Engine) issueEmailChallenge(ctx context.Context, uid string) error {
	unlock := e.locks.Lock(uid)
	defer unlock()

	c, err := e.reload(ctx, uid)
	if err != nil {
		return err
	}
	if c.Email == "" {
		return ErrFactorNotEnrolled
	}

	token, err := internal.NewHexToken(e.config.Email.TokenBytes)
	if err != nil {
		return fmt.Errorf("email challenge: %w", err)
	}
	expiry := e.now().Add(e.config.Email.TokenLifetime).Unix()

	if err := e.store.UpdateField(ctx, uid, identity.FieldEmailToken, token); err != nil {
		return e.storeError("update_email_token", uid, err)
	}
	if err := e.store.UpdateField(ctx, uid, identity.FieldEmailExpiry, identity.FormatExpiry(expiry)); err != nil {
		return e.storeError("update_email_expiry", uid, err)
	}

	body := challengeBody(e.config.Email.LinkBase, token)
	if err := e.mailer.Send(ctx, c.Email, e.config.Email.Subject, body); err != nil {
		e.logger.Warn("email challenge delivery failed",
			logging.UID(uid),
			logging.Recipient(c.Email),
			logging.Err(err),
		)
		return fmt.Errorf("%w: %v", ErrEmailDeliveryFailed, err)
	}
	return nil
}

func challengeBody(linkBase, token string) string {
	return "Use the link below to verify your email address.\n\n" + linkBase + token + "\n"
}
