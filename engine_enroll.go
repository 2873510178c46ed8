package goFactor

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrEthical07/goFactor/identity"
	"github.com/MrEthical07/goFactor/logging"
	"github.com/MrEthical07/goFactor/signature"
)

// AddFactor unions factor into the identity's enrolled set. Adding a factor
// that is already present succeeds without a write.
func (e *Engine) AddFactor(ctx context.Context, id ClientIdentity, factor AuthFactor) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !factor.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidInput, factor)
	}
	unlock := e.locks.Lock(id.UID)
	defer unlock()

	return e.addFactorLocked(ctx, id.UID, factor)
}

func (e *Engine) addFactorLocked(ctx context.Context, uid string, factor AuthFactor) error {
	if err := e.store.AddFactor(ctx, uid, factor); err != nil {
		return e.storeError("add_factor", uid, err)
	}
	return nil
}

// enroll runs one enrollment under the uid lock: reload, apply writes, add
// factor, and return the updated record.
func (e *Engine) enroll(
	ctx context.Context,
	uid string,
	factor AuthFactor,
	prepare func(c *ClientIdentity) ([]fieldWrite, error),
) (ClientIdentity, error) {
	if err := e.ready(); err != nil {
		return ClientIdentity{}, err
	}
	unlock := e.locks.Lock(uid)
	defer unlock()

	c, err := e.reload(ctx, uid)
	if err != nil {
		e.metricInc(MetricEnrollFailure)
		return ClientIdentity{}, err
	}

	writes, err := prepare(&c)
	if err != nil {
		return ClientIdentity{}, err
	}
	for _, w := range writes {
		if err := e.writeField(ctx, uid, w); err != nil {
			return ClientIdentity{}, err
		}
		if err := c.Set(w.field, w.value); err != nil {
			return ClientIdentity{}, err
		}
	}
	if err := e.addFactorLocked(ctx, uid, factor); err != nil {
		e.metricInc(MetricEnrollFailure)
		return ClientIdentity{}, err
	}
	c.Factors = c.Factors.With(factor)

	e.metricInc(MetricEnrollSuccess)
	e.logger.Debug("factor enrolled", logging.UID(uid), logging.Factor(factor.String()))
	return c, nil
}

type fieldWrite struct {
	field identity.Field
	value string
	// ifAbsent makes the write conditional on no value being stored yet.
	// Only FieldTOTPKey supports it.
	ifAbsent bool
}

func (e *Engine) writeField(ctx context.Context, uid string, w fieldWrite) error {
	if !w.ifAbsent {
		if err := e.store.UpdateField(ctx, uid, w.field, w.value); err != nil {
			e.metricInc(MetricEnrollFailure)
			return e.storeError("update_"+w.field.Column(), uid, err)
		}
		return nil
	}
	if w.field != identity.FieldTOTPKey {
		return fmt.Errorf("%w: conditional write to %s", ErrInvalidInput, w.field.Column())
	}
	set, err := e.store.SetTOTPKeyIfAbsent(ctx, uid, w.value)
	if err != nil {
		e.metricInc(MetricEnrollFailure)
		return e.storeError("set_totp_key", uid, err)
	}
	if !set {
		// Another engine established the key between reload and write.
		e.metricInc(MetricTOTPKeyEstablished)
		return ErrTOTPKeyEstablished
	}
	return nil
}

// EnrollBasic binds username and the salted hash of passwordDigest, then
// enrolls Basic. passwordDigest is the client-side hash of the password;
// the username may not contain ':' because the presented credential is split
// on its first colon.
func (e *Engine) EnrollBasic(ctx context.Context, id ClientIdentity, username, passwordDigest string) (ClientIdentity, error) {
	if username == "" || strings.Contains(username, ":") {
		return ClientIdentity{}, fmt.Errorf("%w: username must be non-empty without ':'", ErrInvalidInput)
	}
	if passwordDigest == "" {
		return ClientIdentity{}, fmt.Errorf("%w: empty password digest", ErrInvalidInput)
	}

	c, err := e.enroll(ctx, id.UID, FactorBasic, func(c *ClientIdentity) ([]fieldWrite, error) {
		pass512, err := e.hasher.Salted(passwordDigest, c.Salt)
		if err != nil {
			return nil, fmt.Errorf("enroll basic: %w", err)
		}
		return []fieldWrite{
			{field: identity.FieldUsername, value: username},
			{field: identity.FieldPass512, value: pass512},
		}, nil
	})
	e.emitAudit(ctx, auditEventFactorEnrolled, auditRecord{uid: id.UID, factor: FactorBasic}, err, nil)
	return c, err
}

// EnrollEmail binds the address and enrolls Email. No challenge is sent.
func (e *Engine) EnrollEmail(ctx context.Context, id ClientIdentity, email string) (ClientIdentity, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return ClientIdentity{}, fmt.Errorf("%w: email address", ErrInvalidInput)
	}

	c, err := e.enroll(ctx, id.UID, FactorEmail, func(*ClientIdentity) ([]fieldWrite, error) {
		return []fieldWrite{{field: identity.FieldEmail, value: email}}, nil
	})
	e.emitAudit(ctx, auditEventFactorEnrolled, auditRecord{uid: id.UID, factor: FactorEmail}, err, nil)
	return c, err
}

// EnrollPublicKey binds a PEM public key (RSA or Ed25519) and enrolls
// Signature.
func (e *Engine) EnrollPublicKey(ctx context.Context, id ClientIdentity, publicKeyPEM string) (ClientIdentity, error) {
	key, err := signature.ParsePublicKey(publicKeyPEM)
	if err != nil {
		return ClientIdentity{}, fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}

	c, err := e.enroll(ctx, id.UID, FactorSignature, func(*ClientIdentity) ([]fieldWrite, error) {
		return []fieldWrite{{field: identity.FieldPublicKey, value: strings.TrimSpace(publicKeyPEM)}}, nil
	})
	e.emitAudit(ctx, auditEventFactorEnrolled, auditRecord{uid: id.UID, factor: FactorSignature}, err, func() map[string]string {
		return map[string]string{"algorithm": string(key.Algorithm())}
	})
	return c, err
}

// EnrollTOTP generates and binds a TOTP secret. The secret is set once: a
// second call fails with ErrTOTPKeyEstablished and leaves it unchanged, even
// when the calls race from separate engines sharing one store.
//
// Enrollment marks Signature, not Totp. Totp joins the set on the first
// successful VerifyTOTP.
func (e *Engine) EnrollTOTP(ctx context.Context, id ClientIdentity) (ClientIdentity, error) {
	c, err := e.enroll(ctx, id.UID, FactorSignature, func(c *ClientIdentity) ([]fieldWrite, error) {
		if c.Factors.Has(FactorTOTP) || c.TOTPKey != "" {
			e.metricInc(MetricTOTPKeyEstablished)
			return nil, ErrTOTPKeyEstablished
		}
		secret, err := e.totp.GenerateSecret()
		if err != nil {
			return nil, fmt.Errorf("enroll totp: %w", err)
		}
		return []fieldWrite{{field: identity.FieldTOTPKey, value: secret, ifAbsent: true}}, nil
	})
	e.emitAudit(ctx, auditEventTOTPEnrolled, auditRecord{uid: id.UID, factor: FactorTOTP}, err, nil)
	return c, err
}

// TOTPProvisionURI returns the otpauth:// URI for the identity's TOTP secret,
// labelled with the username when one is bound and the uid otherwise.
func (e *Engine) TOTPProvisionURI(id ClientIdentity) (string, error) {
	if e == nil || e.totp == nil {
		return "", ErrEngineNotReady
	}
	if id.TOTPKey == "" {
		return "", ErrFactorNotEnrolled
	}
	account := id.Username
	if account == "" {
		account = id.UID
	}
	return e.totp.ProvisionURI(id.TOTPKey, account), nil
}
