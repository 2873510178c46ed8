package goFactor

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goFactor/identity"
	"github.com/MrEthical07/goFactor/internal"
	"github.com/MrEthical07/goFactor/logging"
	"github.com/MrEthical07/goFactor/password"
	"github.com/MrEthical07/goFactor/signature"
)

// Failure limiter scopes.
const (
	scopeBasic = "basic"
	scopeTOTP  = "totp"
	scopeEmail = "email"
)

// EncodeBasicCredential builds the credential VerifyBasic expects from a
// username and the client-side password digest.
func EncodeBasicCredential(username, passwordDigest string) string {
	return internal.EncodeBasic(username, passwordDigest)
}

// PasswordDigest is the client-side hash applied to a raw password before it
// is sent for enrollment or verification.
func PasswordDigest(raw string) string {
	return password.Digest(raw)
}

// VerifyAdmission resolves a bootstrap admission key to its identity. It is
// the only lookup not keyed by uid.
func (e *Engine) VerifyAdmission(ctx context.Context, apiKey string) (ClientIdentity, error) {
	if err := e.ready(); err != nil {
		return ClientIdentity{}, err
	}
	if apiKey == "" {
		e.metricInc(MetricAdmissionFailure)
		return ClientIdentity{}, ErrIdentityNotFound
	}

	c, err := e.store.LookupByAdmissionKey(ctx, apiKey)
	if err != nil {
		err = e.storeError("lookup_admission", "", err)
		e.metricInc(MetricAdmissionFailure)
		e.emitAudit(ctx, auditEventIdentityAdmitted, auditRecord{}, err, nil)
		return ClientIdentity{}, err
	}
	e.metricInc(MetricAdmissionSuccess)
	e.emitAudit(ctx, auditEventIdentityAdmitted, auditRecord{uid: c.UID}, nil, nil)
	return c, nil
}

// VerifyBasic checks base64("<username>:<digest>") against the stored
// username and salted hash. Both must match.
func (e *Engine) VerifyBasic(ctx context.Context, id ClientIdentity, encoded string) error {
	if err := e.ready(); err != nil {
		return err
	}
	start := time.Now()
	err := e.verifyBasic(ctx, id.UID, encoded)
	e.observeVerify(start)

	e.settle(ctx, scopeBasic, id.UID, err)
	e.recordVerify(ctx, id.UID, FactorBasic, err, MetricBasicSuccess, MetricBasicFailure)
	return err
}

func (e *Engine) verifyBasic(ctx context.Context, uid, encoded string) error {
	if err := e.limited(ctx, scopeBasic, uid); err != nil {
		return err
	}
	c, err := e.reload(ctx, uid)
	if err != nil {
		return err
	}
	if !c.Factors.Has(FactorBasic) || c.Pass512 == "" {
		return ErrFactorNotEnrolled
	}

	username, digest, err := internal.DecodeBasic(encoded)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}
	ok, err := e.hasher.Verify(digest, c.Salt, c.Pass512)
	if err != nil {
		return fmt.Errorf("verify basic: %w", err)
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1
	if !ok || !userOK {
		return ErrCredentialMismatch
	}
	e.upgradeHash(ctx, c, digest)
	return nil
}

// upgradeHash re-derives pass512 under the current argon2 parameters when the
// stored hash was made with weaker ones. Failures are logged and leave the
// verification result alone.
func (e *Engine) upgradeHash(ctx context.Context, c ClientIdentity, digest string) {
	upgrade, err := e.hasher.NeedsUpgrade(c.Pass512)
	if err != nil || !upgrade {
		return
	}
	unlock := e.locks.Lock(c.UID)
	defer unlock()

	current, err := e.store.LookupByID(ctx, c.UID)
	if err != nil || current.Pass512 != c.Pass512 {
		// Re-enrolled since the check; the new hash wins.
		return
	}
	pass512, err := e.hasher.Salted(digest, c.Salt)
	if err == nil {
		err = e.store.UpdateField(ctx, c.UID, identity.FieldPass512, pass512)
	}
	if err != nil {
		e.logger.Warn("pass512 upgrade failed", logging.UID(c.UID), logging.Err(err))
		return
	}
	e.logger.Debug("pass512 upgraded", logging.UID(c.UID))
}

// VerifySignature checks a base64 signature over message against the bound
// public key. Message freshness is the caller's concern: a signed message
// verifies for as long as the key stays bound.
func (e *Engine) VerifySignature(ctx context.Context, id ClientIdentity, message, sig string) error {
	if err := e.ready(); err != nil {
		return err
	}
	start := time.Now()
	err := e.verifySignature(ctx, id.UID, message, sig)
	e.observeVerify(start)

	e.recordVerify(ctx, id.UID, FactorSignature, err, MetricSignatureSuccess, MetricSignatureFailure)
	return err
}

func (e *Engine) verifySignature(ctx context.Context, uid, message, sig string) error {
	c, err := e.reload(ctx, uid)
	if err != nil {
		return err
	}
	if c.PublicKey == "" {
		return ErrFactorNotEnrolled
	}
	err = signature.Verify(message, sig, c.PublicKey)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, signature.ErrMismatch):
		return ErrCredentialMismatch
	default:
		return fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}
}

// CheckTOTPCode reports whether code is valid for the identity's TOTP secret
// at the engine's current time. It reads only id and writes nothing.
func (e *Engine) CheckTOTPCode(id ClientIdentity, code string) error {
	if e == nil || e.totp == nil {
		return ErrEngineNotReady
	}
	ok, _, err := e.totp.Verify(id.TOTPKey, code, e.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrCredentialMismatch
	}
	return nil
}

// VerifyTOTP checks code against the stored TOTP secret. The first success
// adds Totp to the identity's factors.
func (e *Engine) VerifyTOTP(ctx context.Context, id ClientIdentity, code string) error {
	if err := e.ready(); err != nil {
		return err
	}
	start := time.Now()
	err := e.verifyTOTP(ctx, id.UID, code)
	e.observeVerify(start)

	e.settle(ctx, scopeTOTP, id.UID, err)
	e.recordVerify(ctx, id.UID, FactorTOTP, err, MetricTOTPSuccess, MetricTOTPFailure)
	return err
}

func (e *Engine) verifyTOTP(ctx context.Context, uid, code string) error {
	if err := e.limited(ctx, scopeTOTP, uid); err != nil {
		return err
	}
	c, err := e.reload(ctx, uid)
	if err != nil {
		return err
	}
	if err := e.CheckTOTPCode(c, code); err != nil {
		return err
	}
	if c.Factors.Has(FactorTOTP) {
		return nil
	}

	unlock := e.locks.Lock(uid)
	defer unlock()
	if err := e.addFactorLocked(ctx, uid, FactorTOTP); err != nil {
		return err
	}
	e.logger.Info("totp enrollment confirmed", logging.UID(uid))
	return nil
}

// VerifyEmailToken checks a presented challenge token. It requires Email to
// be enrolled, an exact token match, and a current time strictly before the
// stored deadline. The token is not consumed.
func (e *Engine) VerifyEmailToken(ctx context.Context, id ClientIdentity, token string) error {
	if err := e.ready(); err != nil {
		return err
	}
	start := time.Now()
	err := e.verifyEmailToken(ctx, id.UID, token)
	e.observeVerify(start)

	if errors.Is(err, ErrEmailTokenExpired) {
		e.metricInc(MetricEmailExpired)
	}
	e.settle(ctx, scopeEmail, id.UID, err)
	e.recordVerify(ctx, id.UID, FactorEmail, err, MetricEmailSuccess, MetricEmailFailure)
	return err
}

func (e *Engine) verifyEmailToken(ctx context.Context, uid, token string) error {
	if err := e.limited(ctx, scopeEmail, uid); err != nil {
		return err
	}
	c, err := e.reload(ctx, uid)
	if err != nil {
		return err
	}
	if !c.Factors.Has(FactorEmail) {
		return ErrFactorNotEnrolled
	}
	if c.EmailToken == "" || token == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(c.EmailToken)) != 1 {
		return ErrCredentialMismatch
	}
	if e.now().Unix() >= c.EmailExpiry {
		return ErrEmailTokenExpired
	}
	return nil
}

func (e *Engine) recordVerify(ctx context.Context, uid string, factor AuthFactor, err error, okID, failID MetricID) {
	if err == nil {
		e.metricInc(okID)
	} else {
		e.metricInc(failID)
	}
	e.logger.Debug("factor checked",
		logging.UID(uid),
		logging.Factor(factor.String()),
		logging.Outcome(Classify(err).String()),
	)
	e.emitAudit(ctx, verifyEvent(err), auditRecord{uid: uid, factor: factor}, err, nil)
}
