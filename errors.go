package goFactor

import "errors"

var (
	// ErrIdentityNotFound is returned when an admission key or uid does not
	// resolve to a stored identity.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrFactorNotEnrolled is returned when a verification needs state the
	// identity has never bound (no public key, no TOTP secret, Email not enrolled).
	ErrFactorNotEnrolled = errors.New("factor not enrolled")
	// ErrCredentialMismatch is returned when a presented credential does not
	// match stored state.
	ErrCredentialMismatch = errors.New("credential mismatch")
	// ErrMalformedCredential is returned when a presented credential cannot be
	// decoded (bad base64, missing delimiter, unparsable key or signature).
	ErrMalformedCredential = errors.New("malformed credential")
	// ErrEmailTokenExpired is returned when a correct email token is presented
	// at or after its deadline.
	ErrEmailTokenExpired = errors.New("email token expired")
	// ErrTOTPKeyEstablished is returned by EnrollTOTP when a TOTP secret is
	// already bound to the identity.
	ErrTOTPKeyEstablished = errors.New("totp key already established")
	// ErrUnknownService is returned when no relying service has the given name.
	ErrUnknownService = errors.New("unknown service")
	// ErrServiceExists is returned by RegisterService for a taken name.
	ErrServiceExists = errors.New("service already registered")
	// ErrNoVerifiedFactor is returned by IssueToken for an identity with an
	// empty factor set.
	ErrNoVerifiedFactor = errors.New("identity has no enrolled factor")
	// ErrStoreUnavailable wraps identity store and service registry failures.
	ErrStoreUnavailable = errors.New("identity store unavailable")
	// ErrEmailDeliveryFailed wraps email transport failures.
	ErrEmailDeliveryFailed = errors.New("email delivery failed")
	// ErrRateLimited is returned when an identity exhausted its verification
	// failure budget.
	ErrRateLimited = errors.New("verification rate limited")
	// ErrInvalidInput is returned for empty or structurally invalid enrollment input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTokenInvalid is returned when a service token fails verification.
	ErrTokenInvalid = errors.New("service token invalid")
	// ErrServiceAdminUnsupported is returned by RegisterService when the
	// configured registry is read-only.
	ErrServiceAdminUnsupported = errors.New("service registry is read-only")
	// ErrEngineNotReady is returned when the Engine was not built by a Builder.
	ErrEngineNotReady = errors.New("engine not initialized")
)
