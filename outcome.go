package goFactor

import (
	"context"
	"errors"
)

// Outcome classifies the result of any engine operation. It is the enumerated
// counterpart of the boolean pass/fail surface.
type Outcome uint8

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeFactorNotEnrolled
	OutcomeCredentialMismatch
	OutcomeExpired
	OutcomeAlreadyEnrolled
	OutcomeUnknownService
	OutcomeStoreUnavailable
	OutcomeRateLimited
	OutcomeMalformed
	OutcomeDeliveryFailed
	OutcomeInternal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "OK"
	case OutcomeNotFound:
		return "NotFound"
	case OutcomeFactorNotEnrolled:
		return "FactorNotEnrolled"
	case OutcomeCredentialMismatch:
		return "CredentialMismatch"
	case OutcomeExpired:
		return "Expired"
	case OutcomeAlreadyEnrolled:
		return "AlreadyEnrolled"
	case OutcomeUnknownService:
		return "UnknownService"
	case OutcomeStoreUnavailable:
		return "StoreUnavailable"
	case OutcomeRateLimited:
		return "RateLimited"
	case OutcomeMalformed:
		return "Malformed"
	case OutcomeDeliveryFailed:
		return "DeliveryFailed"
	default:
		return "Internal"
	}
}

// Classify maps an error returned by the Engine to its Outcome. A nil error
// is OutcomeOK.
//
// Store failures and context cancellation are OutcomeStoreUnavailable. A mail
// relay failure is OutcomeDeliveryFailed, kept apart so an SMTP outage never
// reads as a store outage.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrIdentityNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrFactorNotEnrolled),
		errors.Is(err, ErrNoVerifiedFactor):
		return OutcomeFactorNotEnrolled
	case errors.Is(err, ErrCredentialMismatch),
		errors.Is(err, ErrTokenInvalid):
		return OutcomeCredentialMismatch
	case errors.Is(err, ErrEmailTokenExpired):
		return OutcomeExpired
	case errors.Is(err, ErrTOTPKeyEstablished),
		errors.Is(err, ErrServiceExists):
		return OutcomeAlreadyEnrolled
	case errors.Is(err, ErrUnknownService):
		return OutcomeUnknownService
	case errors.Is(err, ErrEmailDeliveryFailed):
		return OutcomeDeliveryFailed
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return OutcomeStoreUnavailable
	case errors.Is(err, ErrRateLimited):
		return OutcomeRateLimited
	case errors.Is(err, ErrMalformedCredential),
		errors.Is(err, ErrInvalidInput):
		return OutcomeMalformed
	default:
		return OutcomeInternal
	}
}

// Passes is the boolean view of an operation result.
func Passes(err error) bool {
	return err == nil
}
