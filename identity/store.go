package identity

import (
	"context"
	"errors"
	"strconv"
)

var (
	// ErrNotFound is returned when no record matches the lookup key.
	ErrNotFound = errors.New("identity: not found")
	// ErrConflict is returned when a create collides with an existing uid,
	// admission key, or service name.
	ErrConflict = errors.New("identity: already exists")
	// ErrInvalidField is returned for writes to an unknown or immutable field.
	ErrInvalidField = errors.New("identity: invalid field")
	// ErrUnknownFactor is returned when a persisted factor name is not recognized.
	ErrUnknownFactor = errors.New("identity: unknown factor")
	// ErrUnavailable wraps backend failures (network, driver, decode).
	ErrUnavailable = errors.New("identity: store unavailable")
)

// Store persists client identities.
//
// UpdateField and AddFactor must be atomic with respect to other writes on the
// same uid; concurrent AddFactor calls for different factors must both land.
//
// SetTOTPKeyIfAbsent writes the TOTP key only while none is stored and
// reports whether the write happened. The check and the write are one atomic
// step, so at most one caller ever establishes a key for a uid.
type Store interface {
	Create(ctx context.Context, client Client) error
	LookupByAdmissionKey(ctx context.Context, apiKey string) (Client, error)
	LookupByID(ctx context.Context, uid string) (Client, error)
	UpdateField(ctx context.Context, uid string, field Field, value string) error
	AddFactor(ctx context.Context, uid string, factor Factor) error
	SetTOTPKeyIfAbsent(ctx context.Context, uid, key string) (bool, error)
	Delete(ctx context.Context, uid string) error
}

// ServiceRegistry resolves service names to shared secrets.
type ServiceRegistry interface {
	LookupService(ctx context.Context, name string) (Service, error)
}

// ServiceStore is a ServiceRegistry that also accepts writes.
type ServiceStore interface {
	ServiceRegistry
	SaveService(ctx context.Context, service Service) error
	DeleteService(ctx context.Context, name string) error
}

// ParseExpiry decodes the persisted form of EmailExpiry. The empty string
// decodes to zero.
func ParseExpiry(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, ErrInvalidField
	}
	return n, nil
}

// FormatExpiry encodes EmailExpiry for persistence.
func FormatExpiry(n int64) string {
	return strconv.FormatInt(n, 10)
}
