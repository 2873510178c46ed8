package internal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

const (
	// AdmissionKeyBytes is the entropy of a generated admission key.
	AdmissionKeyBytes = 32
	// SaltBytes is the entropy of a generated per-identity salt.
	SaltBytes = 16
	// SharedSecretBytes is the entropy of a generated service secret.
	SharedSecretBytes = 32
)

// RandomBytes returns n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, errors.New("invalid random length")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// NewHexToken returns n random bytes as lowercase hex.
func NewHexToken(n int) (string, error) {
	buf, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewUID returns a random version 4 UUID string.
func NewUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
