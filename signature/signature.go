// Package signature verifies messages signed with a client's bound public
// key. Keys are PEM encoded; RSA keys verify RS256 (PKCS#1 v1.5 over SHA-256)
// and Ed25519 keys verify EdDSA. Signatures travel as standard base64.
package signature

import (
	"crypto"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedKey is returned when the key is not a supported PEM key.
	ErrMalformedKey = errors.New("signature: malformed key")
	// ErrMalformedSignature is returned when the signature is not base64.
	ErrMalformedSignature = errors.New("signature: malformed signature")
	// ErrMismatch is returned when the signature does not verify.
	ErrMismatch = errors.New("signature: mismatch")
)

// Algorithm names the scheme a key verifies with.
type Algorithm string

const (
	AlgorithmRS256 Algorithm = "RS256"
	AlgorithmEdDSA Algorithm = "EdDSA"
)

// PublicKey is a parsed verification key.
type PublicKey struct {
	alg Algorithm
	key crypto.PublicKey
}

func (k PublicKey) Algorithm() Algorithm { return k.alg }

// ParsePublicKey accepts PKIX, PKCS#1, or certificate PEM blocks for RSA and
// PKIX PEM for Ed25519.
func ParsePublicKey(pemText string) (PublicKey, error) {
	data := []byte(strings.TrimSpace(pemText))
	if len(data) == 0 {
		return PublicKey{}, ErrMalformedKey
	}
	if k, err := jwt.ParseRSAPublicKeyFromPEM(data); err == nil {
		return PublicKey{alg: AlgorithmRS256, key: k}, nil
	}
	if k, err := jwt.ParseEdPublicKeyFromPEM(data); err == nil {
		if ed, ok := k.(ed25519.PublicKey); ok {
			return PublicKey{alg: AlgorithmEdDSA, key: ed}, nil
		}
	}
	return PublicKey{}, ErrMalformedKey
}

// Verify checks that signatureB64 is a valid signature of message under the
// PEM public key.
func Verify(message, signatureB64, publicKeyPEM string) error {
	key, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return err
	}
	return key.Verify(message, signatureB64)
}

// Verify checks signatureB64 against message.
func (k PublicKey) Verify(message, signatureB64 string) error {
	sig, err := decodeSignature(signatureB64)
	if err != nil {
		return err
	}
	var method jwt.SigningMethod
	switch k.alg {
	case AlgorithmRS256:
		method = jwt.SigningMethodRS256
	case AlgorithmEdDSA:
		method = jwt.SigningMethodEdDSA
	default:
		return ErrMalformedKey
	}
	if err := method.Verify(message, sig, k.key); err != nil {
		return ErrMismatch
	}
	return nil
}

// Sign produces the base64 signature of message with a PEM private key. It
// is the client half of the factor and is used by tooling and tests.
func Sign(message, privateKeyPEM string) (string, error) {
	data := []byte(strings.TrimSpace(privateKeyPEM))
	var (
		method jwt.SigningMethod
		key    crypto.PrivateKey
	)
	if k, err := jwt.ParseRSAPrivateKeyFromPEM(data); err == nil {
		method, key = jwt.SigningMethodRS256, k
	} else if k, err := jwt.ParseEdPrivateKeyFromPEM(data); err == nil {
		method, key = jwt.SigningMethodEdDSA, k
	} else {
		return "", ErrMalformedKey
	}

	sig, err := method.Sign(message, key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func decodeSignature(s string) ([]byte, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, ErrMalformedSignature
	}
	if sig, err := base64.StdEncoding.DecodeString(trimmed); err == nil {
		return sig, nil
	}
	if sig, err := base64.RawURLEncoding.DecodeString(trimmed); err == nil {
		return sig, nil
	}
	return nil, ErrMalformedSignature
}
