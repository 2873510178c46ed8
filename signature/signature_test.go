package signature

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
)

func rsaKeyPair(t *testing.T) (pubPEM, privPEM string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	privPEM = string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))
	return pubPEM, privPEM
}

func edKeyPair(t *testing.T) (pubPEM, privPEM string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("marshal private key: %v", err)
	}
	pubPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	privPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}))
	return pubPEM, privPEM
}

func TestRSASignVerify(t *testing.T) {
	pub, priv := rsaKeyPair(t)
	sig, err := Sign("hello", priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := Verify("hello", sig, pub); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := Verify("hellp", sig, pub); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch for altered message, got %v", err)
	}
	key, _ := ParsePublicKey(pub)
	if key.Algorithm() != AlgorithmRS256 {
		t.Fatalf("unexpected algorithm %s", key.Algorithm())
	}
}

func TestEd25519SignVerify(t *testing.T) {
	pub, priv := edKeyPair(t)
	sig, err := Sign("hello", priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := Verify("hello", sig, pub); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	key, _ := ParsePublicKey(pub)
	if key.Algorithm() != AlgorithmEdDSA {
		t.Fatalf("unexpected algorithm %s", key.Algorithm())
	}
}

func TestVerifyRejectsOtherKey(t *testing.T) {
	_, priv := rsaKeyPair(t)
	otherPub, _ := rsaKeyPair(t)
	sig, _ := Sign("hello", priv)
	if err := Verify("hello", sig, otherPub); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestVerifyMalformedInputs(t *testing.T) {
	pub, _ := edKeyPair(t)
	if err := Verify("m", "c2ln", "not a pem"); !errors.Is(err, ErrMalformedKey) {
		t.Fatalf("expected ErrMalformedKey, got %v", err)
	}
	if err := Verify("m", "", pub); !errors.Is(err, ErrMalformedSignature) {
		t.Fatalf("expected ErrMalformedSignature, got %v", err)
	}
	if err := Verify("m", "***", pub); !errors.Is(err, ErrMalformedSignature) {
		t.Fatalf("expected ErrMalformedSignature, got %v", err)
	}
	if _, err := Sign("m", "garbage"); !errors.Is(err, ErrMalformedKey) {
		t.Fatalf("expected ErrMalformedKey, got %v", err)
	}
}
