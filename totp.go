package goFactor

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goFactor/internal"
)

// 160-bit secrets, the RFC 4226 recommendation.
const totpSecretBytes = 20

var totpEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

var pow10 = [...]uint32{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000}

// totpManager computes and checks RFC 6238 codes for one TOTPConfig.
type totpManager struct {
	config  TOTPConfig
	mac     func() hash.Hash
	period  int64
	modulus uint32
}

// newTOTPManager expects a validated config; an unknown algorithm falls back
// to SHA1.
func newTOTPManager(cfg TOTPConfig) *totpManager {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	mac, err := hmacFunc(cfg.Algorithm)
	if err != nil {
		mac = sha1.New
	}
	m := &totpManager{config: cfg, mac: mac, period: int64(cfg.Period)}
	if m.period <= 0 {
		m.period = 30
	}
	if cfg.Digits > 0 && cfg.Digits < len(pow10) {
		m.modulus = pow10[cfg.Digits]
	} else {
		m.modulus = pow10[6]
	}
	return m
}

// GenerateSecret returns a fresh secret in unpadded upper-case base32, the
// form stored on the identity and shown to authenticator apps.
func (m *totpManager) GenerateSecret() (string, error) {
	if m == nil {
		return "", ErrEngineNotReady
	}
	raw, err := internal.RandomBytes(totpSecretBytes)
	if err != nil {
		return "", err
	}
	return totpEncoding.EncodeToString(raw), nil
}

// ProvisionURI renders the otpauth:// URI authenticator apps scan.
func (m *totpManager) ProvisionURI(secretBase32, account string) string {
	q := url.Values{
		"secret":    {secretBase32},
		"issuer":    {m.config.Issuer},
		"algorithm": {strings.ToUpper(m.config.Algorithm)},
		"digits":    {strconv.Itoa(m.config.Digits)},
		"period":    {strconv.FormatInt(m.period, 10)},
	}
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + m.config.Issuer + ":" + account,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func (m *totpManager) counterAt(t time.Time) int64 {
	return t.Unix() / m.period
}

// codeAt is HOTP(secret, counter) with RFC 4226 dynamic truncation.
func (m *totpManager) codeAt(secret []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))
	h := hmac.New(m.mac, secret)
	h.Write(msg[:])
	sum := h.Sum(nil)

	off := sum[len(sum)-1] & 0x0f
	bin := binary.BigEndian.Uint32(sum[off:off+4]) & 0x7fffffff
	return fmt.Sprintf("%0*d", m.config.Digits, bin%m.modulus)
}

// Code returns the code for the time step containing at.
func (m *totpManager) Code(secretBase32 string, at time.Time) (string, error) {
	if m == nil {
		return "", ErrEngineNotReady
	}
	secret, err := decodeTOTPSecret(secretBase32)
	if err != nil {
		return "", err
	}
	return m.codeAt(secret, m.counterAt(at)), nil
}

// Verify reports whether code matches a step within the skew window around
// now, and which counter matched.
func (m *totpManager) Verify(secretBase32, code string, now time.Time) (bool, int64, error) {
	if m == nil {
		return false, 0, ErrEngineNotReady
	}
	secret, err := decodeTOTPSecret(secretBase32)
	if err != nil {
		return false, 0, err
	}
	return m.verifyRaw(secret, code, now)
}

// verifyRaw checks the current step first, then widens outwards.
func (m *totpManager) verifyRaw(secret []byte, code string, now time.Time) (bool, int64, error) {
	code = strings.TrimSpace(code)
	if len(code) != m.config.Digits || !isNumericString(code) {
		return false, 0, nil
	}
	if len(secret) == 0 {
		return false, 0, errors.New("empty totp secret")
	}

	base := m.counterAt(now)
	for d := 0; d <= m.config.Skew; d++ {
		for _, counter := range [2]int64{base - int64(d), base + int64(d)} {
			if counter < 0 {
				continue
			}
			if subtle.ConstantTimeCompare([]byte(m.codeAt(secret, counter)), []byte(code)) == 1 {
				return true, counter, nil
			}
			if d == 0 {
				break
			}
		}
	}
	return false, 0, nil
}

// TOTPCode computes the code an authenticator holding secretBase32 shows at
// the given instant. It is the client half of TOTP, exported for tooling
// and tests.
func TOTPCode(cfg TOTPConfig, secretBase32 string, at time.Time) (string, error) {
	if err := cfg.validate(); err != nil {
		return "", err
	}
	return newTOTPManager(cfg).Code(secretBase32, at)
}

// hotpCode is a one-shot HOTP used by tests.
func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	if _, err := hmacFunc(algorithm); err != nil {
		return "", err
	}
	return newTOTPManager(TOTPConfig{Digits: digits, Period: 30, Algorithm: algorithm}).codeAt(secret, counter), nil
}

func decodeTOTPSecret(secretBase32 string) ([]byte, error) {
	clean := strings.ToUpper(strings.TrimRight(strings.TrimSpace(secretBase32), "="))
	if clean == "" {
		return nil, ErrFactorNotEnrolled
	}
	raw, err := totpEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: totp secret is not base32", ErrMalformedCredential)
	}
	return raw, nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("unsupported totp algorithm %q", algorithm)
	}
}

func isNumericString(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
