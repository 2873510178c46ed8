package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrEmptySecret is returned when a service has no shared secret.
	ErrEmptySecret = errors.New("jwt: empty shared secret")
	// ErrEmptyAudience is returned when no service name is supplied.
	ErrEmptyAudience = errors.New("jwt: empty audience")
)

// Config controls token lifetime and validation.
type Config struct {
	TTL          time.Duration
	Issuer       string
	Leeway       time.Duration
	MaxFutureIAT time.Duration
}

// Manager signs and parses service tokens.
type Manager struct {
	config Config
	now    func() time.Time
}

// ServiceClaims is the payload of a service token.
type ServiceClaims struct {
	Methods []string `json:"amr,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg. now may be nil, in which case time.Now is used.
func NewManager(cfg Config, now func() time.Time) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	if now == nil {
		now = time.Now
	}
	return &Manager{config: cfg, now: now}, nil
}

// Issue signs a token for subject, scoped to audience and keyed with secret.
func (m *Manager) Issue(subject, audience string, secret []byte, methods []string) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	if audience == "" {
		return "", ErrEmptyAudience
	}

	now := m.now()
	claims := ServiceClaims{
		Methods: methods,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	if m.config.Issuer != "" {
		claims.Issuer = m.config.Issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	return signed, nil
}

// Parse verifies tokenStr against secret and audience and returns its claims.
func (m *Manager) Parse(tokenStr, audience string, secret []byte) (*ServiceClaims, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if audience == "" {
		return nil, ErrEmptyAudience
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &ServiceClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(m.now().Add(m.config.MaxFutureIAT)) {
		return nil, errors.New("token iat too far in the future")
	}
	return claims, nil
}
