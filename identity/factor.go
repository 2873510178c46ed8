package identity

import (
	"fmt"
	"strings"
)

// Factor is one of the closed set of verification methods a client can enroll.
//
// New factors must be added to every switch in this package. ParseFactor
// rejects names outside the set.
type Factor uint8

const (
	// FactorBasic is username plus salted password digest.
	FactorBasic Factor = iota + 1
	// FactorEmail is an address that receives time-bounded challenge tokens.
	FactorEmail
	// FactorSignature is a bound public key used to verify signed messages.
	FactorSignature
	// FactorTOTP is a shared secret for time-based one-time codes.
	FactorTOTP
)

// Factors lists every known factor in declaration order.
var Factors = [...]Factor{FactorBasic, FactorEmail, FactorSignature, FactorTOTP}

func (f Factor) String() string {
	switch f {
	case FactorBasic:
		return "Basic"
	case FactorEmail:
		return "Email"
	case FactorSignature:
		return "Signature"
	case FactorTOTP:
		return "Totp"
	default:
		return fmt.Sprintf("Factor(%d)", uint8(f))
	}
}

// Valid reports whether f belongs to the closed factor set.
func (f Factor) Valid() bool {
	switch f {
	case FactorBasic, FactorEmail, FactorSignature, FactorTOTP:
		return true
	default:
		return false
	}
}

// ParseFactor parses the persisted name of a factor. Matching is case-insensitive
// so records written as "TOTP" or "totp" still load.
func ParseFactor(name string) (Factor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "basic":
		return FactorBasic, nil
	case "email":
		return FactorEmail, nil
	case "signature":
		return FactorSignature, nil
	case "totp":
		return FactorTOTP, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFactor, name)
	}
}

// FactorSet is an unordered set of enrolled factors. The zero value is empty.
type FactorSet uint8

func (s FactorSet) bit(f Factor) FactorSet {
	if !f.Valid() {
		return 0
	}
	return 1 << (f - 1)
}

// Has reports whether f is in the set.
func (s FactorSet) Has(f Factor) bool {
	b := s.bit(f)
	return b != 0 && s&b != 0
}

// With returns the union of s and f. Adding a present factor is a no-op.
func (s FactorSet) With(f Factor) FactorSet {
	return s | s.bit(f)
}

// Empty reports whether no factor is enrolled.
func (s FactorSet) Empty() bool {
	return s == 0
}

// List returns the enrolled factors in declaration order.
func (s FactorSet) List() []Factor {
	out := make([]Factor, 0, len(Factors))
	for _, f := range Factors {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Names returns the persisted names of the enrolled factors.
func (s FactorSet) Names() []string {
	list := s.List()
	out := make([]string, len(list))
	for i, f := range list {
		out[i] = f.String()
	}
	return out
}

func (s FactorSet) String() string {
	return strings.Join(s.Names(), ",")
}

// ParseFactorSet builds a set from persisted names.
func ParseFactorSet(names []string) (FactorSet, error) {
	var s FactorSet
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		f, err := ParseFactor(name)
		if err != nil {
			return 0, err
		}
		s = s.With(f)
	}
	return s, nil
}

// NewFactorSet builds a set from factors.
func NewFactorSet(factors ...Factor) FactorSet {
	var s FactorSet
	for _, f := range factors {
		s = s.With(f)
	}
	return s
}
