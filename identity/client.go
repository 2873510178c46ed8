// Package identity holds the persisted records shared by the engine and the
// store implementations: client identities, service identities, the factor
// set, and the store contracts.
package identity

import "fmt"

// Client is the persisted record of one client identity.
//
// UID, APIKey, and Salt are fixed at creation. Empty strings mean "unset" for
// every credential field. EmailExpiry is seconds since the Unix epoch and is
// only meaningful while EmailToken is non-empty.
type Client struct {
	UID         string
	APIKey      string
	Username    string
	Pass512     string
	Salt        string
	PublicKey   string
	TOTPKey     string
	Email       string
	EmailToken  string
	EmailExpiry int64
	Factors     FactorSet
}

// Field names a mutable credential field of Client.
type Field uint8

const (
	FieldUsername Field = iota + 1
	FieldPass512
	FieldPublicKey
	FieldTOTPKey
	FieldEmail
	FieldEmailToken
	FieldEmailExpiry
)

// Fields lists every mutable field in declaration order.
var Fields = [...]Field{
	FieldUsername,
	FieldPass512,
	FieldPublicKey,
	FieldTOTPKey,
	FieldEmail,
	FieldEmailToken,
	FieldEmailExpiry,
}

// Column returns the storage name of the field. Stores use it as hash field
// and SQL column name, so it never contains caller input.
func (f Field) Column() string {
	switch f {
	case FieldUsername:
		return "username"
	case FieldPass512:
		return "pass512"
	case FieldPublicKey:
		return "public_key"
	case FieldTOTPKey:
		return "totp_key"
	case FieldEmail:
		return "email"
	case FieldEmailToken:
		return "email_token"
	case FieldEmailExpiry:
		return "email_expiry"
	default:
		return ""
	}
}

func (f Field) String() string {
	if c := f.Column(); c != "" {
		return c
	}
	return fmt.Sprintf("Field(%d)", uint8(f))
}

// Valid reports whether f is a known mutable field.
func (f Field) Valid() bool {
	return f.Column() != ""
}

// Set writes value into the field of c named by f. EmailExpiry values must be
// decimal integers.
func (c *Client) Set(f Field, value string) error {
	switch f {
	case FieldUsername:
		c.Username = value
	case FieldPass512:
		c.Pass512 = value
	case FieldPublicKey:
		c.PublicKey = value
	case FieldTOTPKey:
		c.TOTPKey = value
	case FieldEmail:
		c.Email = value
	case FieldEmailToken:
		c.EmailToken = value
	case FieldEmailExpiry:
		n, err := ParseExpiry(value)
		if err != nil {
			return err
		}
		c.EmailExpiry = n
	default:
		return fmt.Errorf("%w: %s", ErrInvalidField, f)
	}
	return nil
}

// Get reads the field of c named by f in its persisted string form.
func (c Client) Get(f Field) (string, error) {
	switch f {
	case FieldUsername:
		return c.Username, nil
	case FieldPass512:
		return c.Pass512, nil
	case FieldPublicKey:
		return c.PublicKey, nil
	case FieldTOTPKey:
		return c.TOTPKey, nil
	case FieldEmail:
		return c.Email, nil
	case FieldEmailToken:
		return c.EmailToken, nil
	case FieldEmailExpiry:
		return FormatExpiry(c.EmailExpiry), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidField, f)
	}
}

// Service is a relying party that accepts bearer tokens signed with its
// shared secret.
type Service struct {
	Name         string
	SharedSecret string
}
