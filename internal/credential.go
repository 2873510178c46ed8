package internal

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrMalformedBasic is returned when an encoded basic credential cannot be
// decoded into a username and digest.
var ErrMalformedBasic = errors.New("malformed basic credential")

// DecodeBasic decodes base64("<username>:<digest>"). The split happens on the
// first colon; the digest may itself contain colons.
func DecodeBasic(encoded string) (string, string, error) {
	trimmed := strings.TrimSpace(encoded)
	if trimmed == "" {
		return "", "", ErrMalformedBasic
	}
	raw, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(trimmed)
		if err != nil {
			return "", "", ErrMalformedBasic
		}
	}
	username, digest, ok := strings.Cut(string(raw), ":")
	if !ok || username == "" {
		return "", "", ErrMalformedBasic
	}
	return username, digest, nil
}

// EncodeBasic is the inverse of DecodeBasic.
func EncodeBasic(username, digest string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + digest))
}
