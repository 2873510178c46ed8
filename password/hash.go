package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
)

// KeyLength is the derived length in bytes for new hashes.
const KeyLength uint32 = 64

const algorithmID = "argon2id"

var (
	// ErrEmptySalt is returned when an identity has no salt to derive with.
	ErrEmptySalt = errors.New("password: empty salt")
	// ErrMalformedHash is returned when a stored hash is not a valid argon2id
	// PHC string, or was derived under a different salt.
	ErrMalformedHash = errors.New("password: malformed stored hash")
)

// Config holds argon2id cost parameters for new hashes. Stored hashes carry
// their own parameters, so changing Config never invalidates them.
type Config struct {
	Memory      uint32 `yaml:"memory_kb"`
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
}

// Hasher derives and checks salted credential hashes.
type Hasher struct {
	config Config
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

// NewHasher validates cfg and returns a Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Hasher{config: cfg}, nil
}

// Salted derives the 512-bit hash of digest under salt and returns it as a
// PHC string:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<parallelism>$<salt>$<hash>
//
// with salt and hash in padded standard base64. The output is deterministic
// for a given Config.
func (h *Hasher) Salted(digest, salt string) (string, error) {
	if salt == "" {
		return "", ErrEmptySalt
	}
	key := argon2.IDKey([]byte(digest), []byte(salt), h.config.Time, h.config.Memory, h.config.Parallelism, KeyLength)
	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.StdEncoding.EncodeToString([]byte(salt)),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether digest under salt reproduces stored, deriving with
// the parameters recorded in stored. Comparison is constant time.
func (h *Hasher) Verify(digest, salt, stored string) (bool, error) {
	if salt == "" {
		return false, ErrEmptySalt
	}
	parsed, err := parsePHC(stored)
	if err != nil {
		return false, err
	}
	if subtle.ConstantTimeCompare(parsed.salt, []byte(salt)) != 1 {
		return false, fmt.Errorf("%w: salt does not match identity", ErrMalformedHash)
	}
	computed := argon2.IDKey(
		[]byte(digest),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		uint32(len(parsed.hash)),
	)
	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

// NeedsUpgrade reports whether stored was derived with weaker parameters, or
// a different key length, than the Hasher's Config.
func (h *Hasher) NeedsUpgrade(stored string) (bool, error) {
	parsed, err := parsePHC(stored)
	if err != nil {
		return false, err
	}
	switch {
	case h.config.Memory > parsed.memory,
		h.config.Time > parsed.time,
		h.config.Parallelism > parsed.parallelism,
		uint32(len(parsed.hash)) != KeyLength:
		return true, nil
	}
	return false, nil
}

func parsePHC(encoded string) (*parsedPHC, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: invalid PHC format", ErrMalformedHash)
	}
	if parts[1] != algorithmID {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrMalformedHash, parts[1])
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") || version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version", ErrMalformedHash)
	}

	parsed := &parsedPHC{}
	if err := parseParams(parts[3], parsed); err != nil {
		return nil, err
	}
	parsed.salt, err = base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(parsed.salt) == 0 {
		return nil, fmt.Errorf("%w: invalid salt encoding", ErrMalformedHash)
	}
	parsed.hash, err = base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(parsed.hash) == 0 {
		return nil, fmt.Errorf("%w: invalid hash encoding", ErrMalformedHash)
	}
	return parsed, nil
}

func parseParams(part string, into *parsedPHC) error {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return fmt.Errorf("%w: invalid parameter format", ErrMalformedHash)
	}
	var seen [3]bool
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%w: invalid parameter entry", ErrMalformedHash)
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minMemoryKB) {
				return fmt.Errorf("%w: invalid memory parameter", ErrMalformedHash)
			}
			into.memory, seen[0] = uint32(n), true
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minTimeCost) {
				return fmt.Errorf("%w: invalid time parameter", ErrMalformedHash)
			}
			into.time, seen[1] = uint32(n), true
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n < uint64(minParallelism) {
				return fmt.Errorf("%w: invalid parallelism parameter", ErrMalformedHash)
			}
			into.parallelism, seen[2] = uint8(n), true
		default:
			return fmt.Errorf("%w: unsupported parameter %q", ErrMalformedHash, k)
		}
	}
	if !seen[0] || !seen[1] || !seen[2] {
		return fmt.Errorf("%w: missing parameters", ErrMalformedHash)
	}
	return nil
}

// Digest is the client-side transform of a raw password: hex(sha256(raw)).
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return errors.New("password memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return errors.New("password time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}
	return nil
}
