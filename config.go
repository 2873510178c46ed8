package goFactor

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/goFactor/logging"
	"github.com/MrEthical07/goFactor/mailer"
)

const (
	// DefaultEmailTokenLifetime is how long an issued email token stays valid.
	DefaultEmailTokenLifetime = 900 * time.Second
	// DefaultEmailSubject is the subject line of challenge messages.
	DefaultEmailSubject = "Verify your email"
	// DefaultEmailLinkBase is prefixed to the token to form the challenge link.
	DefaultEmailLinkBase = "https://example.invalid/verify?token="
)

// Config is the full engine and deployment configuration. Only TOTP, Email,
// Token, Password, Limits, Audit, and Metrics affect the Engine; Store, Log,
// and SMTP are read by the CLI when wiring collaborators.
type Config struct {
	TOTP     TOTPConfig        `yaml:"totp"`
	Email    EmailConfig       `yaml:"email"`
	Token    TokenConfig       `yaml:"token"`
	Password PasswordConfig    `yaml:"password"`
	Limits   LimitsConfig      `yaml:"limits"`
	Audit    AuditConfig       `yaml:"audit"`
	Metrics  MetricsConfig     `yaml:"metrics"`
	Store    StoreConfig       `yaml:"store"`
	Log      logging.Config    `yaml:"log"`
	SMTP     mailer.SMTPConfig `yaml:"smtp"`
}

/*
====================================
FACTOR CONFIG
====================================
*/

// TOTPConfig controls secret provisioning and code checks.
type TOTPConfig struct {
	Issuer    string `yaml:"issuer"`
	Digits    int    `yaml:"digits"`
	Period    int    `yaml:"period"`
	Algorithm string `yaml:"algorithm"`
	// Skew is the number of adjacent time steps accepted on each side.
	Skew int `yaml:"skew"`
}

// EmailConfig controls the email challenge.
type EmailConfig struct {
	TokenLifetime time.Duration `yaml:"token_lifetime"`
	// TokenBytes is the entropy of the hex token; the token is twice as long.
	TokenBytes int    `yaml:"token_bytes"`
	Subject    string `yaml:"subject"`
	LinkBase   string `yaml:"link_base"`
}

// PasswordConfig holds the argon2id cost of the Basic factor's salted hash.
// Changing it invalidates every stored pass512.
type PasswordConfig struct {
	MemoryKB    uint32 `yaml:"memory_kb"`
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls service tokens.
type TokenConfig struct {
	TTL    time.Duration `yaml:"ttl"`
	Issuer string        `yaml:"issuer"`
	Leeway time.Duration `yaml:"leeway"`
}

/*
====================================
OPERATIONAL CONFIG
====================================
*/

// LimitsConfig enables per-identity failure throttling. It needs a Redis
// client on the Builder.
type LimitsConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures int           `yaml:"max_failures"`
	Window      time.Duration `yaml:"window"`
	RedisPrefix string        `yaml:"redis_prefix"`
}

type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// StoreConfig selects the identity and service backends.
type StoreConfig struct {
	// Driver is "memory", "redis", or "postgres".
	Driver          string        `yaml:"driver"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	RedisPrefix     string        `yaml:"redis_prefix"`
	PostgresDSN     string        `yaml:"postgres_dsn"`
	ServiceCacheTTL time.Duration `yaml:"service_cache_ttl"`
}

// DefaultConfig returns a configuration that passes Validate.
func DefaultConfig() Config {
	return Config{
		TOTP: TOTPConfig{
			Issuer:    "goFactor",
			Digits:    6,
			Period:    30,
			Algorithm: "SHA1",
			Skew:      1,
		},
		Email: EmailConfig{
			TokenLifetime: DefaultEmailTokenLifetime,
			TokenBytes:    32,
			Subject:       DefaultEmailSubject,
			LinkBase:      DefaultEmailLinkBase,
		},
		Token: TokenConfig{
			TTL:    15 * time.Minute,
			Issuer: "gofactor",
		},
		Password: PasswordConfig{
			MemoryKB:    19 * 1024,
			Time:        2,
			Parallelism: 1,
		},
		Limits: LimitsConfig{
			Enabled:     false,
			MaxFailures: 5,
			Window:      15 * time.Minute,
			RedisPrefix: "gf",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Store: StoreConfig{
			Driver:          "memory",
			RedisAddr:       "127.0.0.1:6379",
			RedisPrefix:     "gf",
			ServiceCacheTTL: time.Minute,
		},
		Log: logging.Config{
			Env:         "dev",
			Level:       "info",
			ServiceName: "gofactor",
		},
		SMTP: mailer.SMTPConfig{
			Port:    587,
			TLSMode: "auto",
			Timeout: 10 * time.Second,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

func (c TOTPConfig) validate() error {
	if c.Digits < 6 || c.Digits > 8 {
		return errors.New("TOTP Digits must be 6..8")
	}
	if c.Period <= 0 {
		return errors.New("TOTP Period must be > 0")
	}
	if c.Skew < 0 || c.Skew > 3 {
		return errors.New("TOTP Skew must be 0..3")
	}
	if _, err := hmacFunc(c.Algorithm); err != nil {
		return fmt.Errorf("TOTP Algorithm: %w", err)
	}
	return nil
}

// Validate checks every engine-facing section.
func (c *Config) Validate() error {
	if err := c.TOTP.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.TOTP.Issuer) == "" {
		return errors.New("TOTP Issuer must be set")
	}

	if c.Email.TokenLifetime < time.Second {
		return errors.New("Email TokenLifetime must be >= 1s")
	}
	if c.Email.TokenBytes < 16 {
		return errors.New("Email TokenBytes must be >= 16")
	}
	if strings.TrimSpace(c.Email.Subject) == "" {
		return errors.New("Email Subject must be set")
	}

	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be 0..2m")
	}

	if c.Password.MemoryKB < 8*1024 {
		return errors.New("Password MemoryKB must be >= 8192")
	}
	if c.Password.Time < 1 || c.Password.Parallelism < 1 {
		return errors.New("Password Time and Parallelism must be >= 1")
	}

	if c.Limits.Enabled {
		if c.Limits.MaxFailures <= 0 {
			return errors.New("Limits MaxFailures must be > 0")
		}
		if c.Limits.Window <= 0 {
			return errors.New("Limits Window must be > 0")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	switch c.Store.Driver {
	case "", "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && strings.TrimSpace(c.Store.PostgresDSN) == "" {
		return errors.New("postgres store requires PostgresDSN")
	}
	return nil
}

/*
====================================
LOADING
====================================
*/

// LoadConfig reads a YAML file over DefaultConfig, applies GOFACTOR_*
// environment overrides, and validates the result. An empty path skips the
// file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides deployment settings from the environment. lookup is
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str("GOFACTOR_STORE_DRIVER", &c.Store.Driver)
	str("GOFACTOR_REDIS_ADDR", &c.Store.RedisAddr)
	str("GOFACTOR_REDIS_PASSWORD", &c.Store.RedisPassword)
	str("GOFACTOR_POSTGRES_DSN", &c.Store.PostgresDSN)
	str("GOFACTOR_LOG_ENV", &c.Log.Env)
	str("GOFACTOR_LOG_LEVEL", &c.Log.Level)
	str("GOFACTOR_EMAIL_LINK_BASE", &c.Email.LinkBase)
	str("GOFACTOR_SMTP_HOST", &c.SMTP.Host)
	str("GOFACTOR_SMTP_FROM", &c.SMTP.From)
	str("GOFACTOR_SMTP_USERNAME", &c.SMTP.Username)
	str("GOFACTOR_SMTP_PASSWORD", &c.SMTP.Password)

	if v, ok := lookup("GOFACTOR_SMTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GOFACTOR_SMTP_PORT: %w", err)
		}
		c.SMTP.Port = port
	}
	if v, ok := lookup("GOFACTOR_REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GOFACTOR_REDIS_DB: %w", err)
		}
		c.Store.RedisDB = db
	}
	if v, ok := lookup("GOFACTOR_LIMITS_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GOFACTOR_LIMITS_ENABLED: %w", err)
		}
		c.Limits.Enabled = enabled
	}
	return nil
}
