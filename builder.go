package goFactor

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	internalaudit "github.com/MrEthical07/goFactor/internal/audit"
	"github.com/MrEthical07/goFactor/internal/keylock"
	"github.com/MrEthical07/goFactor/internal/rate"
	"github.com/MrEthical07/goFactor/jwt"
	"github.com/MrEthical07/goFactor/mailer"
	"github.com/MrEthical07/goFactor/password"
)

// Builder collects the Engine's configuration and collaborators.
//
// A Builder is single use: Build may succeed once.
type Builder struct {
	config Config

	store    IdentityStore
	services ServiceRegistry
	mailer   Mailer
	sink     AuditSink
	logger   *zap.Logger
	redis    redis.UniversalClient
	now      func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithIdentityStore sets the required identity store.
func (b *Builder) WithIdentityStore(store IdentityStore) *Builder {
	b.store = store
	return b
}

// WithServiceRegistry sets the registry IssueToken and VerifyToken resolve
// services from. RegisterService additionally needs it to be a ServiceStore.
func (b *Builder) WithServiceRegistry(registry ServiceRegistry) *Builder {
	b.services = registry
	return b
}

// WithMailer sets the email transport. Without one, challenges are logged
// through the engine logger instead of sent.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the wall clock used for TOTP steps, email deadlines,
// and token timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithRedis supplies the client backing the failure limiter. It is required
// when Limits.Enabled is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("identity store required")
	}
	if cfg.Limits.Enabled && b.redis == nil {
		return nil, errors.New("Limits require redis client")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config:   cfg,
		store:    b.store,
		services: b.services,
		mailer:   b.mailer,
		logger:   logger.Named("gofactor"),
		now:      now,
		locks:    keylock.New(),
		metrics:  NewMetrics(cfg.Metrics),
		totp:     newTOTPManager(cfg.TOTP),
	}
	if engine.mailer == nil {
		engine.mailer = mailer.NewLogSender(engine.logger)
	}

	if cfg.Limits.Enabled {
		engine.limiter = rate.New(b.redis, rate.Config{
			Prefix:      cfg.Limits.RedisPrefix,
			MaxFailures: cfg.Limits.MaxFailures,
			Window:      cfg.Limits.Window,
		})
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.sink)

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.MemoryKB,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
	})
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	tokens, err := jwt.NewManager(jwt.Config{
		TTL:    cfg.Token.TTL,
		Issuer: cfg.Token.Issuer,
		Leeway: cfg.Token.Leeway,
	}, now)
	if err != nil {
		return nil, err
	}
	engine.tokens = tokens

	b.built = true
	return engine, nil
}
