package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	goFactor "github.com/MrEthical07/goFactor"
	"github.com/MrEthical07/goFactor/identity"
	"github.com/MrEthical07/goFactor/store/cached"
	"github.com/MrEthical07/goFactor/store/memory"
	"github.com/MrEthical07/goFactor/store/pgstore"
	"github.com/MrEthical07/goFactor/store/redisstore"
)

// errNoMigrations is returned by migrate for drivers without a schema.
var errNoMigrations = errors.New("store driver has no schema to migrate")

type backend struct {
	driver   string
	store    identity.Store
	services identity.ServiceStore
	redis    redis.UniversalClient
	migrate  func(ctx context.Context) error
	closers  []func()
}

func openBackend(ctx context.Context, cfg goFactor.Config, logger *zap.Logger) (*backend, error) {
	driver := cfg.Store.Driver
	if driver == "" {
		driver = "memory"
	}
	b := &backend{driver: driver}

	needRedis := driver == "redis" || cfg.Limits.Enabled
	if needRedis {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Store.RedisAddr},
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.Store.RedisAddr, err)
		}
		b.redis = client
		b.closers = append(b.closers, func() { _ = client.Close() })
	}

	switch driver {
	case "memory":
		s := memory.New()
		b.store, b.services = s, s
		logger.Warn("memory store selected; identities are lost on exit")
	case "redis":
		s := redisstore.New(b.redis, cfg.Store.RedisPrefix)
		b.store, b.services = s, cached.New(s, cfg.Store.ServiceCacheTTL)
	case "postgres":
		pool, err := pgstore.Connect(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		s := pgstore.New(pool)
		b.store, b.services = s, cached.New(s, cfg.Store.ServiceCacheTTL)
		b.migrate = s.Migrate
	default:
		b.Close()
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	return b, nil
}

func (b *backend) Migrate(ctx context.Context) error {
	if b.migrate == nil {
		return fmt.Errorf("%w: %s", errNoMigrations, b.driver)
	}
	return b.migrate(ctx)
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
