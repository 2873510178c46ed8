package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "gf"

// incrementLua bumps a failure counter and arms its expiry in one step.
// Fixed window: the first failure starts the clock. A counter found without
// a TTL is re-armed so it can never outlive the window.
// KEYS[1] = counter; ARGV[1] = window in milliseconds
var incrementLua = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 or redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// Config holds failure limiter tuning parameters.
type Config struct {
	Prefix      string
	MaxFailures int
	Window      time.Duration
}

// Limiter counts failed verifications per scope and uid.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Check returns ErrRateLimited when uid has reached the failure budget for
// scope in the current window.
func (l *Limiter) Check(ctx context.Context, scope, uid string) error {
	count, err := l.redis.Get(ctx, l.key(scope, uid)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxFailures) {
		return ErrRateLimited
	}
	return nil
}

// RecordFailure increments the failure counter. The returned error is
// ErrRateLimited when this failure exhausted the budget.
func (l *Limiter) RecordFailure(ctx context.Context, scope, uid string) error {
	count, err := l.incrementWithTTL(ctx, l.key(scope, uid), l.config.Window)
	if err != nil {
		return err
	}
	if count >= int64(l.config.MaxFailures) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the failure counter after a successful verification.
func (l *Limiter) Reset(ctx context.Context, scope, uid string) error {
	if err := l.redis.Del(ctx, l.key(scope, uid)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Failures returns the current counter. Missing keys return zero.
func (l *Limiter) Failures(ctx context.Context, scope, uid string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(scope, uid)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) key(scope, uid string) string {
	return l.config.Prefix + ":fail:" + scope + ":" + uid
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := incrementLua.Run(ctx, l.redis, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return count, nil
}
