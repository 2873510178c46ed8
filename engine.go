package goFactor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goFactor/identity"
	internalaudit "github.com/MrEthical07/goFactor/internal/audit"
	"github.com/MrEthical07/goFactor/internal/keylock"
	"github.com/MrEthical07/goFactor/internal/rate"
	"github.com/MrEthical07/goFactor/jwt"
	"github.com/MrEthical07/goFactor/logging"
	"github.com/MrEthical07/goFactor/password"
)

// Engine enrolls factors, verifies presented credentials, and issues
// service tokens for client identities.
//
// Every operation that takes a ClientIdentity uses only its UID and reloads
// the record from the store; the caller's copy is treated as stale. Writes
// for one uid are serialized by the Engine. An Engine is safe for
// concurrent use.
type Engine struct {
	config   Config
	store    IdentityStore
	services ServiceRegistry
	mailer   Mailer
	logger   *zap.Logger
	now      func() time.Time

	locks   *keylock.Locker
	limiter *rate.Limiter
	audit   *internalaudit.Dispatcher
	metrics *Metrics

	hasher *password.Hasher
	totp   *totpManager
	tokens *jwt.Manager
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events lost to a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Metrics exposes the live counters for exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeVerify(start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.Observe(MetricVerifyLatency, time.Since(start))
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.locks == nil {
		return ErrEngineNotReady
	}
	return nil
}

// reload fetches the current record for uid.
func (e *Engine) reload(ctx context.Context, uid string) (ClientIdentity, error) {
	if uid == "" {
		return ClientIdentity{}, ErrIdentityNotFound
	}
	c, err := e.store.LookupByID(ctx, uid)
	if err != nil {
		return ClientIdentity{}, e.storeError("lookup", uid, err)
	}
	return c, nil
}

// storeError maps a store failure onto the engine's error set.
func (e *Engine) storeError(op, uid string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, identity.ErrNotFound) {
		return ErrIdentityNotFound
	}
	e.metricInc(MetricStoreUnavailable)
	e.logger.Warn("store operation failed",
		logging.Op(op),
		logging.UID(uid),
		logging.Err(err),
	)
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// limited consults the failure limiter for scope. Limiter outages fail open
// and are logged.
func (e *Engine) limited(ctx context.Context, scope, uid string) error {
	if e.limiter == nil {
		return nil
	}
	err := e.limiter.Check(ctx, scope, uid)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(MetricRateLimitHit)
		return ErrRateLimited
	default:
		e.logger.Warn("failure limiter unavailable", logging.Op(scope), logging.Err(err))
		return nil
	}
}

// settle records the verification result with the limiter.
func (e *Engine) settle(ctx context.Context, scope, uid string, err error) {
	if e.limiter == nil {
		return
	}
	var lerr error
	switch Classify(err) {
	case OutcomeOK:
		lerr = e.limiter.Reset(ctx, scope, uid)
	case OutcomeCredentialMismatch, OutcomeExpired, OutcomeMalformed:
		lerr = e.limiter.RecordFailure(ctx, scope, uid)
	}
	if lerr != nil && !errors.Is(lerr, rate.ErrRateLimited) {
		e.logger.Warn("failure limiter unavailable", logging.Op(scope), logging.Err(lerr))
	}
}
