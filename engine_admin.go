package goFactor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goFactor/identity"
	"github.com/MrEthical07/goFactor/internal"
	"github.com/MrEthical07/goFactor/logging"
)

// CreateIdentity stores a new identity with a fresh uid, admission key, and
// salt, and no enrolled factors. The returned record is the only place the
// admission key is surfaced.
func (e *Engine) CreateIdentity(ctx context.Context) (ClientIdentity, error) {
	if err := e.ready(); err != nil {
		return ClientIdentity{}, err
	}
	c, err := newClientIdentity()
	if err == nil {
		if serr := e.store.Create(ctx, c); serr != nil {
			err = e.storeError("create", c.UID, serr)
		}
	}
	e.emitAudit(ctx, auditEventIdentityCreated, auditRecord{uid: c.UID}, err, nil)
	if err != nil {
		return ClientIdentity{}, err
	}
	e.metricInc(MetricIdentityCreated)
	e.logger.Info("identity created", logging.UID(c.UID))
	return c, nil
}

func newClientIdentity() (ClientIdentity, error) {
	uid, err := internal.NewUID()
	if err != nil {
		return ClientIdentity{}, err
	}
	apiKey, err := internal.NewHexToken(internal.AdmissionKeyBytes)
	if err != nil {
		return ClientIdentity{}, err
	}
	salt, err := internal.NewHexToken(internal.SaltBytes)
	if err != nil {
		return ClientIdentity{}, err
	}
	return ClientIdentity{UID: uid, APIKey: apiKey, Salt: salt}, nil
}

// DeleteIdentity removes the identity and clears its failure counters.
func (e *Engine) DeleteIdentity(ctx context.Context, uid string) error {
	if err := e.ready(); err != nil {
		return err
	}
	unlock := e.locks.Lock(uid)
	err := e.store.Delete(ctx, uid)
	unlock()
	if err != nil {
		err = e.storeError("delete", uid, err)
		e.emitAudit(ctx, auditEventIdentityDeleted, auditRecord{uid: uid}, err, nil)
		return err
	}

	if e.limiter != nil {
		for _, scope := range []string{scopeBasic, scopeTOTP, scopeEmail} {
			if rerr := e.limiter.Reset(ctx, scope, uid); rerr != nil {
				e.logger.Warn("failure counter reset failed", logging.UID(uid), logging.Err(rerr))
			}
		}
	}
	e.metricInc(MetricIdentityDeleted)
	e.emitAudit(ctx, auditEventIdentityDeleted, auditRecord{uid: uid}, nil, nil)
	return nil
}

// RegisterService creates a relying service with a fresh shared secret. The
// configured registry must be a ServiceStore.
func (e *Engine) RegisterService(ctx context.Context, name string) (ServiceIdentity, error) {
	if err := e.ready(); err != nil {
		return ServiceIdentity{}, err
	}
	store, ok := e.services.(ServiceStore)
	if !ok {
		return ServiceIdentity{}, ErrServiceAdminUnsupported
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ServiceIdentity{}, fmt.Errorf("%w: empty service name", ErrInvalidInput)
	}

	secret, err := internal.NewHexToken(internal.SharedSecretBytes)
	if err != nil {
		return ServiceIdentity{}, err
	}
	svc := ServiceIdentity{Name: name, SharedSecret: secret}
	err = store.SaveService(ctx, svc)
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrConflict):
		err = ErrServiceExists
	default:
		err = e.storeError("save_service", "", err)
	}
	e.emitAudit(ctx, auditEventServiceRegistered, auditRecord{service: name}, err, nil)
	if err != nil {
		return ServiceIdentity{}, err
	}
	return svc, nil
}
