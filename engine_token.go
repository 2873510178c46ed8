package goFactor

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goFactor/identity"
	"github.com/MrEthical07/goFactor/jwt"
	"github.com/MrEthical07/goFactor/logging"
)

// IssueToken signs a bearer token for serviceName with that service's shared
// secret. The subject is the identity's uid and the amr claim lists its
// enrolled factors. Identities with no enrolled factor get ErrNoVerifiedFactor.
func (e *Engine) IssueToken(ctx context.Context, id ClientIdentity, serviceName string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	token, err := e.issueToken(ctx, id.UID, serviceName)
	switch {
	case err == nil:
		e.metricInc(MetricTokenIssued)
	case errors.Is(err, ErrUnknownService):
		e.metricInc(MetricTokenUnknownService)
	}
	e.emitAudit(ctx, auditEventTokenIssued, auditRecord{uid: id.UID, service: serviceName}, err, nil)
	return token, err
}

func (e *Engine) issueToken(ctx context.Context, uid, serviceName string) (string, error) {
	c, err := e.reload(ctx, uid)
	if err != nil {
		return "", err
	}
	if c.Factors.Empty() {
		return "", ErrNoVerifiedFactor
	}
	svc, err := e.lookupService(ctx, serviceName)
	if err != nil {
		return "", err
	}

	token, err := e.tokens.Issue(c.UID, svc.Name, []byte(svc.SharedSecret), c.Factors.Names())
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	e.logger.Debug("service token issued", logging.UID(uid), logging.Service(svc.Name))
	return token, nil
}

// VerifyToken parses a token presented to serviceName and checks its
// signature, audience, issuer, and lifetime.
func (e *Engine) VerifyToken(ctx context.Context, token, serviceName string) (*jwt.ServiceClaims, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	claims, err := e.verifyToken(ctx, token, serviceName)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		e.emitAudit(ctx, auditEventTokenRejected, auditRecord{service: serviceName}, err, nil)
		return nil, err
	}
	e.metricInc(MetricTokenVerified)
	return claims, nil
}

func (e *Engine) verifyToken(ctx context.Context, token, serviceName string) (*jwt.ServiceClaims, error) {
	svc, err := e.lookupService(ctx, serviceName)
	if err != nil {
		return nil, err
	}
	claims, err := e.tokens.Parse(token, svc.Name, []byte(svc.SharedSecret))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims, nil
}

func (e *Engine) lookupService(ctx context.Context, name string) (ServiceIdentity, error) {
	if e.services == nil || name == "" {
		return ServiceIdentity{}, ErrUnknownService
	}
	svc, err := e.services.LookupService(ctx, name)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return ServiceIdentity{}, ErrUnknownService
		}
		return ServiceIdentity{}, e.storeError("lookup_service", "", err)
	}
	return svc, nil
}
