package goFactor

import (
	"context"

	internalaudit "github.com/MrEthical07/goFactor/internal/audit"
	"github.com/MrEthical07/goFactor/identity"
)

// ClientIdentity is the persisted record of one client. See identity.Client.
type ClientIdentity = identity.Client

// ServiceIdentity is a relying service and its shared secret.
type ServiceIdentity = identity.Service

// AuthFactor is one of the closed set of verification methods.
type AuthFactor = identity.Factor

// FactorSet is the set of factors an identity has enrolled.
type FactorSet = identity.FactorSet

const (
	FactorBasic     = identity.FactorBasic
	FactorEmail     = identity.FactorEmail
	FactorSignature = identity.FactorSignature
	FactorTOTP      = identity.FactorTOTP
)

// IdentityStore persists client identities. See identity.Store.
type IdentityStore = identity.Store

// ServiceRegistry resolves relying services by name.
type ServiceRegistry = identity.ServiceRegistry

// ServiceStore is a writable ServiceRegistry.
type ServiceStore = identity.ServiceStore

// Mailer hands a challenge message to an email transport.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// AuditEvent is the record delivered to an AuditSink.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink logs audit events.
type ZapSink = internalaudit.ZapSink

var (
	NewChannelSink    = internalaudit.NewChannelSink
	NewJSONWriterSink = internalaudit.NewJSONWriterSink
	NewZapSink        = internalaudit.NewZapSink
)
