package goFactor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func enrollEmail(t *testing.T, env *testEnv) ClientIdentity {
	t.Helper()
	id := env.newIdentity(t)
	if _, err := env.engine.EnrollEmail(context.Background(), id, "vmd@example.com"); err != nil {
		t.Fatalf("EnrollEmail: %v", err)
	}
	return id
}

func TestEmailChallengeFlow(t *testing.T) {
	env := newTestEnv(t)
	id := enrollEmail(t, env)
	ctx := context.Background()

	if err := env.engine.VerifyEmailToken(ctx, id, "anything"); !errors.Is(err, ErrCredentialMismatch) {
		t.Fatalf("before challenge: expected ErrCredentialMismatch, got %v", err)
	}

	if err := env.engine.IssueEmailChallenge(ctx, id); err != nil {
		t.Fatalf("IssueEmailChallenge: %v", err)
	}
	stored := env.reload(t, id.UID)
	if len(stored.EmailToken) != 64 {
		t.Fatalf("unexpected token %q", stored.EmailToken)
	}
	wantExpiry := env.clock.Now().Add(DefaultEmailTokenLifetime).Unix()
	if stored.EmailExpiry != wantExpiry {
		t.Fatalf("expiry %d, want %d", stored.EmailExpiry, wantExpiry)
	}

	msg, ok := env.mail.Last()
	if !ok {
		t.Fatal("expected a sent message")
	}
	if msg.To != "vmd@example.com" || msg.Subject != DefaultEmailSubject {
		t.Fatalf("unexpected message %+v", msg)
	}
	if !strings.Contains(msg.Body, DefaultEmailLinkBase+stored.EmailToken) {
		t.Fatalf("body missing link: %q", msg.Body)
	}

	if err := env.engine.VerifyEmailToken(ctx, id, stored.EmailToken); err != nil {
		t.Fatalf("VerifyEmailToken: %v", err)
	}
	if err := env.engine.VerifyEmailToken(ctx, id, mutate(stored.EmailToken)); !errors.Is(err, ErrCredentialMismatch) {
		t.Fatalf("expected ErrCredentialMismatch, got %v", err)
	}

	env.clock.Advance(DefaultEmailTokenLifetime)
	err := env.engine.VerifyEmailToken(ctx, id, stored.EmailToken)
	if !errors.Is(err, ErrEmailTokenExpired) || Classify(err) != OutcomeExpired {
		t.Fatalf("at deadline: expected ErrEmailTokenExpired, got %v", err)
	}
}

func TestEmailTokenOneSecondBeforeDeadline(t *testing.T) {
	env := newTestEnv(t)
	id := enrollEmail(t, env)
	ctx := context.Background()

	if err := env.engine.IssueEmailChallenge(ctx, id); err != nil {
		t.Fatalf("IssueEmailChallenge: %v", err)
	}
	token := env.reload(t, id.UID).EmailToken
	env.clock.Advance(DefaultEmailTokenLifetime - time.Second)
	if err := env.engine.VerifyEmailToken(ctx, id, token); err != nil {
		t.Fatalf("expected token valid before deadline, got %v", err)
	}
}

func TestVerifyEmailTokenRequiresEnrollment(t *testing.T) {
	env := newTestEnv(t)
	id := env.newIdentity(t)
	if err := env.engine.VerifyEmailToken(context.Background(), id, "tok"); !errors.Is(err, ErrFactorNotEnrolled) {
		t.Fatalf("expected ErrFactorNotEnrolled, got %v", err)
	}
	if err := env.engine.IssueEmailChallenge(context.Background(), id); !errors.Is(err, ErrFactorNotEnrolled) {
		t.Fatalf("expected ErrFactorNotEnrolled, got %v", err)
	}
}

func TestEmailDeliveryFailureKeepsFields(t *testing.T) {
	env := newTestEnv(t)
	id := enrollEmail(t, env)
	env.mail.Err = errors.New("smtp down")

	err := env.engine.IssueEmailChallenge(context.Background(), id)
	if !errors.Is(err, ErrEmailDeliveryFailed) || Passes(err) {
		t.Fatalf("expected ErrEmailDeliveryFailed, got %v", err)
	}
	if env.reload(t, id.UID).EmailToken == "" {
		t.Fatal("persisted token should not be rolled back")
	}
	if got := Classify(err); got != OutcomeDeliveryFailed {
		t.Fatalf("expected DeliveryFailed outcome, got %v", got)
	}
	counters := env.engine.MetricsSnapshot().Counters
	if counters[MetricEmailChallengeFailed] != 1 {
		t.Fatal("expected failed challenge metric")
	}
	if counters[MetricStoreUnavailable] != 0 {
		t.Fatal("a mail relay failure must not count as a store outage")
	}
}

func TestReissueReplacesToken(t *testing.T) {
	env := newTestEnv(t)
	id := enrollEmail(t, env)
	ctx := context.Background()

	if err := env.engine.IssueEmailChallenge(ctx, id); err != nil {
		t.Fatalf("IssueEmailChallenge: %v", err)
	}
	first := env.reload(t, id.UID).EmailToken
	if err := env.engine.IssueEmailChallenge(ctx, id); err != nil {
		t.Fatalf("IssueEmailChallenge: %v", err)
	}
	if err := env.engine.VerifyEmailToken(ctx, id, first); !errors.Is(err, ErrCredentialMismatch) {
		t.Fatalf("expected old token rejected, got %v", err)
	}
	if n := len(env.mail.Messages()); n != 2 {
		t.Fatalf("expected two messages, got %d", n)
	}
}
