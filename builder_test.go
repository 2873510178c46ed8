package goFactor

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goFactor/store/memory"
)

func TestBuildRequiresIdentityStore(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected error without identity store")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.TOTP.Digits = 3
	if _, err := New().WithConfig(cfg).WithIdentityStore(memory.New()).Build(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig()).WithIdentityStore(memory.New())
	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuildDefaultsToLogMailer(t *testing.T) {
	st := memory.New()
	e, err := New().WithConfig(testConfig()).WithIdentityStore(st).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()

	ctx := context.Background()
	id, err := e.CreateIdentity(ctx)
	if err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}
	if _, err := e.EnrollEmail(ctx, id, "vmd@example.com"); err != nil {
		t.Fatalf("EnrollEmail: %v", err)
	}
	if err := e.IssueEmailChallenge(ctx, id); err != nil {
		t.Fatalf("IssueEmailChallenge with log mailer: %v", err)
	}
	if _, err := e.IssueToken(ctx, id, "any"); !errors.Is(err, ErrUnknownService) {
		t.Fatalf("expected ErrUnknownService without registry, got %v", err)
	}
}

func TestZeroEngineNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.VerifyAdmission(context.Background(), "k"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if err := (&Engine{}).VerifyBasic(context.Background(), ClientIdentity{}, ""); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}

func TestMetricsCountOperations(t *testing.T) {
	env := newTestEnv(t)
	id := env.newIdentity(t)
	ctx := context.Background()

	_, _ = env.engine.VerifyAdmission(ctx, id.APIKey)
	_, _ = env.engine.VerifyAdmission(ctx, "nope")
	_, _ = env.engine.EnrollEmail(ctx, id, "a@b.c")

	c := env.engine.MetricsSnapshot().Counters
	if c[MetricIdentityCreated] != 1 || c[MetricAdmissionSuccess] != 1 || c[MetricAdmissionFailure] != 1 || c[MetricEnrollSuccess] != 1 {
		t.Fatalf("unexpected counters %v", c)
	}
}
