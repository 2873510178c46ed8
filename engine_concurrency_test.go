package goFactor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestConcurrentEnrollTOTPSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	id := env.newIdentity(t)
	ctx := context.Background()

	const workers = 16
	var (
		wg       sync.WaitGroup
		wins     atomic.Int32
		rejected atomic.Int32
		secrets  sync.Map
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := env.engine.EnrollTOTP(ctx, id)
			switch {
			case err == nil:
				wins.Add(1)
				secrets.Store(c.TOTPKey, true)
			case errors.Is(err, ErrTOTPKeyEstablished):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 || rejected.Load() != workers-1 {
		t.Fatalf("wins=%d rejected=%d", wins.Load(), rejected.Load())
	}
	stored := env.reload(t, id.UID)
	if _, ok := secrets.Load(stored.TOTPKey); !ok {
		t.Fatal("stored secret is not the winner's")
	}
}

func TestConcurrentEnrollmentsKeepEveryFactor(t *testing.T) {
	env := newTestEnv(t)
	id := env.newIdentity(t)
	ctx := context.Background()
	pubPEM, _ := newEd25519PEM(t)

	ops := []func() error{
		func() error { _, err := env.engine.EnrollBasic(ctx, id, "vmd", PasswordDigest("pw")); return err },
		func() error { _, err := env.engine.EnrollEmail(ctx, id, "vmd@example.com"); return err },
		func() error { _, err := env.engine.EnrollPublicKey(ctx, id, pubPEM); return err },
		func() error { return env.engine.AddFactor(ctx, id, FactorTOTP) },
	}
	var wg sync.WaitGroup
	for _, op := range ops {
		wg.Add(1)
		go func(op func() error) {
			defer wg.Done()
			if err := op(); err != nil {
				t.Errorf("enroll: %v", err)
			}
		}(op)
	}
	wg.Wait()

	stored := env.reload(t, id.UID)
	want := factorSetOf(FactorBasic, FactorEmail, FactorSignature, FactorTOTP)
	if stored.Factors != want {
		t.Fatalf("factors %v, want %v", stored.Factors, want)
	}
	if stored.Username != "vmd" || stored.Email == "" || stored.PublicKey == "" {
		t.Fatalf("lost a field write: %+v", stored)
	}
	if env.engine.locks.Len() != 0 {
		t.Fatalf("expected lock table drained, got %d", env.engine.locks.Len())
	}
}
