package goFactor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goFactor/mailer"
	"github.com/MrEthical07/goFactor/store/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	engine *Engine
	store  *memory.Store
	mail   *mailer.MemorySender
	clock  *fakeClock
}

// testConfig keeps argon2 at its floor so tests stay fast.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.MemoryKB = 8 * 1024
	cfg.Password.Time = 1
	return cfg
}

func newTestEnv(t *testing.T, mutate ...func(*Builder)) *testEnv {
	t.Helper()
	env := &testEnv{
		store: memory.New(),
		mail:  &mailer.MemorySender{},
		clock: newFakeClock(),
	}
	b := New().
		WithConfig(testConfig()).
		WithIdentityStore(env.store).
		WithServiceRegistry(env.store).
		WithMailer(env.mail).
		WithClock(env.clock.Now)
	for _, m := range mutate {
		m(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

func (env *testEnv) newIdentity(t *testing.T) ClientIdentity {
	t.Helper()
	id, err := env.engine.CreateIdentity(context.Background())
	if err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}
	return id
}

func (env *testEnv) reload(t *testing.T, uid string) ClientIdentity {
	t.Helper()
	c, err := env.store.LookupByID(context.Background(), uid)
	if err != nil {
		t.Fatalf("LookupByID: %v", err)
	}
	return c
}

// mutate flips the last character of s to a different valid hex digit.
func mutate(s string) string {
	b := []byte(s)
	if b[len(b)-1] == 'a' {
		b[len(b)-1] = 'b'
	} else {
		b[len(b)-1] = 'a'
	}
	return string(b)
}

func factorSetOf(factors ...AuthFactor) FactorSet {
	var s FactorSet
	for _, f := range factors {
		s = s.With(f)
	}
	return s
}
