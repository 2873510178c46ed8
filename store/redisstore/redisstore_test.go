package redisstore

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goFactor/identity"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "test"), mr
}

func sample() identity.Client {
	return identity.Client{UID: "u1", APIKey: "k1", Salt: "s1"}
}

func TestCreateAndLookup(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	c := sample()
	c.Email = "vmd@example.com"
	c.Factors = identity.NewFactorSet(identity.FactorEmail)
	require.NoError(t, s.Create(ctx, c))

	got, err := s.LookupByAdmissionKey(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, c, got)

	require.Equal(t, "u1", mr.HGet("test:client:u1", "uid"))
	require.ErrorIs(t, s.Create(ctx, c), identity.ErrConflict)

	other := identity.Client{UID: "u2", APIKey: "k1"}
	require.ErrorIs(t, s.Create(ctx, other), identity.ErrConflict)
}

func TestLookupMissing(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.LookupByID(ctx, "nope")
	require.ErrorIs(t, err, identity.ErrNotFound)
	_, err = s.LookupByAdmissionKey(ctx, "nope")
	require.ErrorIs(t, err, identity.ErrNotFound)
}

func TestUpdateField(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, sample()))

	require.NoError(t, s.UpdateField(ctx, "u1", identity.FieldTOTPKey, "JBSWY3DPEHPK3PXP"))
	require.NoError(t, s.UpdateField(ctx, "u1", identity.FieldEmailExpiry, "1700000900"))

	got, err := s.LookupByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "JBSWY3DPEHPK3PXP", got.TOTPKey)
	require.Equal(t, int64(1700000900), got.EmailExpiry)
	require.Equal(t, "s1", got.Salt)

	require.ErrorIs(t, s.UpdateField(ctx, "u1", identity.FieldEmailExpiry, "later"), identity.ErrInvalidField)
	require.ErrorIs(t, s.UpdateField(ctx, "u1", identity.Field(0), "x"), identity.ErrInvalidField)
	require.ErrorIs(t, s.UpdateField(ctx, "missing", identity.FieldEmail, "x"), identity.ErrNotFound)
}

func TestAddFactorConcurrent(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, sample()))

	var wg sync.WaitGroup
	for _, f := range identity.Factors {
		wg.Add(1)
		go func(f identity.Factor) {
			defer wg.Done()
			_ = s.AddFactor(ctx, "u1", f)
		}(f)
	}
	wg.Wait()

	got, err := s.LookupByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, identity.NewFactorSet(identity.Factors[:]...), got.Factors)
	require.ErrorIs(t, s.AddFactor(ctx, "missing", identity.FactorBasic), identity.ErrNotFound)
}

func TestUnknownFactorNameIsUnavailable(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, sample()))
	_, err := mr.SAdd("test:factors:u1", "Biometric")
	require.NoError(t, err)

	_, err = s.LookupByID(ctx, "u1")
	require.ErrorIs(t, err, identity.ErrUnavailable)
}

func TestDelete(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, sample()))
	require.NoError(t, s.AddFactor(ctx, "u1", identity.FactorBasic))

	require.NoError(t, s.Delete(ctx, "u1"))
	require.False(t, mr.Exists("test:client:u1"))
	require.False(t, mr.Exists("test:factors:u1"))
	require.False(t, mr.Exists("test:apikey:k1"))
	require.ErrorIs(t, s.Delete(ctx, "u1"), identity.ErrNotFound)
}

func TestServices(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	svc := identity.Service{Name: "billing", SharedSecret: "sec"}

	require.NoError(t, s.SaveService(ctx, svc))
	require.ErrorIs(t, s.SaveService(ctx, svc), identity.ErrConflict)

	got, err := s.LookupService(ctx, "billing")
	require.NoError(t, err)
	require.Equal(t, svc, got)

	require.NoError(t, s.DeleteService(ctx, "billing"))
	require.ErrorIs(t, s.DeleteService(ctx, "billing"), identity.ErrNotFound)
	_, err = s.LookupService(ctx, "billing")
	require.ErrorIs(t, err, identity.ErrNotFound)
}

func TestRedisDown(t *testing.T) {
	s, mr := newStore(t)
	mr.Close()

	_, err := s.LookupByID(context.Background(), "u1")
	require.ErrorIs(t, err, identity.ErrUnavailable)
	require.ErrorIs(t, s.UpdateField(context.Background(), "u1", identity.FieldEmail, "x"), identity.ErrUnavailable)
}

func TestSetTOTPKeyIfAbsent(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, sample()))

	set, err := s.SetTOTPKeyIfAbsent(ctx, "u1", "FIRST")
	require.NoError(t, err)
	require.True(t, set)

	set, err = s.SetTOTPKeyIfAbsent(ctx, "u1", "SECOND")
	require.NoError(t, err)
	require.False(t, set)
	require.Equal(t, "FIRST", mr.HGet("test:client:u1", "totp_key"))

	_, err = s.SetTOTPKeyIfAbsent(ctx, "nope", "FIRST")
	require.ErrorIs(t, err, identity.ErrNotFound)
}

func TestSetTOTPKeyIfAbsentConcurrent(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, sample()))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		errs []error
	)
	for _, key := range []string{"A", "B", "C", "D"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			set, err := s.SetTOTPKeyIfAbsent(ctx, "u1", key)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			if set {
				wins++
			}
		}(key)
	}
	wg.Wait()
	require.Empty(t, errs)
	require.Equal(t, 1, wins)
}
