// Package redisstore keeps identities and services in Redis.
//
// Layout, under a configurable prefix:
//
//	<prefix>:client:<uid>    hash of the identity's fields
//	<prefix>:factors:<uid>   set of enrolled factor names
//	<prefix>:apikey:<key>    uid owning an admission key
//	<prefix>:services        hash of service name to shared secret
//
// Creates, deletes, and single-field writes run as Lua scripts so each is
// atomic against concurrent writers on the same uid.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goFactor/identity"
)

const defaultPrefix = "gf"

const (
	fieldUID    = "uid"
	fieldAPIKey = "apikey"
	fieldSalt   = "salt"
)

// createLua inserts an identity unless its uid or admission key is taken.
// KEYS[1] = client hash, KEYS[2] = apikey index
// ARGV = uid, then field/value pairs
var createLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 or redis.call('EXISTS', KEYS[2]) == 1 then
  return {err='conflict'}
end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
redis.call('SET', KEYS[2], ARGV[1])
return 1
`)

// updateLua writes one field of an existing identity.
// KEYS[1] = client hash; ARGV[1] = field, ARGV[2] = value
var updateLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {err='not_found'}
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// setTOTPLua writes the TOTP key unless one is already stored.
// KEYS[1] = client hash; ARGV[1] = key
var setTOTPLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {err='not_found'}
end
local current = redis.call('HGET', KEYS[1], 'totp_key')
if current and current ~= '' then
  return 0
end
redis.call('HSET', KEYS[1], 'totp_key', ARGV[1])
return 1
`)

// addFactorLua adds one factor name to an existing identity's set.
// KEYS[1] = client hash, KEYS[2] = factor set; ARGV[1] = factor name
var addFactorLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {err='not_found'}
end
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

// deleteLua removes the identity and its admission key index.
// KEYS[1] = client hash, KEYS[2] = factor set; ARGV[1] = apikey index prefix
var deleteLua = redis.NewScript(`
local apikey = redis.call('HGET', KEYS[1], 'apikey')
if not apikey then
  return {err='not_found'}
end
redis.call('DEL', KEYS[1], KEYS[2], ARGV[1] .. apikey)
return 1
`)

// Store implements identity.Store and identity.ServiceStore.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

var (
	_ identity.Store        = (*Store)(nil)
	_ identity.ServiceStore = (*Store)(nil)
)

func New(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{redis: redisClient, prefix: prefix}
}

func (s *Store) clientKey(uid string) string { return s.prefix + ":client:" + uid }
func (s *Store) factorKey(uid string) string { return s.prefix + ":factors:" + uid }
func (s *Store) apiKeyKey(key string) string { return s.prefix + ":apikey:" + key }
func (s *Store) servicesKey() string { return s.prefix + ":services" }
func (s *Store) apiKeyPrefix() string { return s.prefix + ":apikey:" }

func (s *Store) Create(ctx context.Context, c identity.Client) error {
	if c.UID == "" || c.APIKey == "" {
		return identity.ErrInvalidField
	}
	args := []interface{}{c.UID, fieldUID, c.UID, fieldAPIKey, c.APIKey, fieldSalt, c.Salt}
	for _, f := range identity.Fields {
		v, _ := c.Get(f)
		args = append(args, f.Column(), v)
	}

	err := createLua.Run(ctx, s.redis, []string{s.clientKey(c.UID), s.apiKeyKey(c.APIKey)}, args...).Err()
	if err != nil {
		return mapScriptError(err)
	}
	if names := c.Factors.Names(); len(names) > 0 {
		members := make([]interface{}, len(names))
		for i, n := range names {
			members[i] = n
		}
		if err := s.redis.SAdd(ctx, s.factorKey(c.UID), members...).Err(); err != nil {
			return unavailable(err)
		}
	}
	return nil
}

func (s *Store) LookupByAdmissionKey(ctx context.Context, apiKey string) (identity.Client, error) {
	uid, err := s.redis.Get(ctx, s.apiKeyKey(apiKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return identity.Client{}, identity.ErrNotFound
		}
		return identity.Client{}, unavailable(err)
	}
	return s.LookupByID(ctx, uid)
}

func (s *Store) LookupByID(ctx context.Context, uid string) (identity.Client, error) {
	pipe := s.redis.Pipeline()
	fieldsCmd := pipe.HGetAll(ctx, s.clientKey(uid))
	factorsCmd := pipe.SMembers(ctx, s.factorKey(uid))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return identity.Client{}, unavailable(err)
	}

	fields := fieldsCmd.Val()
	if len(fields) == 0 {
		return identity.Client{}, identity.ErrNotFound
	}
	return decodeClient(fields, factorsCmd.Val())
}

func decodeClient(fields map[string]string, factorNames []string) (identity.Client, error) {
	c := identity.Client{
		UID:    fields[fieldUID],
		APIKey: fields[fieldAPIKey],
		Salt:   fields[fieldSalt],
	}
	for _, f := range identity.Fields {
		if err := c.Set(f, fields[f.Column()]); err != nil {
			return identity.Client{}, fmt.Errorf("%w: decode %s: %v", identity.ErrUnavailable, f, err)
		}
	}
	factors, err := identity.ParseFactorSet(factorNames)
	if err != nil {
		return identity.Client{}, fmt.Errorf("%w: %v", identity.ErrUnavailable, err)
	}
	c.Factors = factors
	return c, nil
}

func (s *Store) UpdateField(ctx context.Context, uid string, field identity.Field, value string) error {
	if !field.Valid() {
		return identity.ErrInvalidField
	}
	if field == identity.FieldEmailExpiry {
		if _, err := identity.ParseExpiry(value); err != nil {
			return err
		}
	}
	err := updateLua.Run(ctx, s.redis, []string{s.clientKey(uid)}, field.Column(), value).Err()
	return mapScriptError(err)
}

func (s *Store) SetTOTPKeyIfAbsent(ctx context.Context, uid, key string) (bool, error) {
	n, err := setTOTPLua.Run(ctx, s.redis, []string{s.clientKey(uid)}, key).Int()
	if err != nil {
		return false, mapScriptError(err)
	}
	return n == 1, nil
}

func (s *Store) AddFactor(ctx context.Context, uid string, factor identity.Factor) error {
	if !factor.Valid() {
		return identity.ErrUnknownFactor
	}
	err := addFactorLua.Run(ctx, s.redis, []string{s.clientKey(uid), s.factorKey(uid)}, factor.String()).Err()
	return mapScriptError(err)
}

func (s *Store) Delete(ctx context.Context, uid string) error {
	err := deleteLua.Run(ctx, s.redis, []string{s.clientKey(uid), s.factorKey(uid)}, s.apiKeyPrefix()).Err()
	return mapScriptError(err)
}

func (s *Store) LookupService(ctx context.Context, name string) (identity.Service, error) {
	secret, err := s.redis.HGet(ctx, s.servicesKey(), name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return identity.Service{}, identity.ErrNotFound
		}
		return identity.Service{}, unavailable(err)
	}
	return identity.Service{Name: name, SharedSecret: secret}, nil
}

func (s *Store) SaveService(ctx context.Context, svc identity.Service) error {
	if svc.Name == "" {
		return identity.ErrInvalidField
	}
	created, err := s.redis.HSetNX(ctx, s.servicesKey(), svc.Name, svc.SharedSecret).Result()
	if err != nil {
		return unavailable(err)
	}
	if !created {
		return identity.ErrConflict
	}
	return nil
}

func (s *Store) DeleteService(ctx context.Context, name string) error {
	n, err := s.redis.HDel(ctx, s.servicesKey(), name).Result()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func mapScriptError(err error) error {
	if err == nil {
		return nil
	}
	switch err.Error() {
	case "not_found":
		return identity.ErrNotFound
	case "conflict":
		return identity.ErrConflict
	default:
		return unavailable(err)
	}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", identity.ErrUnavailable, err)
}
