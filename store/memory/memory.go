// Package memory is an in-process identity and service store.
package memory

import (
	"context"
	"sync"

	"github.com/MrEthical07/goFactor/identity"
)

// Store keeps identities and services in maps guarded by one mutex. The
// zero value is not usable; call New.
type Store struct {
	mu       sync.RWMutex
	clients  map[string]identity.Client
	byAPIKey map[string]string
	services map[string]identity.Service
}

var (
	_ identity.Store        = (*Store)(nil)
	_ identity.ServiceStore = (*Store)(nil)
)

func New() *Store {
	return &Store{
		clients:  make(map[string]identity.Client),
		byAPIKey: make(map[string]string),
		services: make(map[string]identity.Service),
	}
}

func (s *Store) Create(ctx context.Context, c identity.Client) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.UID == "" || c.APIKey == "" {
		return identity.ErrInvalidField
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c.UID]; ok {
		return identity.ErrConflict
	}
	if _, ok := s.byAPIKey[c.APIKey]; ok {
		return identity.ErrConflict
	}
	s.clients[c.UID] = c
	s.byAPIKey[c.APIKey] = c.UID
	return nil
}

func (s *Store) LookupByAdmissionKey(ctx context.Context, apiKey string) (identity.Client, error) {
	if err := ctx.Err(); err != nil {
		return identity.Client{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	uid, ok := s.byAPIKey[apiKey]
	if !ok {
		return identity.Client{}, identity.ErrNotFound
	}
	return s.clients[uid], nil
}

func (s *Store) LookupByID(ctx context.Context, uid string) (identity.Client, error) {
	if err := ctx.Err(); err != nil {
		return identity.Client{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[uid]
	if !ok {
		return identity.Client{}, identity.ErrNotFound
	}
	return c, nil
}

func (s *Store) UpdateField(ctx context.Context, uid string, field identity.Field, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[uid]
	if !ok {
		return identity.ErrNotFound
	}
	if err := c.Set(field, value); err != nil {
		return err
	}
	s.clients[uid] = c
	return nil
}

func (s *Store) SetTOTPKeyIfAbsent(ctx context.Context, uid, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[uid]
	if !ok {
		return false, identity.ErrNotFound
	}
	if c.TOTPKey != "" {
		return false, nil
	}
	c.TOTPKey = key
	s.clients[uid] = c
	return true, nil
}

func (s *Store) AddFactor(ctx context.Context, uid string, factor identity.Factor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !factor.Valid() {
		return identity.ErrUnknownFactor
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[uid]
	if !ok {
		return identity.ErrNotFound
	}
	c.Factors = c.Factors.With(factor)
	s.clients[uid] = c
	return nil
}

func (s *Store) Delete(ctx context.Context, uid string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[uid]
	if !ok {
		return identity.ErrNotFound
	}
	delete(s.byAPIKey, c.APIKey)
	delete(s.clients, uid)
	return nil
}

func (s *Store) LookupService(ctx context.Context, name string) (identity.Service, error) {
	if err := ctx.Err(); err != nil {
		return identity.Service{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, ok := s.services[name]
	if !ok {
		return identity.Service{}, identity.ErrNotFound
	}
	return svc, nil
}

func (s *Store) SaveService(ctx context.Context, svc identity.Service) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if svc.Name == "" {
		return identity.ErrInvalidField
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[svc.Name]; ok {
		return identity.ErrConflict
	}
	s.services[svc.Name] = svc
	return nil
}

func (s *Store) DeleteService(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[name]; !ok {
		return identity.ErrNotFound
	}
	delete(s.services, name)
	return nil
}

// Len returns the number of stored identities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
