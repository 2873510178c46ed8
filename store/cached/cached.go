// Package cached fronts a service registry with an in-process cache.
//
// Service secrets change rarely and are read on every token issue and
// verify. Lookups are cached for a TTL, concurrent misses for one name are
// collapsed into a single backend call, and misses are not cached so a newly
// registered service is visible immediately.
package cached

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/MrEthical07/goFactor/identity"
)

const defaultTTL = time.Minute

// Registry caches LookupService results of the wrapped registry. When the
// wrapped registry is an identity.ServiceStore, writes pass through and
// invalidate the cached entry.
type Registry struct {
	next  identity.ServiceRegistry
	cache *gocache.Cache
	sf    singleflight.Group
}

var _ identity.ServiceStore = (*Registry)(nil)

// New wraps next. A non-positive ttl uses one minute.
func New(next identity.ServiceRegistry, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Registry{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *Registry) LookupService(ctx context.Context, name string) (identity.Service, error) {
	if v, ok := r.cache.Get(name); ok {
		return v.(identity.Service), nil
	}

	v, err, _ := r.sf.Do(name, func() (interface{}, error) {
		if v, ok := r.cache.Get(name); ok {
			return v.(identity.Service), nil
		}
		svc, err := r.next.LookupService(ctx, name)
		if err != nil {
			return nil, err
		}
		r.cache.SetDefault(name, svc)
		return svc, nil
	})
	if err != nil {
		return identity.Service{}, err
	}
	return v.(identity.Service), nil
}

func (r *Registry) SaveService(ctx context.Context, svc identity.Service) error {
	store, ok := r.next.(identity.ServiceStore)
	if !ok {
		return identity.ErrInvalidField
	}
	if err := store.SaveService(ctx, svc); err != nil {
		return err
	}
	r.cache.Delete(svc.Name)
	return nil
}

func (r *Registry) DeleteService(ctx context.Context, name string) error {
	store, ok := r.next.(identity.ServiceStore)
	if !ok {
		return identity.ErrInvalidField
	}
	r.cache.Delete(name)
	return store.DeleteService(ctx, name)
}

// Invalidate drops name from the cache.
func (r *Registry) Invalidate(name string) {
	r.cache.Delete(name)
}

// Len returns the number of cached services.
func (r *Registry) Len() int {
	return r.cache.ItemCount()
}
