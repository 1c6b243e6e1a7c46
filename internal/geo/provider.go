// Package geo provides the spatial unit directory for the heatwatch service.
// Boundary and centroid provisioning is owned by an external collaborator;
// this package defines the contract and a read path backed by the service
// database, plus a process-lifetime cache with an explicit invalidation hook.
package geo

import (
	"context"
	"fmt"
	"sync"

	"heatwatch/internal/types"
)

// Provider returns the spatial units of a city. Implementations may fail or
// return an empty list; callers treat both as the absence of data.
type Provider interface {
	UnitsByCity(ctx context.Context, cityKey string) ([]types.SpatialUnit, error)
}

// UnitLister abstracts the database read the repository-backed provider needs.
type UnitLister interface {
	ListByCity(ctx context.Context, cityKey string) ([]types.SpatialUnit, error)
}

// RepositoryProvider is a Provider backed by the spatial_units table.
type RepositoryProvider struct {
	units UnitLister
}

// NewRepositoryProvider creates a Provider reading from the given repository.
func NewRepositoryProvider(units UnitLister) *RepositoryProvider {
	return &RepositoryProvider{units: units}
}

// UnitsByCity returns all units for the city key.
func (p *RepositoryProvider) UnitsByCity(ctx context.Context, cityKey string) ([]types.SpatialUnit, error) {
	units, err := p.units.ListByCity(ctx, cityKey)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamGeo,
			fmt.Sprintf("failed to load spatial units for %q", cityKey), err)
	}
	return units, nil
}

// CachedProvider decorates a Provider with a process-lifetime cache. Units
// are immutable once loaded, so entries never expire on their own; callers
// invalidate explicitly when the upstream directory changes.
type CachedProvider struct {
	inner Provider

	mu    sync.RWMutex
	cache map[string][]types.SpatialUnit
}

// NewCachedProvider creates a cache decorator around a Provider.
func NewCachedProvider(inner Provider) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		cache: make(map[string][]types.SpatialUnit),
	}
}

// UnitsByCity returns the cached units for a city, loading them through the
// inner provider on first access. Empty results are not cached so a city that
// has no units yet is retried on the next request.
func (p *CachedProvider) UnitsByCity(ctx context.Context, cityKey string) ([]types.SpatialUnit, error) {
	p.mu.RLock()
	units, ok := p.cache[cityKey]
	p.mu.RUnlock()
	if ok {
		return units, nil
	}

	units, err := p.inner.UnitsByCity(ctx, cityKey)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, nil
	}

	p.mu.Lock()
	p.cache[cityKey] = units
	p.mu.Unlock()

	return units, nil
}

// Invalidate drops the cached units for a city. The next request reloads
// through the inner provider.
func (p *CachedProvider) Invalidate(cityKey string) {
	p.mu.Lock()
	delete(p.cache, cityKey)
	p.mu.Unlock()
}
