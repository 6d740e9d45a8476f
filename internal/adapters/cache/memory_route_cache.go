package cache

import (
	"context"
	"sync"

	"trip-planner/internal/domain"
)

// MemoryRouteCache is a process-local RouteCache. It is shared by the
// in-process workers of a single run.
type MemoryRouteCache struct {
	mu     sync.RWMutex
	routes map[domain.PointID]domain.Route
}

func NewMemoryRouteCache() *MemoryRouteCache {
	return &MemoryRouteCache{routes: make(map[domain.PointID]domain.Route)}
}

func (m *MemoryRouteCache) Get(_ context.Context, id domain.PointID) (domain.Route, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.routes[id]
	if !ok {
		return domain.Route{}, false, nil
	}
	return r.Clone(), true, nil
}

func (m *MemoryRouteCache) Set(_ context.Context, id domain.PointID, route domain.Route) error {
	m.mu.Lock()
	m.routes[id] = route.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryRouteCache) Delete(_ context.Context, id domain.PointID) error {
	m.mu.Lock()
	delete(m.routes, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryRouteCache) Flush(_ context.Context) error {
	m.mu.Lock()
	clear(m.routes)
	m.mu.Unlock()
	return nil
}

// Len returns the number of cached routes.
func (m *MemoryRouteCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.routes)
}
