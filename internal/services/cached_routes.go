package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"trip-planner/internal/domain"
	"trip-planner/internal/platform/metrics"
	"trip-planner/internal/ports"

	"golang.org/x/sync/singleflight"
)

// CachedRoutes memoizes the best route per starting point on top of a shared
// RouteCache.
//
// A cached route is only trusted when it fits the caller's RouteScope: every
// point is known to the caller with the same weights, none has been committed
// since the route was written and the load fits capacity. Anything else is
// deleted and recomputed. Cache transport failures are logged and treated as
// misses.
//
// Concurrent recomputations of the same point at the same commit generation
// are coalesced; across processes they simply race and the last write wins.
type CachedRoutes struct {
	cache ports.RouteCache
	group singleflight.Group
}

// RouteScope is what a cached route is checked against before it is reused.
type RouteScope struct {
	Committed map[domain.PointID]struct{}
	// Generation identifies the committed set (number of trips committed) and
	// scopes coalescing of concurrent computations.
	Generation int
	// Capacity bounds the route weight. Zero skips the check.
	Capacity int
	// Lookup resolves the points of the current run. Nil accepts any id.
	Lookup func(domain.PointID) (*domain.Point, bool)
}

func NewCachedRoutes(cache ports.RouteCache) *CachedRoutes {
	return &CachedRoutes{cache: cache}
}

// BestFrom returns the best route starting at id within scope.
func (c *CachedRoutes) BestFrom(
	ctx context.Context,
	id domain.PointID,
	scope RouteScope,
	compute func() (domain.Route, error),
) (domain.Route, error) {
	if c.cache != nil {
		route, ok, err := c.cache.Get(ctx, id)
		switch {
		case err != nil:
			metrics.CacheLookups.WithLabelValues("error").Inc()
			log.Printf("route cache read failed: point=%d err=%v", id, err)
		case ok && isStale(route, id, scope):
			metrics.CacheLookups.WithLabelValues("stale").Inc()
			if err := c.cache.Delete(ctx, id); err != nil {
				log.Printf("route cache invalidate failed: point=%d err=%v", id, err)
			}
		case ok:
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return route, nil
		default:
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	key := fmt.Sprintf("%d:%d", scope.Generation, id)
	v, err, _ := c.group.Do(key, func() (any, error) {
		start := time.Now()
		route, err := compute()
		metrics.SearchDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
		if err != nil {
			return domain.Route{}, err
		}

		if c.cache != nil {
			if err := c.cache.Set(ctx, id, route); err != nil {
				log.Printf("route cache write failed: point=%d err=%v", id, err)
			}
		}
		return route, nil
	})
	if err != nil {
		return domain.Route{}, err
	}

	return v.(domain.Route).Clone(), nil
}

// isStale reports whether a cached route can no longer be trusted. Entries
// left over from a run over other points or another capacity are stale too.
func isStale(route domain.Route, id domain.PointID, scope RouteScope) bool {
	if len(route.Points) == 0 || route.Points[0] != id {
		return true
	}
	if route.Intersects(scope.Committed) {
		return true
	}
	if scope.Capacity > 0 && route.Weight > scope.Capacity {
		return true
	}
	if scope.Lookup == nil {
		return false
	}

	seen := make(map[domain.PointID]struct{}, len(route.Points))
	weight := 0
	for _, pid := range route.Points {
		if _, dup := seen[pid]; dup {
			return true
		}
		seen[pid] = struct{}{}
		p, ok := scope.Lookup(pid)
		if !ok {
			return true
		}
		weight += p.Weight
	}
	return weight != route.Weight
}
