package ports

import (
	"context"
	"trip-planner/internal/domain"
)

// Contract for the key-value store shared by all workers, holding the best
// route last computed from each starting point.
//
// Implementations must be safe for concurrent use. No transactions are
// required; concurrent writers to the same key resolve as last-write-wins.
type RouteCache interface {
	// Return the cached route for id and whether one was present.
	Get(ctx context.Context, id domain.PointID) (domain.Route, bool, error)
	Set(ctx context.Context, id domain.PointID, route domain.Route) error
	Delete(ctx context.Context, id domain.PointID) error
}

// Optional extension for caches that can drop every entry, used to start a
// run from a clean slate.
type FlushableRouteCache interface {
	RouteCache
	Flush(ctx context.Context) error
}
