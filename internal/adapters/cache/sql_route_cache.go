package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"trip-planner/internal/domain"
	"trip-planner/internal/platform/obs"
)

// SQLRouteCache is a Postgres-backed RouteCache. Routes are stored as JSON
// in the route_cache table keyed by starting point.
type SQLRouteCache struct {
	DB *sql.DB
}

func NewSQLRouteCache(db *sql.DB) *SQLRouteCache {
	return &SQLRouteCache{DB: db}
}

func (s *SQLRouteCache) Get(ctx context.Context, id domain.PointID) (domain.Route, bool, error) {
	if s.DB == nil {
		return domain.Route{}, false, errors.New("route cache: db is nil")
	}

	q := `
	SELECT route
	FROM route_cache
	WHERE point_id = $1;
	`

	var raw []byte
	err := s.DB.QueryRowContext(ctx, q, int(id)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Route{}, false, nil
	}
	if err != nil {
		return domain.Route{}, false, fmt.Errorf("get route cache: query route_cache table: %w", err)
	}

	var r domain.Route
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.Route{}, false, fmt.Errorf("get route cache point_id=%d: decode: %w", id, err)
	}
	return r, true, nil
}

func (s *SQLRouteCache) Set(ctx context.Context, id domain.PointID, route domain.Route) error {
	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}

	raw, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("insert route cache point_id=%d: encode: %w", id, err)
	}

	q := `
	INSERT INTO route_cache (point_id, route)
	VALUES ($1, $2)
	ON CONFLICT (point_id) DO UPDATE
	SET route = EXCLUDED.route;
	`
	if _, err := s.DB.ExecContext(ctx, q, int(id), raw); err != nil {
		return fmt.Errorf("insert route cache point_id=%d: %w", id, err)
	}
	return nil
}

func (s *SQLRouteCache) Delete(ctx context.Context, id domain.PointID) error {
	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM route_cache WHERE point_id = $1;`, int(id)); err != nil {
		return fmt.Errorf("delete route cache point_id=%d: %w", id, err)
	}
	return nil
}

func (s *SQLRouteCache) Flush(ctx context.Context) (err error) {
	defer obs.Time(ctx, "route.cache.Flush")(&err)

	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM route_cache;`); err != nil {
		return fmt.Errorf("flush route cache: %w", err)
	}
	return nil
}
