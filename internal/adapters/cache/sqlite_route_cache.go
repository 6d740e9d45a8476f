package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"trip-planner/internal/domain"
)

// SQLite backed RouteCache. Workers of a single process share the handle;
// the WAL journal lets separate processes on one host share the file.
type SqliteRouteCache struct {
	DB *sql.DB
}

func NewSqliteRouteCache(db *sql.DB) *SqliteRouteCache {
	return &SqliteRouteCache{DB: db}
}

func (s *SqliteRouteCache) Get(ctx context.Context, id domain.PointID) (domain.Route, bool, error) {
	if s.DB == nil {
		return domain.Route{}, false, errors.New("route cache: db is nil")
	}

	var raw string
	err := s.DB.QueryRowContext(ctx, `SELECT route FROM route_cache WHERE point_id = ?;`, int(id)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Route{}, false, nil
	}
	if err != nil {
		return domain.Route{}, false, fmt.Errorf("get route cache: query route_cache table: %w", err)
	}

	var r domain.Route
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return domain.Route{}, false, fmt.Errorf("get route cache point_id=%d: decode: %w", id, err)
	}
	return r, true, nil
}

func (s *SqliteRouteCache) Set(ctx context.Context, id domain.PointID, route domain.Route) error {
	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}

	raw, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("insert route cache point_id=%d: encode: %w", id, err)
	}

	q := `
	INSERT OR REPLACE INTO route_cache (
		point_id,
		route
	)
	VALUES (?, ?);
	`
	if _, err := s.DB.ExecContext(ctx, q, int(id), string(raw)); err != nil {
		return fmt.Errorf("insert route cache point_id=%d: %w", id, err)
	}
	return nil
}

func (s *SqliteRouteCache) Delete(ctx context.Context, id domain.PointID) error {
	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM route_cache WHERE point_id = ?;`, int(id)); err != nil {
		return fmt.Errorf("delete route cache point_id=%d: %w", id, err)
	}
	return nil
}

func (s *SqliteRouteCache) Flush(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM route_cache;`); err != nil {
		return fmt.Errorf("flush route cache: %w", err)
	}
	return nil
}
