package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"trip-planner/internal/domain"
)

// Dialect selects the placeholder and DDL flavour for a SQL backend.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// bind returns the placeholder for the n-th (1-based) query argument.
func (d Dialect) bind(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (d Dialect) binds(from, count int) string {
	ph := make([]string, 0, count)
	for i := 0; i < count; i++ {
		ph = append(ph, d.bind(from+i))
	}
	return strings.Join(ph, ", ")
}

func (d Dialect) realType() string {
	if d == Postgres {
		return "DOUBLE PRECISION"
	}
	return "REAL"
}

// Initialize the database schema for points, the route cache and plan runs.
func InitSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	num := d.realType()

	createPointsQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS points (
		point_id INTEGER PRIMARY KEY,
		lat %[1]s NOT NULL,
		lon %[1]s NOT NULL,
		weight INTEGER NOT NULL
	);
	`, num)

	createRouteCacheQuery := `
	CREATE TABLE IF NOT EXISTS route_cache (
		point_id INTEGER PRIMARY KEY,
		route TEXT NOT NULL
	);
	`

	createPlanRunsQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS plan_runs (
		run_id TEXT PRIMARY KEY,
		point_count INTEGER NOT NULL,
		trip_count INTEGER NOT NULL,
		total_distance %[1]s NOT NULL,
		rounds INTEGER NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL
	);
	`, num)

	createTripsQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS trips (
		run_id TEXT NOT NULL REFERENCES plan_runs(run_id),
		seq INTEGER NOT NULL,
		weight INTEGER NOT NULL,
		distance %[1]s NOT NULL,
		PRIMARY KEY (run_id, seq)
	);
	`, num)

	createTripPointsQuery := `
	CREATE TABLE IF NOT EXISTS trip_points (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		position INTEGER NOT NULL,
		point_id INTEGER NOT NULL,
		PRIMARY KEY (run_id, seq, position)
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_trip_points_point
	ON trip_points(point_id);
	`

	statements := []string{
		createPointsQuery,
		createRouteCacheQuery,
		createPlanRunsQuery,
		createTripsQuery,
		createTripPointsQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Populate the points table, replacing rows with the same id.
func SeedPoints(ctx context.Context, db *sql.DB, d Dialect, points []domain.Point) error {
	if db == nil {
		return errors.New("seed points: DB is nil")
	}

	for i, p := range points {
		if p.Weight < 0 {
			return fmt.Errorf("seed points: negative weight at index %d: point_id=%d", i+1, p.ID)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed points: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`
	INSERT INTO points (
		point_id,
		lat,
		lon,
		weight
	)
	VALUES (%s)
	ON CONFLICT (point_id) DO UPDATE
	SET lat = EXCLUDED.lat,
		lon = EXCLUDED.lon,
		weight = EXCLUDED.weight;
	`, d.binds(1, 4))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("seed points: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, int(p.ID), p.Lat, p.Lon, p.Weight); err != nil {
			return fmt.Errorf("seed points: insert point_id=%d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed points: commit tx: %w", err)
	}

	return nil
}
