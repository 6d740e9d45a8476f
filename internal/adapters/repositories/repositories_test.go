package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"trip-planner/internal/domain"
	"trip-planner/internal/platform/db"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	sqlDB, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, InitSchema(context.Background(), sqlDB, SQLite))
	return sqlDB
}

func TestInitSchema_Idempotent(t *testing.T) {
	sqlDB := openTestDB(t)
	require.NoError(t, InitSchema(context.Background(), sqlDB, SQLite))
}

func TestInitSchema_NilDB(t *testing.T) {
	require.Error(t, InitSchema(context.Background(), nil, SQLite))
}

func TestDialect_Binds(t *testing.T) {
	require.Equal(t, "?, ?, ?", SQLite.binds(1, 3))
	require.Equal(t, "$2, $3", Postgres.binds(2, 2))
	require.Equal(t, "postgres", Postgres.String())
}

func TestSeedAndListPoints(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestDB(t)
	depot := domain.Coordinates{Lat: 0, Lon: 0}

	seed := []domain.Point{
		domain.NewPoint(3, 0, 2, 30, depot),
		domain.NewPoint(1, 0, 0, 10, depot),
		domain.NewPoint(2, 0, 1, 20, depot),
	}
	require.NoError(t, SeedPoints(ctx, sqlDB, SQLite, seed))

	// Reseeding replaces existing rows.
	seed[0].Weight = 35
	require.NoError(t, SeedPoints(ctx, sqlDB, SQLite, seed[:1]))

	repo := NewSQLPointRepository(sqlDB, SQLite, depot)
	points, err := repo.ListPoints(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.PointID{1, 2, 3}, domain.PointIDs(points))
	require.Equal(t, 35, points[2].Weight)
	require.InDelta(t, domain.Haversine(0, 2, 0, 0), points[2].DistanceFromBase, 1e-9)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestSeedPoints_RejectsNegativeWeight(t *testing.T) {
	sqlDB := openTestDB(t)
	err := SeedPoints(context.Background(), sqlDB, SQLite, []domain.Point{{ID: 1, Weight: -1}})
	require.ErrorContains(t, err, "negative weight")
}

func TestSaveAndLoadTrips(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestDB(t)
	repo := NewSQLTripRepository(sqlDB, SQLite)

	started := time.Date(2024, 12, 24, 6, 0, 0, 0, time.UTC)
	plan := &domain.Plan{
		RunID:      "7f9c0c1e-run",
		PointCount: 4,
		Trips: []domain.Trip{
			{Seq: 1, Route: domain.Route{Points: []domain.PointID{1, 2, 3}, Weight: 3, Distance: 444.5}},
			{Seq: 2, Route: domain.Route{Points: []domain.PointID{4}, Weight: 1, Distance: 100}},
		},
		TotalDistance: 544.5,
		Rounds:        2,
		StartedAt:     started,
		FinishedAt:    started.Add(time.Minute),
	}
	require.NoError(t, repo.SaveTrips(ctx, plan))

	trips, err := repo.LoadTrips(ctx, plan.RunID)
	require.NoError(t, err)
	require.Equal(t, plan.Trips, trips)

	var tripCount int
	require.NoError(t, sqlDB.QueryRowContext(ctx, `SELECT trip_count FROM plan_runs WHERE run_id = ?`, plan.RunID).Scan(&tripCount))
	require.Equal(t, 2, tripCount)

	stored, err := repo.LoadPlan(ctx, plan.RunID)
	require.NoError(t, err)
	require.Equal(t, plan.Trips, stored.Trips)
	require.Equal(t, 4, stored.PointCount)
	require.Equal(t, 2, stored.Rounds)
	require.InDelta(t, 544.5, stored.TotalDistance, 1e-9)
	require.True(t, stored.StartedAt.Equal(started), "started_at = %v", stored.StartedAt)

	_, err = repo.LoadPlan(ctx, "no-such-run")
	require.ErrorIs(t, err, domain.ErrPlanNotFound)

	// The same run cannot be stored twice.
	require.Error(t, repo.SaveTrips(ctx, plan))
}

func TestSaveTrips_RequiresRunID(t *testing.T) {
	repo := NewSQLTripRepository(openTestDB(t), SQLite)
	require.Error(t, repo.SaveTrips(context.Background(), &domain.Plan{}))
}
