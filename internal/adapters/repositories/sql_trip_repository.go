package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trip-planner/internal/domain"
	"trip-planner/internal/platform/obs"
)

// SQL-backed implementation of the TripSink port. A plan is written in one
// transaction: the run row, one row per trip and one row per visited point.
type SQLTripRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSQLTripRepository(db *sql.DB, d Dialect) *SQLTripRepository {
	return &SQLTripRepository{DB: db, Dialect: d}
}

func (s *SQLTripRepository) SaveTrips(ctx context.Context, plan *domain.Plan) (err error) {
	defer obs.Time(ctx, "trips.repo.SaveTrips")(&err)

	if s.DB == nil {
		return errors.New("trip repository: DB is nil")
	}
	if plan == nil || plan.RunID == "" {
		return errors.New("save trips: plan must have a run id")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save trips: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	d := s.Dialect
	runQuery := fmt.Sprintf(`
	INSERT INTO plan_runs (
		run_id,
		point_count,
		trip_count,
		total_distance,
		rounds,
		started_at,
		finished_at
	)
	VALUES (%s);
	`, d.binds(1, 7))
	if _, err := tx.ExecContext(ctx, runQuery,
		plan.RunID,
		plan.PointCount,
		len(plan.Trips),
		plan.TotalDistance,
		plan.Rounds,
		plan.StartedAt.UTC(),
		plan.FinishedAt.UTC(),
	); err != nil {
		return fmt.Errorf("save trips: insert run_id=%s: %w", plan.RunID, err)
	}

	tripStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
	INSERT INTO trips (run_id, seq, weight, distance)
	VALUES (%s);
	`, d.binds(1, 4)))
	if err != nil {
		return fmt.Errorf("save trips: prepare trip insert: %w", err)
	}
	defer tripStmt.Close()

	pointStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
	INSERT INTO trip_points (run_id, seq, position, point_id)
	VALUES (%s);
	`, d.binds(1, 4)))
	if err != nil {
		return fmt.Errorf("save trips: prepare trip point insert: %w", err)
	}
	defer pointStmt.Close()

	for _, t := range plan.Trips {
		if _, err := tripStmt.ExecContext(ctx, plan.RunID, t.Seq, t.Route.Weight, t.Route.Distance); err != nil {
			return fmt.Errorf("save trips: insert trip seq=%d: %w", t.Seq, err)
		}
		for pos, id := range t.Route.Points {
			if _, err := pointStmt.ExecContext(ctx, plan.RunID, t.Seq, pos, int(id)); err != nil {
				return fmt.Errorf("save trips: insert trip seq=%d point_id=%d: %w", t.Seq, id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save trips: commit tx: %w", err)
	}

	return nil
}

// LoadPlan returns the stored plan for runID with its trips in commit order.
func (s *SQLTripRepository) LoadPlan(ctx context.Context, runID string) (plan *domain.Plan, err error) {
	defer obs.Time(ctx, "trips.repo.LoadPlan")(&err)

	if s.DB == nil {
		return nil, errors.New("trip repository: DB is nil")
	}

	query := fmt.Sprintf(`
	SELECT point_count, total_distance, rounds, started_at, finished_at
	FROM plan_runs
	WHERE run_id = %s;
	`, s.Dialect.bind(1))

	plan = &domain.Plan{RunID: runID}
	err = s.DB.QueryRowContext(ctx, query, runID).Scan(
		&plan.PointCount,
		&plan.TotalDistance,
		&plan.Rounds,
		&plan.StartedAt,
		&plan.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load plan: run_id=%s: %w", runID, domain.ErrPlanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load plan: query run_id=%s: %w", runID, err)
	}

	plan.Trips, err = s.LoadTrips(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	return plan, nil
}

// LoadTrips returns the trips stored for runID in commit order.
func (s *SQLTripRepository) LoadTrips(ctx context.Context, runID string) ([]domain.Trip, error) {
	if s.DB == nil {
		return nil, errors.New("trip repository: DB is nil")
	}

	query := fmt.Sprintf(`
	SELECT t.seq, t.weight, t.distance, tp.point_id
	FROM trips t
	JOIN trip_points tp ON tp.run_id = t.run_id AND tp.seq = t.seq
	WHERE t.run_id = %s
	ORDER BY t.seq, tp.position;
	`, s.Dialect.bind(1))

	rows, err := s.DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("load trips: query run_id=%s: %w", runID, err)
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		var (
			seq, weight, pointID int
			distance             float64
		)
		if err := rows.Scan(&seq, &weight, &distance, &pointID); err != nil {
			return nil, fmt.Errorf("load trips: scan row: %w", err)
		}
		if n := len(trips); n == 0 || trips[n-1].Seq != seq {
			trips = append(trips, domain.Trip{Seq: seq, Route: domain.Route{Weight: weight, Distance: distance}})
		}
		last := &trips[len(trips)-1]
		last.Route.Points = append(last.Route.Points, domain.PointID(pointID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load trips: row iteration: %w", err)
	}

	return trips, nil
}
