package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trip-planner/internal/domain"
	"trip-planner/internal/platform/obs"
)

// SQL-backed implementation of the PointSource port. Depot is used to derive
// each point's distance from base.
type SQLPointRepository struct {
	DB      *sql.DB
	Dialect Dialect
	Depot   domain.Coordinates
}

func NewSQLPointRepository(db *sql.DB, d Dialect, depot domain.Coordinates) *SQLPointRepository {
	return &SQLPointRepository{DB: db, Dialect: d, Depot: depot}
}

// Return all points stored in the database ordered by id.
func (s *SQLPointRepository) ListPoints(ctx context.Context) (_ []domain.Point, err error) {
	defer obs.Time(ctx, "points.repo.ListPoints")(&err)

	if s.DB == nil {
		return nil, fmt.Errorf("%s point repository: DB is nil", s.Dialect)
	}

	query := `
	SELECT
		point_id,
		lat,
		lon,
		weight
	FROM points
	ORDER BY point_id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list points: query points table: %w", err)
	}
	defer rows.Close()

	points := make([]domain.Point, 0, 1024)
	for rows.Next() {
		var (
			id       int
			lat, lon float64
			weight   int
		)
		if err := rows.Scan(&id, &lat, &lon, &weight); err != nil {
			return nil, fmt.Errorf("list points: scan row: %w", err)
		}
		points = append(points, domain.NewPoint(domain.PointID(id), lat, lon, weight, s.Depot))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list points: row iteration: %w", err)
	}

	return points, nil
}

// Count returns the number of stored points.
func (s *SQLPointRepository) Count(ctx context.Context) (int, error) {
	if s.DB == nil {
		return 0, errors.New("point repository: DB is nil")
	}

	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM points;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return n, nil
}
