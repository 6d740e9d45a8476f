package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"trip-planner/internal/domain"
	"trip-planner/internal/platform/obs"
)

// CSVTripSink writes a plan as <points>-<trips>-<distance>.csv under Dir, one
// trip per line with point ids separated by ';'.
type CSVTripSink struct {
	Dir string

	// LastPath is the file written by the most recent SaveTrips call.
	LastPath string
}

func NewCSVTripSink(dir string) *CSVTripSink {
	return &CSVTripSink{Dir: dir}
}

// FileName returns the solution file name for plan.
func FileName(plan *domain.Plan) string {
	return fmt.Sprintf("%d-%d-%s.csv",
		plan.PointCount,
		len(plan.Trips),
		strconv.FormatFloat(plan.TotalDistance, 'f', 3, 64),
	)
}

func (s *CSVTripSink) SaveTrips(ctx context.Context, plan *domain.Plan) (err error) {
	defer obs.Time(ctx, "trips.csv.SaveTrips")(&err)

	if plan == nil {
		return errors.New("write solution: plan is nil")
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("write solution: create dir %q: %w", s.Dir, err)
	}

	path := filepath.Join(s.Dir, FileName(plan))
	tmp, err := os.CreateTemp(s.Dir, ".solution-*.csv")
	if err != nil {
		return fmt.Errorf("write solution: create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	w.Comma = ';'
	for i, ids := range plan.TripPointIDs() {
		record := make([]string, 0, len(ids))
		for _, id := range ids {
			record = append(record, id.String())
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write solution: trip #%d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write solution: flush: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write solution: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write solution: rename to %q: %w", path, err)
	}

	s.LastPath = path
	return nil
}
