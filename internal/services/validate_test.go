package services

import (
	"errors"
	"testing"

	"trip-planner/internal/domain"
)

func TestValidateTrips(t *testing.T) {
	points := equatorPoints(4, 2)
	trip := func(seq int, ids ...domain.PointID) domain.Trip {
		return domain.Trip{Seq: seq, Route: domain.Route{Points: ids}}
	}

	tests := []struct {
		name       string
		trips      []domain.Trip
		capacity   int
		missing    []domain.PointID
		duplicated []domain.PointID
		unknown    []domain.PointID
		overweight []int
	}{
		{
			name:     "valid",
			trips:    []domain.Trip{trip(1, 1, 2), trip(2, 3, 4)},
			capacity: 4,
		},
		{
			name:     "missing point",
			trips:    []domain.Trip{trip(1, 1, 2), trip(2, 4)},
			capacity: 4,
			missing:  []domain.PointID{3},
		},
		{
			name:       "point in two trips",
			trips:      []domain.Trip{trip(1, 1, 2), trip(2, 2, 3, 4)},
			capacity:   6,
			duplicated: []domain.PointID{2},
		},
		{
			name:     "unknown point",
			trips:    []domain.Trip{trip(1, 1, 2, 9), trip(2, 3, 4)},
			capacity: 6,
			unknown:  []domain.PointID{9},
		},
		{
			name:       "trip over capacity",
			trips:      []domain.Trip{trip(1, 1, 2, 3), trip(2, 4)},
			capacity:   4,
			overweight: []int{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTrips(points, tt.trips, tt.capacity)

			valid := tt.missing == nil && tt.duplicated == nil && tt.unknown == nil && tt.overweight == nil
			if valid {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !equalIDs(verr.Missing, tt.missing) {
				t.Fatalf("missing = %v, want %v", verr.Missing, tt.missing)
			}
			if !equalIDs(verr.Duplicated, tt.duplicated) {
				t.Fatalf("duplicated = %v, want %v", verr.Duplicated, tt.duplicated)
			}
			if !equalIDs(verr.Unknown, tt.unknown) {
				t.Fatalf("unknown = %v, want %v", verr.Unknown, tt.unknown)
			}
			if len(verr.Overweight) != len(tt.overweight) {
				t.Fatalf("overweight = %v, want %v", verr.Overweight, tt.overweight)
			}
		})
	}
}

func equalIDs(a, b []domain.PointID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
