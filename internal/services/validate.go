package services

import (
	"slices"

	"trip-planner/internal/domain"
)

// ValidateTrips checks that every point is visited exactly once across trips
// and that no trip exceeds capacity. It returns a *domain.ValidationError
// describing every violation, or nil.
func ValidateTrips(points []domain.Point, trips []domain.Trip, capacity int) error {
	byID := make(map[domain.PointID]domain.Point, len(points))
	for _, p := range points {
		byID[p.ID] = p
	}

	seen := make(map[domain.PointID]int, len(points))
	verr := &domain.ValidationError{}

	for _, t := range trips {
		load := domain.Load{Capacity: capacity}
		overweight := false
		for _, id := range t.Route.Points {
			seen[id]++
			p, ok := byID[id]
			if !ok {
				verr.Unknown = append(verr.Unknown, id)
				continue
			}
			if !overweight && load.Add(p) != nil {
				overweight = true
			}
		}
		if overweight {
			verr.Overweight = append(verr.Overweight, t.Seq)
		}
	}

	for _, p := range points {
		switch n := seen[p.ID]; {
		case n == 0:
			verr.Missing = append(verr.Missing, p.ID)
		case n > 1:
			verr.Duplicated = append(verr.Duplicated, p.ID)
		}
	}

	if len(verr.Missing)+len(verr.Duplicated)+len(verr.Unknown)+len(verr.Overweight) == 0 {
		return nil
	}
	slices.Sort(verr.Missing)
	slices.Sort(verr.Duplicated)
	slices.Sort(verr.Unknown)
	verr.Unknown = slices.Compact(verr.Unknown)
	return verr
}
