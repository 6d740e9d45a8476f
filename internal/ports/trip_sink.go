package ports

import (
	"context"
	"trip-planner/internal/domain"
)

// Port: a destination for a validated plan.
type TripSink interface {
	SaveTrips(ctx context.Context, plan *domain.Plan) error
}

// Port: read access to plans stored by a TripSink. Returns an error wrapping
// domain.ErrPlanNotFound for unknown runs.
type PlanStore interface {
	LoadPlan(ctx context.Context, runID string) (*domain.Plan, error)
}

// Receives progress notifications from the coordinator. Implementations must
// not block.
type ProgressReporter interface {
	Report(event domain.ProgressEvent)
}
