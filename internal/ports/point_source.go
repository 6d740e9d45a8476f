package ports

import (
	"context"
	"trip-planner/internal/domain"
)

// Port: a boundary for retrieving Point entities from a data source.
type PointSource interface {
	// Retrieve every point to plan for, in source order.
	ListPoints(ctx context.Context) ([]domain.Point, error)
}
