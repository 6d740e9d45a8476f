package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"trip-planner/internal/domain"
	"trip-planner/internal/platform/obs"
	"trip-planner/internal/ports"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type PlanTripsRequest struct {
	GraphDepth        int
	Capacity          int
	Workers           int
	MaxItemsPerWorker int
	WorkerTimeout     time.Duration
	MaxBranches       int
	MaxTripPoints     int
	RoundSampleSize   int
	SampleSeed        int64
	FlushCache        bool
	// TickInterval overrides the coordinator's liveness tick. Zero picks a
	// fraction of WorkerTimeout.
	TickInterval time.Duration
}

// PlanTrips loads every point from source, runs the coordinator and a pool of
// workers until each point belongs to exactly one trip, and validates the
// result. Nothing is returned on a validation failure.
func PlanTrips(
	ctx context.Context,
	req PlanTripsRequest,
	source ports.PointSource,
	cache ports.RouteCache,
	reporter ports.ProgressReporter,
) (plan *domain.Plan, err error) {
	runID := uuid.NewString()
	ctx = obs.WithRunID(ctx, runID)
	defer obs.Time(ctx, "plan_trips")(&err)

	if req.Workers < 1 {
		return nil, fmt.Errorf("plan trips: workers must be positive, got %d", req.Workers)
	}
	if req.GraphDepth < 1 {
		return nil, fmt.Errorf("plan trips: graph depth must be positive, got %d", req.GraphDepth)
	}

	points, err := source.ListPoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("plan trips: list points: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("plan trips: %w", err)
	}

	started := time.Now()
	plan = &domain.Plan{RunID: runID, PointCount: len(points), StartedAt: started}
	if len(points) == 0 {
		plan.FinishedAt = time.Now()
		return plan, nil
	}

	seen := make(map[domain.PointID]struct{}, len(points))
	for _, p := range points {
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("plan trips: point_id=%d appears more than once", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Weight > req.Capacity {
			return nil, fmt.Errorf("plan trips: %w", &domain.DataError{PointID: p.ID, Weight: p.Weight, Capacity: req.Capacity})
		}
	}

	if fc, ok := cache.(ports.FlushableRouteCache); ok && req.FlushCache {
		if err := fc.Flush(ctx); err != nil {
			return nil, fmt.Errorf("plan trips: flush route cache: %w", err)
		}
	}

	log.Printf("planning started: run_id=%s points=%d workers=%d depth=%d capacity=%d",
		runID, len(points), req.Workers, req.GraphDepth, req.Capacity)

	res, err := runPool(ctx, req, points, cache, reporter)
	if err != nil {
		return nil, fmt.Errorf("plan trips: %w", err)
	}

	if err := ValidateTrips(points, res.Trips, req.Capacity); err != nil {
		return nil, fmt.Errorf("plan trips: %w", err)
	}

	plan.Trips = res.Trips
	plan.TotalDistance = res.TotalDistance
	plan.Rounds = res.Rounds
	plan.FinishedAt = time.Now()

	log.Printf("planning finished: run_id=%s trips=%d distance_km=%.3f rounds=%d",
		runID, len(plan.Trips), plan.TotalDistance, plan.Rounds)
	return plan, nil
}

// runPool starts the workers and the coordinator under one errgroup. Worker
// inboxes are closed once the coordinator returns, and the group context is
// cancelled so workers blocked on a send unwind.
func runPool(
	ctx context.Context,
	req PlanTripsRequest,
	points []domain.Point,
	cache ports.RouteCache,
	reporter ports.ProgressReporter,
) (CoordinatorResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	opts := SearchOptions{
		Capacity:      req.Capacity,
		MaxBranches:   req.MaxBranches,
		MaxTripPoints: req.MaxTripPoints,
	}
	routes := NewCachedRoutes(cache)
	results := make(chan WorkerMessage, req.Workers)

	// Built once; every worker rearranges its own copy.
	base := NewProximityGraph(points, req.GraphDepth)

	handles := make([]WorkerHandle, 0, req.Workers)
	inboxes := make([]chan WorkBatch, 0, req.Workers)
	for i := 1; i <= req.Workers; i++ {
		inbox := make(chan WorkBatch, 1)
		inboxes = append(inboxes, inbox)
		handles = append(handles, WorkerHandle{ID: i, Inbox: inbox})

		w := NewWorkerFromGraph(i, base, opts, routes)
		g.Go(func() error {
			return w.Run(gctx, inbox, results)
		})
	}

	tick := req.TickInterval
	if tick <= 0 {
		tick = time.Second
		if req.WorkerTimeout > 0 && req.WorkerTimeout/4 < tick {
			tick = req.WorkerTimeout / 4
		}
	}

	ids := domain.PointIDs(points)
	var res CoordinatorResult
	g.Go(func() error {
		defer cancel()
		defer func() {
			for _, inbox := range inboxes {
				close(inbox)
			}
		}()

		coord := NewCoordinator(CoordinatorConfig{
			MaxItemsPerWorker: req.MaxItemsPerWorker,
			WorkerTimeout:     req.WorkerTimeout,
			RoundSampleSize:   req.RoundSampleSize,
			SampleSeed:        req.SampleSeed,
			TickInterval:      tick,
		}, ids, handles, results, reporter)

		var err error
		res, err = coord.Run(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return CoordinatorResult{}, err
	}
	return res, nil
}
