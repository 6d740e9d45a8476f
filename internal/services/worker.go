package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"trip-planner/internal/domain"
)

// Worker searches routes for the starting points it is assigned.
//
// It owns a private ProximityGraph that it rearranges from the committed trips
// carried by each batch, so no graph state is shared between workers. The
// only shared resource is the route cache behind CachedRoutes.
type Worker struct {
	ID int

	points []domain.Point
	depth  int
	base   *ProximityGraph
	opts   SearchOptions
	routes *CachedRoutes

	graph     *ProximityGraph
	search    *RouteSearch
	applied   int // committed trips already arranged into graph
	committed map[domain.PointID]struct{}
	allIDs    []domain.PointID
}

func NewWorker(id int, points []domain.Point, depth int, opts SearchOptions, routes *CachedRoutes) *Worker {
	return &Worker{
		ID:        id,
		points:    points,
		depth:     depth,
		opts:      opts,
		routes:    routes,
		committed: make(map[domain.PointID]struct{}),
	}
}

// NewWorkerFromGraph returns a worker that starts from a private copy of base
// instead of building its own graph.
func NewWorkerFromGraph(id int, base *ProximityGraph, opts SearchOptions, routes *CachedRoutes) *Worker {
	return &Worker{
		ID:        id,
		depth:     base.Depth(),
		base:      base,
		opts:      opts,
		routes:    routes,
		committed: make(map[domain.PointID]struct{}),
	}
}

// Prepare builds the worker's proximity graph. Run calls it before announcing
// readiness.
func (w *Worker) Prepare() {
	if w.graph != nil {
		return
	}
	if w.base != nil {
		w.graph = w.base.Clone()
	} else {
		w.graph = NewProximityGraph(w.points, w.depth)
	}
	w.search = NewRouteSearch(w.graph, w.opts)
}

// Run prepares the worker, reports PREPARED and then processes batches from
// inbox until it is closed or ctx is done.
func (w *Worker) Run(ctx context.Context, inbox <-chan WorkBatch, out chan<- WorkerMessage) error {
	w.Prepare()
	log.Printf("worker started: id=%d points=%d depth=%d", w.ID, w.graph.Len(), w.graph.Depth())

	if !w.send(ctx, out, WorkerMessage{WorkerID: w.ID, Type: MessagePrepared}) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-inbox:
			if !ok {
				return nil
			}
			if !w.send(ctx, out, w.Process(ctx, batch)) {
				return nil
			}
		}
	}
}

// Process runs the route search for every point of batch and returns the best
// route found among them.
func (w *Worker) Process(ctx context.Context, batch WorkBatch) WorkerMessage {
	w.Prepare()
	w.sync(batch.CommittedSoFar)

	msg := WorkerMessage{
		WorkerID: w.ID,
		Type:     MessageData,
		RoundID:  batch.RoundID,
		PointIDs: batch.PointIDs,
	}

	starts := w.graph.SelectByIDs(batch.PointIDs)
	if skipped := len(batch.PointIDs) - len(starts); skipped > 0 {
		log.Printf("worker %d: skipping %d point(s) not in graph: round=%d batch=%v", w.ID, skipped, batch.RoundID, batch.PointIDs)
	}

	scope := RouteScope{
		Committed:  w.committed,
		Generation: len(batch.CommittedSoFar),
		Capacity:   w.opts.Capacity,
		Lookup:     w.graph.Point,
	}
	var best *domain.Route
	for _, p := range starts {
		if err := ctx.Err(); err != nil {
			msg.Type = MessageError
			msg.Error = err.Error()
			return msg
		}

		id := p.ID
		route, err := w.routes.BestFrom(ctx, id, scope, func() (domain.Route, error) {
			return w.search.FindBestRoute(p, w.committed)
		})
		if err != nil {
			var de *domain.DataError
			if errors.As(err, &de) {
				log.Printf("worker %d: data error: %v", w.ID, de)
			}
			msg.Type = MessageError
			msg.Error = fmt.Sprintf("worker %d: point %d: %v", w.ID, id, err)
			return msg
		}

		if best == nil || domain.Better(route, *best) {
			r := route
			best = &r
		}
	}

	msg.BestRoute = best
	return msg
}

// sync arranges the graph for trips committed since the last batch.
func (w *Worker) sync(committedSoFar [][]domain.PointID) {
	for ; w.applied < len(committedSoFar); w.applied++ {
		trip := committedSoFar[w.applied]
		for _, id := range trip {
			w.committed[id] = struct{}{}
		}
		w.allIDs = append(w.allIDs, trip...)
		w.graph.Arrange(trip, w.allIDs)
	}
}

func (w *Worker) send(ctx context.Context, out chan<- WorkerMessage, msg WorkerMessage) bool {
	select {
	case out <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}
