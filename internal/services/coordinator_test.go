package services

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"trip-planner/internal/adapters/cache"
	"trip-planner/internal/domain"

	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (r *recordingReporter) Report(e domain.ProgressEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingReporter) count(kind domain.ProgressKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// scenarioPoints returns A(0,0) B(0,1) C(0,2) D(50,50), weight 1 each, as
// ids 1..4.
func scenarioPoints() []domain.Point {
	depot := domain.Coordinates{Lat: 0, Lon: 1}
	return []domain.Point{
		domain.NewPoint(1, 0, 0, 1, depot),
		domain.NewPoint(2, 0, 1, 1, depot),
		domain.NewPoint(3, 0, 2, 1, depot),
		domain.NewPoint(4, 50, 50, 1, depot),
	}
}

// startWorkers runs n real workers and returns their handles and the shared
// result channel.
func startWorkers(t *testing.T, ctx context.Context, n int, points []domain.Point, depth int, opts SearchOptions) ([]WorkerHandle, chan WorkerMessage) {
	t.Helper()

	routes := NewCachedRoutes(cache.NewMemoryRouteCache())
	results := make(chan WorkerMessage, n)
	handles := make([]WorkerHandle, 0, n)
	for i := 1; i <= n; i++ {
		inbox := make(chan WorkBatch, 1)
		handles = append(handles, WorkerHandle{ID: i, Inbox: inbox})
		w := NewWorker(i, points, depth, opts, routes)
		go func() { _ = w.Run(ctx, inbox, results) }()
	}
	return handles, results
}

// startStuckWorker announces readiness and then never answers.
func startStuckWorker(ctx context.Context, id int, results chan<- WorkerMessage) WorkerHandle {
	inbox := make(chan WorkBatch, 1)
	go func() {
		select {
		case results <- WorkerMessage{WorkerID: id, Type: MessagePrepared}:
		case <-ctx.Done():
		}
	}()
	return WorkerHandle{ID: id, Inbox: inbox}
}

func tripSets(trips []domain.Trip) [][]domain.PointID {
	out := make([][]domain.PointID, 0, len(trips))
	for _, t := range trips {
		out = append(out, t.Route.Points)
	}
	return out
}

func TestCoordinatorScenario(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	points := scenarioPoints()
	handles, results := startWorkers(t, ctx, 2, points, 3, SearchOptions{Capacity: 3})
	rep := &recordingReporter{}

	coord := NewCoordinator(CoordinatorConfig{MaxItemsPerWorker: 1, TickInterval: 10 * time.Millisecond},
		domain.PointIDs(points), handles, results, rep)
	res, err := coord.Run(ctx)
	require.NoError(t, err)

	require.Len(t, res.Trips, 2)
	require.Equal(t, 2, res.Rounds)
	require.ElementsMatch(t, []domain.PointID{1, 2, 3}, res.Trips[0].Route.Points)
	require.Equal(t, []domain.PointID{4}, res.Trips[1].Route.Points)
	require.Equal(t, 1, res.Trips[0].Seq)
	require.Equal(t, 2, res.Trips[1].Seq)
	require.InDelta(t, res.Trips[0].Route.Distance+res.Trips[1].Route.Distance, res.TotalDistance, 1e-9)

	require.NoError(t, ValidateTrips(points, res.Trips, 3))
	require.Equal(t, 2, rep.count(domain.ProgressRoundStarted))
	require.Equal(t, 2, rep.count(domain.ProgressTripCommitted))
	require.Equal(t, 1, rep.count(domain.ProgressDone))
	// Round one has four starts, round two has one.
	require.Equal(t, 5, rep.count(domain.ProgressBatchCompleted))
}

func TestCoordinatorCoversEveryPoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	points := equatorPoints(12, 2)
	points[5].Weight = 5
	handles, results := startWorkers(t, ctx, 3, points, 3, SearchOptions{Capacity: 7})

	coord := NewCoordinator(CoordinatorConfig{MaxItemsPerWorker: 2}, domain.PointIDs(points), handles, results, nil)
	res, err := coord.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, ValidateTrips(points, res.Trips, 7))
	require.Equal(t, len(res.Trips), res.Rounds)

	total := 0.0
	for _, trip := range res.Trips {
		total += trip.Route.Distance
	}
	require.InDelta(t, total, res.TotalDistance, 1e-6)
}

func TestCoordinatorRoundSampleSize(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	points := equatorPoints(6, 1)
	handles, results := startWorkers(t, ctx, 2, points, 2, SearchOptions{Capacity: 2})

	coord := NewCoordinator(CoordinatorConfig{MaxItemsPerWorker: 1, RoundSampleSize: 2, SampleSeed: 7}, domain.PointIDs(points), handles, results, nil)
	res, err := coord.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, ValidateTrips(points, res.Trips, 2))
}

func TestCoordinatorSamplesRoundStartsAtRandom(t *testing.T) {
	ids := []domain.PointID{1, 2, 3, 4, 5, 6}
	handles := []WorkerHandle{{ID: 1, Inbox: make(chan WorkBatch, 1)}}

	drawn := map[domain.PointID]struct{}{}
	for seed := int64(1); seed <= 20; seed++ {
		coord := NewCoordinator(CoordinatorConfig{RoundSampleSize: 2, SampleSeed: seed}, ids, handles, nil, nil)
		coord.startRound()

		require.Equal(t, 2, coord.round.Size)
		require.Len(t, coord.round.queued, 2)
		require.True(t, slices.IsSorted(coord.round.queued))
		require.NotEqual(t, coord.round.queued[0], coord.round.queued[1])
		for _, id := range coord.round.queued {
			require.Contains(t, ids, id)
			drawn[id] = struct{}{}
		}
	}
	require.Greater(t, len(drawn), 2, "samples always came from the lowest ids")

	// Same seed, same sample.
	a := NewCoordinator(CoordinatorConfig{RoundSampleSize: 3, SampleSeed: 42}, ids, handles, nil, nil)
	b := NewCoordinator(CoordinatorConfig{RoundSampleSize: 3, SampleSeed: 42}, ids, handles, nil, nil)
	a.startRound()
	b.startRound()
	require.Equal(t, a.round.queued, b.round.queued)
}

func TestCoordinatorRequeuesBatchOfStuckWorker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	points := scenarioPoints()
	handles, results := startWorkers(t, ctx, 1, points, 3, SearchOptions{Capacity: 3})
	handles = append(handles, startStuckWorker(ctx, 2, results))
	rep := &recordingReporter{}

	coord := NewCoordinator(CoordinatorConfig{
		MaxItemsPerWorker: 1,
		WorkerTimeout:     50 * time.Millisecond,
		TickInterval:      10 * time.Millisecond,
	}, domain.PointIDs(points), handles, results, rep)

	res, err := coord.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, ValidateTrips(points, res.Trips, 3))
	require.Equal(t, 1, rep.count(domain.ProgressBatchRequeued))
}

func TestCoordinatorFailsWithoutLiveWorkers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results := make(chan WorkerMessage, 1)
	handles := []WorkerHandle{startStuckWorker(ctx, 1, results)}

	coord := NewCoordinator(CoordinatorConfig{
		MaxItemsPerWorker: 1,
		WorkerTimeout:     30 * time.Millisecond,
		TickInterval:      10 * time.Millisecond,
	}, domain.PointIDs(scenarioPoints()), handles, results, nil)

	_, err := coord.Run(ctx)
	require.True(t, errors.Is(err, ErrNoLiveWorkers), "got %v", err)
}

func TestCoordinatorWorkerErrorIsFatal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	points := equatorPoints(3, 1)
	points[2].Weight = 50
	handles, results := startWorkers(t, ctx, 1, points, 2, SearchOptions{Capacity: 3})

	coord := NewCoordinator(CoordinatorConfig{MaxItemsPerWorker: 3}, domain.PointIDs(points), handles, results, nil)
	_, err := coord.Run(ctx)
	require.ErrorContains(t, err, "exceeding trip capacity")
}

func TestCoordinatorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	results := make(chan WorkerMessage)
	handles := []WorkerHandle{{ID: 1, Inbox: make(chan WorkBatch, 1)}}
	coord := NewCoordinator(CoordinatorConfig{}, []domain.PointID{1}, handles, results, nil)

	done := make(chan error, 1)
	go func() {
		_, err := coord.Run(ctx)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop after cancel")
	}
}

func TestCoordinatorDropsStaleResults(t *testing.T) {
	handles := []WorkerHandle{{ID: 1, Inbox: make(chan WorkBatch, 1)}}
	coord := NewCoordinator(CoordinatorConfig{}, []domain.PointID{1, 2}, handles, nil, nil)
	coord.startRound()
	require.NoError(t, coord.dispatch(context.Background()))

	stale := domain.Route{Points: []domain.PointID{1, 2}}
	require.NoError(t, coord.handle(WorkerMessage{WorkerID: 1, Type: MessageData, RoundID: 99, BestRoute: &stale}))
	require.Empty(t, coord.round.candidates)
	require.Equal(t, 2, coord.round.Remaining())

	// Unknown senders are ignored too.
	require.NoError(t, coord.handle(WorkerMessage{WorkerID: 7, Type: MessageData, RoundID: 1}))
}

func TestCoordinatorRejectsRouteOutsideRun(t *testing.T) {
	handles := []WorkerHandle{{ID: 1, Inbox: make(chan WorkBatch, 1)}}
	coord := NewCoordinator(CoordinatorConfig{MaxItemsPerWorker: 2}, []domain.PointID{1, 2}, handles, nil, nil)
	coord.startRound()
	require.NoError(t, coord.dispatch(context.Background()))

	foreign := domain.Route{Points: []domain.PointID{1, 99}, Weight: 2}
	err := coord.handle(WorkerMessage{WorkerID: 1, Type: MessageData, RoundID: 1, PointIDs: []domain.PointID{1, 2}, BestRoute: &foreign})
	require.ErrorContains(t, err, "visits point 99 outside this run")
	require.Empty(t, coord.committed)
	require.Empty(t, coord.trips)
}

func TestCoordinatorRejectsRouteRepeatingPoint(t *testing.T) {
	handles := []WorkerHandle{{ID: 1, Inbox: make(chan WorkBatch, 1)}}
	coord := NewCoordinator(CoordinatorConfig{MaxItemsPerWorker: 2}, []domain.PointID{1, 2}, handles, nil, nil)
	coord.startRound()
	require.NoError(t, coord.dispatch(context.Background()))

	looped := domain.Route{Points: []domain.PointID{1, 2, 1}, Weight: 3}
	err := coord.handle(WorkerMessage{WorkerID: 1, Type: MessageData, RoundID: 1, PointIDs: []domain.PointID{1, 2}, BestRoute: &looped})
	require.ErrorContains(t, err, "visits point 1 twice")
}

func TestCoordinatorRevivesLateWorker(t *testing.T) {
	inbox := make(chan WorkBatch, 1)
	handles := []WorkerHandle{{ID: 1, Inbox: inbox}}
	coord := NewCoordinator(CoordinatorConfig{MaxItemsPerWorker: 1, WorkerTimeout: time.Minute}, []domain.PointID{1, 2}, handles, nil, nil)

	clock := time.Unix(1_700_000_000, 0)
	coord.now = func() time.Time { return clock }

	coord.startRound()
	require.NoError(t, coord.dispatch(context.Background()))
	first := <-inbox
	require.Equal(t, []domain.PointID{1}, first.PointIDs)

	clock = clock.Add(2 * time.Minute)
	require.NoError(t, coord.checkLiveness())
	require.True(t, coord.failed[0])
	require.Equal(t, []domain.PointID{1, 2}, coord.round.queued)

	// The late answer is dropped but the worker is usable again.
	late := domain.Route{Points: []domain.PointID{1}, Weight: 1}
	require.NoError(t, coord.handle(WorkerMessage{WorkerID: 1, Type: MessageData, RoundID: 1, PointIDs: first.PointIDs, BestRoute: &late}))
	require.False(t, coord.failed[0])
	require.Empty(t, coord.round.candidates)
	require.Equal(t, 2, coord.round.Remaining())

	require.NoError(t, coord.dispatch(context.Background()))
	again := <-inbox
	require.Equal(t, []domain.PointID{1}, again.PointIDs)
	require.Equal(t, workerBusy, coord.round.status[0])
}

func TestCoordinatorWaitsForLateWorkersBeforeGivingUp(t *testing.T) {
	inbox := make(chan WorkBatch, 1)
	handles := []WorkerHandle{{ID: 1, Inbox: inbox}}
	coord := NewCoordinator(CoordinatorConfig{MaxItemsPerWorker: 1, WorkerTimeout: time.Minute}, []domain.PointID{1}, handles, nil, nil)

	clock := time.Unix(1_700_000_000, 0)
	coord.now = func() time.Time { return clock }

	coord.startRound()
	require.NoError(t, coord.dispatch(context.Background()))
	<-inbox

	clock = clock.Add(time.Minute)
	require.NoError(t, coord.checkLiveness())
	require.True(t, coord.failed[0])

	clock = clock.Add(30 * time.Second)
	require.NoError(t, coord.checkLiveness())

	clock = clock.Add(30 * time.Second)
	require.ErrorIs(t, coord.checkLiveness(), ErrNoLiveWorkers)
}
