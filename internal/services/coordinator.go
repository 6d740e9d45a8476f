package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"slices"
	"strconv"
	"time"

	"trip-planner/internal/domain"
	"trip-planner/internal/platform/metrics"
	"trip-planner/internal/ports"
)

// ErrNoLiveWorkers is returned when every worker has been presumed failed.
var ErrNoLiveWorkers = errors.New("no live workers left")

type CoordinatorConfig struct {
	MaxItemsPerWorker int
	// WorkerTimeout bounds how long a dispatched batch may stay unanswered
	// before it is reassigned. Zero disables the check.
	WorkerTimeout time.Duration
	// RoundSampleSize limits how many uncommitted points, drawn at random,
	// start a round. Zero means every uncommitted point.
	RoundSampleSize int
	// SampleSeed seeds round sampling. Zero seeds from the clock.
	SampleSeed int64
	// TickInterval drives liveness checks and boot progress logs.
	TickInterval time.Duration
}

// WorkerHandle is the coordinator's end of a worker's inbox.
type WorkerHandle struct {
	ID    int
	Inbox chan<- WorkBatch
}

// CoordinatorResult is the committed output of a completed run.
type CoordinatorResult struct {
	Trips         []domain.Trip
	TotalDistance float64
	Rounds        int
}

// Coordinator runs the round loop: it dispatches every uncommitted point as a
// search start, waits until all of them have reported, commits the single
// best route as a trip and starts the next round until every point is
// committed.
type Coordinator struct {
	cfg      CoordinatorConfig
	all      []domain.PointID
	workers  []WorkerHandle
	results  <-chan WorkerMessage
	reporter ports.ProgressReporter
	now      func() time.Time
	rng      *rand.Rand

	known         map[domain.PointID]struct{}
	failed        []bool
	allFailedAt   time.Time
	round         *RoundState
	roundSeq      int
	committed     map[domain.PointID]struct{}
	tripIDs       [][]domain.PointID
	trips         []domain.Trip
	totalDistance float64
}

func NewCoordinator(
	cfg CoordinatorConfig,
	pointIDs []domain.PointID,
	workers []WorkerHandle,
	results <-chan WorkerMessage,
	reporter ports.ProgressReporter,
) *Coordinator {
	if cfg.MaxItemsPerWorker < 1 {
		cfg.MaxItemsPerWorker = 1
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	seed := cfg.SampleSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	all := slices.Clone(pointIDs)
	slices.Sort(all)

	return &Coordinator{
		cfg:       cfg,
		all:       all,
		workers:   workers,
		results:   results,
		reporter:  reporter,
		now:       time.Now,
		rng:       rand.New(rand.NewSource(seed)),
		known:     toSet(all),
		failed:    make([]bool, len(workers)),
		committed: make(map[domain.PointID]struct{}, len(all)),
	}
}

// Run blocks until every point is committed, ctx is done or a fatal error
// occurs. Batches are dispatched only after every worker reported PREPARED.
func (c *Coordinator) Run(ctx context.Context) (CoordinatorResult, error) {
	if len(c.workers) == 0 {
		return CoordinatorResult{}, errors.New("coordinator: no workers")
	}

	if err := c.awaitPrepared(ctx); err != nil {
		return CoordinatorResult{}, fmt.Errorf("coordinator: %w", err)
	}

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return CoordinatorResult{}, err
		}
		if c.round == nil {
			if len(c.committed) == len(c.all) {
				c.report(domain.ProgressEvent{Kind: domain.ProgressDone})
				return CoordinatorResult{Trips: c.trips, TotalDistance: c.totalDistance, Rounds: c.roundSeq}, nil
			}
			c.startRound()
		}

		if err := c.dispatch(ctx); err != nil {
			return CoordinatorResult{}, fmt.Errorf("coordinator: round %d: %w", c.round.ID, err)
		}

		select {
		case <-ctx.Done():
			return CoordinatorResult{}, ctx.Err()
		case msg, ok := <-c.results:
			if !ok {
				return CoordinatorResult{}, errors.New("coordinator: result channel closed")
			}
			if err := c.handle(msg); err != nil {
				return CoordinatorResult{}, fmt.Errorf("coordinator: round %d: %w", c.round.ID, err)
			}
		case <-ticker.C:
			if err := c.checkLiveness(); err != nil {
				return CoordinatorResult{}, fmt.Errorf("coordinator: round %d: %w", c.round.ID, err)
			}
		}
	}
}

func (c *Coordinator) awaitPrepared(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	prepared := make(map[int]struct{}, len(c.workers))
	for len(prepared) < len(c.workers) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-c.results:
			if !ok {
				return errors.New("result channel closed before workers were prepared")
			}
			switch msg.Type {
			case MessagePrepared:
				prepared[msg.WorkerID] = struct{}{}
			case MessageError:
				return fmt.Errorf("worker %d failed to start: %s", msg.WorkerID, msg.Error)
			}
		case <-ticker.C:
			log.Printf("still waiting for workers to initialize: prepared=%d total=%d", len(prepared), len(c.workers))
		}
	}

	log.Printf("all workers prepared: count=%d", len(c.workers))
	return nil
}

func (c *Coordinator) startRound() {
	c.roundSeq++

	uncommitted := make([]domain.PointID, 0, len(c.all)-len(c.committed))
	for _, id := range c.all {
		if _, ok := c.committed[id]; !ok {
			uncommitted = append(uncommitted, id)
		}
	}
	if n := c.cfg.RoundSampleSize; n > 0 && n < len(uncommitted) {
		uncommitted = c.sample(uncommitted, n)
	}

	status := make([]workerStatus, len(c.workers))
	for i, f := range c.failed {
		if f {
			status[i] = workerFailed
		}
	}

	c.round = newRoundState(c.roundSeq, uncommitted, status)

	metrics.RoundsStarted.Inc()
	metrics.RemainingPoints.Set(float64(len(c.all) - len(c.committed)))
	c.report(domain.ProgressEvent{Kind: domain.ProgressRoundStarted})
}

// dispatch hands batches to idle workers while work is queued.
func (c *Coordinator) dispatch(ctx context.Context) error {
	rs := c.round
	for len(rs.queued) > 0 {
		i, ok := rs.idleWorker()
		if !ok {
			break
		}

		batch := WorkBatch{
			RoundID:        rs.ID,
			WorkerID:       c.workers[i].ID,
			PointIDs:       rs.popBatch(c.cfg.MaxItemsPerWorker),
			CommittedSoFar: slices.Clone(c.tripIDs),
		}

		select {
		case c.workers[i].Inbox <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}

		rs.status[i] = workerBusy
		rs.inflight[i] = dispatch{batch: batch, sentAt: c.now()}
		metrics.BatchesDispatched.WithLabelValues(strconv.Itoa(c.workers[i].ID)).Inc()
	}

	return nil
}

// sample draws n ids at random from ids and returns them in ascending order.
func (c *Coordinator) sample(ids []domain.PointID, n int) []domain.PointID {
	out := slices.Clone(ids)
	for i := 0; i < n; i++ {
		j := i + c.rng.Intn(len(out)-i)
		out[i], out[j] = out[j], out[i]
	}
	out = out[:n]
	slices.Sort(out)
	return out
}

func (c *Coordinator) handle(msg WorkerMessage) error {
	rs := c.round
	i, ok := c.workerIndex(msg.WorkerID)
	if !ok {
		log.Printf("dropping message from unknown worker %d", msg.WorkerID)
		return nil
	}

	switch msg.Type {
	case MessagePrepared:
		return nil
	case MessageError:
		if c.failed[i] {
			log.Printf("ignoring error from failed worker %d: %s", msg.WorkerID, msg.Error)
			return nil
		}
		return errors.New(msg.Error)
	case MessageData:
	default:
		log.Printf("dropping message of unknown type %q from worker %d", msg.Type, msg.WorkerID)
		return nil
	}

	// A worker presumed failed was only slow. Its batch was requeued, so the
	// late result is dropped and the worker takes new work again.
	if c.failed[i] {
		log.Printf("worker %d recovered: late_round=%d round=%d", msg.WorkerID, msg.RoundID, rs.ID)
		c.failed[i] = false
		c.allFailedAt = time.Time{}
		if rs.status[i] == workerFailed {
			rs.status[i] = workerIdle
		}
		metrics.WorkersRecovered.Inc()
		return nil
	}

	d, busy := rs.inflight[i]
	if msg.RoundID != rs.ID || !busy || d.batch.RoundID != msg.RoundID {
		log.Printf("dropping stale result: worker=%d round=%d current_round=%d", msg.WorkerID, msg.RoundID, rs.ID)
		return nil
	}

	delete(rs.inflight, i)
	rs.status[i] = workerIdle
	if msg.BestRoute != nil {
		rs.candidates = append(rs.candidates, *msg.BestRoute)
	}
	rs.markReported(d.batch.PointIDs)

	c.report(domain.ProgressEvent{Kind: domain.ProgressBatchCompleted, WorkerID: msg.WorkerID})

	if rs.Complete() {
		return c.commit()
	}
	return nil
}

// commit picks the best candidate of the finished round and records it as a
// trip.
func (c *Coordinator) commit() error {
	rs := c.round
	best, ok := domain.BestRoute(rs.candidates)
	if !ok {
		return errors.New("round finished without any candidate route")
	}
	onRoute := make(map[domain.PointID]struct{}, len(best.Points))
	for _, id := range best.Points {
		if _, ok := c.known[id]; !ok {
			return fmt.Errorf("best route %v visits point %d outside this run", best, id)
		}
		if _, done := c.committed[id]; done {
			return fmt.Errorf("best route %v revisits committed point %d", best, id)
		}
		if _, dup := onRoute[id]; dup {
			return fmt.Errorf("best route %v visits point %d twice", best, id)
		}
		onRoute[id] = struct{}{}
	}

	for _, id := range best.Points {
		c.committed[id] = struct{}{}
	}
	c.tripIDs = append(c.tripIDs, best.Points)
	c.trips = append(c.trips, domain.Trip{Seq: rs.ID, Route: best})
	c.totalDistance += best.Distance

	metrics.TripsCommitted.Inc()
	metrics.CommittedDistanceKm.Add(best.Distance)
	metrics.RemainingPoints.Set(float64(len(c.all) - len(c.committed)))

	trip := best
	c.report(domain.ProgressEvent{Kind: domain.ProgressTripCommitted, Trip: &trip})
	c.round = nil
	return nil
}

// checkLiveness presumes workers with overdue batches failed and requeues
// their work. Once every worker is presumed failed and none has reported back
// within another WorkerTimeout, the run fails with ErrNoLiveWorkers.
func (c *Coordinator) checkLiveness() error {
	if c.cfg.WorkerTimeout <= 0 || c.round == nil {
		return nil
	}

	rs := c.round
	now := c.now()
	for i, d := range rs.inflight {
		if now.Sub(d.sentAt) < c.cfg.WorkerTimeout {
			continue
		}

		log.Printf("worker %d presumed failed: round=%d points=%v err=%v", c.workers[i].ID, rs.ID, d.batch.PointIDs, domain.ErrCoordinationTimeout)
		delete(rs.inflight, i)
		rs.status[i] = workerFailed
		c.failed[i] = true
		rs.requeue(d.batch.PointIDs)

		metrics.BatchesRequeued.Inc()
		c.report(domain.ProgressEvent{Kind: domain.ProgressBatchRequeued, WorkerID: c.workers[i].ID})
	}

	if rs.liveWorkers() > 0 {
		c.allFailedAt = time.Time{}
		return nil
	}
	if c.allFailedAt.IsZero() {
		c.allFailedAt = now
		return nil
	}
	if now.Sub(c.allFailedAt) >= c.cfg.WorkerTimeout {
		return ErrNoLiveWorkers
	}
	return nil
}

func (c *Coordinator) workerIndex(id int) (int, bool) {
	for i, w := range c.workers {
		if w.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (c *Coordinator) report(e domain.ProgressEvent) {
	if c.reporter == nil {
		return
	}
	e.At = c.now()
	e.CommittedPoints = len(c.committed)
	e.TotalPoints = len(c.all)
	e.TotalDistance = c.totalDistance
	if c.round != nil {
		e.Round = c.round.ID
		e.RoundSize = c.round.Size
		e.RoundRemaining = c.round.Remaining()
	}
	c.reporter.Report(e)
}
