package progress

import (
	"log"
	"sync"
	"time"

	"trip-planner/internal/domain"

	"golang.org/x/time/rate"
)

// Snapshot is the latest known state of a planning run.
type Snapshot struct {
	Round           int       `json:"round"`
	RoundPercent    int       `json:"roundPercent"`
	CommittedPoints int       `json:"committedPoints"`
	TotalPoints     int       `json:"totalPoints"`
	Trips           int       `json:"trips"`
	TotalDistance   float64   `json:"totalDistance"`
	Requeued        int       `json:"requeued"`
	Done            bool      `json:"done"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Tracker records progress events, logs them and fans them out to
// subscribers. Report never blocks: slow subscribers miss events.
type Tracker struct {
	mu   sync.Mutex
	snap Snapshot
	subs map[chan domain.ProgressEvent]struct{}
	plan *domain.Plan

	roundLog rate.Sometimes
	quiet    bool
}

// NewTracker returns a tracker that logs round progress at most once per
// logEvery. A zero logEvery disables progress logging; trip lines are always
// logged.
func NewTracker(logEvery time.Duration) *Tracker {
	return &Tracker{
		subs:     make(map[chan domain.ProgressEvent]struct{}),
		roundLog: rate.Sometimes{Interval: logEvery},
		quiet:    logEvery <= 0,
	}
}

func (t *Tracker) Report(e domain.ProgressEvent) {
	t.mu.Lock()
	t.snap.Round = e.Round
	t.snap.RoundPercent = e.RoundPercent()
	t.snap.CommittedPoints = e.CommittedPoints
	t.snap.TotalPoints = e.TotalPoints
	t.snap.TotalDistance = e.TotalDistance
	t.snap.UpdatedAt = e.At
	switch e.Kind {
	case domain.ProgressTripCommitted:
		t.snap.Trips++
	case domain.ProgressBatchRequeued:
		t.snap.Requeued++
	case domain.ProgressDone:
		t.snap.Done = true
		t.snap.RoundPercent = 100
	}
	trips := t.snap.Trips
	for ch := range t.subs {
		select {
		case ch <- e:
		default:
		}
	}
	t.mu.Unlock()

	switch e.Kind {
	case domain.ProgressBatchCompleted:
		if !t.quiet {
			t.roundLog.Do(func() {
				log.Printf("round %d: %d%% (%d/%d points left)", e.Round, e.RoundPercent(), e.RoundRemaining, e.RoundSize)
			})
		}
	case domain.ProgressTripCommitted:
		if e.Trip != nil {
			log.Printf("trip %d: points=%d weight=%dg distance_km=%.3f visited=%d/%d",
				trips, e.Trip.Len(), e.Trip.Weight, e.Trip.Distance, e.CommittedPoints, e.TotalPoints)
		}
	case domain.ProgressBatchRequeued:
		log.Printf("round %d: batch from worker %d requeued", e.Round, e.WorkerID)
	}
}

// Snapshot returns the current progress state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Subscribe returns a channel receiving every subsequent event.
func (t *Tracker) Subscribe() chan domain.ProgressEvent {
	ch := make(chan domain.ProgressEvent, 32)
	t.mu.Lock()
	t.subs[ch] = struct{}{}
	t.mu.Unlock()
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (t *Tracker) Unsubscribe(ch chan domain.ProgressEvent) {
	t.mu.Lock()
	if _, ok := t.subs[ch]; ok {
		delete(t.subs, ch)
		close(ch)
	}
	t.mu.Unlock()
}

// SetPlan records the finished plan of the run.
func (t *Tracker) SetPlan(plan *domain.Plan) {
	t.mu.Lock()
	t.plan = plan
	t.mu.Unlock()
}

// Plan returns the finished plan, if any.
func (t *Tracker) Plan() (*domain.Plan, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.plan, t.plan != nil
}
