package services

import (
	"time"

	"trip-planner/internal/domain"
)

type workerStatus int

const (
	workerIdle workerStatus = iota
	workerBusy
	workerFailed
)

type dispatch struct {
	batch  WorkBatch
	sentAt time.Time
}

// RoundState is the coordinator's view of one trip round. It is owned by the
// coordinator loop and never shared.
type RoundState struct {
	ID         int
	Size       int
	remaining  map[domain.PointID]struct{}
	queued     []domain.PointID
	status     []workerStatus
	inflight   map[int]dispatch // by worker index
	candidates []domain.Route
}

func newRoundState(id int, points []domain.PointID, status []workerStatus) *RoundState {
	rs := &RoundState{
		ID:        id,
		Size:      len(points),
		remaining: toSet(points),
		queued:    append([]domain.PointID(nil), points...),
		status:    status,
		inflight:  make(map[int]dispatch),
	}
	return rs
}

// Remaining returns how many points of the round have not reported yet.
func (rs *RoundState) Remaining() int { return len(rs.remaining) }

// Complete reports whether every point of the round produced a result.
func (rs *RoundState) Complete() bool { return len(rs.remaining) == 0 }

func (rs *RoundState) idleWorker() (int, bool) {
	for i, s := range rs.status {
		if s == workerIdle {
			return i, true
		}
	}
	return 0, false
}

func (rs *RoundState) liveWorkers() int {
	n := 0
	for _, s := range rs.status {
		if s != workerFailed {
			n++
		}
	}
	return n
}

// popBatch removes up to n ids from the front of the queue.
func (rs *RoundState) popBatch(n int) []domain.PointID {
	if n > len(rs.queued) {
		n = len(rs.queued)
	}
	batch := append([]domain.PointID(nil), rs.queued[:n]...)
	rs.queued = rs.queued[n:]
	return batch
}

// requeue puts ids back at the front of the queue.
func (rs *RoundState) requeue(ids []domain.PointID) {
	rs.queued = append(append([]domain.PointID(nil), ids...), rs.queued...)
}

func (rs *RoundState) markReported(ids []domain.PointID) {
	for _, id := range ids {
		delete(rs.remaining, id)
	}
}
