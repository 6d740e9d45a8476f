package domain

import "time"

type ProgressKind string

const (
	ProgressRoundStarted   ProgressKind = "round.started"
	ProgressBatchCompleted ProgressKind = "batch.completed"
	ProgressTripCommitted  ProgressKind = "trip.committed"
	ProgressBatchRequeued  ProgressKind = "batch.requeued"
	ProgressDone           ProgressKind = "plan.done"
)

// ProgressEvent describes one step of the planning loop.
type ProgressEvent struct {
	Kind            ProgressKind `json:"kind"`
	Round           int          `json:"round"`
	RoundSize       int          `json:"roundSize"`
	RoundRemaining  int          `json:"roundRemaining"`
	CommittedPoints int          `json:"committedPoints"`
	TotalPoints     int          `json:"totalPoints"`
	TotalDistance   float64      `json:"totalDistance"`
	WorkerID        int          `json:"workerId,omitempty"`
	Trip            *Route       `json:"trip,omitempty"`
	At              time.Time    `json:"at"`
}

// RoundPercent returns how much of the current round has reported, 0..100.
func (e ProgressEvent) RoundPercent() int {
	if e.RoundSize == 0 {
		return 100
	}
	return (e.RoundSize - e.RoundRemaining) * 100 / e.RoundSize
}
