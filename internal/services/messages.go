package services

import "trip-planner/internal/domain"

type MessageType string

const (
	MessagePrepared MessageType = "PREPARED"
	MessageData     MessageType = "DATA"
	MessageError    MessageType = "ERROR"
)

// WorkBatch assigns starting points to a worker. CommittedSoFar carries the
// point ids of every trip committed in prior rounds, in commit order.
type WorkBatch struct {
	RoundID        int                `json:"roundId"`
	WorkerID       int                `json:"workerId"`
	PointIDs       []domain.PointID   `json:"pointIds"`
	CommittedSoFar [][]domain.PointID `json:"committedSoFar"`
}

// WorkerMessage is sent from a worker to the coordinator.
// BestRoute is nil when none of the batch's points could be searched.
type WorkerMessage struct {
	WorkerID  int              `json:"workerId"`
	Type      MessageType      `json:"type"`
	RoundID   int              `json:"roundId,omitempty"`
	PointIDs  []domain.PointID `json:"pointIds,omitempty"`
	BestRoute *domain.Route    `json:"bestRoute,omitempty"`
	Error     string           `json:"error,omitempty"`
}
