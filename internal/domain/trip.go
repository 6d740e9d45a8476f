package domain

import (
	"fmt"
	"time"
)

// Trip is a route committed by the coordinator. Seq is the 1-based round in
// which it was committed.
type Trip struct {
	Seq   int
	Route Route
}

// Plan is the outcome of a full planning run.
type Plan struct {
	RunID         string
	PointCount    int
	Trips         []Trip
	TotalDistance float64
	Rounds        int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// TripPointIDs returns each trip's visit order, in commit order.
func (p *Plan) TripPointIDs() [][]PointID {
	out := make([][]PointID, 0, len(p.Trips))
	for _, t := range p.Trips {
		out = append(out, t.Route.Points)
	}
	return out
}

// Load accumulates the weight of points onto a trip being assembled and fails
// as soon as capacity would be exceeded.
type Load struct {
	Capacity int
	Weight   int
}

// Add places a single point on the load.
func (l *Load) Add(p Point) error {
	if l.Weight+p.Weight > l.Capacity {
		return fmt.Errorf("load point %d: weight %d exceeds remaining capacity %d", p.ID, p.Weight, l.Capacity-l.Weight)
	}
	l.Weight += p.Weight
	return nil
}
