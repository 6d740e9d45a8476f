package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCoordinationTimeout marks a batch whose worker did not answer in time.
var ErrCoordinationTimeout = errors.New("worker did not respond in time")

var ErrPlanNotFound = errors.New("plan not found")

// DataError reports a point that no trip can ever carry.
type DataError struct {
	PointID  PointID
	Weight   int
	Capacity int
}

func (e *DataError) Error() string {
	return fmt.Sprintf("point %d weighs %dg, exceeding trip capacity of %dg", e.PointID, e.Weight, e.Capacity)
}

// ValidationError reports points that were not visited exactly once across
// all committed trips.
type ValidationError struct {
	Missing    []PointID
	Duplicated []PointID
	Unknown    []PointID
	Overweight []int // trip sequence numbers
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing=%v", e.Missing))
	}
	if len(e.Duplicated) > 0 {
		parts = append(parts, fmt.Sprintf("duplicated=%v", e.Duplicated))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, fmt.Sprintf("unknown=%v", e.Unknown))
	}
	if len(e.Overweight) > 0 {
		parts = append(parts, fmt.Sprintf("overweight_trips=%v", e.Overweight))
	}
	return "plan validation failed: " + strings.Join(parts, " ")
}
