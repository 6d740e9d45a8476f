package dto

import "time"

type ProgressResponse struct {
	Round           int       `json:"round"`
	RoundPercent    int       `json:"round_percent"`
	CommittedPoints int       `json:"committed_points"`
	TotalPoints     int       `json:"total_points"`
	Trips           int       `json:"trips"`
	TotalDistanceKm float64   `json:"total_distance_km"`
	Requeued        int       `json:"requeued_batches"`
	Done            bool      `json:"done"`
	UpdatedAt       time.Time `json:"updated_at"`
}
