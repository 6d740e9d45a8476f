package dto

import "time"

type TripResponse struct {
	Seq         int     `json:"seq"`
	PointIDs    []int   `json:"point_ids"`
	WeightGrams int     `json:"weight_grams"`
	DistanceKm  float64 `json:"distance_km"`
}

type PlanResponse struct {
	RunID           string         `json:"run_id"`
	PointCount      int            `json:"point_count"`
	TotalDistanceKm float64        `json:"total_distance_km"`
	Rounds          int            `json:"rounds"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
	Trips           []TripResponse `json:"trips"`
}
