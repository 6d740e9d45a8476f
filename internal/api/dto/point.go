package dto

type PointResponse struct {
	PointID          int     `json:"point_id"`
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	WeightGrams      int     `json:"weight_grams"`
	DistanceFromBase float64 `json:"distance_from_base_km"`
}

type ListPointsResponse struct {
	Count  int             `json:"count"`
	Points []PointResponse `json:"points"`
}
