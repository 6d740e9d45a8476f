package handlers

import (
	"log"
	"net/http"

	"trip-planner/internal/api/dto"
	"trip-planner/internal/ports"
)

// PointHandler exposes read-only point retrieval endpoints.
type PointHandler struct {
	Source ports.PointSource
}

func (h *PointHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	points, err := h.Source.ListPoints(r.Context())
	if err != nil {
		log.Printf("list points failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListPointsResponse{
		Count:  len(points),
		Points: make([]dto.PointResponse, 0, len(points)),
	}
	for _, p := range points {
		res.Points = append(res.Points, dto.PointResponse{
			PointID:          int(p.ID),
			Lat:              p.Lat,
			Lon:              p.Lon,
			WeightGrams:      p.Weight,
			DistanceFromBase: p.DistanceFromBase,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}
