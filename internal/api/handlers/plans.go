package handlers

import (
	"errors"
	"log"
	"net/http"

	"trip-planner/internal/api/dto"
	"trip-planner/internal/domain"
	"trip-planner/internal/ports"
)

type PlanHandler struct {
	Source ProgressSource
	// Store serves earlier runs by run_id. Nil limits the handler to the
	// current run.
	Store ports.PlanStore
}

// Get returns the finished plan of the current run, or 404 while planning is
// still running. With ?run_id= it returns that run's plan, looking it up in
// Store when it is not the current one.
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	runID := r.URL.Query().Get("run_id")
	plan, ok := h.Source.Plan()
	if ok && (runID == "" || plan.RunID == runID) {
		writeJSON(w, r, http.StatusOK, toPlanResponse(plan))
		return
	}
	if runID == "" {
		writeError(w, r, http.StatusNotFound, "plan not finished")
		return
	}
	if h.Store == nil {
		writeError(w, r, http.StatusNotFound, "plan not found")
		return
	}

	stored, err := h.Store.LoadPlan(r.Context(), runID)
	if errors.Is(err, domain.ErrPlanNotFound) {
		writeError(w, r, http.StatusNotFound, "plan not found")
		return
	}
	if err != nil {
		log.Printf("load plan failed: run_id=%s err=%v", runID, err)
		writeError(w, r, http.StatusInternalServerError, "failed to load plan")
		return
	}

	writeJSON(w, r, http.StatusOK, toPlanResponse(stored))
}

func toPlanResponse(plan *domain.Plan) dto.PlanResponse {
	res := dto.PlanResponse{
		RunID:           plan.RunID,
		PointCount:      plan.PointCount,
		TotalDistanceKm: plan.TotalDistance,
		Rounds:          plan.Rounds,
		StartedAt:       plan.StartedAt,
		FinishedAt:      plan.FinishedAt,
		Trips:           make([]dto.TripResponse, 0, len(plan.Trips)),
	}
	for _, t := range plan.Trips {
		ids := make([]int, 0, len(t.Route.Points))
		for _, id := range t.Route.Points {
			ids = append(ids, int(id))
		}
		res.Trips = append(res.Trips, dto.TripResponse{
			Seq:         t.Seq,
			PointIDs:    ids,
			WeightGrams: t.Route.Weight,
			DistanceKm:  t.Route.Distance,
		})
	}
	return res
}
