package api

import (
	"net/http"

	"trip-planner/internal/api/handlers"
	"trip-planner/internal/platform/metrics"
	"trip-planner/internal/ports"
)

// NewRouter wires the status endpoints of a planning run and returns an
// http.Handler. Handlers only see ports and the progress read side. plans may
// be nil when runs are not stored.
func NewRouter(points ports.PointSource, progress handlers.ProgressSource, plans ports.PlanStore) http.Handler {
	mux := http.NewServeMux()

	pointHandler := &handlers.PointHandler{Source: points}
	progressHandler := &handlers.ProgressHandler{Source: progress}
	planHandler := &handlers.PlanHandler{Source: progress, Store: plans}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/points", pointHandler.List)
	mux.HandleFunc("/progress", progressHandler.Get)
	mux.HandleFunc("/progress/stream", progressHandler.Stream)
	mux.HandleFunc("/plan", planHandler.Get)
	mux.Handle("/metrics", metrics.Handler())

	return loggingMiddleware(mux)
}
