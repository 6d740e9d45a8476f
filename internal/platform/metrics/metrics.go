package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the planner
	Registry = prometheus.NewRegistry()

	RoundsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planner_rounds_started_total",
		Help: "Trip rounds started by the coordinator.",
	})
	TripsCommitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planner_trips_committed_total",
		Help: "Trips committed to the plan.",
	})
	CommittedDistanceKm = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planner_committed_distance_km_total",
		Help: "Sum of committed trip distances in km.",
	})
	RemainingPoints = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "planner_remaining_points",
		Help: "Points not yet committed to a trip.",
	})
	BatchesDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_batches_dispatched_total",
		Help: "Work batches sent to workers.",
	}, []string{"worker"})
	BatchesRequeued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planner_batches_requeued_total",
		Help: "Batches reassigned after a worker timed out.",
	})
	WorkersRecovered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planner_workers_recovered_total",
		Help: "Workers presumed failed that reported back late.",
	})
	// CacheLookups counts route cache lookups by result: hit, miss, stale, error
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_route_cache_lookups_total",
		Help: "Route cache lookups by result.",
	}, []string{"result"})
	SearchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_route_search_duration_ms",
		Help:    "Route search duration per starting point in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000},
	})
)

var regOnce sync.Once

// Register adds planner collectors to Registry. Safe to call more than once.
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(RoundsStarted)
		Registry.MustRegister(TripsCommitted)
		Registry.MustRegister(CommittedDistanceKm)
		Registry.MustRegister(RemainingPoints)
		Registry.MustRegister(BatchesDispatched)
		Registry.MustRegister(BatchesRequeued)
		Registry.MustRegister(WorkersRecovered)
		Registry.MustRegister(CacheLookups)
		Registry.MustRegister(SearchDurationMs)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler exposes Registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
