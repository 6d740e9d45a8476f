package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trip-planner/internal/adapters/cache"
	"trip-planner/internal/adapters/pointfile"
	"trip-planner/internal/adapters/repositories"
	"trip-planner/internal/adapters/sink"
	"trip-planner/internal/api"
	"trip-planner/internal/config"
	"trip-planner/internal/domain"
	"trip-planner/internal/platform/db"
	"trip-planner/internal/platform/metrics"
	"trip-planner/internal/ports"
	"trip-planner/internal/progress"
	"trip-planner/internal/services"

	"github.com/joho/godotenv"
)

// main is the application composition root.
// It wires the configured point source, route cache and sinks behind ports
// and runs one planning pass.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		var verr *domain.ValidationError
		var derr *domain.DataError
		switch {
		case errors.As(err, &verr):
			log.Printf("result was not valid, nothing written: %v", err)
		case errors.As(err, &derr):
			log.Printf("input data cannot be planned: %v", err)
		default:
			log.Printf("planning failed: %v", err)
		}
		stop()
		os.Exit(1)
	}
}

// handles opens each database at most once.
type handles struct {
	cfg      config.Config
	sqlite   *sql.DB
	postgres *sql.DB
}

func (h *handles) open(ctx context.Context, d repositories.Dialect) (*sql.DB, error) {
	var (
		conn **sql.DB
		err  error
	)
	switch d {
	case repositories.Postgres:
		conn = &h.postgres
		if *conn == nil {
			*conn, err = db.Open(h.cfg.DatabaseURL)
		}
	default:
		conn = &h.sqlite
		if *conn == nil {
			*conn, err = db.OpenSQLite(h.cfg.DBPath)
		}
	}
	if err != nil {
		return nil, err
	}
	if err := repositories.InitSchema(ctx, *conn, d); err != nil {
		return nil, err
	}
	return *conn, nil
}

func (h *handles) Close() {
	for _, conn := range []*sql.DB{h.sqlite, h.postgres} {
		if conn != nil {
			_ = conn.Close()
		}
	}
}

func run(ctx context.Context, cfg config.Config) error {
	depot := domain.Coordinates{Lat: cfg.DepotLat, Lon: cfg.DepotLon}
	dbs := &handles{cfg: cfg}
	defer dbs.Close()

	source, err := openPointSource(ctx, cfg, dbs, depot)
	if err != nil {
		return err
	}

	routeCache, closeCache, err := openRouteCache(ctx, cfg, dbs)
	if err != nil {
		return err
	}
	defer closeCache()

	tracker := progress.NewTracker(time.Second)

	var tripRepo *repositories.SQLTripRepository
	if cfg.SaveToDB {
		d := repositories.SQLite
		if cfg.DatabaseURL != "" {
			d = repositories.Postgres
		}
		conn, err := dbs.open(ctx, d)
		if err != nil {
			return fmt.Errorf("trip repository: %w", err)
		}
		tripRepo = repositories.NewSQLTripRepository(conn, d)
	}

	if cfg.StatusAddr != "" {
		var plans ports.PlanStore
		if tripRepo != nil {
			plans = tripRepo
		}
		srv := &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           api.NewRouter(source, tracker, plans),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		go func() {
			log.Printf("Status server listening addr=%s", cfg.StatusAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("status server stopped: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	plan, err := services.PlanTrips(ctx, services.PlanTripsRequest{
		GraphDepth:        cfg.GraphDepth,
		Capacity:          cfg.CapacityGrams,
		Workers:           cfg.Workers,
		MaxItemsPerWorker: cfg.MaxItemsPerWorker,
		WorkerTimeout:     cfg.WorkerTimeout,
		MaxBranches:       cfg.MaxBranches,
		MaxTripPoints:     cfg.MaxTripPoints,
		RoundSampleSize:   cfg.RoundSampleSize,
		SampleSeed:        int64(cfg.SampleSeed),
		FlushCache:        cfg.FlushCache,
	}, source, routeCache, tracker)
	if err != nil {
		return err
	}
	tracker.SetPlan(plan)

	csvSink := sink.NewCSVTripSink(cfg.SolutionsDir)
	sinks := []ports.TripSink{csvSink}
	if tripRepo != nil {
		sinks = append(sinks, tripRepo)
	}
	for _, s := range sinks {
		if err := s.SaveTrips(ctx, plan); err != nil {
			return err
		}
	}

	log.Printf("Visited %d points in %d trips covering %.3f kilometers, solution=%s",
		plan.PointCount, len(plan.Trips), plan.TotalDistance, csvSink.LastPath)
	return nil
}

func openPointSource(ctx context.Context, cfg config.Config, dbs *handles, depot domain.Coordinates) (ports.PointSource, error) {
	switch cfg.PointSource {
	case "sqlite":
		conn, err := dbs.open(ctx, repositories.SQLite)
		if err != nil {
			return nil, fmt.Errorf("point source: %w", err)
		}
		return repositories.NewSQLPointRepository(conn, repositories.SQLite, depot), nil
	case "postgres":
		conn, err := dbs.open(ctx, repositories.Postgres)
		if err != nil {
			return nil, fmt.Errorf("point source: %w", err)
		}
		return repositories.NewSQLPointRepository(conn, repositories.Postgres, depot), nil
	default:
		return pointfile.NewGzipPointSource(cfg.PointsPath, cfg.MaxEntries, depot), nil
	}
}

func openRouteCache(ctx context.Context, cfg config.Config, dbs *handles) (ports.RouteCache, func(), error) {
	noop := func() {}

	switch cfg.CacheBackend {
	case "redis":
		rdb, err := cache.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("route cache: %w", err)
		}
		return cache.NewRedisRouteCache(rdb, cfg.CacheTTL), func() { _ = rdb.Close() }, nil
	case "sqlite":
		conn, err := dbs.open(ctx, repositories.SQLite)
		if err != nil {
			return nil, noop, fmt.Errorf("route cache: %w", err)
		}
		return cache.NewSqliteRouteCache(conn), noop, nil
	case "postgres":
		conn, err := dbs.open(ctx, repositories.Postgres)
		if err != nil {
			return nil, noop, fmt.Errorf("route cache: %w", err)
		}
		return cache.NewSQLRouteCache(conn), noop, nil
	default:
		return cache.NewMemoryRouteCache(), noop, nil
	}
}
