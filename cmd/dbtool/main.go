package main

import (
	"context"
	"database/sql"
	"log"
	"strings"

	"trip-planner/internal/adapters/pointfile"
	"trip-planner/internal/adapters/repositories"
	"trip-planner/internal/config"
	"trip-planner/internal/domain"
	"trip-planner/internal/platform/db"

	"github.com/joho/godotenv"
)

// dbtool initializes the schema and loads the point file into SQLite, or into
// Postgres when DATABASE_URL is set.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var (
		conn    *sql.DB
		dialect = repositories.SQLite
	)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		dialect = repositories.Postgres
		conn, err = db.Open(cfg.DatabaseURL)
	} else {
		conn, err = db.OpenSQLite(cfg.DBPath)
	}
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	depot := domain.Coordinates{Lat: cfg.DepotLat, Lon: cfg.DepotLon}
	if err := initAndSeed(context.Background(), conn, dialect, cfg.PointsPath, cfg.MaxEntries, depot); err != nil {
		log.Fatal(err)
	}
}

func initAndSeed(ctx context.Context, conn *sql.DB, d repositories.Dialect, pointsPath string, maxEntries int, depot domain.Coordinates) error {
	log.Printf("Initializing %s database schema...", d)
	if err := repositories.InitSchema(ctx, conn, d); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	log.Printf("Seeding points from %s...", pointsPath)
	points, err := pointfile.NewGzipPointSource(pointsPath, maxEntries, depot).ListPoints(ctx)
	if err != nil {
		log.Fatalf("reading points failed: %v", err)
	}
	if err := repositories.SeedPoints(ctx, conn, d, points); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Printf("Seeding complete: points=%d", len(points))

	return nil
}
