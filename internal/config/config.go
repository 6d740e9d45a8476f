package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Get returns the environment value for key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Config holds every tunable of a planning run.
type Config struct {
	PointSource string `yaml:"point_source"` // file, sqlite or postgres
	PointsPath  string `yaml:"points_path"`
	MaxEntries  int    `yaml:"max_entries"`
	DBPath      string `yaml:"db_path"`
	DatabaseURL string `yaml:"database_url"`

	CacheBackend string        `yaml:"cache_backend"` // memory, redis, sqlite or postgres
	RedisURL     string        `yaml:"redis_url"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	FlushCache   bool          `yaml:"flush_cache"`

	GraphDepth        int           `yaml:"graph_depth"`
	CapacityGrams     int           `yaml:"capacity_grams"`
	MaxItemsPerWorker int           `yaml:"max_items_per_worker"`
	Workers           int           `yaml:"workers"`
	WorkerTimeout     time.Duration `yaml:"worker_timeout"`
	MaxBranches       int           `yaml:"max_branches"`
	MaxTripPoints     int           `yaml:"max_trip_points"`
	RoundSampleSize   int           `yaml:"round_sample_size"`
	SampleSeed        int           `yaml:"sample_seed"`

	DepotLat float64 `yaml:"depot_lat"`
	DepotLon float64 `yaml:"depot_lon"`

	SolutionsDir string `yaml:"solutions_dir"`
	SaveToDB     bool   `yaml:"save_to_db"`
	StatusAddr   string `yaml:"status_addr"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		PointSource:       "file",
		PointsPath:        "nicelist.txt.gz",
		DBPath:            "data/planner.db",
		CacheBackend:      "memory",
		FlushCache:        true,
		GraphDepth:        3,
		CapacityGrams:     10_000_000,
		MaxItemsPerWorker: 5,
		Workers:           runtime.NumCPU(),
		WorkerTimeout:     2 * time.Minute,
		MaxTripPoints:     150,
		DepotLat:          68.073611,
		DepotLon:          29.315278,
		SolutionsDir:      "solutions",
	}
}

// Load builds a Config from defaults, an optional YAML file named by
// PLANNER_CONFIG, and environment overrides, in that order.
func Load() (Config, error) {
	cfg := Default()

	if path := Get("PLANNER_CONFIG", ""); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.PointSource = Get("POINT_SOURCE", c.PointSource)
	c.PointsPath = Get("POINTS_PATH", c.PointsPath)
	c.DBPath = Get("DB_PATH", c.DBPath)
	c.DatabaseURL = Get("DATABASE_URL", c.DatabaseURL)
	c.CacheBackend = Get("CACHE_BACKEND", c.CacheBackend)
	c.RedisURL = Get("REDIS_URL", c.RedisURL)
	c.SolutionsDir = Get("SOLUTIONS_DIR", c.SolutionsDir)
	c.StatusAddr = Get("STATUS_ADDR", c.StatusAddr)

	ints := []struct {
		key string
		dst *int
	}{
		{"MAX_ENTRIES", &c.MaxEntries},
		{"GRAPH_DEPTH", &c.GraphDepth},
		{"CAPACITY_GRAMS", &c.CapacityGrams},
		{"MAX_ITEMS_PER_WORKER", &c.MaxItemsPerWorker},
		{"WORKERS", &c.Workers},
		{"MAX_BRANCHES", &c.MaxBranches},
		{"MAX_TRIP_POINTS", &c.MaxTripPoints},
		{"ROUND_SAMPLE_SIZE", &c.RoundSampleSize},
		{"SAMPLE_SEED", &c.SampleSeed},
	}
	for _, it := range ints {
		v := Get(it.key, "")
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", it.key, v)
		}
		*it.dst = n
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"DEPOT_LAT", &c.DepotLat},
		{"DEPOT_LON", &c.DepotLon},
	}
	for _, it := range floats {
		v := Get(it.key, "")
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid number %q", it.key, v)
		}
		*it.dst = f
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"WORKER_TIMEOUT", &c.WorkerTimeout},
		{"CACHE_TTL", &c.CacheTTL},
	}
	for _, it := range durations {
		v := Get(it.key, "")
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q", it.key, v)
		}
		*it.dst = d
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"FLUSH_CACHE", &c.FlushCache},
		{"SAVE_TO_DB", &c.SaveToDB},
	}
	for _, it := range bools {
		v := Get(it.key, "")
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: invalid boolean %q", it.key, v)
		}
		*it.dst = b
	}

	return nil
}

// Validate rejects configurations the planner cannot run with.
func (c Config) Validate() error {
	var errs []error

	switch c.PointSource {
	case "file", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("point_source must be file, sqlite or postgres, got %q", c.PointSource))
	}
	switch c.CacheBackend {
	case "memory", "redis", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("cache_backend must be memory, redis, sqlite or postgres, got %q", c.CacheBackend))
	}
	if c.CacheBackend == "redis" && c.RedisURL == "" {
		errs = append(errs, errors.New("redis_url is required for the redis cache backend"))
	}
	if (c.PointSource == "postgres" || c.CacheBackend == "postgres") && c.DatabaseURL == "" {
		errs = append(errs, errors.New("database_url is required for postgres"))
	}
	if c.GraphDepth < 1 {
		errs = append(errs, fmt.Errorf("graph_depth must be at least 1, got %d", c.GraphDepth))
	}
	if c.CapacityGrams < 1 {
		errs = append(errs, fmt.Errorf("capacity_grams must be positive, got %d", c.CapacityGrams))
	}
	if c.MaxItemsPerWorker < 1 {
		errs = append(errs, fmt.Errorf("max_items_per_worker must be at least 1, got %d", c.MaxItemsPerWorker))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.MaxEntries < 0 || c.MaxBranches < 0 || c.MaxTripPoints < 0 || c.RoundSampleSize < 0 {
		errs = append(errs, errors.New("max_entries, max_branches, max_trip_points and round_sample_size must not be negative"))
	}

	return errors.Join(errs...)
}
