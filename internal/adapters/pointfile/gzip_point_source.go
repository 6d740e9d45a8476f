package pointfile

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"trip-planner/internal/domain"
	"trip-planner/internal/platform/obs"
)

// GzipPointSource reads points from a gzip compressed file with one
// "id;lat;lon;weight" record per line. Blank lines are ignored.
type GzipPointSource struct {
	Path string
	// MaxEntries truncates the input to its first n records. Zero reads all.
	MaxEntries int
	Depot      domain.Coordinates
}

func NewGzipPointSource(path string, maxEntries int, depot domain.Coordinates) *GzipPointSource {
	return &GzipPointSource{Path: path, MaxEntries: maxEntries, Depot: depot}
}

func (s *GzipPointSource) ListPoints(ctx context.Context) (_ []domain.Point, err error) {
	defer obs.Time(ctx, "points.file.ListPoints")(&err)

	if strings.TrimSpace(s.Path) == "" {
		return nil, errors.New("read points: path must not be empty")
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read points: open %q: %w", s.Path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read points: gunzip %q: %w", s.Path, err)
	}
	defer zr.Close()

	points, err := ReadPoints(zr, s.MaxEntries, s.Depot)
	if err != nil {
		return nil, fmt.Errorf("read points %q: %w", s.Path, err)
	}
	return points, nil
}

// ReadPoints parses uncompressed point records from r.
func ReadPoints(r io.Reader, maxEntries int, depot domain.Coordinates) ([]domain.Point, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	points := make([]domain.Point, 0, 1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if maxEntries > 0 && len(points) == maxEntries {
			break
		}

		p, err := parseRecord(text, depot)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		points = append(points, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	return points, nil
}

func parseRecord(text string, depot domain.Coordinates) (domain.Point, error) {
	cols := strings.Split(text, ";")
	if len(cols) != 4 {
		return domain.Point{}, fmt.Errorf("expected 4 fields, got %d", len(cols))
	}

	id, err := strconv.Atoi(strings.TrimSpace(cols[0]))
	if err != nil {
		return domain.Point{}, fmt.Errorf("parse id %q: %w", cols[0], err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(cols[1]), 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("parse lat %q: %w", cols[1], err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(cols[2]), 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("parse lon %q: %w", cols[2], err)
	}
	weight, err := strconv.Atoi(strings.TrimSpace(cols[3]))
	if err != nil {
		return domain.Point{}, fmt.Errorf("parse weight %q: %w", cols[3], err)
	}
	if weight < 0 {
		return domain.Point{}, fmt.Errorf("point %d: negative weight %d", id, weight)
	}

	return domain.NewPoint(domain.PointID(id), lat, lon, weight, depot), nil
}
