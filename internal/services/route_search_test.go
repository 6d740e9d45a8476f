package services

import (
	"errors"
	"testing"

	"trip-planner/internal/domain"

	"github.com/stretchr/testify/require"
)

func searchFrom(t *testing.T, points []domain.Point, depth int, opts SearchOptions, start domain.PointID, excluded map[domain.PointID]struct{}) (domain.Route, error) {
	t.Helper()
	g := NewProximityGraph(points, depth)
	p, ok := g.Point(start)
	require.True(t, ok)
	return NewRouteSearch(g, opts).FindBestRoute(p, excluded)
}

func TestFindBestRouteSinglePoint(t *testing.T) {
	points := equatorPoints(1, 5)

	r, err := searchFrom(t, points, 3, SearchOptions{Capacity: 10}, 1, nil)
	require.NoError(t, err)
	require.Equal(t, []domain.PointID{1}, r.Points)
	require.Equal(t, 5, r.Weight)
	require.InDelta(t, 2*points[0].DistanceFromBase, r.Distance, 1e-9)
}

func TestFindBestRouteCountsBothDepotLegs(t *testing.T) {
	depot := domain.Coordinates{Lat: 1, Lon: 0}
	points := []domain.Point{
		domain.NewPoint(1, 0, 0, 1, depot),
		domain.NewPoint(2, 0, 1, 1, depot),
	}

	r, err := searchFrom(t, points, 1, SearchOptions{Capacity: 10}, 1, nil)
	require.NoError(t, err)
	require.Equal(t, []domain.PointID{1, 2}, r.Points)

	want := points[0].DistanceFromBase + points[0].DistanceTo(points[1]) + points[1].DistanceFromBase
	require.InDelta(t, want, r.Distance, 1e-9)
}

func TestFindBestRouteRespectsCapacity(t *testing.T) {
	depot := domain.Coordinates{}
	points := []domain.Point{
		domain.NewPoint(1, 0, 0, 2, depot),
		domain.NewPoint(2, 0, 1, 2, depot),
		domain.NewPoint(3, 0, 2, 1, depot),
	}

	r, err := searchFrom(t, points, 2, SearchOptions{Capacity: 3}, 1, nil)
	require.NoError(t, err)
	require.Equal(t, []domain.PointID{1, 3}, r.Points)
	require.LessOrEqual(t, r.Weight, 3)
}

func TestFindBestRoutePrefersMorePoints(t *testing.T) {
	points := equatorPoints(4, 1)

	r, err := searchFrom(t, points, 3, SearchOptions{Capacity: 100}, 2, nil)
	require.NoError(t, err)
	require.Len(t, r.Points, 4)
	require.Equal(t, domain.PointID(2), r.Points[0])
	require.Equal(t, 4, r.Weight)
}

func TestFindBestRouteSkipsExcluded(t *testing.T) {
	points := equatorPoints(4, 1)
	excluded := map[domain.PointID]struct{}{2: {}}

	r, err := searchFrom(t, points, 3, SearchOptions{Capacity: 100}, 1, excluded)
	require.NoError(t, err)
	require.NotContains(t, r.Points, domain.PointID(2))
	require.ElementsMatch(t, []domain.PointID{1, 3, 4}, r.Points)
}

func TestFindBestRouteMaxTripPoints(t *testing.T) {
	points := equatorPoints(5, 1)

	r, err := searchFrom(t, points, 3, SearchOptions{Capacity: 100, MaxTripPoints: 2}, 3, nil)
	require.NoError(t, err)
	require.Len(t, r.Points, 2)
}

func TestFindBestRouteMaxBranches(t *testing.T) {
	points := equatorPoints(5, 1)

	r, err := searchFrom(t, points, 4, SearchOptions{Capacity: 100, MaxBranches: 1}, 1, nil)
	require.NoError(t, err)
	// Following only the nearest neighbor walks the line in order.
	require.Equal(t, []domain.PointID{1, 2, 3, 4, 5}, r.Points)
}

func TestFindBestRouteOverweightStart(t *testing.T) {
	points := equatorPoints(2, 50)

	_, err := searchFrom(t, points, 1, SearchOptions{Capacity: 10}, 1, nil)
	var de *domain.DataError
	require.True(t, errors.As(err, &de))
	require.Equal(t, domain.PointID(1), de.PointID)
	require.Equal(t, 50, de.Weight)
}

func TestFindBestRouteNeverRepeatsPoints(t *testing.T) {
	points := equatorPoints(6, 1)
	g := NewProximityGraph(points, 3)
	s := NewRouteSearch(g, SearchOptions{Capacity: 4})

	for _, id := range g.IDs() {
		p, _ := g.Point(id)
		r, err := s.FindBestRoute(p, nil)
		require.NoError(t, err)

		seen := map[domain.PointID]bool{}
		for _, v := range r.Points {
			require.False(t, seen[v], "route %v repeats %d", r, v)
			seen[v] = true
		}
		require.LessOrEqual(t, r.Weight, 4)
		require.Equal(t, id, r.Points[0])
	}
}
