package services

import (
	"trip-planner/internal/domain"
)

// SearchOptions tunes the route search. Zero values mean unlimited.
type SearchOptions struct {
	Capacity      int // grams
	MaxBranches   int // neighbors descended per step
	MaxTripPoints int // points per route
}

// RouteSearch explores a proximity graph depth-first to find the best
// capacity-feasible trip from a starting point.
//
// Every viable neighbor is descended into and results are compared only on
// return, so the search is exhaustive over the graph's neighbor edges unless
// MaxBranches caps it. It does not attempt global optimization.
type RouteSearch struct {
	graph *ProximityGraph
	opts  SearchOptions
}

func NewRouteSearch(graph *ProximityGraph, opts SearchOptions) *RouteSearch {
	return &RouteSearch{graph: graph, opts: opts}
}

// searchState is the working route shared by one recursive descent.
type searchState struct {
	path     []domain.PointID
	onRoute  map[domain.PointID]struct{}
	excluded map[domain.PointID]struct{}
}

// FindBestRoute returns the highest ranked route that starts at start, never
// visits an excluded id and stays within capacity. A start point without
// viable neighbors yields a single-point route.
func (s *RouteSearch) FindBestRoute(start *domain.Point, excluded map[domain.PointID]struct{}) (domain.Route, error) {
	if start.Weight > s.opts.Capacity {
		return domain.Route{}, &domain.DataError{PointID: start.ID, Weight: start.Weight, Capacity: s.opts.Capacity}
	}

	st := &searchState{
		path:     make([]domain.PointID, 0, 16),
		onRoute:  make(map[domain.PointID]struct{}, 16),
		excluded: excluded,
	}

	return s.descend(st, start, 0, start.DistanceFromBase), nil
}

// descend extends the working route with p. distance already includes the
// edge used to reach p (or the depot leg for the start point).
func (s *RouteSearch) descend(st *searchState, p *domain.Point, weight int, distance float64) domain.Route {
	st.path = append(st.path, p.ID)
	st.onRoute[p.ID] = struct{}{}
	defer func() {
		st.path = st.path[:len(st.path)-1]
		delete(st.onRoute, p.ID)
	}()

	weight += p.Weight

	var viable []domain.Edge
	if s.opts.MaxTripPoints == 0 || len(st.path) < s.opts.MaxTripPoints {
		viable = s.viablePaths(st, p, weight)
	}

	// Terminate when no options remain; close the loop back to the depot.
	if len(viable) == 0 {
		return domain.Route{
			Points:   append([]domain.PointID(nil), st.path...),
			Weight:   weight,
			Distance: distance + p.DistanceFromBase,
		}
	}

	var best domain.Route
	found := false
	for _, e := range viable {
		next, _ := s.graph.Point(e.Target)
		r := s.descend(st, next, weight, distance+e.Distance)
		if !found || domain.Better(r, best) {
			best = r
			found = true
		}
	}

	return best
}

func (s *RouteSearch) viablePaths(st *searchState, p *domain.Point, weight int) []domain.Edge {
	out := make([]domain.Edge, 0, len(p.Neighbors))
	for _, e := range p.Neighbors {
		if s.opts.MaxBranches > 0 && len(out) == s.opts.MaxBranches {
			break
		}
		if _, ok := st.excluded[e.Target]; ok {
			continue
		}
		if _, ok := st.onRoute[e.Target]; ok {
			continue
		}
		next, ok := s.graph.Point(e.Target)
		if !ok {
			continue
		}
		if weight+next.Weight > s.opts.Capacity {
			continue
		}
		out = append(out, e)
	}
	return out
}
