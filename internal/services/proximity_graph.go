package services

import (
	"trip-planner/internal/domain"
)

// ProximityGraph keeps, for every live point, its nearest neighbors ordered by
// great-circle distance. Each worker owns a private graph; it is not safe for
// concurrent use.
type ProximityGraph struct {
	depth  int
	points map[domain.PointID]*domain.Point
	order  []domain.PointID // live ids in source order
}

// NewProximityGraph copies points and links each one to its depth nearest
// neighbors. The scan is O(n²) in the number of points.
func NewProximityGraph(points []domain.Point, depth int) *ProximityGraph {
	g := &ProximityGraph{
		depth:  depth,
		points: make(map[domain.PointID]*domain.Point, len(points)),
		order:  make([]domain.PointID, 0, len(points)),
	}

	for _, p := range points {
		cp := p.Clone()
		cp.Neighbors = nil
		g.points[cp.ID] = &cp
		g.order = append(g.order, cp.ID)
	}

	for _, id := range g.order {
		p := g.points[id]
		p.Neighbors = g.nearest(p, nil)
	}

	return g
}

// Depth returns the configured neighbor list length.
func (g *ProximityGraph) Depth() int { return g.depth }

// Len returns the number of live points.
func (g *ProximityGraph) Len() int { return len(g.order) }

// IDs returns live point ids in source order.
func (g *ProximityGraph) IDs() []domain.PointID {
	return append([]domain.PointID(nil), g.order...)
}

// Point returns the live point with the given id.
func (g *ProximityGraph) Point(id domain.PointID) (*domain.Point, bool) {
	p, ok := g.points[id]
	return p, ok
}

// SelectByIDs maps ids back to live points in the order given. Ids that are
// not live are skipped.
func (g *ProximityGraph) SelectByIDs(ids []domain.PointID) []*domain.Point {
	out := make([]*domain.Point, 0, len(ids))
	for _, id := range ids {
		if p, ok := g.points[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Arrange drops committed points and rebuilds the neighbor list of every
// remaining point that referenced one of them, excluding allCommitted.
// Calling it again with the same arguments changes nothing.
func (g *ProximityGraph) Arrange(committed []domain.PointID, allCommitted []domain.PointID) {
	if len(committed) == 0 {
		return
	}

	dropped := toSet(committed)
	ignore := toSet(allCommitted)
	for id := range dropped {
		ignore[id] = struct{}{}
	}

	// Finished points can never be visited again.
	live := g.order[:0]
	for _, id := range g.order {
		if _, ok := dropped[id]; ok {
			delete(g.points, id)
			continue
		}
		live = append(live, id)
	}
	g.order = live

	for _, id := range g.order {
		p := g.points[id]
		if !referencesAny(p.Neighbors, dropped) {
			continue
		}
		p.Neighbors = g.nearest(p, ignore)
	}
}

// Clone returns an independent copy of g.
func (g *ProximityGraph) Clone() *ProximityGraph {
	out := &ProximityGraph{
		depth:  g.depth,
		points: make(map[domain.PointID]*domain.Point, len(g.points)),
		order:  append([]domain.PointID(nil), g.order...),
	}
	for id, p := range g.points {
		cp := p.Clone()
		out.points[id] = &cp
	}
	return out
}

// nearest returns the depth closest live points to p, closest first.
// Equal distances are ordered by target id.
func (g *ProximityGraph) nearest(p *domain.Point, ignore map[domain.PointID]struct{}) []domain.Edge {
	if g.depth <= 0 {
		return nil
	}

	edges := make([]domain.Edge, 0, g.depth+1)
	for _, id := range g.order {
		if id == p.ID {
			continue
		}
		if _, skip := ignore[id]; skip {
			continue
		}

		e := domain.Edge{Distance: p.DistanceTo(*g.points[id]), Target: id}
		if len(edges) == g.depth && !edgeLess(e, edges[len(edges)-1]) {
			continue
		}

		// Insertion keeps the slice sorted; depth is small.
		i := len(edges)
		edges = append(edges, e)
		for i > 0 && edgeLess(e, edges[i-1]) {
			edges[i] = edges[i-1]
			i--
		}
		edges[i] = e
		if len(edges) > g.depth {
			edges = edges[:g.depth]
		}
	}

	return edges
}

func edgeLess(a, b domain.Edge) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Target < b.Target
}

func referencesAny(edges []domain.Edge, set map[domain.PointID]struct{}) bool {
	for _, e := range edges {
		if _, ok := set[e.Target]; ok {
			return true
		}
	}
	return false
}

func toSet(ids []domain.PointID) map[domain.PointID]struct{} {
	set := make(map[domain.PointID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
