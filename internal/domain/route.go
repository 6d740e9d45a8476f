package domain

import (
	"slices"
	"strings"
)

// Represents a candidate trip: the visit order of points from the depot and
// back, with aggregate weight and distance.
// Distance includes the depot->first and last->depot legs.
type Route struct {
	Points   []PointID `json:"points"`
	Weight   int       `json:"weight"`
	Distance float64   `json:"distance"`
}

// Len returns the number of points visited by the route.
func (r Route) Len() int { return len(r.Points) }

// Intersects reports whether the route visits any id in set.
func (r Route) Intersects(set map[PointID]struct{}) bool {
	for _, id := range r.Points {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

// Clone returns a copy of r that does not share its point slice.
func (r Route) Clone() Route {
	out := r
	out.Points = append([]PointID(nil), r.Points...)
	return out
}

func (r Route) String() string {
	parts := make([]string, 0, len(r.Points))
	for _, id := range r.Points {
		parts = append(parts, id.String())
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// CompareRoutes orders routes best first: more points wins, then lower
// distance. Full ties fall back to the id sequence so the order is stable
// regardless of arrival order.
func CompareRoutes(a, b Route) int {
	if len(a.Points) != len(b.Points) {
		if len(a.Points) > len(b.Points) {
			return -1
		}
		return 1
	}
	if a.Distance < b.Distance {
		return -1
	}
	if a.Distance > b.Distance {
		return 1
	}
	return slices.Compare(a.Points, b.Points)
}

// Better reports whether a ranks strictly ahead of b.
func Better(a, b Route) bool { return CompareRoutes(a, b) < 0 }

// BestRoute returns the highest ranked route, or false if routes is empty.
func BestRoute(routes []Route) (Route, bool) {
	if len(routes) == 0 {
		return Route{}, false
	}
	best := routes[0]
	for _, r := range routes[1:] {
		if Better(r, best) {
			best = r
		}
	}
	return best, true
}
