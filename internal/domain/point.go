package domain

import "strconv"

// PointID uniquely identifies a delivery point.
type PointID int

func (id PointID) String() string { return strconv.Itoa(int(id)) }

// Edge is a directed connection from a point to one of its nearest neighbors.
type Edge struct {
	Distance float64 // km
	Target   PointID
}

// Represents a single delivery location with its demand weight.
// ID, coordinates, Weight and DistanceFromBase never change after creation.
// Neighbors is owned by the proximity graph that holds the point and is
// rewritten whenever that graph is rearranged.
type Point struct {
	ID               PointID
	Lat              float64
	Lon              float64
	Weight           int // grams
	DistanceFromBase float64
	Neighbors        []Edge
}

// NewPoint creates a point and precomputes its distance to the depot.
func NewPoint(id PointID, lat, lon float64, weight int, depot Coordinates) Point {
	return Point{
		ID:               id,
		Lat:              lat,
		Lon:              lon,
		Weight:           weight,
		DistanceFromBase: Coordinates{Lat: lat, Lon: lon}.DistanceKm(depot),
	}
}

func (p Point) Coordinates() Coordinates { return Coordinates{Lat: p.Lat, Lon: p.Lon} }

// DistanceTo returns the haversine distance between p and o in kilometers.
func (p Point) DistanceTo(o Point) float64 {
	return p.Coordinates().DistanceKm(o.Coordinates())
}

// Clone returns a copy of p that does not share its neighbor slice.
func (p Point) Clone() Point {
	out := p
	if p.Neighbors != nil {
		out.Neighbors = append([]Edge(nil), p.Neighbors...)
	}
	return out
}

// PointIDs returns the ids of points in order.
func PointIDs(points []Point) []PointID {
	ids := make([]PointID, 0, len(points))
	for _, p := range points {
		ids = append(ids, p.ID)
	}
	return ids
}
