package domain

import "math"

// EarthRadiusKm is the sphere radius used for every great-circle distance.
const EarthRadiusKm = 6378.0

// Immutable geographic coordinates (latitude, longitude) in degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// DefaultDepot is the base every trip starts from and returns to.
var DefaultDepot = Coordinates{Lat: 68.073611, Lon: 29.315278}

// DistanceKm returns the haversine distance between c and o in kilometers.
func (c Coordinates) DistanceKm(o Coordinates) float64 {
	return Haversine(c.Lat, c.Lon, o.Lat, o.Lon)
}

// Haversine returns the great-circle distance in kilometers between two
// latitude/longitude pairs given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLon := deg2rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
