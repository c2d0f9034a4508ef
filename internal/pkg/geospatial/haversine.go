package geospatial

import (
	"math"

	"github.com/paulmach/orb"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(a, b orb.Point) float64 {
	lat1, lon1 := a.Lat(), a.Lon()
	lat2, lon2 := b.Lat(), b.Lon()

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c * 1000 // meters
}

// HaversineLength sums the great-circle distance in meters along a line.
func HaversineLength(ls orb.LineString) float64 {
	var sum float64
	for i := 1; i < len(ls); i++ {
		sum += Haversine(ls[i-1], ls[i])
	}
	return sum
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
