package domain

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Coordinate is a WGS 84 position in decimal degrees. It marshals as a
// GeoJSON position: [lon, lat].
type Coordinate struct {
	Lon float64
	Lat float64
}

// Equal reports whether both components differ by at most eps.
func (c Coordinate) Equal(o Coordinate, eps float64) bool {
	return math.Abs(c.Lon-o.Lon) <= eps && math.Abs(c.Lat-o.Lat) <= eps
}

// Point converts the coordinate to an orb point.
func (c Coordinate) Point() orb.Point { return orb.Point{c.Lon, c.Lat} }

// CoordinateFromPoint converts an orb point to a coordinate.
func CoordinateFromPoint(p orb.Point) Coordinate { return Coordinate{Lon: p.Lon(), Lat: p.Lat()} }

func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lon, c.Lat})
}

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	var pos []float64
	if err := json.Unmarshal(b, &pos); err != nil {
		return err
	}
	if len(pos) < 2 {
		return fmt.Errorf("position needs 2 values, got %d", len(pos))
	}
	c.Lon, c.Lat = pos[0], pos[1]
	return nil
}

// Polyline is a directed path of travel from its first to its last coordinate.
type Polyline struct {
	Coordinates []Coordinate `json:"coordinates"`
}

// NewPolyline builds a polyline from [lon, lat] pairs.
func NewPolyline(pairs ...[2]float64) Polyline {
	coords := make([]Coordinate, len(pairs))
	for i, p := range pairs {
		coords[i] = Coordinate{Lon: p[0], Lat: p[1]}
	}
	return Polyline{Coordinates: coords}
}

// Validate rejects polylines with fewer than two points, non-finite values,
// or fewer than two distinct coordinates.
func (l Polyline) Validate() error {
	if len(l.Coordinates) < 2 {
		return fmt.Errorf("%w: polyline has %d points, need at least 2", ErrInvalidInput, len(l.Coordinates))
	}
	for i, c := range l.Coordinates {
		if math.IsNaN(c.Lon) || math.IsNaN(c.Lat) || math.IsInf(c.Lon, 0) || math.IsInf(c.Lat, 0) {
			return fmt.Errorf("%w: polyline point %d is not finite", ErrInvalidInput, i)
		}
	}
	first := l.Coordinates[0]
	for _, c := range l.Coordinates[1:] {
		if c != first {
			return nil
		}
	}
	return fmt.Errorf("%w: polyline has zero length", ErrInvalidInput)
}

// LineString converts the polyline to an orb line string.
func (l Polyline) LineString() orb.LineString {
	ls := make(orb.LineString, len(l.Coordinates))
	for i, c := range l.Coordinates {
		ls[i] = c.Point()
	}
	return ls
}

// PolylineFromLineString converts an orb line string to a polyline.
func PolylineFromLineString(ls orb.LineString) Polyline {
	coords := make([]Coordinate, len(ls))
	for i, p := range ls {
		coords[i] = CoordinateFromPoint(p)
	}
	return Polyline{Coordinates: coords}
}

// Reverse returns a copy travelling the opposite direction.
func (l Polyline) Reverse() Polyline {
	n := len(l.Coordinates)
	out := make([]Coordinate, n)
	for i, c := range l.Coordinates {
		out[n-1-i] = c
	}
	return Polyline{Coordinates: out}
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// BoundsFromOrb converts an orb bound.
func BoundsFromOrb(b orb.Bound) Bounds {
	return Bounds{MinLat: b.Min.Lat(), MinLon: b.Min.Lon(), MaxLat: b.Max.Lat(), MaxLon: b.Max.Lon()}
}
