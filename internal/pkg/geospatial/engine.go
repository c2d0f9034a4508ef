// Package geospatial provides the geometry primitives used to segment lines
// against region boundaries: line/boundary intersection, strict containment
// and geodesic length.
package geospatial

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy/lineintersection"
	"github.com/twpayne/go-geom/xy/lineintersector"

	"github.com/samirrijal/mileage/internal/core/domain"
)

// DefaultEpsilon is the coordinate tolerance in degrees.
const DefaultEpsilon = 1e-9

var (
	ErrMalformedBoundary = errors.New("malformed boundary")
	ErrNonFinite         = errors.New("non-finite coordinate")
	ErrUnsupportedUnit   = errors.New("unsupported unit")
)

// Engine implements the geometry primitives on planar lon/lat coordinates.
// Points closer than Epsilon to a ring edge lie on the boundary.
type Engine struct {
	Epsilon float64
}

// NewEngine creates an engine. A non-positive epsilon selects DefaultEpsilon.
func NewEngine(epsilon float64) *Engine {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Engine{Epsilon: epsilon}
}

// Intersect returns every point where the line touches a ring of the
// boundary. A segment crossing a ring edge yields one point; a segment
// running along an edge yields both ends of the overlap. The order of the
// result is unspecified and may contain duplicates.
func (e *Engine) Intersect(line orb.LineString, boundary orb.MultiPolygon) ([]orb.Point, error) {
	if err := ValidateBoundary(boundary); err != nil {
		return nil, err
	}
	if err := validateLine(line); err != nil {
		return nil, err
	}

	var out []orb.Point
	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		segBound := orb.LineString{a, b}.Bound().Pad(e.Epsilon)
		for _, poly := range boundary {
			for _, ring := range poly {
				if !ring.Bound().Pad(e.Epsilon).Intersects(segBound) {
					continue
				}
				for j := 1; j < len(ring); j++ {
					out = append(out, intersectSegments(a, b, ring[j-1], ring[j])...)
				}
			}
		}
	}
	return out, nil
}

func intersectSegments(a, b, c, d orb.Point) []orb.Point {
	res := lineintersector.LineIntersectsLine(lineintersector.RobustLineIntersector{},
		coord(a), coord(b), coord(c), coord(d))
	if !res.HasIntersection() {
		return nil
	}

	pts := res.Intersection()
	if res.Type() == lineintersection.PointIntersection && len(pts) > 1 {
		pts = pts[:1]
	}
	out := make([]orb.Point, 0, len(pts))
	for _, p := range pts {
		out = append(out, orb.Point{p.X(), p.Y()})
	}
	return out
}

func coord(p orb.Point) geom.Coord { return geom.Coord{p[0], p[1]} }

// Contains reports whether p lies strictly inside the boundary. Points within
// Epsilon of any ring edge are on the boundary and count as outside.
// Holes are excluded.
func (e *Engine) Contains(boundary orb.MultiPolygon, p orb.Point) (bool, error) {
	if !finite(p) {
		return false, fmt.Errorf("%w: %v", ErrNonFinite, p)
	}
	if e.OnBoundary(boundary, p) {
		return false, nil
	}
	return planar.MultiPolygonContains(boundary, p), nil
}

// OnBoundary reports whether p is within Epsilon of any ring edge.
func (e *Engine) OnBoundary(boundary orb.MultiPolygon, p orb.Point) bool {
	for _, poly := range boundary {
		for _, ring := range poly {
			if !ring.Bound().Pad(e.Epsilon).Contains(p) {
				continue
			}
			for j := 1; j < len(ring); j++ {
				if planar.DistanceFromSegment(ring[j-1], ring[j], p) <= e.Epsilon {
					return true
				}
			}
		}
	}
	return false
}

// Length measures the line in the given unit. Geodesic units use the
// haversine distance; degrees measure the planar length in coordinate units.
func (e *Engine) Length(line orb.LineString, unit domain.Unit) (float64, error) {
	if err := validateLine(line); err != nil {
		return 0, err
	}
	if unit == domain.UnitDegrees {
		return planar.Length(line), nil
	}
	factor, ok := unit.PerMeter()
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}
	return HaversineLength(line) * factor, nil
}

// Area returns the geodesic area of the boundary in square meters.
func Area(boundary orb.MultiPolygon) float64 {
	return geo.Area(boundary)
}

// ValidateBoundary rejects boundaries the primitives cannot work on: empty
// polygons, open rings, rings with fewer than four points and non-finite
// coordinates. Self-intersection is not checked.
func ValidateBoundary(boundary orb.MultiPolygon) error {
	if len(boundary) == 0 {
		return fmt.Errorf("%w: no polygons", ErrMalformedBoundary)
	}
	for i, poly := range boundary {
		if len(poly) == 0 {
			return fmt.Errorf("%w: polygon %d has no rings", ErrMalformedBoundary, i)
		}
		for j, ring := range poly {
			if len(ring) < 4 {
				return fmt.Errorf("%w: polygon %d ring %d has %d points", ErrMalformedBoundary, i, j, len(ring))
			}
			for _, p := range ring {
				if !finite(p) {
					return fmt.Errorf("%w: polygon %d ring %d: %w", ErrMalformedBoundary, i, j, ErrNonFinite)
				}
			}
			if !ring.Closed() {
				return fmt.Errorf("%w: polygon %d ring %d is not closed", ErrMalformedBoundary, i, j)
			}
		}
	}
	return nil
}

func validateLine(line orb.LineString) error {
	for i, p := range line {
		if !finite(p) {
			return fmt.Errorf("%w: line point %d", ErrNonFinite, i)
		}
	}
	return nil
}

func finite(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
