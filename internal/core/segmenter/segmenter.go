// Package segmenter computes how much of a polyline lies inside each of a set
// of regions.
//
// For every region the line is cut at the points where it meets the region
// boundary. The pieces between consecutive cut points are classified by a
// point in their middle and the inside pieces are summed. Cut points are
// ordered by their position along the line itself, so lines that wind back
// on themselves are handled the same way as straight ones.
package segmenter

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/mileage/internal/core/domain"
	"github.com/samirrijal/mileage/internal/pkg/geospatial"
)

// Primitives are the geometry operations the segmenter is built on.
type Primitives interface {
	// Intersect returns every point where the line meets a boundary ring.
	Intersect(line orb.LineString, boundary orb.MultiPolygon) ([]orb.Point, error)
	// Contains reports whether p is strictly inside the boundary.
	Contains(boundary orb.MultiPolygon, p orb.Point) (bool, error)
	// Length measures the line in the given unit.
	Length(line orb.LineString, unit domain.Unit) (float64, error)
}

// Segmenter computes per-region mileage. It holds no per-call state and is
// safe for concurrent use.
type Segmenter struct {
	prims        Primitives
	eps          float64
	keepSegments bool
	parallelism  int
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithEpsilon sets the tolerance, in degrees, under which two cut points are
// considered the same point.
func WithEpsilon(eps float64) Option {
	return func(s *Segmenter) {
		if eps > 0 {
			s.eps = eps
		}
	}
}

// WithSegments keeps crossing points and sub-segments in the result.
func WithSegments(keep bool) Option {
	return func(s *Segmenter) { s.keepSegments = keep }
}

// WithParallelism evaluates up to n regions concurrently.
func WithParallelism(n int) Option {
	return func(s *Segmenter) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// New creates a Segmenter on top of the given primitives.
func New(prims Primitives, opts ...Option) *Segmenter {
	s := &Segmenter{
		prims:       prims,
		eps:         geospatial.DefaultEpsilon,
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Epsilon returns the configured tolerance.
func (s *Segmenter) Epsilon() float64 { return s.eps }

// Compute returns one entry per region with the length of line inside it,
// sorted by region name. Input errors fail before any region is evaluated.
// A primitive failure aborts the call with a *domain.RegionError naming the
// region and stage. Cancelling ctx stops evaluating further regions and
// returns ctx.Err().
func (s *Segmenter) Compute(ctx context.Context, line domain.Polyline, regions []domain.Region, unit domain.Unit) (*domain.MileageResult, error) {
	if err := line.Validate(); err != nil {
		return nil, err
	}
	if err := validateUnit(unit); err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w: no regions", domain.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate region %q", domain.ErrInvalidInput, r.Name)
		}
		seen[r.Name] = struct{}{}
	}

	ls := line.LineString()
	total, err := s.prims.Length(ls, unit)
	if err != nil {
		return nil, fmt.Errorf("measure line: %w: %w", domain.ErrPrimitiveFailure, err)
	}

	entries := make([]domain.RegionMileage, len(regions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i := range regions {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, err := s.region(ls, regions[i], unit)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &domain.MileageResult{Unit: unit, LineLength: total, Regions: entries}
	res.Sort()
	return res, nil
}

// Region computes the mileage of line inside a single region.
func (s *Segmenter) Region(line domain.Polyline, region domain.Region, unit domain.Unit) (domain.RegionMileage, error) {
	if err := line.Validate(); err != nil {
		return domain.RegionMileage{}, err
	}
	if err := validateUnit(unit); err != nil {
		return domain.RegionMileage{}, err
	}
	return s.region(line.LineString(), region, unit)
}

// Measure returns the length of the whole line.
func (s *Segmenter) Measure(line domain.Polyline, unit domain.Unit) (float64, error) {
	if err := line.Validate(); err != nil {
		return 0, err
	}
	if err := validateUnit(unit); err != nil {
		return 0, err
	}
	length, err := s.prims.Length(line.LineString(), unit)
	if err != nil {
		return 0, fmt.Errorf("measure line: %w: %w", domain.ErrPrimitiveFailure, err)
	}
	return length, nil
}

func validateUnit(unit domain.Unit) error {
	if unit == domain.UnitDegrees {
		return nil
	}
	if _, ok := unit.PerMeter(); !ok {
		return fmt.Errorf("%w: unknown unit %q", domain.ErrInvalidInput, unit)
	}
	return nil
}

// cut is a point the line is split at.
type cut struct {
	pos      float64
	pt       orb.Point
	crossing bool
}

func (s *Segmenter) region(ls orb.LineString, r domain.Region, unit domain.Unit) (domain.RegionMileage, error) {
	fail := func(stage domain.Stage, err error) (domain.RegionMileage, error) {
		return domain.RegionMileage{}, &domain.RegionError{
			Region: r.Name,
			Stage:  stage,
			Err:    fmt.Errorf("%w: %w", domain.ErrPrimitiveFailure, err),
		}
	}

	crossings, err := s.prims.Intersect(ls, r.Boundary)
	if err != nil {
		return fail(domain.StageCrossingDetection, err)
	}

	cuts, err := s.order(ls, crossings)
	if err != nil {
		return fail(domain.StageSorting, err)
	}

	entry := domain.RegionMileage{Region: r.Name, Status: domain.RegionStatusOK}
	for i := 1; i < len(cuts); i++ {
		from, to := cuts[i-1].pos, cuts[i].pos
		mid := pointAt(ls, (from+to)/2)

		inside, err := s.prims.Contains(r.Boundary, mid)
		if err != nil {
			return fail(domain.StageClassification, err)
		}
		sub := piece(ls, from, to)
		length, err := s.prims.Length(sub, unit)
		if err != nil {
			return fail(domain.StageMeasurement, err)
		}
		if inside {
			entry.Length += length
		}

		if s.keepSegments {
			entry.Segments = append(entry.Segments, domain.SubSegment{
				From:        from,
				To:          to,
				Coordinates: domain.PolylineFromLineString(sub).Coordinates,
				Length:      length,
				Inside:      inside,
			})
		}
	}

	if s.keepSegments {
		for _, c := range cuts {
			if c.crossing {
				entry.Crossings = append(entry.Crossings, domain.CrossingPoint{
					Coordinate: domain.CoordinateFromPoint(c.pt),
					Position:   c.pos,
				})
			}
		}
	}
	return entry, nil
}

// order places the line ends and every crossing at their positions along the
// line, sorts them and merges cuts whose connecting piece is no longer than
// epsilon. The first cut is always the line start and the last the line end.
func (s *Segmenter) order(ls orb.LineString, crossings []orb.Point) ([]cut, error) {
	last := float64(len(ls) - 1)
	start := cut{pos: 0, pt: ls[0]}
	end := cut{pos: last, pt: ls[len(ls)-1]}

	cuts := make([]cut, 0, len(crossings)+2)
	cuts = append(cuts, start)
	for _, c := range crossings {
		positions := locate(ls, c, s.eps)
		if len(positions) == 0 {
			return nil, fmt.Errorf("crossing %v is not on the line", c)
		}
		for _, p := range positions {
			cuts = append(cuts, cut{pos: p, pt: c, crossing: true})
		}
	}
	cuts = append(cuts, end)
	sort.SliceStable(cuts, func(i, j int) bool { return cuts[i].pos < cuts[j].pos })

	out := cuts[:1]
	for _, c := range cuts[1:] {
		prev := &out[len(out)-1]
		if planar.Length(piece(ls, prev.pos, c.pos)) <= s.eps {
			prev.crossing = prev.crossing || c.crossing
			continue
		}
		out = append(out, c)
	}

	// The end may have been merged into a crossing just before it.
	if tail := &out[len(out)-1]; tail.pos != last {
		if len(out) > 1 {
			end.crossing = tail.crossing
			*tail = end
		} else {
			out = append(out, end)
		}
	}
	return out, nil
}

// locate returns every position along ls at which p lies within eps of the
// line. A position is the index of the segment plus the fraction travelled
// along it.
func locate(ls orb.LineString, p orb.Point, eps float64) []float64 {
	var out []float64
	for i := 1; i < len(ls); i++ {
		a, b := ls[i-1], ls[i]
		if planar.DistanceFromSegment(a, b, p) > eps {
			continue
		}
		out = append(out, float64(i-1)+project(a, b, p))
	}
	return out
}

func project(a, b, p orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	d2 := dx*dx + dy*dy
	if d2 == 0 {
		return 0
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / d2
	return math.Max(0, math.Min(1, t))
}

// pointAt interpolates the point at a position along ls.
func pointAt(ls orb.LineString, pos float64) orb.Point {
	i := int(math.Floor(pos))
	if i >= len(ls)-1 {
		i = len(ls) - 2
	}
	if i < 0 {
		i = 0
	}
	t := pos - float64(i)
	a, b := ls[i], ls[i+1]
	if t == 0 {
		return a
	}
	if t == 1 {
		return b
	}
	return orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
}

// piece returns the part of ls between two positions, including the
// vertices strictly between them.
func piece(ls orb.LineString, from, to float64) orb.LineString {
	out := orb.LineString{pointAt(ls, from)}
	for k := int(math.Floor(from)) + 1; float64(k) < to; k++ {
		out = append(out, ls[k])
	}
	return append(out, pointAt(ls, to))
}
