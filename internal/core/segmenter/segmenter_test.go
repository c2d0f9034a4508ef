package segmenter_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/mileage/internal/core/domain"
	"github.com/samirrijal/mileage/internal/core/segmenter"
	"github.com/samirrijal/mileage/internal/pkg/geospatial"
)

const tol = 1e-9

func region(name string, mp orb.MultiPolygon) domain.Region {
	return domain.Region{Name: name, Boundary: mp}
}

func box(minX, minY, maxX, maxY float64) orb.MultiPolygon {
	return orb.MultiPolygon{{{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}}
}

var unitSquare = region("square", box(-1, -1, 1, 1))

func newSegmenter(opts ...segmenter.Option) *segmenter.Segmenter {
	opts = append([]segmenter.Option{segmenter.WithSegments(true)}, opts...)
	return segmenter.New(geospatial.NewEngine(0), opts...)
}

func compute(t *testing.T, s *segmenter.Segmenter, line domain.Polyline, regions ...domain.Region) *domain.MileageResult {
	t.Helper()
	res, err := s.Compute(context.Background(), line, regions, domain.UnitDegrees)
	require.NoError(t, err)
	return res
}

func entry(t *testing.T, res *domain.MileageResult, name string) domain.RegionMileage {
	t.Helper()
	e, ok := res.Get(name)
	require.True(t, ok, "missing entry for %s", name)
	return e
}

func assertPartition(t *testing.T, res *domain.MileageResult) {
	t.Helper()
	for _, e := range res.Regions {
		var sum float64
		for i, seg := range e.Segments {
			sum += seg.Length
			if i > 0 {
				assert.Equal(t, e.Segments[i-1].To, seg.From, "gap in %s", e.Region)
			}
			assert.Greater(t, seg.To, seg.From, "empty sub-segment in %s", e.Region)
		}
		assert.InDelta(t, res.LineLength, sum, tol, "partition of %s", e.Region)
	}
}

func TestCompute_LineSpanningSquare(t *testing.T) {
	res := compute(t, newSegmenter(), domain.NewPolyline([2]float64{-1, 0}, [2]float64{1, 0}), unitSquare)

	e := entry(t, res, "square")
	assert.InDelta(t, 2, e.Length, tol)
	require.Len(t, e.Crossings, 2)
	assert.InDelta(t, -1, e.Crossings[0].Coordinate.Lon, tol)
	assert.InDelta(t, 1, e.Crossings[1].Coordinate.Lon, tol)
	require.Len(t, e.Segments, 1)
	assert.True(t, e.Segments[0].Inside)
	assertPartition(t, res)
}

func TestCompute_LineThroughSquare(t *testing.T) {
	res := compute(t, newSegmenter(), domain.NewPolyline([2]float64{-2, 0}, [2]float64{2, 0}), unitSquare)

	e := entry(t, res, "square")
	assert.InDelta(t, 2, e.Length, tol)
	assert.InDelta(t, 4, res.LineLength, tol)
	require.Len(t, e.Crossings, 2)
	assert.InDelta(t, 0.25, e.Crossings[0].Position, tol)
	assert.InDelta(t, 0.75, e.Crossings[1].Position, tol)

	require.Len(t, e.Segments, 3)
	assert.False(t, e.Segments[0].Inside)
	assert.True(t, e.Segments[1].Inside)
	assert.False(t, e.Segments[2].Inside)
	assertPartition(t, res)
}

func TestCompute_LineInside(t *testing.T) {
	res := compute(t, newSegmenter(), domain.NewPolyline([2]float64{-0.5, -0.5}, [2]float64{0.5, 0.5}), unitSquare)

	e := entry(t, res, "square")
	assert.InDelta(t, math.Sqrt2, e.Length, tol)
	assert.Empty(t, e.Crossings)
	require.Len(t, e.Segments, 1)
}

func TestCompute_LineOutside(t *testing.T) {
	res := compute(t, newSegmenter(), domain.NewPolyline([2]float64{5, 5}, [2]float64{6, 6}), unitSquare)

	e := entry(t, res, "square")
	assert.Zero(t, e.Length)
	assert.Equal(t, domain.RegionStatusOK, e.Status)
	assert.Empty(t, e.Crossings)
}

func TestCompute_AdjacentRegions(t *testing.T) {
	west := region("west", box(-1, -1, 0, 1))
	east := region("east", box(0, -1, 1, 1))
	line := domain.NewPolyline([2]float64{-0.5, 0}, [2]float64{0.5, 0})

	res := compute(t, newSegmenter(), line, west, east)

	w, e := entry(t, res, "west"), entry(t, res, "east")
	assert.InDelta(t, 0.5, w.Length, tol)
	assert.InDelta(t, 0.5, e.Length, tol)
	assert.InDelta(t, res.LineLength, res.Total(), tol)
	require.Len(t, w.Crossings, 1)
	require.Len(t, w.Segments, 2)
	require.Len(t, e.Segments, 2)
	assertPartition(t, res)
}

func TestCompute_VertexGraze(t *testing.T) {
	// The diagonal passes exactly through two corners, each reported by both
	// edges meeting there.
	res := compute(t, newSegmenter(), domain.NewPolyline([2]float64{-2, -2}, [2]float64{2, 2}), unitSquare)

	e := entry(t, res, "square")
	assert.InDelta(t, 2*math.Sqrt2, e.Length, tol)
	require.Len(t, e.Crossings, 2)
	require.Len(t, e.Segments, 3)
	assertPartition(t, res)
}

func TestCompute_CornerTouch(t *testing.T) {
	res := compute(t, newSegmenter(), domain.NewPolyline([2]float64{0, 2}, [2]float64{2, 0}), unitSquare)

	e := entry(t, res, "square")
	assert.Zero(t, e.Length)
	require.Len(t, e.Crossings, 1)
	require.Len(t, e.Segments, 2)
	assertPartition(t, res)
}

func TestCompute_MidpointOnBoundaryIsOutside(t *testing.T) {
	res := compute(t, newSegmenter(), domain.NewPolyline([2]float64{-2, 1}, [2]float64{2, 1}), unitSquare)

	e := entry(t, res, "square")
	assert.Zero(t, e.Length)
	require.Len(t, e.Segments, 3)
	for _, seg := range e.Segments {
		assert.False(t, seg.Inside)
	}
	assertPartition(t, res)
}

func TestCompute_WindingLine(t *testing.T) {
	// Out, back along a parallel track: not monotonic in longitude.
	line := domain.NewPolyline(
		[2]float64{-2, 0},
		[2]float64{2, 0},
		[2]float64{2, 0.5},
		[2]float64{-2, 0.5},
	)
	res := compute(t, newSegmenter(), line, unitSquare)

	e := entry(t, res, "square")
	assert.InDelta(t, 4, e.Length, tol)
	assert.InDelta(t, 8.5, res.LineLength, tol)
	require.Len(t, e.Crossings, 4)
	positions := []float64{0.25, 0.75, 2.25, 2.75}
	for i, c := range e.Crossings {
		assert.InDelta(t, positions[i], c.Position, tol)
	}
	assertPartition(t, res)
}

func TestCompute_ClosedLoop(t *testing.T) {
	inside := domain.NewPolyline(
		[2]float64{-0.5, -0.5},
		[2]float64{0.5, -0.5},
		[2]float64{0.5, 0.5},
		[2]float64{-0.5, 0.5},
		[2]float64{-0.5, -0.5},
	)
	res := compute(t, newSegmenter(), inside, unitSquare)
	assert.InDelta(t, 4, entry(t, res, "square").Length, tol)

	crossing := domain.NewPolyline(
		[2]float64{-2, 0},
		[2]float64{2, 0},
		[2]float64{2, 3},
		[2]float64{-2, 3},
		[2]float64{-2, 0},
	)
	res = compute(t, newSegmenter(), crossing, unitSquare)
	assert.InDelta(t, 2, entry(t, res, "square").Length, tol)
	assertPartition(t, res)
}

func TestCompute_Holes(t *testing.T) {
	donut := domain.Region{Name: "donut", Boundary: orb.MultiPolygon{{
		{{-2, -2}, {2, -2}, {2, 2}, {-2, 2}, {-2, -2}},
		{{-1, -1}, {-1, 1}, {1, 1}, {1, -1}, {-1, -1}},
	}}}
	res := compute(t, newSegmenter(), domain.NewPolyline([2]float64{-3, 0}, [2]float64{3, 0}), donut)

	e := entry(t, res, "donut")
	assert.InDelta(t, 2, e.Length, tol)
	require.Len(t, e.Segments, 5)
	assertPartition(t, res)
}

func TestCompute_MultiPolygon(t *testing.T) {
	islands := domain.Region{Name: "islands", Boundary: append(box(-3, -1, -2, 1), box(2, -1, 3, 1)...)}
	res := compute(t, newSegmenter(), domain.NewPolyline([2]float64{-4, 0}, [2]float64{4, 0}), islands)

	assert.InDelta(t, 2, entry(t, res, "islands").Length, tol)
	assertPartition(t, res)
}

func TestCompute_OrderInvariance(t *testing.T) {
	a := region("a", box(-1, -1, 0, 1))
	b := region("b", box(0, -1, 1, 1))
	c := region("c", box(5, 5, 6, 6))
	line := domain.NewPolyline([2]float64{-2, 0.3}, [2]float64{0.2, -0.4}, [2]float64{2, 0.1})

	s := newSegmenter()
	first := compute(t, s, line, a, b, c)
	second := compute(t, s, line, c, a, b)
	third := compute(t, s, line, b, c, a)

	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
	assert.Equal(t, []string{"a", "b", "c"}, []string{first.Regions[0].Region, first.Regions[1].Region, first.Regions[2].Region})
}

func TestCompute_Idempotent(t *testing.T) {
	line := domain.NewPolyline([2]float64{-2, -0.7}, [2]float64{0.3, 1.6}, [2]float64{1.7, -0.2})
	s := newSegmenter()

	assert.Equal(t, compute(t, s, line, unitSquare), compute(t, s, line, unitSquare))
}

func TestCompute_ReversalSymmetry(t *testing.T) {
	a := region("a", box(-1, -1, 0, 1))
	b := region("b", box(0, -1, 1, 1))
	lines := []domain.Polyline{
		domain.NewPolyline([2]float64{-2, 0.3}, [2]float64{0.2, -0.4}, [2]float64{2, 0.1}),
		domain.NewPolyline([2]float64{-2, -2}, [2]float64{2, 2}),
		domain.NewPolyline([2]float64{-2, 0}, [2]float64{2, 0}, [2]float64{2, 0.5}, [2]float64{-2, 0.5}),
	}
	s := newSegmenter()
	for _, line := range lines {
		fwd := compute(t, s, line, a, b, unitSquare)
		rev := compute(t, s, line.Reverse(), a, b, unitSquare)
		for name, length := range fwd.Lengths() {
			assert.InDelta(t, length, rev.Lengths()[name], tol, name)
		}
		assertPartition(t, fwd)
		assertPartition(t, rev)
	}
}

func TestCompute_Parallelism(t *testing.T) {
	var regions []domain.Region
	for i := 0; i < 16; i++ {
		x := float64(i) - 8
		regions = append(regions, region(string(rune('a'+i)), box(x, -1, x+1, 1)))
	}
	line := domain.NewPolyline([2]float64{-9, 0.2}, [2]float64{9, -0.3})

	serial := compute(t, newSegmenter(), line, regions...)
	parallel := compute(t, newSegmenter(segmenter.WithParallelism(4)), line, regions...)

	assert.Equal(t, serial, parallel)
	assert.InDelta(t, 16.0/18.0*serial.LineLength, serial.Total(), 1e-6)
}

func TestCompute_Meters(t *testing.T) {
	s := newSegmenter()
	line := domain.NewPolyline([2]float64{-2, 0}, [2]float64{2, 0})
	res, err := s.Compute(context.Background(), line, []domain.Region{unitSquare}, domain.UnitMeters)
	require.NoError(t, err)

	oneDegree := 6371.0 * 1000 * math.Pi / 180
	assert.Equal(t, domain.UnitMeters, res.Unit)
	assert.InDelta(t, 4*oneDegree, res.LineLength, 1e-6)
	assert.InDelta(t, 2*oneDegree, entry(t, res, "square").Length, 1e-6)

	var sum float64
	for _, seg := range entry(t, res, "square").Segments {
		sum += seg.Length
	}
	assert.InDelta(t, res.LineLength, sum, 1e-6)

	km, err := s.Compute(context.Background(), line, []domain.Region{unitSquare}, domain.UnitKilometers)
	require.NoError(t, err)
	assert.InDelta(t, 2*oneDegree/1000, entry(t, km, "square").Length, 1e-9)
}

func TestCompute_SegmentsOmittedByDefault(t *testing.T) {
	s := segmenter.New(geospatial.NewEngine(0))
	res, err := s.Compute(context.Background(), domain.NewPolyline([2]float64{-2, 0}, [2]float64{2, 0}), []domain.Region{unitSquare}, domain.UnitDegrees)
	require.NoError(t, err)

	e := entry(t, res, "square")
	assert.InDelta(t, 2, e.Length, tol)
	assert.Nil(t, e.Segments)
	assert.Nil(t, e.Crossings)
}

func TestCompute_InvalidInput(t *testing.T) {
	s := newSegmenter()
	ctx := context.Background()
	line := domain.NewPolyline([2]float64{0, 0}, [2]float64{1, 1})

	cases := []struct {
		name    string
		line    domain.Polyline
		regions []domain.Region
		unit    domain.Unit
	}{
		{"single point", domain.NewPolyline([2]float64{0, 0}), []domain.Region{unitSquare}, domain.UnitDegrees},
		{"zero length", domain.NewPolyline([2]float64{0, 0}, [2]float64{0, 0}), []domain.Region{unitSquare}, domain.UnitDegrees},
		{"not finite", domain.NewPolyline([2]float64{0, 0}, [2]float64{math.NaN(), 0}), []domain.Region{unitSquare}, domain.UnitDegrees},
		{"no regions", line, nil, domain.UnitDegrees},
		{"duplicate regions", line, []domain.Region{unitSquare, unitSquare}, domain.UnitDegrees},
		{"unknown unit", line, []domain.Region{unitSquare}, domain.Unit("leagues")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Compute(ctx, tc.line, tc.regions, tc.unit)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestCompute_MalformedBoundary(t *testing.T) {
	broken := region("broken", orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}})
	_, err := newSegmenter().Compute(context.Background(), domain.NewPolyline([2]float64{-1, 0.5}, [2]float64{2, 0.5}), []domain.Region{unitSquare, broken}, domain.UnitDegrees)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPrimitiveFailure)
	assert.ErrorIs(t, err, geospatial.ErrMalformedBoundary)

	var rerr *domain.RegionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "broken", rerr.Region)
	assert.Equal(t, domain.StageCrossingDetection, rerr.Stage)
}

// faultyPrims wraps the engine and injects failures.
type faultyPrims struct {
	*geospatial.Engine
	extraCrossings []orb.Point
	containsErr    error
	lengthErr      error
	lengthCalls    int
}

func (f *faultyPrims) Intersect(line orb.LineString, boundary orb.MultiPolygon) ([]orb.Point, error) {
	pts, err := f.Engine.Intersect(line, boundary)
	return append(pts, f.extraCrossings...), err
}

func (f *faultyPrims) Contains(boundary orb.MultiPolygon, p orb.Point) (bool, error) {
	if f.containsErr != nil {
		return false, f.containsErr
	}
	return f.Engine.Contains(boundary, p)
}

func (f *faultyPrims) Length(line orb.LineString, unit domain.Unit) (float64, error) {
	f.lengthCalls++
	// The first call measures the whole line.
	if f.lengthErr != nil && f.lengthCalls > 1 {
		return 0, f.lengthErr
	}
	return f.Engine.Length(line, unit)
}

func TestCompute_PrimitiveFailureStages(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name  string
		prims *faultyPrims
		stage domain.Stage
	}{
		{"crossing off the line", &faultyPrims{extraCrossings: []orb.Point{{0, 5}}}, domain.StageSorting},
		{"containment", &faultyPrims{containsErr: boom}, domain.StageClassification},
		{"measurement", &faultyPrims{lengthErr: boom}, domain.StageMeasurement},
	}
	line := domain.NewPolyline([2]float64{-2, 0}, [2]float64{2, 0})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.prims.Engine = geospatial.NewEngine(0)
			_, err := segmenter.New(tc.prims).Compute(context.Background(), line, []domain.Region{unitSquare}, domain.UnitDegrees)

			var rerr *domain.RegionError
			require.True(t, errors.As(err, &rerr), "got %v", err)
			assert.Equal(t, tc.stage, rerr.Stage)
			assert.Equal(t, "square", rerr.Region)
			assert.ErrorIs(t, err, domain.ErrPrimitiveFailure)
		})
	}
}

func TestCompute_NearDuplicateCrossingsMerge(t *testing.T) {
	prims := &faultyPrims{
		Engine:         geospatial.NewEngine(0),
		extraCrossings: []orb.Point{{-1 + 1e-12, 0}, {1 - 1e-13, 0}},
	}
	s := segmenter.New(prims, segmenter.WithSegments(true))
	res, err := s.Compute(context.Background(), domain.NewPolyline([2]float64{-2, 0}, [2]float64{2, 0}), []domain.Region{unitSquare}, domain.UnitDegrees)
	require.NoError(t, err)

	e := entry(t, res, "square")
	require.Len(t, e.Crossings, 2)
	require.Len(t, e.Segments, 3)
	assert.InDelta(t, 2, e.Length, tol)
}

func TestCompute_Epsilon(t *testing.T) {
	prims := &faultyPrims{
		Engine:         geospatial.NewEngine(0),
		extraCrossings: []orb.Point{{0, 0}, {0.001, 0}},
	}
	line := domain.NewPolyline([2]float64{-0.5, 0}, [2]float64{0.5, 0})

	fine := segmenter.New(prims, segmenter.WithSegments(true))
	res, err := fine.Compute(context.Background(), line, []domain.Region{unitSquare}, domain.UnitDegrees)
	require.NoError(t, err)
	assert.Len(t, entry(t, res, "square").Segments, 3)

	coarse := segmenter.New(prims, segmenter.WithSegments(true), segmenter.WithEpsilon(0.01))
	assert.Equal(t, 0.01, coarse.Epsilon())
	res, err = coarse.Compute(context.Background(), line, []domain.Region{unitSquare}, domain.UnitDegrees)
	require.NoError(t, err)
	assert.Len(t, entry(t, res, "square").Segments, 2)
	assert.InDelta(t, 1, entry(t, res, "square").Length, tol)
}

func TestCompute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newSegmenter().Compute(ctx, domain.NewPolyline([2]float64{-2, 0}, [2]float64{2, 0}), []domain.Region{unitSquare}, domain.UnitDegrees)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegion(t *testing.T) {
	s := newSegmenter()
	e, err := s.Region(domain.NewPolyline([2]float64{-2, 0}, [2]float64{2, 0}), unitSquare, domain.UnitDegrees)
	require.NoError(t, err)
	assert.InDelta(t, 2, e.Length, tol)
	assert.Equal(t, "square", e.Region)

	_, err = s.Region(domain.NewPolyline([2]float64{1, 1}), unitSquare, domain.UnitDegrees)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMeasure(t *testing.T) {
	s := newSegmenter()
	length, err := s.Measure(domain.NewPolyline([2]float64{0, 0}, [2]float64{3, 4}), domain.UnitDegrees)
	require.NoError(t, err)
	assert.InDelta(t, 5, length, tol)

	_, err = s.Measure(domain.NewPolyline([2]float64{0, 0}, [2]float64{3, 4}), domain.Unit("parsecs"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
