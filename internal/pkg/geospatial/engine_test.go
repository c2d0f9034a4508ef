package geospatial_test

import (
	"math"
	"sort"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/mileage/internal/core/domain"
	"github.com/samirrijal/mileage/internal/pkg/geospatial"
)

var square = orb.MultiPolygon{{{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}, {-1, -1}}}}

func sortPoints(pts []orb.Point) {
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})
}

func TestIntersect_CrossingLine(t *testing.T) {
	e := geospatial.NewEngine(0)
	pts, err := e.Intersect(orb.LineString{{-2, 0}, {2, 0}}, square)
	require.NoError(t, err)
	require.Len(t, pts, 2)

	sortPoints(pts)
	assert.InDelta(t, -1, pts[0][0], 1e-12)
	assert.InDelta(t, 0, pts[0][1], 1e-12)
	assert.InDelta(t, 1, pts[1][0], 1e-12)
}

func TestIntersect_NoContact(t *testing.T) {
	e := geospatial.NewEngine(0)
	pts, err := e.Intersect(orb.LineString{{5, 5}, {6, 6}}, square)
	require.NoError(t, err)
	assert.Empty(t, pts)

	pts, err = e.Intersect(orb.LineString{{-0.5, -0.5}, {0.5, 0.5}}, square)
	require.NoError(t, err)
	assert.Empty(t, pts)
}

func TestIntersect_CollinearEdge(t *testing.T) {
	e := geospatial.NewEngine(0)
	pts, err := e.Intersect(orb.LineString{{-2, 1}, {2, 1}}, square)
	require.NoError(t, err)

	// Both overlap ends plus the touches of the side edges.
	require.NotEmpty(t, pts)
	for _, p := range pts {
		assert.InDelta(t, 1, p[1], 1e-12)
		assert.InDelta(t, 1, math.Abs(p[0]), 1e-12)
	}
}

func TestIntersect_Holes(t *testing.T) {
	donut := orb.MultiPolygon{{
		{{-2, -2}, {2, -2}, {2, 2}, {-2, 2}, {-2, -2}},
		{{-1, -1}, {-1, 1}, {1, 1}, {1, -1}, {-1, -1}},
	}}
	e := geospatial.NewEngine(0)
	pts, err := e.Intersect(orb.LineString{{-3, 0}, {3, 0}}, donut)
	require.NoError(t, err)
	assert.Len(t, pts, 4)
}

func TestIntersect_MalformedBoundary(t *testing.T) {
	e := geospatial.NewEngine(0)
	open := orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}}
	_, err := e.Intersect(orb.LineString{{-1, 0.5}, {2, 0.5}}, open)
	assert.ErrorIs(t, err, geospatial.ErrMalformedBoundary)

	nan := orb.MultiPolygon{{{{0, 0}, {1, 0}, {math.NaN(), 1}, {0, 0}}}}
	_, err = e.Intersect(orb.LineString{{-1, 0.5}, {2, 0.5}}, nan)
	assert.ErrorIs(t, err, geospatial.ErrMalformedBoundary)

	_, err = e.Intersect(orb.LineString{{-1, 0.5}, {2, 0.5}}, nil)
	assert.ErrorIs(t, err, geospatial.ErrMalformedBoundary)
}

func TestContains(t *testing.T) {
	e := geospatial.NewEngine(0)
	cases := []struct {
		name string
		p    orb.Point
		want bool
	}{
		{"center", orb.Point{0, 0}, true},
		{"outside", orb.Point{5, 5}, false},
		{"on edge", orb.Point{1, 0}, false},
		{"on vertex", orb.Point{-1, -1}, false},
		{"within epsilon of edge", orb.Point{1 - 1e-12, 0}, false},
		{"just inside", orb.Point{1 - 1e-6, 0}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.Contains(square, tc.p)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestContains_Hole(t *testing.T) {
	donut := orb.MultiPolygon{{
		{{-2, -2}, {2, -2}, {2, 2}, {-2, 2}, {-2, -2}},
		{{-1, -1}, {-1, 1}, {1, 1}, {1, -1}, {-1, -1}},
	}}
	e := geospatial.NewEngine(0)

	in, err := e.Contains(donut, orb.Point{0, 0})
	require.NoError(t, err)
	assert.False(t, in)

	in, err = e.Contains(donut, orb.Point{1.5, 0})
	require.NoError(t, err)
	assert.True(t, in)
}

func TestContains_NonFinite(t *testing.T) {
	e := geospatial.NewEngine(0)
	_, err := e.Contains(square, orb.Point{math.Inf(1), 0})
	assert.ErrorIs(t, err, geospatial.ErrNonFinite)
}

func TestLength(t *testing.T) {
	e := geospatial.NewEngine(0)
	line := orb.LineString{{0, 0}, {1, 0}}
	oneDegree := 6371.0 * 1000 * math.Pi / 180

	m, err := e.Length(line, domain.UnitMeters)
	require.NoError(t, err)
	assert.InDelta(t, oneDegree, m, 1e-6)

	km, err := e.Length(line, domain.UnitKilometers)
	require.NoError(t, err)
	assert.InDelta(t, oneDegree/1000, km, 1e-9)

	mi, err := e.Length(line, domain.UnitMiles)
	require.NoError(t, err)
	assert.InDelta(t, oneDegree/1609.344, mi, 1e-9)

	nmi, err := e.Length(line, domain.UnitNauticalMiles)
	require.NoError(t, err)
	assert.InDelta(t, oneDegree/1852, nmi, 1e-9)

	deg, err := e.Length(orb.LineString{{0, 0}, {3, 4}}, domain.UnitDegrees)
	require.NoError(t, err)
	assert.InDelta(t, 5, deg, 1e-12)

	_, err = e.Length(line, domain.Unit("furlongs"))
	assert.ErrorIs(t, err, geospatial.ErrUnsupportedUnit)
}

func TestHaversine(t *testing.T) {
	// Bilbao to Donostia, roughly 80 km.
	d := geospatial.Haversine(orb.Point{-2.9350, 43.2630}, orb.Point{-1.9812, 43.3183})
	assert.InDelta(t, 77_500, d, 2_500)
	assert.Zero(t, geospatial.Haversine(orb.Point{1, 1}, orb.Point{1, 1}))
}

func TestArea(t *testing.T) {
	// A 2x2 degree square at the equator is about 49,566 km².
	km2 := geospatial.Area(square) / 1e6
	assert.InDelta(t, 49_566, km2, 200)
}

func TestValidateBoundary(t *testing.T) {
	require.NoError(t, geospatial.ValidateBoundary(square))
	assert.ErrorIs(t, geospatial.ValidateBoundary(orb.MultiPolygon{{}}), geospatial.ErrMalformedBoundary)
	assert.ErrorIs(t, geospatial.ValidateBoundary(orb.MultiPolygon{{{{0, 0}, {1, 1}, {0, 0}}}}), geospatial.ErrMalformedBoundary)
}
