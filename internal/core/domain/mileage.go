package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// Unit is the length unit a mileage is reported in.
type Unit string

const (
	UnitMeters        Unit = "meters"
	UnitKilometers    Unit = "kilometers"
	UnitMiles         Unit = "miles"
	UnitNauticalMiles Unit = "nautical_miles"
	// UnitDegrees measures planar length in coordinate units.
	UnitDegrees Unit = "degrees"
)

var unitAliases = map[string]Unit{
	"m":              UnitMeters,
	"meters":         UnitMeters,
	"metres":         UnitMeters,
	"km":             UnitKilometers,
	"kilometers":     UnitKilometers,
	"kilometres":     UnitKilometers,
	"mi":             UnitMiles,
	"miles":          UnitMiles,
	"nmi":            UnitNauticalMiles,
	"nauticalmiles":  UnitNauticalMiles,
	"nautical_miles": UnitNauticalMiles,
	"deg":            UnitDegrees,
	"degrees":        UnitDegrees,
}

// ParseUnit resolves a unit name or abbreviation.
func ParseUnit(s string) (Unit, error) {
	if u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return u, nil
	}
	return "", fmt.Errorf("%w: unknown unit %q", ErrInvalidInput, s)
}

// PerMeter returns how many units make up one meter. Degrees are planar and
// have no meter conversion; ok is false for them.
func (u Unit) PerMeter() (factor float64, ok bool) {
	switch u {
	case UnitMeters:
		return 1, true
	case UnitKilometers:
		return 1.0 / 1000, true
	case UnitMiles:
		return 1.0 / 1609.344, true
	case UnitNauticalMiles:
		return 1.0 / 1852, true
	}
	return 0, false
}

// Convert expresses v, measured in u, in another unit. Degrees only convert
// to degrees.
func (u Unit) Convert(v float64, to Unit) (float64, bool) {
	if u == to {
		return v, true
	}
	from, ok := u.PerMeter()
	if !ok {
		return 0, false
	}
	dst, ok := to.PerMeter()
	if !ok {
		return 0, false
	}
	return v / from * dst, true
}

// Region is a named administrative boundary. Single polygons are stored as
// one-element multipolygons; ring 0 of each polygon is the outer ring.
type Region struct {
	Name       string           `json:"name"`
	Boundary   orb.MultiPolygon `json:"-"`
	Properties map[string]any   `json:"properties,omitempty"`
}

// RegionSummary describes a region without its full geometry.
type RegionSummary struct {
	Name       string         `json:"name"`
	Polygons   int            `json:"polygons"`
	Holes      int            `json:"holes"`
	Vertices   int            `json:"vertices"`
	Bounds     Bounds         `json:"bounds"`
	AreaKm2    float64        `json:"area_km2"`
	Properties map[string]any `json:"properties,omitempty"`
}

// CrossingPoint is where a polyline meets a region boundary. Position is the
// vertex-index parameter along the polyline: segment index plus the fraction
// travelled along that segment.
type CrossingPoint struct {
	Coordinate Coordinate `json:"coordinate"`
	Position   float64    `json:"position"`
}

// SubSegment is the piece of a polyline between two consecutive critical
// points. Coordinates holds the piece including any interior vertices.
type SubSegment struct {
	From        float64      `json:"from"`
	To          float64      `json:"to"`
	Coordinates []Coordinate `json:"coordinates"`
	Length      float64      `json:"length"`
	Inside      bool         `json:"inside"`
}

// RegionStatus tells whether a region entry was computed.
type RegionStatus string

const (
	RegionStatusOK         RegionStatus = "ok"
	RegionStatusUnresolved RegionStatus = "unresolved"
)

// RegionMileage is the inside-length of a polyline for one region.
type RegionMileage struct {
	Region    string          `json:"region"`
	Length    float64         `json:"length"`
	Status    RegionStatus    `json:"status"`
	Warning   string          `json:"warning,omitempty"`
	Crossings []CrossingPoint `json:"crossings,omitempty"`
	Segments  []SubSegment    `json:"segments,omitempty"`
}

// MileageResult holds one entry per requested region, sorted by region name.
type MileageResult struct {
	Unit       Unit            `json:"unit"`
	LineLength float64         `json:"line_length"`
	Regions    []RegionMileage `json:"regions"`
}

// Sort orders entries by region name.
func (r *MileageResult) Sort() {
	sort.SliceStable(r.Regions, func(i, j int) bool { return r.Regions[i].Region < r.Regions[j].Region })
}

// Get returns the entry for a region.
func (r *MileageResult) Get(name string) (RegionMileage, bool) {
	for _, e := range r.Regions {
		if e.Region == name {
			return e, true
		}
	}
	return RegionMileage{}, false
}

// Lengths maps region names to their inside-length.
func (r *MileageResult) Lengths() map[string]float64 {
	out := make(map[string]float64, len(r.Regions))
	for _, e := range r.Regions {
		out[e.Region] = e.Length
	}
	return out
}

// Total sums the inside-lengths of all entries.
func (r *MileageResult) Total() float64 {
	var sum float64
	for _, e := range r.Regions {
		sum += e.Length
	}
	return sum
}

// RouteMileage is a persisted mileage computation for a route shape.
type RouteMileage struct {
	RouteID    string         `json:"route_id"`
	Unit       Unit           `json:"unit"`
	Result     *MileageResult `json:"result"`
	ComputedAt time.Time      `json:"computed_at"`
}

// MileageRequest asks for the mileage of a route to be recomputed
// asynchronously.
type MileageRequest struct {
	RouteID string   `json:"route_id"`
	Regions []string `json:"regions,omitempty"`
	Unit    Unit     `json:"unit"`
}

// AgencyMileage aggregates the latest saved route mileage of an agency per
// region. Missing lists routes without a usable saved computation.
type AgencyMileage struct {
	Agency  string          `json:"agency"`
	Unit    Unit            `json:"unit"`
	Routes  int             `json:"routes"`
	Missing []string        `json:"missing,omitempty"`
	Regions []RegionMileage `json:"regions"`
}
