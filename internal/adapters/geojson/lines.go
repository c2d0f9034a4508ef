package geojson

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/mileage/internal/core/domain"
)

// DecodeLine reads a polyline from a LineString geometry, a Feature holding
// one, or a FeatureCollection whose first feature holds one.
func DecodeLine(data []byte) (domain.Polyline, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return domain.Polyline{}, fmt.Errorf("decode line: %w", err)
	}

	var g orb.Geometry
	switch probe.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return domain.Polyline{}, fmt.Errorf("decode line: %w", err)
		}
		if len(fc.Features) == 0 {
			return domain.Polyline{}, fmt.Errorf("%w: feature collection is empty", domain.ErrInvalidInput)
		}
		g = fc.Features[0].Geometry
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return domain.Polyline{}, fmt.Errorf("decode line: %w", err)
		}
		g = f.Geometry
	default:
		geom, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return domain.Polyline{}, fmt.Errorf("decode line: %w", err)
		}
		g = geom.Geometry()
	}

	ls, ok := g.(orb.LineString)
	if !ok {
		return domain.Polyline{}, fmt.Errorf("%w: expected LineString, got %T", domain.ErrInvalidInput, g)
	}
	line := domain.PolylineFromLineString(ls)
	if err := line.Validate(); err != nil {
		return domain.Polyline{}, err
	}
	return line, nil
}

// EncodeSegments writes the sub-segments of a result as LineString features
// tagged with their region, inside flag and length.
func EncodeSegments(res *domain.MileageResult) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, e := range res.Regions {
		for _, seg := range e.Segments {
			f := geojson.NewFeature(domain.Polyline{Coordinates: seg.Coordinates}.LineString())
			f.Properties["region"] = e.Region
			f.Properties["inside"] = seg.Inside
			f.Properties["length"] = seg.Length
			f.Properties["unit"] = string(res.Unit)
			fc.Append(f)
		}
		for _, c := range e.Crossings {
			f := geojson.NewFeature(c.Coordinate.Point())
			f.Properties["region"] = e.Region
			f.Properties["position"] = c.Position
			fc.Append(f)
		}
	}
	return json.Marshal(fc)
}
