package postgres

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Geometries travel as GeoJSON text: ST_AsGeoJSON on the way out and
// ST_GeomFromGeoJSON on the way in.

func encodeGeometry(g orb.Geometry) (string, error) {
	b, err := geojson.NewGeometry(g).MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("encode geometry: %w", err)
	}
	return string(b), nil
}

func decodeGeometry(s string) (orb.Geometry, error) {
	g, err := geojson.UnmarshalGeometry([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}
	return g.Geometry(), nil
}

func decodeMultiPolygon(s string) (orb.MultiPolygon, error) {
	g, err := decodeGeometry(s)
	if err != nil {
		return nil, err
	}
	switch g := g.(type) {
	case orb.MultiPolygon:
		return g, nil
	case orb.Polygon:
		return orb.MultiPolygon{g}, nil
	}
	return nil, fmt.Errorf("decode geometry: expected MultiPolygon, got %T", g)
}

func decodeLineString(s string) (orb.LineString, error) {
	g, err := decodeGeometry(s)
	if err != nil {
		return nil, err
	}
	ls, ok := g.(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("decode geometry: expected LineString, got %T", g)
	}
	return ls, nil
}
