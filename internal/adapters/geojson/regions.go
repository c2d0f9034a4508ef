// Package geojson reads region datasets and polylines from GeoJSON and keeps
// regions in an in-memory index.
package geojson

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/mileage/internal/core/domain"
)

// DefaultNameProperty is the feature property holding the region name.
const DefaultNameProperty = "name"

// DecodeRegions parses a FeatureCollection of Polygon and MultiPolygon
// features into regions. The name of each region is read from nameProp.
// Features with other geometry types, a missing name or a name already seen
// are rejected.
func DecodeRegions(data []byte, nameProp string) ([]domain.Region, error) {
	if nameProp == "" {
		nameProp = DefaultNameProperty
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	seen := make(map[string]struct{}, len(fc.Features))
	regions := make([]domain.Region, 0, len(fc.Features))
	for i, f := range fc.Features {
		name, _ := f.Properties[nameProp].(string)
		if name == "" {
			return nil, fmt.Errorf("feature %d: missing %q property", i, nameProp)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("feature %d: duplicate region %q", i, name)
		}
		seen[name] = struct{}{}

		var boundary orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			boundary = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			boundary = g
		default:
			return nil, fmt.Errorf("feature %d (%s): unsupported geometry %T", i, name, f.Geometry)
		}

		props := make(map[string]any, len(f.Properties))
		for k, v := range f.Properties {
			if k != nameProp {
				props[k] = v
			}
		}
		if len(props) == 0 {
			props = nil
		}
		regions = append(regions, domain.Region{Name: name, Boundary: boundary, Properties: props})
	}
	return regions, nil
}

// ReadRegions decodes regions from r.
func ReadRegions(r io.Reader, nameProp string) ([]domain.Region, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read regions: %w", err)
	}
	return DecodeRegions(data, nameProp)
}

// LoadRegionsFile decodes the regions of a GeoJSON file.
func LoadRegionsFile(path, nameProp string) ([]domain.Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	regions, err := DecodeRegions(data, nameProp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return regions, nil
}

// EncodeRegions writes regions as a FeatureCollection, the name stored under
// nameProp.
func EncodeRegions(regions []domain.Region, nameProp string) ([]byte, error) {
	if nameProp == "" {
		nameProp = DefaultNameProperty
	}
	fc := geojson.NewFeatureCollection()
	for _, r := range regions {
		var g orb.Geometry = r.Boundary
		if len(r.Boundary) == 1 {
			g = r.Boundary[0]
		}
		f := geojson.NewFeature(g)
		for k, v := range r.Properties {
			f.Properties[k] = v
		}
		f.Properties[nameProp] = r.Name
		fc.Append(f)
	}
	return json.Marshal(fc)
}

// RegionStore is an in-memory ports.RegionRepository.
type RegionStore struct {
	mu      sync.RWMutex
	regions map[string]domain.Region
}

// NewRegionStore indexes regions by name. Later duplicates replace earlier
// ones.
func NewRegionStore(regions ...domain.Region) *RegionStore {
	s := &RegionStore{regions: make(map[string]domain.Region, len(regions))}
	for _, r := range regions {
		s.regions[r.Name] = r
	}
	return s
}

// Get returns the region with the given name.
func (s *RegionStore) Get(ctx context.Context, name string) (*domain.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regions[name]
	if !ok {
		return nil, fmt.Errorf("region %q: %w", name, domain.ErrNotFound)
	}
	return &r, nil
}

// List returns every region sorted by name.
func (s *RegionStore) List(ctx context.Context) ([]domain.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Region, 0, len(s.regions))
	for _, r := range s.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Upsert adds or replaces a region.
func (s *RegionStore) Upsert(ctx context.Context, r *domain.Region) error {
	if r.Name == "" {
		return fmt.Errorf("%w: region name is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions[r.Name] = *r
	return nil
}

// Len returns the number of regions held.
func (s *RegionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.regions)
}
