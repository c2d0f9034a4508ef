package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/mileage/internal/core/domain"
)

// RegionRepo implements ports.RegionRepository on a PostGIS table.
type RegionRepo struct {
	db *DB
}

// NewRegionRepo creates a new RegionRepo.
func NewRegionRepo(db *DB) *RegionRepo { return &RegionRepo{db: db} }

const upsertRegion = `
	INSERT INTO regions (name, boundary, properties)
	VALUES ($1, ST_Multi(ST_SetSRID(ST_GeomFromGeoJSON($2), 4326)), $3)
	ON CONFLICT (name) DO UPDATE
	SET boundary = EXCLUDED.boundary, properties = EXCLUDED.properties, updated_at = now()
`

func regionArgs(region *domain.Region) (string, []byte, error) {
	boundary, err := encodeGeometry(region.Boundary)
	if err != nil {
		return "", nil, err
	}
	props := []byte("{}")
	if len(region.Properties) > 0 {
		if props, err = json.Marshal(region.Properties); err != nil {
			return "", nil, fmt.Errorf("encode properties: %w", err)
		}
	}
	return boundary, props, nil
}

// Upsert inserts or replaces a region.
func (r *RegionRepo) Upsert(ctx context.Context, region *domain.Region) error {
	boundary, props, err := regionArgs(region)
	if err != nil {
		return fmt.Errorf("region %s: %w", region.Name, err)
	}
	_, err = r.db.Pool.Exec(ctx, upsertRegion, region.Name, boundary, props)
	return err
}

// UpsertBatch inserts many regions using pgx.Batch.
func (r *RegionRepo) UpsertBatch(ctx context.Context, regions []domain.Region) error {
	batch := &pgx.Batch{}
	for i := range regions {
		boundary, props, err := regionArgs(&regions[i])
		if err != nil {
			return fmt.Errorf("region %s: %w", regions[i].Name, err)
		}
		batch.Queue(upsertRegion, regions[i].Name, boundary, props)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range regions {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

const selectRegion = `SELECT name, ST_AsGeoJSON(boundary), properties FROM regions`

func scanRegion(row pgx.Row) (*domain.Region, error) {
	var (
		reg      domain.Region
		boundary string
		props    []byte
	)
	if err := row.Scan(&reg.Name, &boundary, &props); err != nil {
		return nil, err
	}
	mp, err := decodeMultiPolygon(boundary)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", reg.Name, err)
	}
	reg.Boundary = mp
	if len(props) > 0 {
		if err := json.Unmarshal(props, &reg.Properties); err != nil {
			return nil, fmt.Errorf("region %s properties: %w", reg.Name, err)
		}
		if len(reg.Properties) == 0 {
			reg.Properties = nil
		}
	}
	return &reg, nil
}

// Get returns a region by name.
func (r *RegionRepo) Get(ctx context.Context, name string) (*domain.Region, error) {
	reg, err := scanRegion(r.db.Pool.QueryRow(ctx, selectRegion+` WHERE name = $1`, name))
	if err != nil {
		return nil, notFound(err, "region "+name)
	}
	return reg, nil
}

// List returns every region sorted by name.
func (r *RegionRepo) List(ctx context.Context) ([]domain.Region, error) {
	rows, err := r.db.Pool.Query(ctx, selectRegion+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regions []domain.Region
	for rows.Next() {
		reg, err := scanRegion(rows)
		if err != nil {
			return nil, err
		}
		regions = append(regions, *reg)
	}
	return regions, rows.Err()
}
