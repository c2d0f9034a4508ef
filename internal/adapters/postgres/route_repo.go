package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/mileage/internal/core/domain"
)

// RouteRepo implements ports.RouteRepository.
type RouteRepo struct {
	db *DB
}

func NewRouteRepo(db *DB) *RouteRepo { return &RouteRepo{db: db} }

const upsertRoute = `
	INSERT INTO routes (route_id, agency_id, short_name, long_name, route_type, color, text_color, shape)
	VALUES ($1, $2, $3, $4, $5, $6, $7, ST_SetSRID(ST_GeomFromGeoJSON($8), 4326))
	ON CONFLICT (agency_id, route_id) DO UPDATE
	SET short_name = EXCLUDED.short_name, long_name = EXCLUDED.long_name,
	    route_type = EXCLUDED.route_type, color = EXCLUDED.color, text_color = EXCLUDED.text_color,
	    shape = EXCLUDED.shape
`

func shapeArg(route *domain.Route) (any, error) {
	if route.Shape == nil {
		return nil, nil
	}
	return encodeGeometry(route.Shape.LineString())
}

// Upsert inserts or updates a route and its shape.
func (r *RouteRepo) Upsert(ctx context.Context, route *domain.Route) error {
	shape, err := shapeArg(route)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, upsertRoute, route.RouteID, route.AgencyID, route.ShortName, route.LongName,
		route.RouteType, route.Color, route.TextColor, shape)
	return err
}

// UpsertBatch inserts many routes using pgx.Batch.
func (r *RouteRepo) UpsertBatch(ctx context.Context, routes []domain.Route) error {
	batch := &pgx.Batch{}
	for i := range routes {
		rt := &routes[i]
		shape, err := shapeArg(rt)
		if err != nil {
			return fmt.Errorf("route %s: %w", rt.RouteID, err)
		}
		batch.Queue(upsertRoute, rt.RouteID, rt.AgencyID, rt.ShortName, rt.LongName,
			rt.RouteType, rt.Color, rt.TextColor, shape)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range routes {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

const selectRoute = `
	SELECT id, route_id, agency_id, COALESCE(short_name, ''), long_name, route_type,
	       COALESCE(color, ''), COALESCE(text_color, ''), ST_AsGeoJSON(shape), created_at
	FROM routes
`

func scanRoute(row pgx.Row) (*domain.Route, error) {
	var (
		rt    domain.Route
		shape sql.NullString
	)
	if err := row.Scan(&rt.ID, &rt.RouteID, &rt.AgencyID, &rt.ShortName, &rt.LongName,
		&rt.RouteType, &rt.Color, &rt.TextColor, &shape, &rt.CreatedAt); err != nil {
		return nil, err
	}
	if shape.Valid {
		ls, err := decodeLineString(shape.String)
		if err != nil {
			return nil, fmt.Errorf("route %s shape: %w", rt.ID, err)
		}
		line := domain.PolylineFromLineString(ls)
		rt.Shape = &line
	}
	return &rt, nil
}

func (r *RouteRepo) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	rt, err := scanRoute(r.db.Pool.QueryRow(ctx, selectRoute+` WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "route "+id)
	}
	return rt, nil
}

func (r *RouteRepo) ListByAgency(ctx context.Context, agencyID string) ([]domain.Route, error) {
	rows, err := r.db.Pool.Query(ctx, selectRoute+` WHERE agency_id = $1 ORDER BY short_name`, agencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []domain.Route
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, *rt)
	}
	return routes, rows.Err()
}
