package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samirrijal/mileage/internal/core/domain"
)

// MileageRepo implements ports.MileageRepository. Results are stored as
// JSONB, one row per computation.
type MileageRepo struct {
	db *DB
}

// NewMileageRepo creates a new MileageRepo.
func NewMileageRepo(db *DB) *MileageRepo { return &MileageRepo{db: db} }

// Save appends a computation.
func (r *MileageRepo) Save(ctx context.Context, m *domain.RouteMileage) error {
	result, err := json.Marshal(m.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO route_mileage (route_id, unit, result, computed_at)
		VALUES ($1, $2, $3, $4)
	`, m.RouteID, string(m.Unit), result, m.ComputedAt)
	return err
}

// GetByRoute returns the latest computation of a route.
func (r *MileageRepo) GetByRoute(ctx context.Context, routeID string) (*domain.RouteMileage, error) {
	var (
		m      domain.RouteMileage
		unit   string
		result []byte
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT route_id, unit, result, computed_at
		FROM route_mileage WHERE route_id = $1
		ORDER BY computed_at DESC LIMIT 1
	`, routeID).Scan(&m.RouteID, &unit, &result, &m.ComputedAt)
	if err != nil {
		return nil, notFound(err, "mileage of route "+routeID)
	}
	m.Unit = domain.Unit(unit)
	if err := json.Unmarshal(result, &m.Result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &m, nil
}
