package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/mileage/internal/adapters/cache"
	"github.com/samirrijal/mileage/internal/adapters/postgres"
	"github.com/samirrijal/mileage/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers. NATS, DB and
// Cache are optional. OpenAPIPath defaults to DefaultOpenAPIPath.
type Dependencies struct {
	Mileage  *usecases.MileageService
	Regions  *usecases.RegionService
	Routes   *usecases.RouteService
	Agencies *usecases.AgencyService
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    cache.Backend

	OpenAPIPath string
}
