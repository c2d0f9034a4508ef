package http

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	geojsonadapter "github.com/samirrijal/mileage/internal/adapters/geojson"
	"github.com/samirrijal/mileage/internal/core/domain"
	"github.com/samirrijal/mileage/internal/core/usecases"
)

// MileageRequest is the body of POST /v1/mileage. Line accepts a GeoJSON
// LineString or any object with a coordinates array of [lon, lat] pairs.
type MileageRequest struct {
	Line            domain.Polyline `json:"line"`
	Regions         []string        `json:"regions"`
	Unit            string          `json:"unit"`
	IncludeSegments bool            `json:"include_segments"`
}

// RefreshRequest is the body of POST /v1/routes/:id/mileage/refresh.
type RefreshRequest struct {
	Regions []string `json:"regions"`
	Unit    string   `json:"unit"`
}

// parseUnit resolves an optional unit parameter. Empty selects the service
// default.
func parseUnit(s string) (domain.Unit, error) {
	if s == "" {
		return "", nil
	}
	return domain.ParseUnit(s)
}

// parseRegions splits a comma-separated region list.
func parseRegions(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// ComputeMileageHandler measures an ad hoc line against regions.
func ComputeMileageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req MileageRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		unit, err := parseUnit(req.Unit)
		if err != nil {
			return errFromDomain(c, err)
		}

		res, err := deps.Mileage.Compute(c.UserContext(), usecases.ComputeRequest{
			Line:            req.Line,
			Regions:         req.Regions,
			Unit:            unit,
			IncludeSegments: req.IncludeSegments,
		})
		if err != nil {
			return errFromDomain(c, err)
		}

		if c.Query("format") == "geojson" {
			data, err := geojsonadapter.EncodeSegments(res)
			if err != nil {
				return errInternal(c, err.Error())
			}
			c.Set("Content-Type", "application/geo+json")
			return c.Send(data)
		}
		return c.JSON(res)
	}
}

// ListAgenciesHandler returns all transit agencies.
func ListAgenciesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		agencies, err := deps.Agencies.List(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}

		page, pg := paginate(c, agencies)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetAgencyHandler returns a single agency by slug.
func GetAgencyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		agency, err := deps.Agencies.GetBySlug(c.UserContext(), c.Params("slug"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(agency)
	}
}

// AgencyRoutesHandler returns routes for an agency.
func AgencyRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		routes, err := deps.Routes.ListByAgencySlug(c.UserContext(), c.Params("slug"))
		if err != nil {
			return errFromDomain(c, err)
		}
		// Shapes are large; fetch a single route to get one.
		for i := range routes {
			routes[i].Shape = nil
		}
		return c.JSON(routes)
	}
}

// AgencyMileageHandler aggregates the saved mileage of an agency's routes.
func AgencyMileageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		unit, err := parseUnit(c.Query("unit"))
		if err != nil {
			return errFromDomain(c, err)
		}
		if unit == "" {
			unit = domain.UnitKilometers
		}
		m, err := deps.Agencies.Mileage(c.UserContext(), c.Params("slug"), unit)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(m)
	}
}

// GetRouteHandler returns a route with its shape.
func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, err := deps.Routes.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(route)
	}
}

// RouteMileageHandler returns the per-region mileage of a route's shape.
// With latest=true the last saved computation is returned as is.
func RouteMileageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		id := c.Params("id")

		if c.QueryBool("latest") {
			m, err := deps.Mileage.LatestForRoute(ctx, id)
			if err != nil {
				return errFromDomain(c, err)
			}
			return c.JSON(m)
		}

		unit, err := parseUnit(c.Query("unit"))
		if err != nil {
			return errFromDomain(c, err)
		}
		m, err := deps.Mileage.ComputeForRoute(ctx, id, parseRegions(c.Query("regions")), unit)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(m)
	}
}

// RefreshRouteMileageHandler queues a recomputation of a route. When no
// event bus is configured the route is recomputed in the request.
func RefreshRouteMileageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RefreshRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return errBadRequest(c, "invalid request body: "+err.Error())
			}
		}
		unit, err := parseUnit(body.Unit)
		if err != nil {
			return errFromDomain(c, err)
		}

		req := &domain.MileageRequest{RouteID: c.Params("id"), Regions: body.Regions, Unit: unit}
		m, err := deps.Mileage.RequestRefresh(c.UserContext(), req)
		if err != nil {
			return errFromDomain(c, err)
		}
		if m == nil {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued", "request": req})
		}
		return c.JSON(m)
	}
}

// ListRegionsHandler returns summaries of the region dataset. With
// format=geojson the full boundaries are returned as a FeatureCollection.
func ListRegionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("format") == "geojson" {
			regions, err := deps.Regions.All(c.UserContext())
			if err != nil {
				return errFromDomain(c, err)
			}
			data, err := geojsonadapter.EncodeRegions(regions, geojsonadapter.DefaultNameProperty)
			if err != nil {
				return errInternal(c, err.Error())
			}
			c.Set("Content-Type", "application/geo+json")
			return c.Send(data)
		}

		summaries, err := deps.Regions.List(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		page, pg := paginate(c, summaries)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetRegionHandler returns the summary of one region, or its boundary with
// format=geojson.
func GetRegionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := url.PathUnescape(c.Params("name"))
		if err != nil {
			return errBadRequest(c, "invalid region name")
		}
		if c.Query("format") == "geojson" {
			r, err := deps.Regions.Get(c.UserContext(), name)
			if err != nil {
				return errFromDomain(c, err)
			}
			data, err := geojsonadapter.EncodeRegions([]domain.Region{*r}, geojsonadapter.DefaultNameProperty)
			if err != nil {
				return errInternal(c, err.Error())
			}
			c.Set("Content-Type", "application/geo+json")
			return c.Send(data)
		}

		sum, err := deps.Regions.Summary(c.UserContext(), name)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(sum)
	}
}
