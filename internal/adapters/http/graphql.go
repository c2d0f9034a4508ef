package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/mileage/internal/core/domain"
	"github.com/samirrijal/mileage/internal/core/usecases"
)

// argRegions reads an optional [String] argument.
func argRegions(args map[string]interface{}) []string {
	raw, _ := args["regions"].([]interface{})
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// argUnit reads an optional unit argument.
func argUnit(args map[string]interface{}) (domain.Unit, error) {
	s, _ := args["unit"].(string)
	return parseUnit(s)
}

// argLine reads a [[Float]] argument of [lon, lat] pairs.
func argLine(args map[string]interface{}) (domain.Polyline, error) {
	raw, _ := args["coordinates"].([]interface{})
	pairs := make([][2]float64, 0, len(raw))
	for i, v := range raw {
		pair, ok := v.([]interface{})
		if !ok || len(pair) != 2 {
			return domain.Polyline{}, fmt.Errorf("%w: coordinate %d must be [lon, lat]", domain.ErrInvalidInput, i)
		}
		lon, ok1 := pair[0].(float64)
		lat, ok2 := pair[1].(float64)
		if !ok1 || !ok2 {
			return domain.Polyline{}, fmt.Errorf("%w: coordinate %d is not numeric", domain.ErrInvalidInput, i)
		}
		pairs = append(pairs, [2]float64{lon, lat})
	}
	return domain.NewPolyline(pairs...), nil
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lon": &graphql.Field{Type: graphql.Float},
			"min_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
		},
	})

	regionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Region",
		Fields: graphql.Fields{
			"name":     &graphql.Field{Type: graphql.String},
			"polygons": &graphql.Field{Type: graphql.Int},
			"holes":    &graphql.Field{Type: graphql.Int},
			"vertices": &graphql.Field{Type: graphql.Int},
			"bounds":   &graphql.Field{Type: boundsType},
			"area_km2": &graphql.Field{Type: graphql.Float},
		},
	})

	regionMileageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RegionMileage",
		Fields: graphql.Fields{
			"region":  &graphql.Field{Type: graphql.String},
			"length":  &graphql.Field{Type: graphql.Float},
			"status":  &graphql.Field{Type: graphql.String},
			"warning": &graphql.Field{Type: graphql.String},
			"crossings": &graphql.Field{
				Type:        graphql.Int,
				Description: "Number of boundary crossings, when segments were requested",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					e, _ := p.Source.(domain.RegionMileage)
					return len(e.Crossings), nil
				},
			},
		},
	})

	mileageResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MileageResult",
		Fields: graphql.Fields{
			"unit":        &graphql.Field{Type: graphql.String},
			"line_length": &graphql.Field{Type: graphql.Float},
			"regions":     &graphql.Field{Type: graphql.NewList(regionMileageType)},
		},
	})

	routeMileageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteMileage",
		Fields: graphql.Fields{
			"route_id": &graphql.Field{Type: graphql.String},
			"unit":     &graphql.Field{Type: graphql.String},
			"result":   &graphql.Field{Type: mileageResultType},
			"computed_at": &graphql.Field{
				Type: graphql.DateTime,
			},
		},
	})

	agencyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Agency",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"slug":     &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"url":      &graphql.Field{Type: graphql.String},
			"timezone": &graphql.Field{Type: graphql.String},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"route_id":   &graphql.Field{Type: graphql.String},
			"agency_id":  &graphql.Field{Type: graphql.String},
			"short_name": &graphql.Field{Type: graphql.String},
			"long_name":  &graphql.Field{Type: graphql.String},
			"route_type": &graphql.Field{Type: graphql.Int},
			"color":      &graphql.Field{Type: graphql.String},
			"text_color": &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"regions": &graphql.Field{
				Type:        graphql.NewList(regionType),
				Description: "Summaries of every region in the dataset",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Regions.List(p.Context)
				},
			},
			"region": &graphql.Field{
				Type:        regionType,
				Description: "Summary of a region by name",
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Regions.Summary(p.Context, p.Args["name"].(string))
				},
			},
			"mileage": &graphql.Field{
				Type:        mileageResultType,
				Description: "Length of a line inside each region",
				Args: graphql.FieldConfigArgument{
					"coordinates": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewList(graphql.Float)))},
					"regions":     &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
					"unit":        &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					line, err := argLine(p.Args)
					if err != nil {
						return nil, err
					}
					unit, err := argUnit(p.Args)
					if err != nil {
						return nil, err
					}
					return deps.Mileage.Compute(p.Context, usecases.ComputeRequest{
						Line:    line,
						Regions: argRegions(p.Args),
						Unit:    unit,
					})
				},
			},
			"routeMileage": &graphql.Field{
				Type:        routeMileageType,
				Description: "Per-region mileage of a route's shape",
				Args: graphql.FieldConfigArgument{
					"route_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"regions":  &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
					"unit":     &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					unit, err := argUnit(p.Args)
					if err != nil {
						return nil, err
					}
					return deps.Mileage.ComputeForRoute(p.Context, p.Args["route_id"].(string), argRegions(p.Args), unit)
				},
			},
			"agencies": &graphql.Field{
				Type:        graphql.NewList(agencyType),
				Description: "List all transit agencies",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Agencies.List(p.Context)
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Get a route by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routes.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"routesByAgency": &graphql.Field{
				Type:        graphql.NewList(routeType),
				Description: "List routes for an agency",
				Args: graphql.FieldConfigArgument{
					"slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routes.ListByAgencySlug(p.Context, p.Args["slug"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
