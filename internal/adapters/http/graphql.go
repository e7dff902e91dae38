package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/osmmap/internal/core/domain"
)

// buildSchema exposes the map state read-only. Field names follow the JSON
// names of the domain types, which the default resolver matches.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"minLat": &graphql.Field{Type: graphql.Float},
			"minLon": &graphql.Field{Type: graphql.Float},
			"maxLat": &graphql.Field{Type: graphql.Float},
			"maxLon": &graphql.Field{Type: graphql.Float},
		},
	})

	viewType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapView",
		Fields: graphql.Fields{
			"center":     &graphql.Field{Type: geoPointType},
			"zoom":       &graphql.Field{Type: graphql.Int},
			"bounds":     &graphql.Field{Type: boundsType},
			"fit_bounds": &graphql.Field{Type: graphql.Boolean},
		},
	})

	titleStyleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TitleStyle",
		Fields: graphql.Fields{
			"color":            &graphql.Field{Type: graphql.String},
			"font_size":        &graphql.Field{Type: graphql.String},
			"background_color": &graphql.Field{Type: graphql.String},
		},
	})

	titleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapTitle",
		Fields: graphql.Fields{
			"text":  &graphql.Field{Type: graphql.String},
			"style": &graphql.Field{Type: titleStyleType},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Marker",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"position":   &graphql.Field{Type: geoPointType},
			"label":      &graphql.Field{Type: graphql.String},
			"tooltip":    &graphql.Field{Type: graphql.String},
			"created_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	lineType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Line",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"points":     &graphql.Field{Type: graphql.NewList(geoPointType)},
			"length_m":   &graphql.Field{Type: graphql.Float},
			"extent":     &graphql.Field{Type: boundsType},
			"created_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	polygonType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Polygon",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"points":      &graphql.Field{Type: graphql.NewList(geoPointType)},
			"perimeter_m": &graphql.Field{Type: graphql.Float},
			"extent":      &graphql.Field{Type: boundsType},
			"created_at":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	viewerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Viewer",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.Int},
			"transport":    &graphql.Field{Type: graphql.String},
			"remote_addr":  &graphql.Field{Type: graphql.String},
			"connected_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"seq": &graphql.Field{
				Type:        graphql.Int,
				Description: "Sequence number of the last change",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Map.Snapshot().Seq, nil
				},
			},
			"view": &graphql.Field{
				Type:        viewType,
				Description: "What get_map_view returns",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Map.GetView(), nil
				},
			},
			"title": &graphql.Field{
				Type: titleType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Map.Snapshot().Title, nil
				},
			},
			"markers": &graphql.Field{
				Type: graphql.NewList(markerType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Map.Snapshot().Markers, nil
				},
			},
			"lines": &graphql.Field{
				Type: graphql.NewList(lineType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Map.Snapshot().Lines, nil
				},
			},
			"polygons": &graphql.Field{
				Type: graphql.NewList(polygonType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Map.Snapshot().Polygons, nil
				},
			},
			"viewers": &graphql.Field{
				Type:        graphql.NewList(viewerType),
				Description: "Connected push channels",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Map.Viewers(), nil
				},
			},
			"markersNear": &graphql.Field{
				Type:        graphql.NewList(markerType),
				Description: "Markers within radius metres of a point, nearest first",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 1000.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					center := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					return deps.Map.MarkersNear(center, p.Args["radius"].(float64), p.Args["limit"].(int))
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
