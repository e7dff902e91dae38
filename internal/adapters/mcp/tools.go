package mcpadapter

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/samirrijal/osmmap/internal/core/domain"
	"github.com/samirrijal/osmmap/internal/core/usecases"
)

var featureTypeItems = map[string]any{
	"type": "string",
	"enum": []string{string(domain.FeaturePoint), string(domain.FeatureLine), string(domain.FeaturePolygon)},
}

var coordinateItems = map[string]any{
	"type":     "array",
	"items":    map[string]any{"type": "number"},
	"minItems": 2,
	"maxItems": 2,
}

const queryDescription = `Run a SQL statement against the OpenStreetMap PostGIS database and return its rows as JSON.

The database was loaded by osm2pgsql: planet_osm_point, planet_osm_line,
planet_osm_polygon and planet_osm_roads hold features, with geometry in the "way"
column and free-form tags in "tags". Geometry values come back as EWKT.

Names are not unique: many places share a name, so always constrain by a
bounding box (ST_MakeEnvelope / && way) when looking a feature up. Keep osm_id
values to refer back to features cheaply. The tables are large; filter on
indexed columns, aggregate, or LIMIT while exploring. ST_Simplify keeps
geometries small enough to draw.

Statements are executed as given with the privileges of the configured role.

Example:
  SELECT osm_id, name, amenity FROM planet_osm_point
  WHERE amenity = 'cafe'
    AND way && ST_Transform(ST_MakeEnvelope(2.33, 48.85, 2.36, 48.87, 4326), ST_SRID(way))
  LIMIT 20`

// Tools returns every tool definition paired with its instrumented handler.
func Tools(deps Dependencies) []server.ServerTool {
	if deps.Features == nil {
		deps.Features = usecases.NewFeatureService(nil)
	}
	h := &handlers{deps: deps}
	log := deps.Logger

	defs := []struct {
		tool mcp.Tool
		fn   toolFunc
	}{
		{mcp.NewTool("get_map_view",
			mcp.WithDescription("Return the map's current centre [lat, lon], zoom and bounds [[south, west], [north, east]]. If a viewer has panned since the last set_map_view, this is what the viewer shows."),
			mcp.WithReadOnlyHintAnnotation(true),
		), h.getMapView},

		{mcp.NewTool("set_map_view",
			mcp.WithDescription("Move the map. Give a centre, a bounding box to fit, a zoom, or a combination; at least one is required."),
			mcp.WithArray("center", mcp.Description("Centre as [lat, lon]"), mcp.Items(map[string]any{"type": "number"})),
			mcp.WithArray("bounds", mcp.Description("Box to fit as [[south, west], [north, east]]"), mcp.Items(coordinateItems)),
			mcp.WithNumber("zoom", mcp.Description("Zoom level, 0 (world) to 19 (building)"), mcp.Min(domain.MinZoom), mcp.Max(domain.MaxZoom)),
		), h.setMapView},

		{mcp.NewTool("set_map_title",
			mcp.WithDescription("Set the title shown over the map. Empty text hides it."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Title text")),
			mcp.WithString("color", mcp.Description("CSS text colour, e.g. #0066cc")),
			mcp.WithString("font_size", mcp.Description("CSS font size, e.g. 24px")),
			mcp.WithString("background_color", mcp.Description("CSS background, e.g. rgba(255, 255, 255, 0.8)")),
		), h.setMapTitle},

		{mcp.NewTool("add_map_marker",
			mcp.WithDescription("Drop a marker on the map. Returns the marker with its id."),
			mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude, -90 to 90"), mcp.Min(-90), mcp.Max(90)),
			mcp.WithNumber("lon", mcp.Required(), mcp.Description("Longitude, -180 to 180"), mcp.Min(-180), mcp.Max(180)),
			mcp.WithString("label", mcp.Description("Popup text")),
			mcp.WithString("tooltip", mcp.Description("Hover text")),
			mcp.WithBoolean("open_popup", mcp.Description("Open the popup immediately")),
		), h.addMapMarker},

		{mcp.NewTool("add_map_line",
			mcp.WithDescription("Draw a polyline through two or more points. Returns the line with its id and length in metres."),
			mcp.WithArray("points", mcp.Required(), mcp.Description("Vertices as [[lat, lon], ...]"), mcp.Items(coordinateItems)),
			mcp.WithString("color", mcp.Description("CSS stroke colour")),
			mcp.WithNumber("weight", mcp.Description("Stroke width in pixels"), mcp.Min(0)),
			mcp.WithNumber("opacity", mcp.Description("Stroke opacity, 0 to 1"), mcp.Min(0), mcp.Max(1)),
			mcp.WithString("dash_array", mcp.Description("SVG dash pattern, e.g. 5,10")),
			mcp.WithBoolean("fit_bounds", mcp.Description("Zoom viewers to the line")),
		), h.addMapLine},

		{mcp.NewTool("add_map_polygon",
			mcp.WithDescription("Draw a filled polygon from three or more points. The ring is closed automatically. Returns the polygon with its id."),
			mcp.WithArray("points", mcp.Required(), mcp.Description("Ring vertices as [[lat, lon], ...]"), mcp.Items(coordinateItems)),
			mcp.WithString("color", mcp.Description("CSS outline colour")),
			mcp.WithString("fill_color", mcp.Description("CSS fill colour")),
			mcp.WithNumber("fill_opacity", mcp.Description("Fill opacity, 0 to 1"), mcp.Min(0), mcp.Max(1)),
			mcp.WithNumber("weight", mcp.Description("Outline width in pixels"), mcp.Min(0)),
			mcp.WithBoolean("fit_bounds", mcp.Description("Zoom viewers to the polygon")),
		), h.addMapPolygon},

		{mcp.NewTool("query_osm_postgres",
			mcp.WithDescription(queryDescription),
			mcp.WithString("sql", mcp.Required(), mcp.Description("SQL statement to execute")),
		), h.queryOSM},

		{mcp.NewTool("list_osm_tables",
			mcp.WithDescription("List the tables and views in the OSM database."),
			mcp.WithReadOnlyHintAnnotation(true),
		), h.listTables},

		{mcp.NewTool("describe_osm_table",
			mcp.WithDescription("Show a table's columns, indexes and approximate row count. Accepts table or schema.table."),
			mcp.WithString("table", mcp.Required(), mcp.Description("Table name")),
			mcp.WithReadOnlyHintAnnotation(true),
		), h.describeTable},

		{mcp.NewTool("find_features_by_name",
			mcp.WithDescription("Find OSM features whose name matches a pattern, case-insensitively. Without % or _ wildcards the pattern matches anywhere in the name. Returns at most 50 features with osm_id, name, category and WGS 84 centroid."),
			mcp.WithString("name_pattern", mcp.Required(), mcp.Description("Name or SQL LIKE pattern, e.g. broadway or St%Church")),
			mcp.WithArray("feature_types", mcp.Description("Tables to search: point, line, polygon. Default all."), mcp.Items(featureTypeItems)),
			mcp.WithReadOnlyHintAnnotation(true),
		), h.findByName},

		{mcp.NewTool("find_features_near_location",
			mcp.WithDescription("Find OSM features within a radius of a location, nearest first, with their distance in metres. Returns at most 50 features."),
			mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude, -90 to 90"), mcp.Min(-90), mcp.Max(90)),
			mcp.WithNumber("lon", mcp.Required(), mcp.Description("Longitude, -180 to 180"), mcp.Min(-180), mcp.Max(180)),
			mcp.WithNumber("radius_meters", mcp.Required(), mcp.Description("Search radius in metres, up to 10000"), mcp.Max(usecases.MaxSearchRadius)),
			mcp.WithArray("feature_types", mcp.Description("Tables to search: point, line, polygon. Default all."), mcp.Items(featureTypeItems)),
			mcp.WithObject("filters", mcp.Description(`Column equality filters, e.g. {"amenity": "restaurant"}`), mcp.AdditionalProperties(map[string]any{"type": "string"})),
			mcp.WithObject("tags", mcp.Description(`hstore tag filters, e.g. {"cuisine": "thai"}`), mcp.AdditionalProperties(map[string]any{"type": "string"})),
			mcp.WithReadOnlyHintAnnotation(true),
		), h.findNear},
	}

	out := make([]server.ServerTool, 0, len(defs))
	for _, d := range defs {
		out = append(out, server.ServerTool{Tool: d.tool, Handler: instrument(d.tool.Name, d.fn, log)})
	}
	return out
}

type handlers struct {
	deps Dependencies
}

func (h *handlers) getMapView(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	return h.deps.Map.GetView(), nil
}

type setViewArgs struct {
	Center []float64      `json:"center"`
	Bounds *domain.Bounds `json:"bounds"`
	Zoom   *int           `json:"zoom"`
}

func (h *handlers) setMapView(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	var args setViewArgs
	if err := bind(req, &args); err != nil {
		return nil, err
	}
	upd := domain.ViewUpdate{Bounds: args.Bounds, Zoom: args.Zoom}
	if args.Center != nil {
		if len(args.Center) != 2 {
			return nil, domain.Invalid("center", "must be [lat, lon]")
		}
		upd.Center = &domain.GeoPoint{Lat: args.Center[0], Lon: args.Center[1]}
	}
	view, err := h.deps.Map.SetView(ctx, upd)
	if err != nil {
		return nil, err
	}
	return map[string]any{"view": view}, nil
}

type setTitleArgs struct {
	Title           *string `json:"title"`
	Color           string  `json:"color"`
	FontSize        string  `json:"font_size"`
	BackgroundColor string  `json:"background_color"`
}

func (h *handlers) setMapTitle(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	var args setTitleArgs
	if err := bind(req, &args); err != nil {
		return nil, err
	}
	if args.Title == nil {
		return nil, domain.Invalid("title", "is required")
	}
	title := h.deps.Map.SetTitle(ctx, strings.TrimSpace(*args.Title), domain.TitleStyle{
		Color:           args.Color,
		FontSize:        args.FontSize,
		BackgroundColor: args.BackgroundColor,
	})
	return map[string]any{"title": title}, nil
}

type markerArgs struct {
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Label     string   `json:"label"`
	Tooltip   string   `json:"tooltip"`
	OpenPopup bool     `json:"open_popup"`
}

func (h *handlers) addMapMarker(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	var args markerArgs
	if err := bind(req, &args); err != nil {
		return nil, err
	}
	if args.Lat == nil || args.Lon == nil {
		return nil, domain.Invalid("coordinates", "lat and lon are required")
	}
	return h.deps.Map.AddMarker(ctx, domain.MarkerInput{
		Position:  domain.GeoPoint{Lat: *args.Lat, Lon: *args.Lon},
		Label:     args.Label,
		Tooltip:   args.Tooltip,
		OpenPopup: args.OpenPopup,
	})
}

type lineArgs struct {
	Points    []domain.GeoPoint `json:"points"`
	Color     string            `json:"color"`
	Weight    *int              `json:"weight"`
	Opacity   *float64          `json:"opacity"`
	DashArray string            `json:"dash_array"`
	FitBounds bool              `json:"fit_bounds"`
}

func (h *handlers) addMapLine(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	var args lineArgs
	if err := bind(req, &args); err != nil {
		return nil, err
	}
	return h.deps.Map.AddLine(ctx, args.Points, domain.LineStyle{
		Color:     args.Color,
		Weight:    args.Weight,
		Opacity:   args.Opacity,
		DashArray: args.DashArray,
		FitBounds: args.FitBounds,
	})
}

type polygonArgs struct {
	Points      []domain.GeoPoint `json:"points"`
	Color       string            `json:"color"`
	FillColor   string            `json:"fill_color"`
	FillOpacity *float64          `json:"fill_opacity"`
	Weight      *int              `json:"weight"`
	FitBounds   bool              `json:"fit_bounds"`
}

func (h *handlers) addMapPolygon(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	var args polygonArgs
	if err := bind(req, &args); err != nil {
		return nil, err
	}
	return h.deps.Map.AddPolygon(ctx, args.Points, domain.PolygonStyle{
		Color:       args.Color,
		FillColor:   args.FillColor,
		FillOpacity: args.FillOpacity,
		Weight:      args.Weight,
		FitBounds:   args.FitBounds,
	})
}

type queryArgs struct {
	SQL string `json:"sql"`
}

func (h *handlers) queryOSM(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	var args queryArgs
	if err := bind(req, &args); err != nil {
		return nil, err
	}
	return h.deps.Queries.Query(ctx, args.SQL)
}

func (h *handlers) listTables(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	return h.deps.Queries.ListTables(ctx)
}

type describeArgs struct {
	Table string `json:"table"`
}

func (h *handlers) describeTable(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	var args describeArgs
	if err := bind(req, &args); err != nil {
		return nil, err
	}
	return h.deps.Queries.DescribeTable(ctx, args.Table)
}

type nameSearchArgs struct {
	NamePattern  string   `json:"name_pattern"`
	FeatureTypes []string `json:"feature_types"`
}

func (h *handlers) findByName(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	var args nameSearchArgs
	if err := bind(req, &args); err != nil {
		return nil, err
	}
	return h.deps.Features.FindByName(ctx, args.NamePattern, args.FeatureTypes)
}

type nearSearchArgs struct {
	Lat          *float64          `json:"lat"`
	Lon          *float64          `json:"lon"`
	RadiusMeters float64           `json:"radius_meters"`
	FeatureTypes []string          `json:"feature_types"`
	Filters      map[string]string `json:"filters"`
	Tags         map[string]string `json:"tags"`
}

func (h *handlers) findNear(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	var args nearSearchArgs
	if err := bind(req, &args); err != nil {
		return nil, err
	}
	if args.Lat == nil || args.Lon == nil {
		return nil, domain.Invalid("location", "lat and lon are required")
	}
	return h.deps.Features.FindNear(ctx, domain.NearQuery{
		Center:       domain.GeoPoint{Lat: *args.Lat, Lon: *args.Lon},
		RadiusMeters: args.RadiusMeters,
		Columns:      args.Filters,
		Tags:         args.Tags,
	}, args.FeatureTypes)
}
