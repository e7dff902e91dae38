package mcpadapter

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/samirrijal/osmmap/internal/core/usecases"
)

//go:embed guides/*.md
var guides embed.FS

const markdown = "text/markdown"

// Resource pairs a resource with the handler that reads it.
type Resource struct {
	Resource mcp.Resource
	Handler  server.ResourceHandlerFunc
}

// Resources returns the osm:// reference documents. osm://schema is read
// from the database on every request; the rest are fixed guides.
func Resources(deps Dependencies) []Resource {
	if deps.Queries == nil {
		deps.Queries = usecases.NewQueryService(nil, nil, 0)
	}
	out := []Resource{{
		Resource: mcp.NewResource("osm://schema", "OSM database schema",
			mcp.WithResourceDescription("The osm2pgsql tables with their columns, indexes and approximate sizes"),
			mcp.WithMIMEType(markdown)),
		Handler: schemaHandler(deps.Queries),
	}}

	for _, g := range []struct{ name, title, desc string }{
		{"query-examples", "OSM query examples", "Ready-to-adapt SQL for common OpenStreetMap lookups"},
		{"hstore-usage", "Querying hstore tags", "How to filter and aggregate the tags hstore column"},
		{"spatial-queries", "PostGIS spatial queries", "Distance, radius, nearest and intersection queries on OSM geometry"},
		{"tag-descriptions", "Common OSM tags", "What the frequently used OSM tag keys mean and their usual values"},
	} {
		out = append(out, Resource{
			Resource: mcp.NewResource("osm://"+g.name, g.title,
				mcp.WithResourceDescription(g.desc),
				mcp.WithMIMEType(markdown)),
			Handler: guideHandler("guides/" + g.name + ".md"),
		})
	}
	return out
}

func guideHandler(path string) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		body, err := guides.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: markdown,
			Text:     string(body),
		}}, nil
	}
}

func schemaHandler(queries *usecases.QueryService) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := renderSchema(ctx, queries)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: markdown,
			Text:     text,
		}}, nil
	}
}

const schemaIntro = `# OSM database schema

osm2pgsql splits OpenStreetMap data by geometry: planet_osm_point holds nodes
such as shops and stops, planet_osm_line holds open ways such as roads and
rivers, planet_osm_polygon holds closed ways and multipolygons such as
buildings, parks and lakes, and planet_osm_roads is a low-detail copy of major
lines for small-scale rendering. Keys without their own column are in the tags
hstore column. way is the geometry, usually stored in EPSG:3857.
`

func renderSchema(ctx context.Context, queries *usecases.QueryService) (string, error) {
	tables, err := queries.ListTables(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(schemaIntro)
	found := false
	for _, t := range tables {
		if t.Schema != "public" || !strings.HasPrefix(t.Name, "planet_osm_") {
			continue
		}
		found = true
		fmt.Fprintf(&b, "\n## %s\n\n", t.Name)

		info, err := queries.DescribeTable(ctx, t.Name)
		if err != nil {
			fmt.Fprintf(&b, "Could not describe table: %v\n", err)
			continue
		}
		fmt.Fprintf(&b, "Approximate rows: %d\n\n| Column | Type | Null |\n|---|---|---|\n", info.ApproximateRows)
		for _, c := range info.Columns {
			null := "NOT NULL"
			if c.Nullable {
				null = "NULL"
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", c.Name, c.DataType, null)
		}
		if len(info.Indexes) > 0 {
			b.WriteString("\nIndexes:\n")
			for _, ix := range info.Indexes {
				fmt.Fprintf(&b, "- %s: `%s`\n", ix.Name, ix.Definition)
			}
		}
	}
	if !found {
		b.WriteString("\nNo planet_osm_* tables found. Import data with osm2pgsql first.\n")
	}
	return b.String(), nil
}
