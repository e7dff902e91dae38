package mcpadapter_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	mcpadapter "github.com/samirrijal/osmmap/internal/adapters/mcp"
	"github.com/samirrijal/osmmap/internal/core/domain"
	"github.com/samirrijal/osmmap/internal/core/usecases"
)

// --- Mock SchemaRepository ---

type mockSchemaRepo struct {
	listFn     func(ctx context.Context) ([]domain.TableSummary, error)
	describeFn func(ctx context.Context, name string) (*domain.TableInfo, error)
}

func (m *mockSchemaRepo) ListTables(ctx context.Context) ([]domain.TableSummary, error) {
	return m.listFn(ctx)
}

func (m *mockSchemaRepo) DescribeTable(ctx context.Context, name string) (*domain.TableInfo, error) {
	return m.describeFn(ctx, name)
}

func readResource(t *testing.T, deps mcpadapter.Dependencies, uri string) (string, error) {
	t.Helper()
	for _, r := range mcpadapter.Resources(deps) {
		if r.Resource.URI != uri {
			continue
		}
		req := mcp.ReadResourceRequest{}
		req.Params.URI = uri
		contents, err := r.Handler(context.Background(), req)
		if err != nil {
			return "", err
		}
		if len(contents) != 1 {
			t.Fatalf("%s: expected 1 content item, got %d", uri, len(contents))
		}
		text, ok := contents[0].(mcp.TextResourceContents)
		if !ok {
			t.Fatalf("%s: expected text contents, got %T", uri, contents[0])
		}
		if text.URI != uri || text.MIMEType != "text/markdown" {
			t.Errorf("%s: unexpected contents header %q %q", uri, text.URI, text.MIMEType)
		}
		return text.Text, nil
	}
	t.Fatalf("resource %s not registered", uri)
	return "", nil
}

func TestResources_Guides(t *testing.T) {
	deps := mcpadapter.Dependencies{}
	for uri, want := range map[string]string{
		"osm://query-examples":   "planet_osm_point",
		"osm://hstore-usage":     "tags ?",
		"osm://spatial-queries":  "ST_DWithin",
		"osm://tag-descriptions": "amenity",
	} {
		text, err := readResource(t, deps, uri)
		if err != nil {
			t.Fatalf("%s: %v", uri, err)
		}
		if !strings.Contains(text, want) {
			t.Errorf("%s: expected %q in guide", uri, want)
		}
	}
}

func TestResources_Schema(t *testing.T) {
	var described []string
	schema := &mockSchemaRepo{
		listFn: func(ctx context.Context) ([]domain.TableSummary, error) {
			return []domain.TableSummary{
				{Schema: "public", Name: "planet_osm_point", Type: "BASE TABLE"},
				{Schema: "public", Name: "spatial_ref_sys", Type: "BASE TABLE"},
				{Schema: "topology", Name: "planet_osm_point", Type: "BASE TABLE"},
			}, nil
		},
		describeFn: func(ctx context.Context, name string) (*domain.TableInfo, error) {
			described = append(described, name)
			return &domain.TableInfo{
				Name: name,
				Columns: []domain.ColumnInfo{
					{Name: "osm_id", DataType: "bigint", Nullable: false},
					{Name: "amenity", DataType: "text", Nullable: true},
				},
				Indexes:         []domain.IndexInfo{{Name: "planet_osm_point_way_idx", Definition: "CREATE INDEX planet_osm_point_way_idx ON public.planet_osm_point USING gist (way)"}},
				ApproximateRows: 1204,
			}, nil
		},
	}
	deps := mcpadapter.Dependencies{Queries: usecases.NewQueryService(nil, schema, 0)}

	text, err := readResource(t, deps, "osm://schema")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"## planet_osm_point",
		"Approximate rows: 1204",
		"| osm_id | bigint | NOT NULL |",
		"| amenity | text | NULL |",
		"USING gist (way)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in schema:\n%s", want, text)
		}
	}
	if len(described) != 1 || described[0] != "planet_osm_point" {
		t.Errorf("expected only the public osm table described, got %v", described)
	}
}

func TestResources_SchemaWithoutDatabase(t *testing.T) {
	_, err := readResource(t, mcpadapter.Dependencies{}, "osm://schema")
	if !errors.Is(err, domain.ErrExecution) {
		t.Errorf("expected execution error, got %v", err)
	}
}
