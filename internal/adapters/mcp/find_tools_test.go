package mcpadapter_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/samirrijal/osmmap/internal/adapters/mcp"
	"github.com/samirrijal/osmmap/internal/adapters/push"
	"github.com/samirrijal/osmmap/internal/core/domain"
	"github.com/samirrijal/osmmap/internal/core/usecases"
)

// --- Mock FeatureRepository ---

type mockFeatureRepo struct {
	byNameFn func(ctx context.Context, kind domain.FeatureKind, pattern string, limit int) ([]domain.Feature, error)
	nearFn   func(ctx context.Context, kind domain.FeatureKind, q domain.NearQuery, limit int) ([]domain.Feature, error)
}

func (m *mockFeatureRepo) FindByName(ctx context.Context, kind domain.FeatureKind, pattern string, limit int) ([]domain.Feature, error) {
	return m.byNameFn(ctx, kind, pattern, limit)
}

func (m *mockFeatureRepo) FindNear(ctx context.Context, kind domain.FeatureKind, q domain.NearQuery, limit int) ([]domain.Feature, error) {
	return m.nearFn(ctx, kind, q, limit)
}

func setupFeatures(t *testing.T, repo *mockFeatureRepo) *fixture {
	t.Helper()
	hub := push.NewHub(64, nil)
	svc := usecases.NewMapService(hub, nil, nil)

	deps := mcpadapter.Dependencies{
		Map:     svc,
		Queries: usecases.NewQueryService(nil, nil, 0),
	}
	if repo != nil {
		deps.Features = usecases.NewFeatureService(repo)
	}

	tools := map[string]server.ServerTool{}
	for _, st := range mcpadapter.Tools(deps) {
		tools[st.Tool.Name] = st
	}
	return &fixture{hub: hub, svc: svc, tools: tools}
}

func TestFindFeaturesByName(t *testing.T) {
	var kinds []domain.FeatureKind
	f := setupFeatures(t, &mockFeatureRepo{
		byNameFn: func(ctx context.Context, kind domain.FeatureKind, pattern string, limit int) ([]domain.Feature, error) {
			kinds = append(kinds, kind)
			if pattern != "%central park%" {
				t.Errorf("unexpected pattern %q", pattern)
			}
			return []domain.Feature{{
				OSMID:        427818536,
				Name:         "Central Park",
				Category:     "other",
				GeometryType: kind,
				Centroid:     domain.GeoPoint{Lat: 40.7826, Lon: -73.9656},
			}}, nil
		},
	})

	res, text := f.call(t, "find_features_by_name", map[string]any{
		"name_pattern":  "central park",
		"feature_types": []any{"polygon"},
	})
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", text)
	}

	var out struct {
		Features []struct {
			OSMID        int64      `json:"osm_id"`
			Name         string     `json:"name"`
			GeometryType string     `json:"geometry_type"`
			Centroid     [2]float64 `json:"centroid"`
		} `json:"features"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if out.Count != 1 || out.Features[0].GeometryType != "polygon" || out.Features[0].Centroid != [2]float64{40.7826, -73.9656} {
		t.Errorf("unexpected result %s", text)
	}
	if len(kinds) != 1 || kinds[0] != domain.FeaturePolygon {
		t.Errorf("expected only polygons searched, got %v", kinds)
	}
}

func TestFindFeaturesNearLocation(t *testing.T) {
	var got domain.NearQuery
	f := setupFeatures(t, &mockFeatureRepo{
		nearFn: func(ctx context.Context, kind domain.FeatureKind, q domain.NearQuery, limit int) ([]domain.Feature, error) {
			got = q
			if kind != domain.FeaturePoint {
				return nil, nil
			}
			d := 212.5
			return []domain.Feature{{OSMID: 7, Name: "Peggy Sue's", Category: "amenity: restaurant", GeometryType: kind, DistanceMeters: &d}}, nil
		},
	})

	res, text := f.call(t, "find_features_near_location", map[string]any{
		"lat":           34.9435,
		"lon":           -116.9763,
		"radius_meters": 8047.0,
		"filters":       map[string]any{"amenity": "restaurant"},
		"tags":          map[string]any{"cuisine": "american"},
	})
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	if got.Center.Lat != 34.9435 || got.RadiusMeters != 8047 ||
		got.Columns["amenity"] != "restaurant" || got.Tags["cuisine"] != "american" {
		t.Errorf("arguments not passed through: %+v", got)
	}
	if !strings.Contains(text, `"distance_m":212.5`) {
		t.Errorf("expected distance in result, got %s", text)
	}
}

func TestFindFeatures_Errors(t *testing.T) {
	f := setupFeatures(t, &mockFeatureRepo{})

	for name, args := range map[string]map[string]any{
		"find_features_by_name":       {"name_pattern": "x", "feature_types": []any{"roads"}},
		"find_features_near_location": {"lat": 40.0, "radius_meters": 100.0},
	} {
		res, text := f.call(t, name, args)
		if !res.IsError || !strings.HasPrefix(text, "validation error:") {
			t.Errorf("%s: expected validation error, got %q", name, text)
		}
	}

	res, text := f.call(t, "find_features_near_location", map[string]any{"lat": 40.0, "lon": -73.0, "radius_meters": 20000.0})
	if !res.IsError || !strings.Contains(text, "radius_meters") {
		t.Errorf("expected radius rejected, got %q", text)
	}

	f = setupFeatures(t, nil)
	res, text = f.call(t, "find_features_by_name", map[string]any{"name_pattern": "Broadway"})
	if !res.IsError || !strings.Contains(text, "database connection is not available") {
		t.Errorf("unexpected result %q", text)
	}
}
