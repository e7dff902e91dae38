package usecases_test

import (
	"context"
	"errors"
	"testing"

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

func features(kind domain.FeatureKind, n int) []domain.Feature {
	out := make([]domain.Feature, n)
	for i := range out {
		out[i] = domain.Feature{OSMID: int64(i + 1), Name: "Broadway", GeometryType: kind}
	}
	return out
}

func TestFeatureService_FindByName(t *testing.T) {
	var patterns []string
	var tables []domain.FeatureKind
	svc := usecases.NewFeatureService(&mockFeatureRepo{
		byNameFn: func(ctx context.Context, kind domain.FeatureKind, pattern string, limit int) ([]domain.Feature, error) {
			patterns = append(patterns, pattern)
			tables = append(tables, kind)
			return features(kind, 2), nil
		},
	})

	res, err := svc.FindByName(context.Background(), "broadway", []string{"line", "point", "line"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Count != 4 || res.Truncated {
		t.Errorf("expected 4 untruncated features, got %d (truncated %v)", res.Count, res.Truncated)
	}
	if len(tables) != 2 || tables[0] != domain.FeatureLine || tables[1] != domain.FeaturePoint {
		t.Errorf("expected line then point searched once each, got %v", tables)
	}
	if patterns[0] != "%broadway%" {
		t.Errorf("expected substring pattern, got %q", patterns[0])
	}

	if _, err := svc.FindByName(context.Background(), "Broad%", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := patterns[len(patterns)-1]; got != "Broad%" {
		t.Errorf("expected caller wildcard kept, got %q", got)
	}
}

func TestFeatureService_FindByName_CapsResults(t *testing.T) {
	var calls int
	svc := usecases.NewFeatureService(&mockFeatureRepo{
		byNameFn: func(ctx context.Context, kind domain.FeatureKind, pattern string, limit int) ([]domain.Feature, error) {
			calls++
			n := 40
			if n > limit {
				n = limit
			}
			return features(kind, n), nil
		},
	})

	res, err := svc.FindByName(context.Background(), "a", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Count != usecases.MaxFeatureResults || !res.Truncated {
		t.Errorf("expected %d truncated features, got %d (truncated %v)", usecases.MaxFeatureResults, res.Count, res.Truncated)
	}
	if calls != 2 {
		t.Errorf("expected the search to stop after the cap, got %d calls", calls)
	}
}

func TestFeatureService_FindNear_SortsAcrossKinds(t *testing.T) {
	dist := func(d float64) *float64 { return &d }
	var got domain.NearQuery
	svc := usecases.NewFeatureService(&mockFeatureRepo{
		nearFn: func(ctx context.Context, kind domain.FeatureKind, q domain.NearQuery, limit int) ([]domain.Feature, error) {
			got = q
			switch kind {
			case domain.FeaturePoint:
				return []domain.Feature{{OSMID: 1, DistanceMeters: dist(300)}, {OSMID: 2, DistanceMeters: dist(900)}}, nil
			case domain.FeaturePolygon:
				return []domain.Feature{{OSMID: 3, DistanceMeters: dist(120)}}, nil
			}
			return nil, nil
		},
	})

	q := domain.NearQuery{
		Center:       domain.GeoPoint{Lat: 34.9435, Lon: -116.9763},
		RadiusMeters: 8047,
		Columns:      map[string]string{"amenity": "restaurant"},
	}
	res, err := svc.FindNear(context.Background(), q, []string{"point", "polygon"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Count != 3 {
		t.Fatalf("expected 3 features, got %d", res.Count)
	}
	for i, want := range []int64{3, 1, 2} {
		if res.Features[i].OSMID != want {
			t.Errorf("position %d: expected osm_id %d, got %d", i, want, res.Features[i].OSMID)
		}
	}
	if got.Columns["amenity"] != "restaurant" || got.RadiusMeters != 8047 {
		t.Errorf("query not passed through: %+v", got)
	}
}

func TestFeatureService_Validation(t *testing.T) {
	svc := usecases.NewFeatureService(&mockFeatureRepo{})
	ctx := context.Background()
	center := domain.GeoPoint{Lat: 40.71, Lon: -73.99}

	cases := []struct {
		name string
		call func() error
	}{
		{"empty name", func() error { _, err := svc.FindByName(ctx, "  ", nil); return err }},
		{"unknown kind", func() error { _, err := svc.FindByName(ctx, "x", []string{"roads"}); return err }},
		{"zero radius", func() error {
			_, err := svc.FindNear(ctx, domain.NearQuery{Center: center}, nil)
			return err
		}},
		{"radius too large", func() error {
			_, err := svc.FindNear(ctx, domain.NearQuery{Center: center, RadiusMeters: 10001}, nil)
			return err
		}},
		{"bad location", func() error {
			_, err := svc.FindNear(ctx, domain.NearQuery{Center: domain.GeoPoint{Lat: 0, Lon: 200}, RadiusMeters: 100}, nil)
			return err
		}},
		{"empty tag key", func() error {
			_, err := svc.FindNear(ctx, domain.NearQuery{Center: center, RadiusMeters: 100, Tags: map[string]string{"": "yes"}}, nil)
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestFeatureService_Errors(t *testing.T) {
	if _, err := usecases.NewFeatureService(nil).FindByName(context.Background(), "x", nil); !errors.Is(err, domain.ErrExecution) {
		t.Errorf("expected execution error without a database, got %v", err)
	}

	svc := usecases.NewFeatureService(&mockFeatureRepo{
		nearFn: func(ctx context.Context, kind domain.FeatureKind, q domain.NearQuery, limit int) ([]domain.Feature, error) {
			return nil, errors.New(`column "cuisine" does not exist`)
		},
	})
	_, err := svc.FindNear(context.Background(), domain.NearQuery{Center: domain.GeoPoint{}, RadiusMeters: 10, Columns: map[string]string{"cuisine": "thai"}}, nil)
	if !errors.Is(err, domain.ErrExecution) || err.Error() != `column "cuisine" does not exist` {
		t.Errorf("expected driver message as execution error, got %v", err)
	}
}
