package usecases

import (
	"context"
	"sort"
	"strings"

	"github.com/samirrijal/osmmap/internal/core/domain"
	"github.com/samirrijal/osmmap/internal/core/ports"
)

const (
	// MaxFeatureResults caps a feature search across all kinds.
	MaxFeatureResults = 50
	// MaxSearchRadius bounds find_features_near_location, in meters.
	MaxSearchRadius = 10000.0
)

// FeatureService runs the canned feature searches. Unlike QueryService it
// never passes caller text into SQL: names and filter values are bound as
// parameters and column names are quoted identifiers.
type FeatureService struct {
	repo ports.FeatureRepository
}

// NewFeatureService creates a FeatureService. repo may be nil when the
// database is unavailable.
func NewFeatureService(repo ports.FeatureRepository) *FeatureService {
	return &FeatureService{repo: repo}
}

// FindByName matches feature names case-insensitively. A pattern without
// LIKE wildcards matches anywhere in the name.
func (s *FeatureService) FindByName(ctx context.Context, pattern string, kinds []string) (*domain.FeatureResult, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, domain.Invalid("name_pattern", "must not be empty")
	}
	fk, err := domain.ParseFeatureKinds("feature_types", kinds)
	if err != nil {
		return nil, err
	}
	if s.repo == nil {
		return nil, &domain.ExecutionError{Err: errNoDatabase}
	}
	if !strings.ContainsAny(pattern, "%_") {
		pattern = "%" + pattern + "%"
	}

	res := &domain.FeatureResult{Features: []domain.Feature{}}
	for _, kind := range fk {
		remaining := MaxFeatureResults - len(res.Features)
		// One extra row tells a full page from a cut one.
		found, err := s.repo.FindByName(ctx, kind, pattern, remaining+1)
		if err != nil {
			return nil, asExecution(err)
		}
		if len(found) > remaining {
			res.Features = append(res.Features, found[:remaining]...)
			res.Truncated = true
			break
		}
		res.Features = append(res.Features, found...)
	}
	res.Count = len(res.Features)
	return res, nil
}

// FindNear returns features within q.RadiusMeters of q.Center, nearest
// first, across the requested kinds.
func (s *FeatureService) FindNear(ctx context.Context, q domain.NearQuery, kinds []string) (*domain.FeatureResult, error) {
	if err := q.Center.Validate("location"); err != nil {
		return nil, err
	}
	if !(q.RadiusMeters > 0 && q.RadiusMeters <= MaxSearchRadius) {
		return nil, domain.Invalid("radius_meters", "%v out of range (0, %v]", q.RadiusMeters, MaxSearchRadius)
	}
	for col := range q.Columns {
		if strings.TrimSpace(col) == "" {
			return nil, domain.Invalid("filters", "column name must not be empty")
		}
	}
	for key := range q.Tags {
		if key == "" {
			return nil, domain.Invalid("tags", "tag key must not be empty")
		}
	}
	fk, err := domain.ParseFeatureKinds("feature_types", kinds)
	if err != nil {
		return nil, err
	}
	if s.repo == nil {
		return nil, &domain.ExecutionError{Err: errNoDatabase}
	}

	var all []domain.Feature
	for _, kind := range fk {
		found, err := s.repo.FindNear(ctx, kind, q, MaxFeatureResults+1)
		if err != nil {
			return nil, asExecution(err)
		}
		all = append(all, found...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return distanceOf(all[i]) < distanceOf(all[j])
	})

	res := &domain.FeatureResult{Features: []domain.Feature{}}
	if len(all) > MaxFeatureResults {
		all = all[:MaxFeatureResults]
		res.Truncated = true
	}
	res.Features = append(res.Features, all...)
	res.Count = len(res.Features)
	return res, nil
}

func distanceOf(f domain.Feature) float64 {
	if f.DistanceMeters == nil {
		return MaxSearchRadius
	}
	return *f.DistanceMeters
}
