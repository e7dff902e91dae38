package ports

import (
	"context"

	"github.com/samirrijal/osmmap/internal/core/domain"
)

// QueryRepository runs caller-supplied SQL against the OSM database.
// The statement is passed through untouched; the database role's
// privileges are the only guard.
type QueryRepository interface {
	Query(ctx context.Context, sql string, maxRows int) (*domain.QueryResult, error)
}

// SchemaRepository introspects the OSM database.
type SchemaRepository interface {
	ListTables(ctx context.Context) ([]domain.TableSummary, error)
	DescribeTable(ctx context.Context, name string) (*domain.TableInfo, error)
}

// FeatureRepository searches the osm2pgsql feature tables with
// parameterised statements.
type FeatureRepository interface {
	FindByName(ctx context.Context, kind domain.FeatureKind, pattern string, limit int) ([]domain.Feature, error)
	FindNear(ctx context.Context, kind domain.FeatureKind, q domain.NearQuery, limit int) ([]domain.Feature, error)
}
