package usecases

import (
	"context"
	"errors"
	"strings"

	"github.com/samirrijal/osmmap/internal/core/domain"
	"github.com/samirrijal/osmmap/internal/core/ports"
)

var errNoDatabase = errors.New("database connection is not available")

// QueryService forwards SQL to the OSM database. Statements are not parsed,
// rewritten or restricted: whatever the configured role may do, callers may do.
type QueryService struct {
	queries ports.QueryRepository
	schema  ports.SchemaRepository
	maxRows int
}

// NewQueryService creates a QueryService. Both repositories may be nil when
// the database was unreachable at start-up; calls then fail with an
// ExecutionError. maxRows <= 0 returns every row.
func NewQueryService(queries ports.QueryRepository, schema ports.SchemaRepository, maxRows int) *QueryService {
	return &QueryService{queries: queries, schema: schema, maxRows: maxRows}
}

// Query runs sql and returns its rows in order.
func (s *QueryService) Query(ctx context.Context, sql string) (*domain.QueryResult, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, domain.Invalid("sql", "must not be empty")
	}
	if s.queries == nil {
		return nil, &domain.ExecutionError{Err: errNoDatabase}
	}
	res, err := s.queries.Query(ctx, sql, s.maxRows)
	if err != nil {
		return nil, asExecution(err)
	}
	return res, nil
}

// ListTables lists user tables and views.
func (s *QueryService) ListTables(ctx context.Context) ([]domain.TableSummary, error) {
	if s.schema == nil {
		return nil, &domain.ExecutionError{Err: errNoDatabase}
	}
	tables, err := s.schema.ListTables(ctx)
	if err != nil {
		return nil, asExecution(err)
	}
	return tables, nil
}

// DescribeTable returns columns, indexes and an approximate row count.
func (s *QueryService) DescribeTable(ctx context.Context, name string) (*domain.TableInfo, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.Invalid("table", "must not be empty")
	}
	if s.schema == nil {
		return nil, &domain.ExecutionError{Err: errNoDatabase}
	}
	info, err := s.schema.DescribeTable(ctx, name)
	if err != nil {
		return nil, asExecution(err)
	}
	return info, nil
}

func asExecution(err error) error {
	if errors.Is(err, domain.ErrExecution) || errors.Is(err, domain.ErrValidation) {
		return err
	}
	return &domain.ExecutionError{Err: err}
}
