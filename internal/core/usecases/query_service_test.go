package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/osmmap/internal/core/domain"
	"github.com/samirrijal/osmmap/internal/core/usecases"
)

// --- Mock QueryRepository ---

type mockQueryRepo struct {
	queryFn func(ctx context.Context, sql string, maxRows int) (*domain.QueryResult, error)
}

func (m *mockQueryRepo) Query(ctx context.Context, sql string, maxRows int) (*domain.QueryResult, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, sql, maxRows)
	}
	return &domain.QueryResult{}, nil
}

// --- Mock SchemaRepository ---

type mockSchemaRepo struct {
	listFn     func(ctx context.Context) ([]domain.TableSummary, error)
	describeFn func(ctx context.Context, name string) (*domain.TableInfo, error)
}

func (m *mockSchemaRepo) ListTables(ctx context.Context) ([]domain.TableSummary, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockSchemaRepo) DescribeTable(ctx context.Context, name string) (*domain.TableInfo, error) {
	if m.describeFn != nil {
		return m.describeFn(ctx, name)
	}
	return nil, nil
}

// --- Tests ---

func TestQueryService_PassesStatementThrough(t *testing.T) {
	var gotSQL string
	var gotMax int
	repo := &mockQueryRepo{
		queryFn: func(ctx context.Context, sql string, maxRows int) (*domain.QueryResult, error) {
			gotSQL, gotMax = sql, maxRows
			return &domain.QueryResult{
				Columns:  []string{"?column?"},
				Rows:     []domain.Row{{Columns: []string{"?column?"}, Values: []any{int32(1)}}},
				RowCount: 1,
			}, nil
		},
	}

	svc := usecases.NewQueryService(repo, nil, 100)

	res, err := svc.Query(context.Background(), "DELETE FROM planet_osm_point; SELECT 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotSQL != "DELETE FROM planet_osm_point; SELECT 1" {
		t.Errorf("statement was altered: %q", gotSQL)
	}
	if gotMax != 100 {
		t.Errorf("expected maxRows 100, got %d", gotMax)
	}
	if res.RowCount != 1 {
		t.Errorf("expected 1 row, got %d", res.RowCount)
	}
}

func TestQueryService_EmptySQL(t *testing.T) {
	svc := usecases.NewQueryService(&mockQueryRepo{}, nil, 0)

	_, err := svc.Query(context.Background(), "   ")
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestQueryService_DriverErrorBecomesExecutionError(t *testing.T) {
	repo := &mockQueryRepo{
		queryFn: func(ctx context.Context, sql string, maxRows int) (*domain.QueryResult, error) {
			return nil, errors.New(`ERROR: relation "nope" does not exist (SQLSTATE 42P01)`)
		},
	}
	svc := usecases.NewQueryService(repo, nil, 0)

	_, err := svc.Query(context.Background(), "SELECT * FROM nope")
	if !errors.Is(err, domain.ErrExecution) {
		t.Fatalf("expected execution error, got %v", err)
	}
	if err.Error() != `ERROR: relation "nope" does not exist (SQLSTATE 42P01)` {
		t.Errorf("expected driver message, got %q", err.Error())
	}
}

func TestQueryService_NoDatabase(t *testing.T) {
	svc := usecases.NewQueryService(nil, nil, 0)

	if _, err := svc.Query(context.Background(), "SELECT 1"); !errors.Is(err, domain.ErrExecution) {
		t.Errorf("expected execution error, got %v", err)
	}
	if _, err := svc.ListTables(context.Background()); !errors.Is(err, domain.ErrExecution) {
		t.Errorf("expected execution error, got %v", err)
	}
}

func TestQueryService_DescribeTable(t *testing.T) {
	schema := &mockSchemaRepo{
		describeFn: func(ctx context.Context, name string) (*domain.TableInfo, error) {
			return &domain.TableInfo{Name: name, ApproximateRows: 42}, nil
		},
	}
	svc := usecases.NewQueryService(nil, schema, 0)

	info, err := svc.DescribeTable(context.Background(), "planet_osm_polygon")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Name != "planet_osm_polygon" || info.ApproximateRows != 42 {
		t.Errorf("unexpected info: %+v", info)
	}

	if _, err := svc.DescribeTable(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
