//go:build integration

package postgres_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/osmmap/internal/adapters/postgres"
	"github.com/samirrijal/osmmap/internal/pkg/config"
)

// setupTestDB connects to the database named by the usual config sources.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("osmmap-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN(), postgres.Options{MaxConns: 4, StatementTimeoutMS: 2000})
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestQueryRepo_SelectOne(t *testing.T) {
	repo := postgres.NewQueryRepo(setupTestDB(t))

	res, err := repo.Query(context.Background(), "SELECT 1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Rows) != 1 || len(res.Columns) != 1 {
		t.Fatalf("expected 1x1 result, got %+v", res)
	}
	v, _ := res.Rows[0].Get(res.Columns[0])
	if v != int32(1) {
		t.Errorf("expected 1, got %#v", v)
	}
}

func TestQueryRepo_MaxRows(t *testing.T) {
	repo := postgres.NewQueryRepo(setupTestDB(t))

	res, err := repo.Query(context.Background(), "SELECT g FROM generate_series(1, 10) g", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RowCount != 3 || res.TotalRows != 10 || !res.Truncated {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestQueryRepo_StatementTimeout(t *testing.T) {
	repo := postgres.NewQueryRepo(setupTestDB(t))

	_, err := repo.Query(context.Background(), "SELECT pg_sleep(5)", 0)
	if err == nil || !strings.Contains(err.Error(), "statement timeout") {
		t.Errorf("expected statement timeout, got %v", err)
	}
}

func TestQueryRepo_DriverError(t *testing.T) {
	repo := postgres.NewQueryRepo(setupTestDB(t))

	_, err := repo.Query(context.Background(), "SELECT * FROM no_such_table_here", 0)
	if err == nil || !strings.Contains(err.Error(), "no_such_table_here") {
		t.Errorf("expected driver error naming the table, got %v", err)
	}
}

func TestSchemaRepo_ListTables(t *testing.T) {
	repo := postgres.NewSchemaRepo(setupTestDB(t))

	if _, err := repo.ListTables(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
