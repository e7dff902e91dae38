package postgres

import (
	"context"
	"strings"

	"github.com/samirrijal/osmmap/internal/core/domain"
)

// SchemaRepo implements ports.SchemaRepository.
type SchemaRepo struct {
	db *DB
}

func NewSchemaRepo(db *DB) *SchemaRepo {
	return &SchemaRepo{db: db}
}

func (r *SchemaRepo) ListTables(ctx context.Context) ([]domain.TableSummary, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT table_schema, table_name, table_type
		FROM information_schema.tables
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []domain.TableSummary{}
	for rows.Next() {
		var t domain.TableSummary
		if err := rows.Scan(&t.Schema, &t.Name, &t.Type); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// DescribeTable accepts "table" (public schema) or "schema.table".
func (r *SchemaRepo) DescribeTable(ctx context.Context, name string) (*domain.TableInfo, error) {
	schema, table := splitTableName(name)

	rows, err := r.db.Pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	info := &domain.TableInfo{Name: name, Columns: []domain.ColumnInfo{}, Indexes: []domain.IndexInfo{}}
	for rows.Next() {
		var c domain.ColumnInfo
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable); err != nil {
			return nil, err
		}
		info.Columns = append(info.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(info.Columns) == 0 {
		return nil, domain.Invalid("table", "%q does not exist", name)
	}

	idx, err := r.db.Pool.Query(ctx, `
		SELECT indexname, indexdef
		FROM pg_indexes
		WHERE schemaname = $1 AND tablename = $2
		ORDER BY indexname
	`, schema, table)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	for idx.Next() {
		var i domain.IndexInfo
		if err := idx.Scan(&i.Name, &i.Definition); err != nil {
			return nil, err
		}
		info.Indexes = append(info.Indexes, i)
	}
	if err := idx.Err(); err != nil {
		return nil, err
	}

	// reltuples is the planner's estimate; -1 means never analysed.
	err = r.db.Pool.QueryRow(ctx, `
		SELECT GREATEST(c.reltuples, 0)::bigint
		FROM pg_class c JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2
	`, schema, table).Scan(&info.ApproximateRows)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func splitTableName(name string) (schema, table string) {
	if i := strings.IndexByte(name, '.'); i > 0 {
		return name[:i], name[i+1:]
	}
	return "public", name
}
