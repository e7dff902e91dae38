package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/osmmap/internal/core/domain"
	"github.com/samirrijal/osmmap/internal/pkg/metrics"
	"github.com/samirrijal/osmmap/internal/pkg/telemetry"
)

// QueryRepo implements ports.QueryRepository.
type QueryRepo struct {
	db *DB

	mu       sync.Mutex
	geomOIDs map[uint32]bool
}

func NewQueryRepo(db *DB) *QueryRepo {
	return &QueryRepo{db: db}
}

// Query runs sql as-is over the simple protocol, so ad hoc statements never
// land in the prepared statement cache.
func (r *QueryRepo) Query(ctx context.Context, sql string, maxRows int) (*domain.QueryResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "postgres.Query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.AttrDBStatement.String(sql)))
	defer span.End()

	geom := r.geometryOIDs(ctx)

	start := time.Now()
	rows, err := r.db.Pool.Query(ctx, sql, pgx.QueryExecModeSimpleProtocol)
	if err != nil {
		return nil, r.fail(span, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	res := &domain.QueryResult{
		Columns: make([]string, len(fields)),
		Rows:    []domain.Row{},
	}
	isGeom := make([]bool, len(fields))
	for i, f := range fields {
		res.Columns[i] = f.Name
		isGeom[i] = geom[f.DataTypeOID]
	}

	for rows.Next() {
		res.TotalRows++
		if maxRows > 0 && len(res.Rows) >= maxRows {
			res.Truncated = true
			continue
		}
		vals, err := rows.Values()
		if err != nil {
			return nil, r.fail(span, err)
		}
		for i, v := range vals {
			if isGeom[i] {
				if text, ok := geometryText(v); ok {
					vals[i] = text
					continue
				}
			}
			vals[i] = textSafe(v)
		}
		res.Rows = append(res.Rows, domain.Row{Columns: res.Columns, Values: vals})
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail(span, err)
	}
	res.RowCount = len(res.Rows)
	res.Command = rows.CommandTag().String()

	metrics.QueryDuration.Observe(time.Since(start).Seconds())
	metrics.QueryRows.Observe(float64(res.RowCount))
	span.SetAttributes(telemetry.AttrDBRows.Int(res.RowCount), telemetry.AttrDBTruncated.Bool(res.Truncated))
	return res, nil
}

func (r *QueryRepo) fail(span trace.Span, err error) error {
	metrics.QueryErrors.Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// geometryOIDs looks up the PostGIS type oids once. Without PostGIS the set
// stays empty and geometry columns are never expected.
func (r *QueryRepo) geometryOIDs(ctx context.Context) map[uint32]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.geomOIDs != nil {
		return r.geomOIDs
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT oid FROM pg_type WHERE typname IN ('geometry', 'geography')
	`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	oids := map[uint32]bool{}
	for rows.Next() {
		var oid uint32
		if err := rows.Scan(&oid); err != nil {
			return nil
		}
		oids[oid] = true
	}
	if rows.Err() != nil {
		return nil
	}
	r.geomOIDs = oids
	return oids
}
