package postgres

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/osmmap/internal/core/domain"
	"github.com/samirrijal/osmmap/internal/pkg/geospatial"
	"github.com/samirrijal/osmmap/internal/pkg/telemetry"
)

// categoryExpr labels a feature by its most telling osm2pgsql column.
const categoryExpr = `CASE
	WHEN f.highway IS NOT NULL THEN 'highway: ' || f.highway
	WHEN f.amenity IS NOT NULL THEN 'amenity: ' || f.amenity
	WHEN f.building IS NOT NULL THEN 'building: ' || f.building
	WHEN f."natural" IS NOT NULL THEN 'natural: ' || f."natural"
	WHEN f.waterway IS NOT NULL THEN 'waterway: ' || f.waterway
	WHEN f.landuse IS NOT NULL THEN 'landuse: ' || f.landuse
	ELSE 'other'
END`

// osm2pgsql usually stores way in 3857; everything returned is WGS 84.
const centroidJoin = `LATERAL (SELECT ST_Transform(ST_Centroid(f.way), 4326) AS pt) c`

// FeatureRepo implements ports.FeatureRepository.
type FeatureRepo struct {
	db *DB
}

func NewFeatureRepo(db *DB) *FeatureRepo {
	return &FeatureRepo{db: db}
}

func (r *FeatureRepo) FindByName(ctx context.Context, kind domain.FeatureKind, pattern string, limit int) ([]domain.Feature, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "postgres.FindByName",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.AttrDBTable.String(kind.Table())))
	defer span.End()

	table := pgx.Identifier{kind.Table()}.Sanitize()
	sql := fmt.Sprintf(`
		SELECT f.osm_id, f.name, %s, ST_Y(c.pt), ST_X(c.pt), NULL::float8
		FROM %s f, %s
		WHERE f.name ILIKE $1
		ORDER BY f.name, f.osm_id
		LIMIT $2
	`, categoryExpr, table, centroidJoin)

	out, err := r.collect(ctx, kind, sql, pattern, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

func (r *FeatureRepo) FindNear(ctx context.Context, kind domain.FeatureKind, q domain.NearQuery, limit int) ([]domain.Feature, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "postgres.FindNear",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.AttrDBTable.String(kind.Table())))
	defer span.End()

	sql, args := nearStatement(kind, q, limit)
	out, err := r.collect(ctx, kind, sql, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

// nearStatement builds the radius search. The envelope lets the planner use
// the GiST index on way before the exact geography distance check.
func nearStatement(kind domain.FeatureKind, q domain.NearQuery, limit int) (string, []any) {
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(q.Center.Lat, q.Center.Lon, q.RadiusMeters)
	// ST_Transform to 3857 fails at the poles.
	minLat, maxLat = math.Max(minLat, -85), math.Min(maxLat, 85)

	args := []any{q.Center.Lon, q.Center.Lat, q.RadiusMeters, minLon, minLat, maxLon, maxLat, kind.Table()}
	var where []string
	for _, col := range sortedKeys(q.Columns) {
		args = append(args, q.Columns[col])
		where = append(where, fmt.Sprintf("f.%s = $%d", pgx.Identifier{col}.Sanitize(), len(args)))
	}
	for _, key := range sortedKeys(q.Tags) {
		args = append(args, key, q.Tags[key])
		where = append(where, fmt.Sprintf("f.tags -> $%d::text = $%d::text", len(args)-1, len(args)))
	}
	args = append(args, limit)

	filter := ""
	if len(where) > 0 {
		filter = "AND " + strings.Join(where, " AND ")
	}
	sql := fmt.Sprintf(`
		WITH origin AS (
			SELECT ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography AS g
		)
		SELECT f.osm_id, COALESCE(f.name, ''), %s, ST_Y(c.pt), ST_X(c.pt),
		       ST_Distance(ST_Transform(f.way, 4326)::geography, o.g) AS distance_m
		FROM %s f, origin o, %s
		WHERE f.way && ST_Transform(ST_MakeEnvelope($4, $5, $6, $7, 4326), Find_SRID('public', $8, 'way'))
		  AND ST_DWithin(ST_Transform(f.way, 4326)::geography, o.g, $3)
		  %s
		ORDER BY distance_m
		LIMIT $%d
	`, categoryExpr, pgx.Identifier{kind.Table()}.Sanitize(), centroidJoin, filter, len(args))
	return sql, args
}

func (r *FeatureRepo) collect(ctx context.Context, kind domain.FeatureKind, sql string, args ...any) ([]domain.Feature, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Feature{}
	for rows.Next() {
		f := domain.Feature{GeometryType: kind}
		if err := rows.Scan(&f.OSMID, &f.Name, &f.Category, &f.Centroid.Lat, &f.Centroid.Lon, &f.DistanceMeters); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
