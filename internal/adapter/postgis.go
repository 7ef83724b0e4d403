package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"

	"github.com/gridwise/streetquality/internal/model"
)

// postgisDefaultMapping matches the column names typical of municipal road
// tables.
var postgisDefaultMapping = map[string]string{
	"road_type":    "highway",
	"lane_count":   "lanes",
	"speed_limit":  "maxspeed",
	"street_name":  "name",
	"is_oneway":    "oneway",
	"service_type": "service",
}

// Pool is the subset of pgxpool.Pool the adapter needs; pgxmock satisfies
// it in tests.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostGISAdapter reads street segments from a PostGIS table.
type PostGISAdapter struct {
	cfg    PostGISConfig
	mapper *FeatureMapper

	// connect is swapped out in tests.
	connect func(ctx context.Context, connString string) (Pool, error)
}

func postgisFormats() []string { return []string{"postgresql://", "postgis://"} }

// NewPostGISAdapter builds a PostGIS adapter from a raw JSON config.
func NewPostGISAdapter(raw json.RawMessage) (*PostGISAdapter, error) {
	var cfg PostGISConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	return &PostGISAdapter{
		cfg:    cfg,
		mapper: NewFeatureMapper(mergeMapping(postgisDefaultMapping, cfg.FeatureMapping)),
		connect: func(ctx context.Context, connString string) (Pool, error) {
			pool, err := pgxpool.New(ctx, connString)
			if err != nil {
				return nil, err
			}
			if err := pool.Ping(ctx); err != nil {
				pool.Close()
				return nil, err
			}
			return pool, nil
		},
	}, nil
}

// SupportedFormats implements Adapter.
func (a *PostGISAdapter) SupportedFormats() []string { return postgisFormats() }

// postgisData is a single-use query descriptor produced by Load. The pool
// is closed when ExtractEdges finishes.
type postgisData struct {
	pool    Pool
	table   string
	geomCol string
	where   string
	limit   int
}

// Load validates that the configured table and geometry column exist and
// returns a query descriptor. No row data is touched. A source of the form
// postgresql:// or postgis:// supplies the connection string; any other
// non-empty source overrides the configured table name.
func (a *PostGISAdapter) Load(ctx context.Context, source string) (any, error) {
	conn := a.cfg.ConnectionString
	table := a.cfg.TableName

	lower := strings.ToLower(source)
	switch {
	case strings.HasPrefix(lower, "postgis://"):
		if conn == "" {
			conn = "postgresql://" + source[len("postgis://"):]
		}
	case strings.HasPrefix(lower, "postgresql://"):
		if conn == "" {
			conn = source
		}
	case source != "" && source != "postgis":
		table = source
	}

	if conn == "" {
		return nil, eris.New("postgis: connection_string is required")
	}
	if table == "" {
		return nil, eris.New("postgis: table_name is required")
	}

	pool, err := a.connect(ctx, conn)
	if err != nil {
		return nil, eris.Wrapf(ErrConnection, "postgis: connect: %v", err)
	}

	columns, err := tableColumns(ctx, pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if len(columns) == 0 {
		pool.Close()
		return nil, eris.Wrapf(ErrSourceNotFound, "postgis: table %q", table)
	}
	if !columns[a.cfg.GeometryColumn] {
		pool.Close()
		return nil, eris.Wrapf(ErrSourceNotFound, "postgis: geometry column %q in table %q", a.cfg.GeometryColumn, table)
	}

	return &postgisData{
		pool:    pool,
		table:   table,
		geomCol: a.cfg.GeometryColumn,
		where:   a.cfg.WhereClause,
		limit:   a.cfg.Limit,
	}, nil
}

// ExtractEdges queries the table with the geometry column projected as WKB
// and canonicalizes the rows. The descriptor's pool is closed afterwards.
func (a *PostGISAdapter) ExtractEdges(ctx context.Context, raw any) (*model.EdgeTable, error) {
	data, ok := raw.(*postgisData)
	if !ok {
		return nil, eris.Errorf("postgis: unexpected raw type %T", raw)
	}
	defer data.pool.Close()

	sql := fmt.Sprintf("SELECT *, ST_AsBinary(%s) AS wkb_geom FROM %s",
		pgx.Identifier{data.geomCol}.Sanitize(),
		sanitizeTable(data.table),
	)
	if data.where != "" {
		sql += " WHERE " + data.where
	}
	if data.limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", data.limit)
	}

	rows, err := data.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrapf(ErrConnection, "postgis: query %s: %v", data.table, err)
	}
	defer rows.Close()

	var features []Feature
	var badGeom int
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, eris.Wrap(err, "postgis: read row")
		}

		fields := rows.FieldDescriptions()
		props := make(map[string]any, len(fields))
		var feature Feature
		for i, fd := range fields {
			name := string(fd.Name)
			switch name {
			case data.geomCol:
			case "wkb_geom":
				b, ok := vals[i].([]byte)
				if !ok {
					continue
				}
				g, gerr := wkb.Unmarshal(b)
				if gerr != nil {
					badGeom++
					continue
				}
				feature.Geometry = g
			default:
				if vals[i] != nil {
					props[name] = vals[i]
				}
			}
		}
		feature.Props = props
		features = append(features, feature)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(ErrConnection, "postgis: iterate %s: %v", data.table, err)
	}
	if badGeom > 0 {
		zap.L().Warn("postgis: undecodable geometries", zap.Int("count", badGeom))
	}

	return canonicalize(features, canonicalizeOptions{
		component:        "adapter.postgis",
		mapper:           a.mapper,
		highwayOverrides: a.cfg.HighwayMapping,
	})
}

// sanitizeTable quotes a possibly schema-qualified table name.
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// tableColumns returns the column set of a table, empty when the table
// does not exist.
func tableColumns(ctx context.Context, pool Pool, table string) (map[string]bool, error) {
	name := table
	schema := "public"
	if parts := strings.SplitN(table, ".", 2); len(parts) == 2 {
		schema, name = parts[0], parts[1]
	}

	rows, err := pool.Query(ctx,
		"SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2",
		schema, name,
	)
	if err != nil {
		return nil, eris.Wrapf(ErrConnection, "postgis: inspect table %q: %v", table, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, eris.Wrap(err, "postgis: scan column name")
		}
		columns[col] = true
	}
	return columns, rows.Err()
}
