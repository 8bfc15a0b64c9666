// Package store writes enriched layers into PostGIS tables.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/geo3d/internal/feature"
)

// Table describes one layer table.
type Table struct {
	Name string
	// LinkKey is the attribute stored in the links array column.
	LinkKey string
	// SkipKeys are attributes left out of the jsonb column.
	SkipKeys []string
}

// Tables of the enriched layers.
var (
	Buildings     = Table{Name: "buildings", LinkKey: "children", SkipKeys: []string{"geometry_wkt", "footprint"}}
	Installations = Table{Name: "installations", LinkKey: "parent", SkipKeys: []string{"geometry_wkt", "footprint"}}
)

// OSM element kinds of a row. Ways and relations have separate id spaces.
const (
	KindWay      = "way"
	KindRelation = "relation"
	KindFeature  = "feature"
)

// Row is one feature prepared for insertion.
type Row struct {
	Area  string         `db:"area"`
	Kind  string         `db:"kind"`
	ID    string         `db:"id"`
	Attrs string         `db:"attrs"`
	Links pq.StringArray `db:"links"`
	WKT   string         `db:"wkt"`
}

// Store is a PostGIS sink.
type Store struct {
	db *sqlx.DB
}

// Open connects to PostgreSQL using a lib/pq DSN.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the layer tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS postgis`); err != nil {
		return fmt.Errorf("enable postgis: %w", err)
	}

	for _, t := range []Table{Buildings, Installations} {
		for _, stmt := range schema(t) {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate %s: %w", t.Name, err)
			}
		}
	}

	return nil
}

func schema(t Table) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	area  text NOT NULL,
	kind  text NOT NULL,
	id    text NOT NULL,
	attrs jsonb NOT NULL,
	links text[],
	geom  geometry(Geometry, 4326) NOT NULL,
	PRIMARY KEY (area, kind, id)
)`, t.Name),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_geom_idx ON %[1]s USING gist (geom)`, t.Name),
	}
}

func insertQuery(t Table) string {
	return fmt.Sprintf(
		`INSERT INTO %s (area, kind, id, attrs, links, geom) VALUES (:area, :kind, :id, CAST(:attrs AS jsonb), :links, ST_GeomFromText(:wkt, 4326)) ON CONFLICT (area, kind, id) DO NOTHING`,
		t.Name)
}

// ReplaceArea deletes the rows of an area and inserts the new ones in one transaction.
func (s *Store) ReplaceArea(ctx context.Context, t Table, area string, rows []Row) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := replace(ctx, tx, t, area, rows); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Str("table", t.Name).Msg("Failed to roll back")
		}
		return fmt.Errorf("replace %s of %s: %w", t.Name, area, err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Debug().Str("table", t.Name).Str("area", area).Int("rows", len(rows)).Msg("Area stored")
	return nil
}

func replace(ctx context.Context, tx *sqlx.Tx, t Table, area string, rows []Row) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE area = $1`, t.Name), area); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	stmt, err := tx.PrepareNamedContext(ctx, insertQuery(t))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r); err != nil {
			return fmt.Errorf("feature %s: %w", r.ID, err)
		}
	}

	return nil
}

// Rows converts a WGS84 collection into table rows. Features without
// geometry are skipped, as are repeated elements of the same kind and id.
func Rows(t Table, area string, c *feature.Collection) ([]Row, error) {
	skip := make(map[string]bool, len(t.SkipKeys))
	for _, k := range t.SkipKeys {
		skip[k] = true
	}

	seen := make(map[[2]string]bool, len(c.Features))
	rows := make([]Row, 0, len(c.Features))
	for _, f := range c.Features {
		if f.Geometry == nil {
			continue
		}

		k := kind(f)
		if seen[[2]string{k, f.ID}] {
			log.Warn().Str("table", t.Name).Str("kind", k).Str("id", f.ID).Msg("Duplicate feature, skipped")
			continue
		}
		seen[[2]string{k, f.ID}] = true

		attrs := make(map[string]any, len(f.Attributes))
		for k, v := range f.Attributes {
			if !skip[k] {
				attrs[k] = v
			}
		}
		data, err := json.Marshal(attrs)
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", f.ID, err)
		}

		rows = append(rows, Row{
			Area:  area,
			Kind:  k,
			ID:    f.ID,
			Attrs: string(data),
			Links: links(f.Attributes[t.LinkKey]),
			WKT:   wkt.MarshalString(f.Geometry),
		})
	}

	return rows, nil
}

// kind tells ways from relations by the OSM driver id columns.
func kind(f *feature.Feature) string {
	switch {
	case !f.Attributes.Empty(feature.WayIDKey):
		return KindWay
	case !f.Attributes.Empty(feature.IDKey):
		return KindRelation
	default:
		return KindFeature
	}
}

func links(v any) pq.StringArray {
	switch t := v.(type) {
	case []string:
		return pq.StringArray(t)
	case []any:
		out := make(pq.StringArray, 0, len(t))
		for _, e := range t {
			out = append(out, fmt.Sprint(e))
		}
		return out
	default:
		return nil
	}
}
