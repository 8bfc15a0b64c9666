package export

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/geo3d/internal/feature"
	"github.com/woozymasta/geo3d/internal/geo"
)

// GeoPackageFile holds every layer of an area in one file.
const GeoPackageFile = "layers.gpkg"

const (
	gpkgApplicationID = 0x47504B47 // "GPKG"
	gpkgUserVersion   = 10300
)

// SRS is the spatial reference system of a GeoPackage.
type SRS struct {
	ID         int
	Name       string
	Definition string

	// Transform maps WGS84 geometries into the SRS; nil keeps them as they are.
	Transform func(orb.Geometry) (orb.Geometry, error)
}

// WGS84SRS keeps the layers in lon/lat.
var WGS84SRS = SRS{ID: 4326, Name: "WGS 84 geodetic", Definition: geo.WGS84WKT}

// ZoneSRS describes a UTM zone; the caller supplies the transform.
func ZoneSRS(z geo.UTMZone, transform func(orb.Geometry) (orb.Geometry, error)) SRS {
	return SRS{ID: z.EPSG(), Name: z.Name(), Definition: z.WKT(), Transform: transform}
}

var gpkgCore = []string{
	`CREATE TABLE gpkg_spatial_ref_sys (
	srs_name TEXT NOT NULL,
	srs_id INTEGER PRIMARY KEY,
	organization TEXT NOT NULL,
	organization_coordsys_id INTEGER NOT NULL,
	definition TEXT NOT NULL,
	description TEXT
)`,
	`CREATE TABLE gpkg_contents (
	table_name TEXT NOT NULL PRIMARY KEY,
	data_type TEXT NOT NULL,
	identifier TEXT UNIQUE,
	description TEXT DEFAULT '',
	last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	min_x DOUBLE, min_y DOUBLE, max_x DOUBLE, max_y DOUBLE,
	srs_id INTEGER,
	CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
)`,
	`CREATE TABLE gpkg_geometry_columns (
	table_name TEXT NOT NULL,
	column_name TEXT NOT NULL,
	geometry_type_name TEXT NOT NULL,
	srs_id INTEGER NOT NULL,
	z TINYINT NOT NULL,
	m TINYINT NOT NULL,
	CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name),
	CONSTRAINT uk_gc_table_name UNIQUE (table_name),
	CONSTRAINT fk_gc_tn FOREIGN KEY (table_name) REFERENCES gpkg_contents(table_name),
	CONSTRAINT fk_gc_srs FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
)`,
}

const insertSRS = `INSERT OR IGNORE INTO gpkg_spatial_ref_sys
	(srs_name, srs_id, organization, organization_coordsys_id, definition, description)
	VALUES (?, ?, ?, ?, ?, ?)`

// WriteGeoPackage replaces path with a GeoPackage holding one feature table
// per collection, in collection order. Geometries are expected in WGS84 and
// pass through srs.Transform.
func WriteGeoPackage(ctx context.Context, path string, srs SRS, layers []*feature.Collection) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open geopackage: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to close geopackage")
		}
	}()

	for _, pragma := range []string{
		fmt.Sprintf(`PRAGMA application_id = %d`, gpkgApplicationID),
		fmt.Sprintf(`PRAGMA user_version = %d`, gpkgUserVersion),
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("geopackage header: %w", err)
		}
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := writeGeoPackage(ctx, tx, srs, layers); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Str("path", path).Msg("Failed to roll back")
		}
		return err
	}
	return tx.Commit()
}

func writeGeoPackage(ctx context.Context, tx *sqlx.Tx, srs SRS, layers []*feature.Collection) error {
	for _, stmt := range gpkgCore {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("geopackage schema: %w", err)
		}
	}

	systems := []SRS{
		{ID: -1, Name: "Undefined cartesian SRS", Definition: "undefined"},
		{ID: 0, Name: "Undefined geographic SRS", Definition: "undefined"},
		WGS84SRS,
		srs,
	}
	for _, s := range systems {
		org, code := "EPSG", s.ID
		if s.ID <= 0 {
			org = "NONE"
		}
		if _, err := tx.ExecContext(ctx, insertSRS, s.Name, s.ID, org, code, s.Definition, ""); err != nil {
			return fmt.Errorf("geopackage srs %d: %w", s.ID, err)
		}
	}

	seen := make(map[string]bool, len(layers))
	for _, c := range layers {
		name := tableName(c.Name)
		if seen[name] {
			return fmt.Errorf("layer %s: duplicate table %s", c.Name, name)
		}
		seen[name] = true

		if err := writeFeatureTable(ctx, tx, name, srs, c); err != nil {
			return fmt.Errorf("layer %s: %w", c.Name, err)
		}
	}

	return nil
}

func writeFeatureTable(ctx context.Context, tx *sqlx.Tx, name string, srs SRS, c *feature.Collection) error {
	var columns []string
	defs := []string{"fid INTEGER PRIMARY KEY AUTOINCREMENT", "geom GEOMETRY"}
	for _, col := range c.Columns {
		if col == "fid" || col == "geom" {
			continue
		}
		columns = append(columns, col)
		defs = append(defs, quoteIdent(col)+" "+columnType(c, col))
	}

	ddl := fmt.Sprintf(`CREATE TABLE %s (%s)`, quoteIdent(name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return err
	}

	quoted := []string{"geom"}
	for _, col := range columns {
		quoted = append(quoted, quoteIdent(col))
	}
	insert := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		quoteIdent(name), strings.Join(quoted, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(quoted)), ", "))

	stmt, err := tx.PreparexContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var (
		extent orb.Bound
		found  bool
	)
	for _, f := range c.Features {
		g := f.Geometry
		if g != nil && srs.Transform != nil {
			if g, err = srs.Transform(g); err != nil {
				return fmt.Errorf("feature %s: %w", f.ID, err)
			}
		}

		var blob any
		if g != nil {
			data, err := geometryBlob(g, srs.ID)
			if err != nil {
				return fmt.Errorf("feature %s: %w", f.ID, err)
			}
			blob = data
			if !geo.IsEmpty(g) {
				if !found {
					extent, found = g.Bound(), true
				} else {
					extent = extent.Union(g.Bound())
				}
			}
		}

		args := make([]any, 0, len(quoted))
		args = append(args, blob)
		for _, col := range columns {
			v, err := columnValue(f.Attributes[col])
			if err != nil {
				return fmt.Errorf("feature %s column %s: %w", f.ID, col, err)
			}
			args = append(args, v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("feature %s: %w", f.ID, err)
		}
	}

	var bounds [4]any
	if found {
		bounds = [4]any{extent.Min[0], extent.Min[1], extent.Max[0], extent.Max[1]}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO gpkg_contents (table_name, data_type, identifier, min_x, min_y, max_x, max_y, srs_id) VALUES (?, 'features', ?, ?, ?, ?, ?, ?)`,
		name, name, bounds[0], bounds[1], bounds[2], bounds[3], srs.ID)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO gpkg_geometry_columns (table_name, column_name, geometry_type_name, srs_id, z, m) VALUES (?, 'geom', 'GEOMETRY', ?, 0, 0)`,
		name, srs.ID)
	return err
}

// geometryBlob encodes g as a GeoPackage binary: header, xy envelope and
// little endian WKB.
func geometryBlob(g orb.Geometry, srsID int) ([]byte, error) {
	data, err := wkb.Marshal(g, binary.LittleEndian)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write([]byte{'G', 'P', 0})

	empty := geo.IsEmpty(g)
	flags := byte(0x01) // little endian
	if empty {
		flags |= 0x10
	} else {
		flags |= 0x02 // envelope [minx, maxx, miny, maxy]
	}
	buf.WriteByte(flags)

	_ = binary.Write(&buf, binary.LittleEndian, int32(srsID))
	if !empty {
		b := g.Bound()
		_ = binary.Write(&buf, binary.LittleEndian, [4]float64{b.Min[0], b.Max[0], b.Min[1], b.Max[1]})
	}

	buf.Write(data)
	return buf.Bytes(), nil
}

// columnType declares REAL or BOOLEAN for columns holding only numbers or
// booleans, TEXT otherwise.
func columnType(c *feature.Collection, col string) string {
	kind := ""
	for _, f := range c.Features {
		var k string
		switch f.Attributes[col].(type) {
		case nil:
			continue
		case float64, int, int64:
			k = "REAL"
		case bool:
			k = "BOOLEAN"
		default:
			return "TEXT"
		}
		if kind != "" && kind != k {
			return "TEXT"
		}
		kind = k
	}
	if kind == "" {
		return "TEXT"
	}
	return kind
}

func columnValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, float64, int, int64, bool:
		return t, nil
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
}

var nonIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// tableName lowercases a layer name and replaces everything else with underscores.
func tableName(layer string) string {
	return nonIdent.ReplaceAllString(strings.ToLower(strings.TrimSpace(layer)), "_")
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
