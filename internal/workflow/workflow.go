// Package workflow runs the enrichment of one harvested area from raw layers
// to exported files.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/geo3d/internal/config"
	"github.com/woozymasta/geo3d/internal/export"
	"github.com/woozymasta/geo3d/internal/feature"
	"github.com/woozymasta/geo3d/internal/geo"
	"github.com/woozymasta/geo3d/internal/geofile"
	"github.com/woozymasta/geo3d/internal/processor"
	"github.com/woozymasta/geo3d/internal/reproject"
	"github.com/woozymasta/geo3d/internal/source"
	"github.com/woozymasta/geo3d/internal/store"
	"github.com/woozymasta/geo3d/internal/viewer"
)

// ErrNoBuildings is returned when the raw building layer holds no geometry.
var ErrNoBuildings = errors.New("no building geometry")

// Sink receives the exported rows of an area.
type Sink interface {
	ReplaceArea(ctx context.Context, t store.Table, area string, rows []store.Row) error
}

// Options configures a run.
type Options struct {
	Output  string
	Workers int

	// NoViewer skips index.html.
	NoViewer bool

	// GeoPackage also writes every layer into layers.gpkg.
	GeoPackage bool
	// GeoPackageEPSG is 4326 or a WGS84 / UTM code; 0 selects the area zone.
	GeoPackageEPSG int

	// Sink is optional.
	Sink Sink
}

// Run enriches one area and returns its manifest.
func Run(ctx context.Context, area config.Area, opts Options) (*export.Manifest, error) {
	start := time.Now()
	dir := filepath.Join(opts.Output, area.Name)

	buildings, err := geofile.Read(source.RawPath(opts.Output, area.Name, source.LayerBuildings), source.LayerBuildings)
	if err != nil {
		return nil, fmt.Errorf("read buildings: %w", err)
	}
	installations, err := readInstallations(opts.Output, area)
	if err != nil {
		return nil, err
	}

	engine := geo.NewGEOS()
	repaired := repair(engine, buildings) + repair(engine, installations)
	if repaired > 0 {
		log.Debug().Str("area", area.Name).Int("repaired", repaired).Msg("Invalid geometries repaired")
	}

	geoms := make([]orb.Geometry, 0, buildings.Len())
	for _, f := range buildings.Features {
		geoms = append(geoms, f.Geometry)
	}
	zone, ok := geo.ZoneForGeometries(geoms)
	if !ok {
		return nil, ErrNoBuildings
	}

	projector, err := reproject.New(zone)
	if err != nil {
		return nil, err
	}
	defer projector.Close()

	log.Debug().Str("area", area.Name).Str("zone", zone.String()).Int("epsg", zone.EPSG()).Msg("UTM zone selected")

	if err := projector.ForwardCollection(buildings); err != nil {
		return nil, err
	}
	if err := projector.ForwardCollection(installations); err != nil {
		return nil, err
	}

	res, err := processor.Enrich(buildings, installations, processor.Options{
		Workers:     opts.Workers,
		Unprojector: projector,
		Geometry:    engine,
	})
	if err != nil {
		return nil, fmt.Errorf("enrich: %w", err)
	}

	if err := projector.InverseCollection(buildings); err != nil {
		return nil, err
	}
	if err := projector.InverseCollection(installations); err != nil {
		return nil, err
	}

	if err := export.WriteLayer(filepath.Join(dir, export.BuildingsFile), buildings); err != nil {
		return nil, err
	}
	if err := export.WriteLayer(filepath.Join(dir, export.InstallationsFile), installations); err != nil {
		return nil, err
	}

	m := export.NewManifest(area.Name, zone, buildings)
	m.Large, m.Focus = area.Large, area.Focus
	m.Summary = processor.Summarize(res)
	m.Layers[source.LayerBuildings] = export.BuildingsFile
	m.Layers[source.LayerInstallations] = export.InstallationsFile

	layers := append([]*feature.Collection{buildings, installations}, contextLayers(opts.Output, area.Name)...)

	if opts.GeoPackage {
		if err := writeGeoPackage(ctx, filepath.Join(dir, export.GeoPackageFile), projector, opts.GeoPackageEPSG, layers); err != nil {
			return nil, fmt.Errorf("write geopackage: %w", err)
		}
		m.Layers["geopackage"] = export.GeoPackageFile
	}

	if !opts.NoViewer {
		page := viewer.Page{
			Title:  fmt.Sprintf("%s, %s", area.Focus, area.Large),
			Center: m.Center,
			Layers: make(map[string]*geojson.FeatureCollection, len(layers)),
		}
		for _, l := range layers {
			page.Layers[l.Name] = geofile.Encode(l)
		}

		if err := viewer.Write(filepath.Join(dir, export.ViewerFile), page); err != nil {
			return nil, fmt.Errorf("write viewer: %w", err)
		}
		m.Layers["viewer"] = export.ViewerFile
	}

	if err := export.WriteManifest(filepath.Join(dir, export.ManifestFile), m); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if opts.Sink != nil {
		if err := sink(ctx, opts.Sink, area.Name, buildings, installations); err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("area", area.Name).
		Int("buildings", m.Summary.Buildings).
		Int("installations", m.Summary.Installations).
		Int("with_installation", m.Summary.WithInstallation).
		Float64("coverage", m.Summary.Coverage).
		Dur("took", time.Since(start)).
		Msg("Area enriched")

	return m, nil
}

// readInstallations returns an empty collection when the area has no installation layer.
func readInstallations(output string, area config.Area) (*feature.Collection, error) {
	path := source.RawPath(output, area.Name, source.LayerInstallations)
	if area.NoInstallations || !geofile.Exists(path) {
		log.Warn().Str("area", area.Name).Msg("No installation layer, buildings are exported without installations")
		return feature.NewCollection(source.LayerInstallations, nil), nil
	}

	c, err := geofile.Read(path, source.LayerInstallations)
	if err != nil {
		return nil, fmt.Errorf("read installations: %w", err)
	}
	return c, nil
}

// repair makes geometries valid in place and returns how many were changed.
func repair(engine geo.Engine, c *feature.Collection) int {
	n := 0
	for _, f := range c.Features {
		if f.Geometry == nil || engine.IsValid(f.Geometry) {
			continue
		}
		f.Geometry = engine.MakeValid(f.Geometry)
		n++
	}
	return n
}

// contextLayers loads the raw context layers present on disk.
func contextLayers(output, area string) []*feature.Collection {
	var layers []*feature.Collection
	for _, name := range source.ContextLayers {
		path := source.RawPath(output, area, name)
		if !geofile.Exists(path) {
			continue
		}

		c, err := geofile.Read(path, name)
		if err != nil {
			log.Warn().Str("area", area).Str("layer", name).Err(err).Msg("Context layer unreadable, skipped")
			continue
		}
		layers = append(layers, c)
	}
	return layers
}

// writeGeoPackage stores the WGS84 layers in the requested CRS.
func writeGeoPackage(ctx context.Context, path string, projector *reproject.Projector, epsg int, layers []*feature.Collection) error {
	zone := projector.Zone()
	if epsg == 0 {
		epsg = zone.EPSG()
	}

	var srs export.SRS
	switch target, ok := geo.ZoneFromEPSG(epsg); {
	case epsg == 4326:
		srs = export.WGS84SRS
	case !ok:
		return fmt.Errorf("EPSG:%d is neither WGS84 nor a UTM zone", epsg)
	case target == zone:
		srs = export.ZoneSRS(zone, projector.Forward)
	default:
		other, err := reproject.New(target)
		if err != nil {
			return err
		}
		defer other.Close()
		srs = export.ZoneSRS(target, other.Forward)
	}

	return export.WriteGeoPackage(ctx, path, srs, layers)
}

func sink(ctx context.Context, s Sink, area string, buildings, installations *feature.Collection) error {
	for _, l := range []struct {
		table store.Table
		c     *feature.Collection
	}{
		{store.Buildings, buildings},
		{store.Installations, installations},
	} {
		rows, err := store.Rows(l.table, area, l.c)
		if err != nil {
			return err
		}
		if err := s.ReplaceArea(ctx, l.table, area, rows); err != nil {
			return err
		}
	}
	return nil
}
