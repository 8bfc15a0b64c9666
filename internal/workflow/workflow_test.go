package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/woozymasta/geo3d/internal/config"
	"github.com/woozymasta/geo3d/internal/export"
	"github.com/woozymasta/geo3d/internal/geofile"
	"github.com/woozymasta/geo3d/internal/source"
	"github.com/woozymasta/geo3d/internal/store"
)

type recordingSink struct {
	rows map[string][]store.Row
}

func (s *recordingSink) ReplaceArea(_ context.Context, t store.Table, area string, rows []store.Row) error {
	if s.rows == nil {
		s.rows = make(map[string][]store.Row)
	}
	s.rows[t.Name+"/"+area] = rows
	return nil
}

func lonLatBox(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

func writeRaw(t *testing.T, output, area, layer string, features ...*geojson.Feature) {
	t.Helper()
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		fc.Append(f)
	}
	if err := geofile.Save(source.RawPath(output, area, layer), fc); err != nil {
		t.Fatal(err)
	}
}

func rawFeature(g orb.Geometry, props geojson.Properties) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.Properties = props
	return f
}

func TestRun(t *testing.T) {
	output := t.TempDir()
	area := config.Area{Name: "gardens", Large: "Cape Town", Focus: "Gardens"}

	writeRaw(t, output, area.Name, source.LayerBuildings,
		rawFeature(lonLatBox(18.4100, -33.9300, 18.4110, -33.9290), geojson.Properties{
			"osm_way_id": "1",
			"building":   "apartments",
			"other_tags": `"building:levels"=>"3","addr:street"=>"Bree Street","addr:housenumber"=>"40"`,
		}),
		rawFeature(lonLatBox(18.4200, -33.9300, 18.4205, -33.9295), geojson.Properties{
			"osm_way_id": "2",
			"building":   "garage",
		}),
	)
	writeRaw(t, output, area.Name, source.LayerInstallations,
		rawFeature(lonLatBox(18.4102, -33.9298, 18.4104, -33.9296), geojson.Properties{
			"osm_way_id": "10",
			"other_tags": `"generator:method"=>"photovoltaic"`,
		}),
	)
	writeRaw(t, output, area.Name, source.LayerWater,
		rawFeature(orb.LineString{{18.40, -33.93}, {18.41, -33.92}}, geojson.Properties{"waterway": "stream"}),
	)

	sink := &recordingSink{}
	m, err := Run(context.Background(), area, Options{Output: output, Workers: 2, Sink: sink})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if m.EPSG != 32734 || m.Zone != "34S" {
		t.Errorf("Unexpected zone %d %s", m.EPSG, m.Zone)
	}
	if m.Summary.Buildings != 2 || m.Summary.Installations != 1 || m.Summary.WithInstallation != 1 {
		t.Errorf("Unexpected summary %+v", m.Summary)
	}
	if m.Layers["viewer"] != export.ViewerFile {
		t.Errorf("Expected viewer in manifest layers, got %v", m.Layers)
	}

	dir := filepath.Join(output, area.Name)
	for _, f := range []string{export.BuildingsFile, export.InstallationsFile, export.ManifestFile, export.ViewerFile} {
		if !geofile.Exists(filepath.Join(dir, f)) {
			t.Errorf("Expected %s to be written", f)
		}
	}

	buildings, err := geofile.Read(filepath.Join(dir, export.BuildingsFile), "buildings")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	first := buildings.Features[0].Attributes
	if first.String("roof_height") != "9.70" {
		t.Errorf("roof_height = %v", first["roof_height"])
	}
	if first.String("address") != "40 Bree Street" {
		t.Errorf("address = %v", first["address"])
	}
	if first["has_installation"] != true {
		t.Errorf("has_installation = %v", first["has_installation"])
	}
	if gc := first.String("grid_code"); len(gc) != 12 || gc[8] != '+' {
		t.Errorf("grid_code = %q", gc)
	}

	// output geometry is back in lon/lat
	b := buildings.Features[0].Geometry.Bound()
	if b.Min[0] < 18.40 || b.Max[0] > 18.42 || b.Min[1] < -33.94 || b.Max[1] > -33.92 {
		t.Errorf("Geometry not in WGS84: %v", b)
	}

	if len(sink.rows["buildings/gardens"]) != 2 || len(sink.rows["installations/gardens"]) != 1 {
		t.Errorf("Unexpected sink rows %v", sink.rows)
	}
	if links := sink.rows["installations/gardens"][0].Links; len(links) != 1 || links[0] != "1" {
		t.Errorf("Installation parent links = %v", links)
	}
}

func TestRunWithoutInstallations(t *testing.T) {
	output := t.TempDir()
	area := config.Area{Name: "bo-kaap", Large: "Cape Town", Focus: "Bo-Kaap", NoInstallations: true}

	writeRaw(t, output, area.Name, source.LayerBuildings,
		rawFeature(lonLatBox(18.4100, -33.9200, 18.4110, -33.9190), geojson.Properties{"osm_way_id": "5", "building": "roof"}),
	)

	m, err := Run(context.Background(), area, Options{Output: output, NoViewer: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if m.Summary.Buildings != 1 || m.Summary.Installations != 0 {
		t.Errorf("Unexpected summary %+v", m.Summary)
	}
	if _, ok := m.Layers["viewer"]; ok {
		t.Error("Expected no viewer")
	}
}

func TestRunErrors(t *testing.T) {
	output := t.TempDir()
	area := config.Area{Name: "empty", Large: "Cape Town", Focus: "Nowhere"}

	if _, err := Run(context.Background(), area, Options{Output: output}); err == nil {
		t.Error("Expected error without raw buildings")
	}

	writeRaw(t, output, area.Name, source.LayerBuildings)
	if _, err := Run(context.Background(), area, Options{Output: output}); !errors.Is(err, ErrNoBuildings) {
		t.Errorf("Expected ErrNoBuildings, got %v", err)
	}
}

func TestRunGeoPackage(t *testing.T) {
	output := t.TempDir()
	area := config.Area{Name: "tamboerskloof", Large: "Cape Town", Focus: "Tamboerskloof", NoInstallations: true}

	writeRaw(t, output, area.Name, source.LayerBuildings,
		rawFeature(lonLatBox(18.4100, -33.9200, 18.4110, -33.9190), geojson.Properties{"osm_way_id": "6", "building": "house"}),
	)

	for _, epsg := range []int{0, 4326, 32735} {
		m, err := Run(context.Background(), area, Options{Output: output, NoViewer: true, GeoPackage: true, GeoPackageEPSG: epsg})
		if err != nil {
			t.Fatalf("Run() with EPSG:%d error: %v", epsg, err)
		}
		if m.Layers["geopackage"] != export.GeoPackageFile {
			t.Errorf("Expected geopackage in manifest layers, got %v", m.Layers)
		}
		if _, err := os.Stat(filepath.Join(output, area.Name, export.GeoPackageFile)); err != nil {
			t.Errorf("Expected geopackage file: %v", err)
		}
	}

	if _, err := Run(context.Background(), area, Options{Output: output, NoViewer: true, GeoPackage: true, GeoPackageEPSG: 3857}); err == nil {
		t.Error("Expected EPSG:3857 to be rejected")
	}
}
