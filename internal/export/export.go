// Package export writes the enriched layers of an area and its manifest.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/woozymasta/geo3d/internal/feature"
	"github.com/woozymasta/geo3d/internal/geo"
	"github.com/woozymasta/geo3d/internal/geofile"
	"github.com/woozymasta/geo3d/internal/processor"
)

// File names inside an area directory.
const (
	BuildingsFile     = "buildings.geojson"
	InstallationsFile = "installations.geojson"
	ManifestFile      = "manifest.json"
	ViewerFile        = "index.html"
)

// Geometry copies kept as attributes.
const (
	// WKTKey holds the geometry as well known text.
	WKTKey = "geometry_wkt"
	// FootprintKey holds the GeoJSON coordinate array of the geometry.
	FootprintKey = "footprint"
)

// Manifest describes the exported files of one area.
type Manifest struct {
	Area      string    `json:"area"`
	Large     string    `json:"large,omitempty"`
	Focus     string    `json:"focus,omitempty"`
	Generated time.Time `json:"generated"`

	EPSG int    `json:"epsg"`
	Zone string `json:"zone"`

	// Bound is [min lon, min lat, max lon, max lat] of the buildings.
	Bound [4]float64 `json:"bound"`
	// Center is [lon, lat] of Bound.
	Center [2]float64 `json:"center"`
	// Cells are S2 tokens covering Bound.
	Cells []string `json:"cells"`

	// Layers maps layer names to file names relative to the area directory.
	Layers map[string]string `json:"layers"`

	Summary processor.Summary `json:"summary"`
}

// NewManifest fills the spatial part of a manifest from the WGS84 building layer.
func NewManifest(area string, zone geo.UTMZone, buildings *feature.Collection) *Manifest {
	m := &Manifest{
		Area:      area,
		Generated: time.Now().UTC().Truncate(time.Second),
		EPSG:      zone.EPSG(),
		Zone:      zone.String(),
		Layers:    make(map[string]string),
	}

	if b, ok := Extent(buildings); ok {
		m.Bound = [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
		c := b.Center()
		m.Center = [2]float64{c[0], c[1]}
		m.Cells = Cells(b)
	}

	return m
}

// Extent returns the bound of all feature geometries.
func Extent(c *feature.Collection) (orb.Bound, bool) {
	var (
		bound orb.Bound
		found bool
	)

	for _, f := range c.Features {
		if f.Geometry == nil {
			continue
		}
		b := f.Geometry.Bound()
		if !found {
			bound, found = b, true
			continue
		}
		bound = bound.Union(b)
	}

	return bound, found
}

// Cells returns the S2 cell tokens bounding a lon/lat bound.
func Cells(b orb.Bound) []string {
	if b.Min.Equal(b.Max) {
		id := s2.CellIDFromLatLng(s2.LatLngFromDegrees(b.Min[1], b.Min[0])).Parent(16)
		return []string{id.ToToken()}
	}

	// counter clockwise, interior on the left
	loop := s2.LoopFromPoints([]s2.Point{
		s2.PointFromLatLng(s2.LatLngFromDegrees(b.Min[1], b.Min[0])),
		s2.PointFromLatLng(s2.LatLngFromDegrees(b.Min[1], b.Max[0])),
		s2.PointFromLatLng(s2.LatLngFromDegrees(b.Max[1], b.Max[0])),
		s2.PointFromLatLng(s2.LatLngFromDegrees(b.Max[1], b.Min[0])),
	})

	covering := loop.CellUnionBound()
	tokens := make([]string, 0, len(covering))
	for _, id := range covering {
		tokens = append(tokens, id.ToToken())
	}

	return tokens
}

// WriteLayer stores a WGS84 collection with its geometry repeated as WKT and
// as a coordinate array.
func WriteLayer(path string, c *feature.Collection) error {
	for _, f := range c.Features {
		if f.Geometry == nil {
			f.Attributes[WKTKey] = nil
			f.Attributes[FootprintKey] = nil
			continue
		}
		f.Attributes[WKTKey] = wkt.MarshalString(f.Geometry)

		coords, err := json.Marshal(f.Geometry)
		if err != nil {
			return fmt.Errorf("footprint of %s: %w", f.ID, err)
		}
		f.Attributes[FootprintKey] = string(coords)
	}
	c.Register(map[string]struct{}{WKTKey: {}, FootprintKey: {}})

	if err := geofile.Write(path, c); err != nil {
		return fmt.Errorf("write %s: %w", c.Name, err)
	}
	return nil
}

// WriteManifest stores the manifest as indented JSON.
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}
