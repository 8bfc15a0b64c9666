// Package geofile reads and writes GeoJSON layers on disk.
package geofile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/geo3d/internal/feature"
)

// Exists reports whether a non-empty file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

// Read loads a GeoJSON FeatureCollection as a named collection.
func Read(path, name string) (*feature.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c, err := Decode(data, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Decode parses GeoJSON bytes. Feature ids are kept; missing attributes maps become empty.
func Decode(data []byte, name string) (*feature.Collection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	features := make([]*feature.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		ft := &feature.Feature{
			Geometry:   f.Geometry,
			Attributes: feature.Attributes(f.Properties),
		}
		if f.ID != nil {
			ft.ID = fmt.Sprint(f.ID)
		}
		features = append(features, ft)
	}

	return feature.NewCollection(name, features), nil
}

// Encode converts a collection into a GeoJSON FeatureCollection.
// Attribute maps are shared, not copied.
func Encode(c *feature.Collection) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range c.Features {
		gf := geojson.NewFeature(f.Geometry)
		if f.ID != "" {
			gf.ID = f.ID
		}
		gf.Properties = geojson.Properties(f.Attributes)
		fc.Append(gf)
	}
	return fc
}

// Write stores a collection as GeoJSON at path.
func Write(path string, c *feature.Collection) error {
	return Save(path, Encode(c))
}

// Save marshals the feature collection and writes it to disk, creating parent directories.
func Save(path string, fc *geojson.FeatureCollection) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
		}
	}()

	return json.NewEncoder(f).Encode(fc)
}
