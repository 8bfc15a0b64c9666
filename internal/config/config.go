// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/woozymasta/geo3d/internal/geo"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultOverpassEndpoint is the public Overpass interpreter.
	DefaultOverpassEndpoint = "https://overpass-api.de/api/interpreter"
	// DefaultOutput is the directory all areas are written under.
	DefaultOutput = "out"
)

// Config represents the root configuration file structure.
type Config struct {
	Overpass Overpass `yaml:"overpass" json:"-"`
	Postgres Postgres `yaml:"postgres,omitempty" json:"-"`
	GeoPackage GeoPackage `yaml:"geopackage,omitempty" json:"-"`
	Output   string   `yaml:"output,omitempty" json:"-"`
	Areas    []Area   `yaml:"areas" json:"areas"`

	// Workers is the default number of join workers, 1 keeps the pass serial.
	Workers int `yaml:"workers,omitempty" json:"-"`
}

// Overpass configures the harvesting client.
type Overpass struct {
	Endpoint string        `yaml:"endpoint,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	Parallel int           `yaml:"parallel,omitempty"`
}

// GeoPackage configures the optional multi-layer export.
type GeoPackage struct {
	Enabled bool `yaml:"enabled,omitempty"`
	// EPSG is 4326 or a WGS84 / UTM code; 0 uses the zone of each area.
	EPSG int `yaml:"epsg,omitempty"`
}

// Postgres configures the optional PostGIS sink.
type Postgres struct {
	DSN string `yaml:"dsn,omitempty"`
}

// Area represents a single harvested and enriched area of interest.
type Area struct {
	// Name is used as the output directory name.
	Name string `yaml:"name" json:"name"`
	// Large is the enclosing administrative area name, e.g. a city.
	Large string `yaml:"large" json:"large"`
	// Focus is the area inside Large that is harvested, e.g. a suburb.
	Focus string `yaml:"focus" json:"focus"`

	Layers          []string `yaml:"layers,omitempty" json:"layers,omitempty"`
	TransitOperator string   `yaml:"transit_operator,omitempty" json:"transit_operator,omitempty"`
	Workers         int      `yaml:"workers,omitempty" json:"-"`
	NoInstallations bool     `yaml:"no_installations,omitempty" json:"no_installations,omitempty"`
}

// ValidationError reports an invalid configuration entry.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("area #%d: %s %s", e.Index, e.Field, e.Reason)
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes configuration bytes, applies defaults and validates areas.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Overpass.Endpoint == "" {
		c.Overpass.Endpoint = DefaultOverpassEndpoint
	}
	if c.Overpass.Timeout <= 0 {
		c.Overpass.Timeout = 180 * time.Second
	}
	if c.Overpass.Parallel <= 0 {
		c.Overpass.Parallel = 2
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}

	for i := range c.Areas {
		area := &c.Areas[i]
		if area.Workers <= 0 {
			area.Workers = c.Workers
		}
		if area.Name == "" {
			area.Name = area.Focus
		}
	}
}

func (c *Config) validate() error {
	if c.GeoPackage.EPSG != 0 && c.GeoPackage.EPSG != 4326 {
		if _, ok := geo.ZoneFromEPSG(c.GeoPackage.EPSG); !ok {
			return fmt.Errorf("geopackage.epsg: EPSG:%d is neither 4326 nor a WGS84 / UTM zone", c.GeoPackage.EPSG)
		}
	}

	seen := make(map[string]bool, len(c.Areas))
	for i, area := range c.Areas {
		if area.Focus == "" {
			return &ValidationError{Index: i, Field: "focus", Reason: "is required"}
		}
		if area.Large == "" {
			return &ValidationError{Index: i, Field: "large", Reason: "is required"}
		}
		if seen[area.Name] {
			return &ValidationError{Index: i, Field: "name", Reason: fmt.Sprintf("%q is duplicated", area.Name)}
		}
		seen[area.Name] = true
	}

	return nil
}

// Select returns the areas named in limit, or all areas when limit is empty.
// Unknown names are returned separately so the caller can report them.
func (c *Config) Select(limit []string) (selected []Area, unknown []string) {
	if len(limit) == 0 {
		return c.Areas, nil
	}

	available := make(map[string]Area, len(c.Areas))
	for _, a := range c.Areas {
		available[a.Name] = a
	}

	seen := make(map[string]bool)
	for _, name := range limit {
		if seen[name] {
			continue
		}
		seen[name] = true

		if a, ok := available[name]; ok {
			selected = append(selected, a)
		} else {
			unknown = append(unknown, name)
		}
	}

	return selected, unknown
}
