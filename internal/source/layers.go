// Package source harvests OpenStreetMap layers from an Overpass endpoint and
// stores them as GeoJSON files for the enrichment pass.
package source

import (
	"fmt"
	"strings"
	"time"

	"github.com/woozymasta/geo3d/internal/config"
)

// Shape selects how ways and relations are turned into geometry.
type Shape int

const (
	// Areas builds polygons from closed ways and multipolygon relations.
	Areas Shape = iota
	// Routes builds multilinestrings from route relations.
	Routes
	// Footprints is Areas with open ways closed into polygons.
	Footprints
)

// Layer names.
const (
	LayerBuildings     = "buildings"
	LayerInstallations = "installations"
	LayerFarmland      = "farmland"
	LayerGreen         = "green"
	LayerWater         = "water"
	LayerTransit       = "transit"
)

// Layer describes one harvested dataset.
type Layer struct {
	Name  string
	Shape Shape

	// Statements are the union members of the query; %[1]s is replaced by the area set.
	Statements []string

	// Columns keeps these tags as attributes and packs the rest into other_tags.
	// Nil keeps every tag as its own attribute.
	Columns []string

	// Required layers are written even when empty.
	Required bool
}

// multipolygonColumns mirrors the attribute layout of the OGR OSM driver.
var multipolygonColumns = []string{
	"name", "type", "aeroway", "amenity", "admin_level", "barrier", "boundary",
	"building", "craft", "geological", "historic", "land_area", "landuse",
	"leisure", "man_made", "military", "natural", "office", "place", "shop",
	"sport", "tourism",
}

var presets = map[string]Layer{
	LayerBuildings: {
		Name:  LayerBuildings,
		Shape: Footprints,
		Statements: []string{
			`way["building"](%[1]s)`,
			`relation["building"]["type"="multipolygon"](%[1]s)`,
		},
		Columns:  multipolygonColumns,
		Required: true,
	},
	LayerInstallations: {
		Name:       LayerInstallations,
		Shape:      Footprints,
		Statements: []string{`way["power"="generator"]["generator:source"="solar"](%[1]s)`},
		Columns:    multipolygonColumns,
		Required:   true,
	},
	LayerFarmland: {
		Name:  LayerFarmland,
		Shape: Areas,
		Statements: []string{
			`way["landuse"="farmland"](%[1]s)`,
			`relation["landuse"="farmland"]["type"="multipolygon"](%[1]s)`,
		},
	},
	LayerGreen: {
		Name:  LayerGreen,
		Shape: Areas,
		Statements: []string{
			`way["leisure"~"park|track|pitch"](%[1]s)`,
			`relation["leisure"~"park|track|pitch"]["type"="multipolygon"](%[1]s)`,
		},
	},
	LayerWater: {
		Name:  LayerWater,
		Shape: Areas,
		Statements: []string{
			`way["water"](%[1]s)`,
			`way["waterway"="stream"](%[1]s)`,
			`relation["water"]["type"="multipolygon"](%[1]s)`,
		},
	},
}

// ContextLayers are harvested when an area does not list its layers.
var ContextLayers = []string{LayerFarmland, LayerGreen, LayerWater, LayerTransit}

// Transit returns the bus route layer of an operator.
func Transit(operator string) Layer {
	return Layer{
		Name:  LayerTransit,
		Shape: Routes,
		Statements: []string{
			fmt.Sprintf(`relation["type"="route"]["route"="bus"]["operator"="%s"]["colour"](%%[1]s)`,
				strings.ReplaceAll(escape(operator), "%", "%%")),
		},
	}
}

// LayersFor returns the layers harvested for an area, buildings first.
// Unknown layer names are returned separately.
func LayersFor(area config.Area) ([]Layer, []string) {
	layers := []Layer{presets[LayerBuildings]}
	if !area.NoInstallations {
		layers = append(layers, presets[LayerInstallations])
	}

	names := area.Layers
	if len(names) == 0 {
		names = ContextLayers
	}

	var unknown []string
	for _, n := range names {
		switch {
		case n == LayerTransit:
			if area.TransitOperator != "" {
				layers = append(layers, Transit(area.TransitOperator))
			}
		case n == LayerBuildings || n == LayerInstallations:
			// always part of the set
		default:
			l, ok := presets[n]
			if !ok {
				unknown = append(unknown, n)
				continue
			}
			layers = append(layers, l)
		}
	}

	return layers, unknown
}

// Query renders the Overpass QL query of a layer for an area.
// Area layers are searched inside Focus within Large; routes inside Large.
func Query(l Layer, area config.Area, timeout time.Duration) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[out:json][timeout:%d];", int(timeout.Seconds()))
	set := "area"
	if l.Shape == Routes {
		fmt.Fprintf(&b, `area[name="%s"];`, escape(area.Large))
	} else {
		fmt.Fprintf(&b, `area[name="%s"]->.L;area[name="%s"](area.L)->.a;`, escape(area.Large), escape(area.Focus))
		set = "area.a"
	}

	b.WriteString("(")
	for _, s := range l.Statements {
		fmt.Fprintf(&b, s, set)
		b.WriteString(";")
	}
	b.WriteString(");out geom;")

	return b.String()
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
