package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func square(x0, y0, x1, y1 float64) orb.Ring {
	return orb.Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
}

func TestArea(t *testing.T) {
	clockwise := orb.Polygon{{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}}

	tests := []struct {
		name     string
		geometry orb.Geometry
		expected float64
	}{
		{"square", orb.Polygon{square(0, 0, 10, 10)}, 100},
		{"clockwise square", clockwise, 100},
		{"square with hole", orb.Polygon{square(0, 0, 10, 10), square(4, 4, 6, 6)}, 96},
		{"multipolygon", orb.MultiPolygon{{square(0, 0, 1, 1)}, {square(5, 5, 7, 7)}}, 5},
		{"point", orb.Point{1, 1}, 0},
		{"line", orb.LineString{{0, 0}, {1, 1}}, 0},
	}

	for _, tt := range tests {
		if got := Area(tt.geometry); math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("%s: Area() = %v, want %v", tt.name, got, tt.expected)
		}
	}
}

func TestZoneFor(t *testing.T) {
	tests := []struct {
		lon, lat float64
		number   int
		epsg     int
		label    string
	}{
		{18.42, -33.92, 34, 32734, "34S"},
		{13.40, 52.52, 33, 32633, "33N"},
		{-180, 0, 1, 32601, "1N"},
		{180, 10, 60, 32660, "60N"},
		{-0.1, 51.5, 30, 32630, "30N"},
	}

	for _, tt := range tests {
		z := ZoneFor(tt.lon, tt.lat)
		if z.Number != tt.number || z.EPSG() != tt.epsg || z.String() != tt.label {
			t.Errorf("ZoneFor(%v, %v) = %d/%d/%s, want %d/%d/%s",
				tt.lon, tt.lat, z.Number, z.EPSG(), z, tt.number, tt.epsg, tt.label)
		}
	}

	if got := ZoneFor(18.42, -33.92).CRS(); got != "EPSG:32734" {
		t.Errorf("Expected EPSG:32734, got %s", got)
	}
}

func TestZoneForGeometries(t *testing.T) {
	geoms := []orb.Geometry{
		orb.Polygon{square(17.9, -34.1, 18.1, -33.9)},
		orb.Point{18.9, -33.9},
		orb.Polygon{},
	}
	z, ok := ZoneForGeometries(geoms)
	if !ok || z.EPSG() != 32734 {
		t.Errorf("Expected zone 34S, got %v (ok %v)", z, ok)
	}

	if _, ok := ZoneForGeometries(nil); ok {
		t.Error("Expected no zone without geometry")
	}
}
