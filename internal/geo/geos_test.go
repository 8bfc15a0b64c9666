package geo

import (
	"math"
	"sync"
	"testing"

	"github.com/paulmach/orb"
)

func TestContains(t *testing.T) {
	e := NewGEOS()

	plain := orb.Polygon{square(0, 0, 10, 10)}
	holed := orb.Polygon{square(0, 0, 10, 10), square(4, 4, 6, 6)}
	notched := orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {7, 10}, {7, 3}, {3, 3}, {3, 10}, {0, 10}, {0, 0}}}
	multi := orb.MultiPolygon{{square(0, 0, 2, 2)}, {square(5, 5, 8, 8)}}
	adjacent := orb.MultiPolygon{{square(0, 0, 5, 5)}, {square(5, 0, 10, 5)}}

	tests := []struct {
		name      string
		container orb.Geometry
		candidate orb.Geometry
		expected  bool
	}{
		{"point inside", plain, orb.Point{5, 5}, true},
		{"point on boundary", plain, orb.Point{0, 5}, false},
		{"point outside", plain, orb.Point{11, 5}, false},
		{"point in hole", holed, orb.Point{5, 5}, false},
		{"point beside hole", holed, orb.Point{2, 2}, true},
		{"polygon inside", plain, orb.Polygon{square(1, 1, 3, 3)}, true},
		{"polygon touching boundary from inside", plain, orb.Polygon{square(0, 0, 5, 5)}, true},
		{"polygon equal to container", plain, orb.Polygon{square(0, 0, 10, 10)}, true},
		{"polygon overlapping", plain, orb.Polygon{square(8, 8, 12, 12)}, false},
		{"polygon covering hole", holed, orb.Polygon{square(3, 3, 7, 7)}, false},
		{"polygon inside hole", holed, orb.Polygon{square(4.5, 4.5, 5.5, 5.5)}, false},
		{"polygon spanning notch", notched, orb.Polygon{square(1, 5, 9, 6)}, false},
		{"polygon in notch arm", notched, orb.Polygon{square(1, 5, 2, 6)}, true},
		{"point in second component", multi, orb.Point{6, 6}, true},
		{"polygon across components", multi, orb.Polygon{square(1, 1, 6, 6)}, false},
		{"polygon across adjacent components", adjacent, orb.Polygon{square(3, 1, 7, 4)}, true},
		{"line inside", plain, orb.LineString{{1, 1}, {9, 9}}, true},
		{"line along boundary", plain, orb.LineString{{0, 0}, {10, 0}}, false},
		{"multipoint partly outside", plain, orb.MultiPoint{{1, 1}, {20, 20}}, false},
		{"line container", orb.LineString{{0, 0}, {10, 10}}, orb.Point{5, 5}, false},
		{"empty candidate", plain, orb.Polygon{}, false},
		{"nil candidate", plain, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Contains(tt.container, tt.candidate); got != tt.expected {
				t.Errorf("Contains() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEngineArea(t *testing.T) {
	e := NewGEOS()

	tests := []struct {
		name     string
		geometry orb.Geometry
		expected float64
	}{
		{"square", orb.Polygon{square(0, 0, 10, 10)}, 100},
		{"square with hole", orb.Polygon{square(0, 0, 10, 10), square(4, 4, 6, 6)}, 96},
		{"ring", square(0, 0, 2, 3), 6},
		{"point", orb.Point{1, 1}, 0},
		{"empty", orb.Polygon{}, 0},
	}

	for _, tt := range tests {
		if got := e.Area(tt.geometry); math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("%s: Area() = %v, want %v", tt.name, got, tt.expected)
		}
	}
}

func TestValidity(t *testing.T) {
	e := NewGEOS()

	open := orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}}}
	crossing := orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {5, -5}, {0, 0}}}
	repeated := orb.Polygon{{{0, 0}, {0, 0}, {0, 10}, {10, 10}, {10, 10}, {10, 0}, {0, 0}}}

	if e.IsValid(open) {
		t.Error("Expected unclosed ring to be invalid")
	}
	if !e.IsValid(e.MakeValid(open)) {
		t.Error("Expected MakeValid to close the ring")
	}

	if e.IsValid(crossing) {
		t.Error("Expected self-intersecting ring to be invalid")
	}
	fixed := e.MakeValid(crossing)
	if !e.IsValid(fixed) {
		t.Errorf("Expected self-intersection to be repaired, got %v", fixed)
	}
	if a := e.Area(fixed); a <= 0 {
		t.Errorf("Expected repaired geometry to keep its area, got %v", a)
	}

	cleaned, ok := e.MakeValid(repeated).(orb.Polygon)
	if !ok || len(cleaned) != 1 {
		t.Fatalf("Expected a polygon with one ring, got %#v", cleaned)
	}
	if len(cleaned[0]) != 5 {
		t.Errorf("Expected repeated points removed, got %d points", len(cleaned[0]))
	}

	degenerate := e.MakeValid(orb.Polygon{{{0, 0}, {1, 1}, {0, 0}}}).(orb.Polygon)
	if len(degenerate) != 0 {
		t.Errorf("Expected degenerate shell to empty the polygon, got %v", degenerate)
	}

	mp := e.MakeValid(orb.MultiPolygon{{square(0, 0, 1, 1)}, {{{0, 0}, {2, 2}, {0, 0}}}}).(orb.MultiPolygon)
	if len(mp) != 1 {
		t.Errorf("Expected degenerate component dropped, got %d components", len(mp))
	}

	if !e.IsValid(orb.Point{1, 2}) {
		t.Error("Expected points to be valid")
	}
	line := orb.LineString{{0, 0}, {1, 1}}
	if got := e.MakeValid(line); !orb.Equal(got, line) {
		t.Errorf("Expected lines unchanged, got %v", got)
	}
}

func TestPointOnSurface(t *testing.T) {
	e := NewGEOS()

	tests := []struct {
		name     string
		geometry orb.Geometry
	}{
		{"square", orb.Polygon{square(0, 0, 10, 10)}},
		{"square with centered hole", orb.Polygon{square(0, 0, 10, 10), square(4, 4, 6, 6)}},
		{"notched", orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {7, 10}, {7, 1}, {3, 1}, {3, 10}, {0, 10}, {0, 0}}}},
		{"multipolygon", orb.MultiPolygon{{square(0, 0, 1, 1)}, {square(10, 10, 20, 20)}}},
	}

	for _, tt := range tests {
		pt, ok := e.PointOnSurface(tt.geometry)
		if !ok {
			t.Errorf("%s: expected a point", tt.name)
			continue
		}
		if !e.Contains(tt.geometry, pt) {
			t.Errorf("%s: point %v is not interior", tt.name, pt)
		}
	}

	if _, ok := e.PointOnSurface(orb.Polygon{}); ok {
		t.Error("Expected no point for empty polygon")
	}
}

func TestMinimumRotatedRectangle(t *testing.T) {
	e := NewGEOS()

	// L-shaped footprint: hull area is smaller than its axis-aligned bound
	l := orb.Polygon{{{0, 0}, {10, 0}, {10, 2}, {2, 2}, {2, 10}, {0, 10}, {0, 0}}}

	rect, ok := e.MinimumRotatedRectangle(l)
	if !ok {
		t.Fatal("Expected a rectangle")
	}
	if len(rect) != 5 || !rect.Closed() {
		t.Fatalf("Expected closed five point ring, got %v", rect)
	}
	if a := Area(rect); a > 100+1e-6 || a < Area(l) {
		t.Errorf("Unexpected rectangle area %v", a)
	}

	if _, ok := e.MinimumRotatedRectangle(orb.LineString{{0, 0}, {1, 1}}); ok {
		t.Error("Expected two points to be degenerate")
	}
}

func engineAzimuth(e Engine, g orb.Geometry) float64 {
	rect, ok := e.MinimumRotatedRectangle(g)
	if !ok {
		return 0
	}
	return RectangleAzimuth(rect)
}

func TestAzimuth(t *testing.T) {
	e := NewGEOS()

	tests := []struct {
		name     string
		geometry orb.Geometry
		expected float64
	}{
		{"east-west rectangle", orb.Polygon{square(0, 0, 10, 2)}, 90},
		{"north-south rectangle", orb.Polygon{square(0, 0, 2, 10)}, 0},
		{"diagonal", rotatedRect(500000, 6200000, 20, 4, 45), 45},
		{"long axis at 30 degrees", rotatedRect(0, 0, 30, 8, 30), 60},
		{"long axis at 150 degrees", rotatedRect(0, 0, 30, 8, 150), 120},
		{"multipolygon", orb.MultiPolygon{{square(0, 0, 10, 2)}, {square(20, 0, 30, 2)}}, 90},
		{"point", orb.Point{1, 1}, 0},
		{"line", orb.LineString{{0, 0}, {10, 10}}, 0},
		{"empty polygon", orb.Polygon{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engineAzimuth(e, tt.geometry); math.Abs(got-tt.expected) > 1e-6 {
				t.Errorf("azimuth = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAzimuthRange(t *testing.T) {
	e := NewGEOS()
	for deg := -180.0; deg <= 360; deg += 7.5 {
		az := engineAzimuth(e, rotatedRect(0, 0, 12, 5, deg))
		if az < 0 || az >= 180 {
			t.Errorf("Azimuth at %v degrees out of range: %v", deg, az)
		}
	}
}

func TestConcurrentUse(t *testing.T) {
	e := NewGEOS()
	outer := orb.Polygon{square(0, 0, 10, 10)}

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				inner := orb.Polygon{square(1, 1, 2+float64(i%5), 3)}
				if !e.Contains(outer, inner) {
					errs <- "lost containment"
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
}
