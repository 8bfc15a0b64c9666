// Package geo holds the geometry engine used by the enrichment pass
// (containment, area, validity, minimum rotated rectangles, surface points)
// and the geographic helpers: grid codes, UTM zone selection and orientation.
//
// Geometries are paulmach/orb types in a planar working frame.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Area returns the planar area of polygonal geometries and 0 for anything else.
func Area(g orb.Geometry) float64 {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon, orb.Ring:
		return math.Abs(planar.Area(g))
	default:
		return 0
	}
}
