package geo

import "github.com/paulmach/orb"

// Engine is the set of planar operations the enrichment pass relies on.
type Engine interface {
	Contains(a, b orb.Geometry) bool
	Area(g orb.Geometry) float64
	IsValid(g orb.Geometry) bool
	MakeValid(g orb.Geometry) orb.Geometry
	MinimumRotatedRectangle(g orb.Geometry) (orb.Ring, bool)
	PointOnSurface(g orb.Geometry) (orb.Point, bool)
}
