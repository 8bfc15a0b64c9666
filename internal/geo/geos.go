package geo

import (
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// GEOS implements Engine on the GEOS library. Geometries cross the cgo
// boundary as WKB. It is safe for concurrent use: every call borrows its own
// GEOS context from a pool.
type GEOS struct {
	contexts sync.Pool
}

var _ Engine = (*GEOS)(nil)

// NewGEOS returns a GEOS backed engine.
func NewGEOS() *GEOS {
	return &GEOS{
		contexts: sync.Pool{New: func() any { return geos.NewContext() }},
	}
}

// with runs fn on a pooled context.
func (e *GEOS) with(fn func(c *geos.Context)) {
	c := e.contexts.Get().(*geos.Context)
	defer e.contexts.Put(c)
	fn(c)
}

// Contains reports whether a contains b. Only Polygon and MultiPolygon
// contain anything; the parts of a MultiPolygon are merged first so a
// geometry spanning adjacent parts is still contained.
func (e *GEOS) Contains(a, b orb.Geometry) (ok bool) {
	switch a.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return false
	}
	if IsEmpty(a) || IsEmpty(b) {
		return false
	}

	e.with(func(c *geos.Context) {
		ga, err := newGeom(c, a)
		if err != nil {
			return
		}
		defer ga.Destroy()
		gb, err := newGeom(c, b)
		if err != nil {
			return
		}
		defer gb.Destroy()

		if _, multi := a.(orb.MultiPolygon); multi {
			union := ga.UnaryUnion()
			defer union.Destroy()
			ok = union.Contains(gb)
			return
		}
		ok = ga.Contains(gb)
	})
	return ok
}

// Area returns the area of polygonal geometries and 0 for anything else.
func (e *GEOS) Area(g orb.Geometry) (area float64) {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon, orb.Ring:
	default:
		return 0
	}
	if IsEmpty(g) {
		return 0
	}

	e.with(func(c *geos.Context) {
		gg, err := newGeom(c, g)
		if err != nil {
			return
		}
		defer gg.Destroy()
		area = gg.Area()
	})
	return area
}

// IsValid reports OGC validity. Geometry GEOS refuses to build, such as
// unclosed rings, is invalid.
func (e *GEOS) IsValid(g orb.Geometry) (ok bool) {
	if g == nil {
		return false
	}
	if IsEmpty(g) {
		return true
	}

	e.with(func(c *geos.Context) {
		gg, err := newGeom(c, g)
		if err != nil {
			return
		}
		defer gg.Destroy()
		ok = gg.IsValid()
	})
	return ok
}

// MakeValid repairs polygonal geometry. Rings are cleaned up first so GEOS
// accepts them, then GEOS splits self-intersections. Non-polygonal parts of
// the repaired result are dropped. Other geometry types are returned unchanged.
func (e *GEOS) MakeValid(g orb.Geometry) orb.Geometry {
	var cleaned orb.Geometry
	switch t := g.(type) {
	case orb.Polygon:
		cleaned = cleanPolygon(t)
	case orb.MultiPolygon:
		mp := make(orb.MultiPolygon, 0, len(t))
		for _, p := range t {
			if c := cleanPolygon(p); len(c) > 0 {
				mp = append(mp, c)
			}
		}
		cleaned = mp
	default:
		return g
	}
	if IsEmpty(cleaned) {
		return cleaned
	}

	out := cleaned
	e.with(func(c *geos.Context) {
		gg, err := newGeom(c, cleaned)
		if err != nil {
			return
		}
		defer gg.Destroy()
		if gg.IsValid() {
			return
		}

		valid := gg.MakeValid()
		defer valid.Destroy()
		if r, err := toOrb(valid); err == nil {
			out = polygonal(r)
		}
	})
	return out
}

// MinimumRotatedRectangle returns the minimum-area rectangle enclosing g as a
// closed ring. The second return is false for degenerate input.
func (e *GEOS) MinimumRotatedRectangle(g orb.Geometry) (rect orb.Ring, ok bool) {
	if g == nil || IsEmpty(g) {
		return nil, false
	}

	e.with(func(c *geos.Context) {
		gg, err := newGeom(c, g)
		if err != nil {
			return
		}
		defer gg.Destroy()

		mrr := gg.MinimumRotatedRectangle()
		defer mrr.Destroy()
		r, err := toOrb(mrr)
		if err != nil {
			return
		}
		if p, isPoly := r.(orb.Polygon); isPoly && len(p) > 0 && len(p[0]) >= 4 {
			rect, ok = p[0], true
		}
	})
	return rect, ok
}

// PointOnSurface returns a point guaranteed to lie on g.
func (e *GEOS) PointOnSurface(g orb.Geometry) (pt orb.Point, ok bool) {
	if g == nil || IsEmpty(g) {
		return orb.Point{}, false
	}

	e.with(func(c *geos.Context) {
		gg, err := newGeom(c, g)
		if err != nil {
			return
		}
		defer gg.Destroy()

		surface := gg.PointOnSurface()
		defer surface.Destroy()
		if surface.IsEmpty() {
			return
		}
		pt, ok = orb.Point{surface.X(), surface.Y()}, true
	})
	return pt, ok
}

func newGeom(c *geos.Context, g orb.Geometry) (*geos.Geom, error) {
	if r, ok := g.(orb.Ring); ok {
		g = orb.Polygon{r}
	}
	data, err := wkb.Marshal(g)
	if err != nil {
		return nil, err
	}
	return c.NewGeomFromWKB(data)
}

func toOrb(g *geos.Geom) (orb.Geometry, error) {
	return wkb.Unmarshal(g.ToWKB())
}

// polygonal keeps the polygon parts of a repaired geometry.
func polygonal(g orb.Geometry) orb.Geometry {
	switch t := g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return t
	case orb.Collection:
		var mp orb.MultiPolygon
		for _, part := range t {
			switch p := polygonal(part).(type) {
			case orb.Polygon:
				mp = append(mp, p)
			case orb.MultiPolygon:
				mp = append(mp, p...)
			}
		}
		if len(mp) == 1 {
			return mp[0]
		}
		return mp
	default:
		return orb.Polygon{}
	}
}

// cleanPolygon closes rings and drops repeated points and rings GEOS cannot
// build. A polygon losing its shell becomes empty.
func cleanPolygon(p orb.Polygon) orb.Polygon {
	var out orb.Polygon
	for i, r := range p {
		ring := make(orb.Ring, 0, len(r)+1)
		for _, pt := range r {
			if len(ring) > 0 && ring[len(ring)-1].Equal(pt) {
				continue
			}
			ring = append(ring, pt)
		}
		if len(ring) > 0 && !ring[0].Equal(ring[len(ring)-1]) {
			ring = append(ring, ring[0])
		}

		if len(ring) < 4 {
			if i == 0 {
				return orb.Polygon{}
			}
			continue
		}
		out = append(out, ring)
	}
	return out
}

// IsEmpty reports whether g has no coordinates.
func IsEmpty(g orb.Geometry) bool {
	switch t := g.(type) {
	case nil:
		return true
	case orb.Point:
		return false
	case orb.MultiPoint:
		return len(t) == 0
	case orb.LineString:
		return len(t) == 0
	case orb.MultiLineString:
		return len(t) == 0
	case orb.Ring:
		return len(t) == 0
	case orb.Polygon:
		return len(t) == 0 || len(t[0]) == 0
	case orb.MultiPolygon:
		for _, p := range t {
			if !IsEmpty(p) {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, c := range t {
			if !IsEmpty(c) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
