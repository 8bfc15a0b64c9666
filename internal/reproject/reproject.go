// Package reproject moves geometries between WGS84 and a UTM zone using PROJ.
package reproject

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/twpayne/go-proj/v10"
	"github.com/woozymasta/geo3d/internal/feature"
	"github.com/woozymasta/geo3d/internal/geo"
)

// WGS84 is the CRS of harvested and exported data.
const WGS84 = "EPSG:4326"

// Projector converts lon/lat geometries to metric UTM coordinates and back.
// EPSG:4326 uses latitude first axis order, coordinates are swapped on the way in and out.
type Projector struct {
	zone geo.UTMZone

	// PJ objects must not be used concurrently
	mu sync.Mutex
	pj *proj.PJ
}

// New creates a projector for the zone.
func New(zone geo.UTMZone) (*Projector, error) {
	pj, err := proj.NewCRSToCRS(WGS84, zone.CRS(), nil)
	if err != nil {
		return nil, fmt.Errorf("create transformation to %s: %w", zone.CRS(), err)
	}

	return &Projector{zone: zone, pj: pj}, nil
}

// Zone returns the target zone.
func (p *Projector) Zone() geo.UTMZone {
	return p.zone
}

// Close releases the PROJ transformation.
func (p *Projector) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pj != nil {
		p.pj.Destroy()
		p.pj = nil
	}
}

// ForwardPoint converts a lon/lat point to easting/northing.
func (p *Projector) ForwardPoint(pt orb.Point) (orb.Point, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.pj.Forward(proj.NewCoord(pt[1], pt[0], 0, 0))
	if err != nil {
		return orb.Point{}, fmt.Errorf("forward %v: %w", pt, err)
	}
	return orb.Point{c.X(), c.Y()}, nil
}

// InversePoint converts an easting/northing point to lon/lat.
func (p *Projector) InversePoint(pt orb.Point) (orb.Point, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.pj.Inverse(proj.NewCoord(pt[0], pt[1], 0, 0))
	if err != nil {
		return orb.Point{}, fmt.Errorf("inverse %v: %w", pt, err)
	}
	return orb.Point{c.Y(), c.X()}, nil
}

// Forward returns a projected copy of g.
func (p *Projector) Forward(g orb.Geometry) (orb.Geometry, error) {
	return apply(g, p.ForwardPoint)
}

// Inverse returns an unprojected copy of g.
func (p *Projector) Inverse(g orb.Geometry) (orb.Geometry, error) {
	return apply(g, p.InversePoint)
}

// ForwardCollection projects every feature geometry in place.
func (p *Projector) ForwardCollection(c *feature.Collection) error {
	return applyCollection(c, p.Forward)
}

// InverseCollection unprojects every feature geometry in place.
func (p *Projector) InverseCollection(c *feature.Collection) error {
	return applyCollection(c, p.Inverse)
}

func apply(g orb.Geometry, fn func(orb.Point) (orb.Point, error)) (orb.Geometry, error) {
	if g == nil {
		return nil, nil
	}

	var firstErr error
	out := project.Geometry(orb.Clone(g), func(pt orb.Point) orb.Point {
		if firstErr != nil {
			return pt
		}
		res, err := fn(pt)
		if err != nil {
			firstErr = err
			return pt
		}
		return res
	})
	if firstErr != nil {
		return nil, firstErr
	}

	return out, nil
}

func applyCollection(c *feature.Collection, fn func(orb.Geometry) (orb.Geometry, error)) error {
	for _, f := range c.Features {
		g, err := fn(f.Geometry)
		if err != nil {
			return fmt.Errorf("%s feature %s: %w", c.Name, f.ID, err)
		}
		f.Geometry = g
	}
	return nil
}
