package processor

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/woozymasta/geo3d/internal/feature"
	"github.com/woozymasta/geo3d/internal/geo"
)

// Attribute keys written by the enrichment pass.
const (
	KeyBuildingHeight     = "building_height"
	KeyRoofHeight         = "roof_height"
	KeyGroundHeight       = "ground_height"
	KeyBottomBridgeHeight = "bottom_bridge_height"
	KeyBottomRoofHeight   = "bottom_roof_height"
	KeyAddress            = "address"
	KeyGridCode           = "grid_code"
	KeyFillColor          = "fill_color"
	KeyChildren           = "children"
	KeyMethod             = "method"
	KeyHasInstallation    = "has_installation"
	KeyParent             = "parent"
	KeyArea               = "area"
	KeyAzimuth            = "azimuth"

	// KeyGeneratorMethod is the OSM tag read as installation method.
	KeyGeneratorMethod = "generator:method"
)

// Unprojector maps points of the working frame back to WGS84 longitude/latitude.
type Unprojector interface {
	InversePoint(p orb.Point) (orb.Point, error)
}

// Identity treats the working frame as WGS84 already.
type Identity struct{}

// InversePoint returns p unchanged.
func (Identity) InversePoint(p orb.Point) (orb.Point, error) {
	return p, nil
}

// NewBuilding reads the raw vertical inputs of f. Columns missing from the
// collection schema take their defaults; present but empty values read as 0.
func NewBuilding(c *feature.Collection, f *feature.Feature) *feature.Building {
	return &feature.Building{
		Feature:      f,
		Levels:       c.Float(f, "building:levels", 1),
		Category:     c.Text(f, "building", "house"),
		GroundHeight: c.Float(f, "mean", 0),
		MinHeight:    c.Float(f, "min_height", 0),
	}
}

// NewInstallation wraps f, reading its generator method.
func NewInstallation(c *feature.Collection, f *feature.Feature) *feature.Installation {
	return &feature.Installation{
		Feature: f,
		Method:  c.Text(f, KeyGeneratorMethod, ""),
	}
}

// Annotate derives heights, address, fill color and grid code of b.
// The grid code is taken at a point on the footprint surface.
func Annotate(engine geo.Engine, b *feature.Building, inv Unprojector) error {
	h := DeriveHeights(b.Levels, b.Category, b.GroundHeight, b.MinHeight)
	b.BuildingHeight = h.Building
	b.RoofHeight = h.Roof
	b.BottomBridgeHeight = h.BottomBridge
	b.BottomRoofHeight = h.BottomRoof

	b.Address = Address(b.Attributes)
	b.FillColor = FillColor(b.Category)

	pt, ok := engine.PointOnSurface(b.Geometry)
	if !ok {
		return nil
	}
	ll, err := inv.InversePoint(pt)
	if err != nil {
		return fmt.Errorf("grid code for %s: %w", b.ID, err)
	}
	b.GridCode = geo.GridCode(ll[1], ll[0])

	return nil
}

// WriteBuilding copies the derived fields of b into its attributes.
func WriteBuilding(b *feature.Building) {
	a := b.Attributes
	a[KeyBuildingHeight] = feature.FormatHeight(b.BuildingHeight)
	a[KeyRoofHeight] = feature.FormatHeight(b.RoofHeight)
	a[KeyGroundHeight] = feature.FormatHeight(&b.GroundHeight)
	a[KeyBottomBridgeHeight] = feature.FormatHeight(b.BottomBridgeHeight)
	a[KeyBottomRoofHeight] = feature.FormatHeight(b.BottomRoofHeight)

	a[KeyAddress] = nil
	if b.Address != nil {
		a[KeyAddress] = *b.Address
	}

	a[KeyGridCode] = nil
	if b.GridCode != "" {
		a[KeyGridCode] = b.GridCode
	}

	a[KeyFillColor] = []int{int(b.FillColor[0]), int(b.FillColor[1]), int(b.FillColor[2])}

	a[KeyChildren], a[KeyMethod] = nil, nil
	if b.HasInstallation() {
		a[KeyChildren] = b.ChildIDs()
		a[KeyMethod] = b.ChildMethods()
	}
	a[KeyHasInstallation] = b.HasInstallation()
}

// WriteInstallation copies the derived fields of s into its attributes.
func WriteInstallation(s *feature.Installation) {
	a := s.Attributes
	a[KeyParent] = nil
	if len(s.Parents) > 0 {
		a[KeyParent] = s.Parents
	}
	a[KeyArea] = s.Area
	a[KeyAzimuth] = s.Azimuth
}
