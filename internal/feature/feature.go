// Package feature holds the building and installation data model
// and the normalisation of raw OSM attributes.
package feature

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/paulmach/orb"
)

// Attributes maps attribute keys to string, float64, bool, slice or nil values.
type Attributes map[string]any

// Feature is a geometry with attributes and a stable identifier.
type Feature struct {
	ID         string
	Geometry   orb.Geometry
	Attributes Attributes
}

// Collection is an ordered set of features sharing one attribute schema.
type Collection struct {
	Name     string
	Features []*Feature

	// Columns lists every attribute key registered for the collection.
	Columns []string
}

// NewCollection creates a collection and registers the keys already present on its features.
func NewCollection(name string, features []*Feature) *Collection {
	c := &Collection{Name: name, Features: features}
	keys := make(map[string]struct{})
	for _, f := range features {
		if f.Attributes == nil {
			f.Attributes = make(Attributes)
		}
		for k := range f.Attributes {
			keys[k] = struct{}{}
		}
	}
	c.Register(keys)

	return c
}

// HasColumn reports whether key is part of the collection schema.
func (c *Collection) HasColumn(key string) bool {
	i := sort.SearchStrings(c.Columns, key)
	return i < len(c.Columns) && c.Columns[i] == key
}

// Register adds keys to the schema and materialises them as nil on features missing them.
func (c *Collection) Register(keys map[string]struct{}) {
	known := c.Columns
	for k := range keys {
		i := sort.SearchStrings(known, k)
		if i < len(known) && known[i] == k {
			continue
		}
		c.Columns = append(c.Columns, k)
	}
	if len(c.Columns) > len(known) {
		sort.Strings(c.Columns)
	}

	for _, f := range c.Features {
		for k := range keys {
			if _, ok := f.Attributes[k]; !ok {
				f.Attributes[k] = nil
			}
		}
	}
}

// Len returns the number of features.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Features)
}

// String returns the attribute value as a string; nil and missing values return "".
func (a Attributes) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(v)
	}
}

// Present reports whether the attribute exists and is not nil.
func (a Attributes) Present(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

// Empty reports whether the attribute is missing, nil or an empty string.
func (a Attributes) Empty(key string) bool {
	v, ok := a[key]
	if !ok || v == nil {
		return true
	}
	s, isString := v.(string)
	return isString && s == ""
}

// Child pairs a contained installation with its generator method.
type Child struct {
	InstallationID string
	Method         string
}

// RGB is a fill color.
type RGB [3]uint8

// Building is a footprint annotated with vertical attributes and contained installations.
type Building struct {
	*Feature

	Levels       float64
	Category     string
	GroundHeight float64
	MinHeight    float64

	BuildingHeight     *float64
	RoofHeight         *float64
	BottomBridgeHeight *float64
	BottomRoofHeight   *float64

	Address   *string
	GridCode  string
	FillColor RGB

	// Children is nil when no installation is contained.
	Children []Child
}

// HasInstallation reports whether the building contains at least one installation.
func (b *Building) HasInstallation() bool {
	return len(b.Children) > 0
}

// ChildIDs returns the installation ids in join order.
func (b *Building) ChildIDs() []string {
	if len(b.Children) == 0 {
		return nil
	}
	ids := make([]string, len(b.Children))
	for i, c := range b.Children {
		ids[i] = c.InstallationID
	}
	return ids
}

// ChildMethods returns the installation methods parallel to ChildIDs.
func (b *Building) ChildMethods() []string {
	if len(b.Children) == 0 {
		return nil
	}
	methods := make([]string, len(b.Children))
	for i, c := range b.Children {
		methods[i] = c.Method
	}
	return methods
}

// Installation is a point or area feature such as a solar generator.
type Installation struct {
	*Feature

	Method  string
	Area    float64
	Azimuth float64

	// Parents is nil when no building contains the installation.
	Parents []string
}
