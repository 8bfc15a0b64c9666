package source

import (
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/woozymasta/geo3d/internal/feature"
)

// Way is an OSM way with resolved coordinates.
type Way struct {
	ID     int64
	Tags   map[string]string
	Coords []orb.Point
}

// Member is a way member of a relation.
type Member struct {
	Role   string
	Coords []orb.Point
}

// Relation is an OSM relation with its way members resolved.
type Relation struct {
	ID      int64
	Tags    map[string]string
	Members []Member
}

// Elements is the resolved content of one Overpass response.
type Elements struct {
	Ways      []Way
	Relations []Relation
}

// FallbackColour is used for routes without a parsable colour.
var FallbackColour = [3]int{255, 0, 0}

// Build converts the elements of a layer into GeoJSON features, ways first,
// each group ordered by id.
func Build(l Layer, e Elements) *geojson.FeatureCollection {
	ways := append([]Way(nil), e.Ways...)
	sort.Slice(ways, func(i, j int) bool { return ways[i].ID < ways[j].ID })
	relations := append([]Relation(nil), e.Relations...)
	sort.Slice(relations, func(i, j int) bool { return relations[i].ID < relations[j].ID })

	fc := geojson.NewFeatureCollection()
	for _, w := range ways {
		g := wayGeometry(l.Shape, w.Coords)
		if g == nil {
			continue
		}
		fc.Append(newFeature(l, "way", w.ID, w.Tags, g))
	}
	for _, r := range relations {
		g := relationGeometry(l.Shape, r.Members)
		if g == nil {
			continue
		}
		fc.Append(newFeature(l, "relation", r.ID, r.Tags, g))
	}

	return fc
}

func wayGeometry(shape Shape, coords []orb.Point) orb.Geometry {
	if len(coords) < 2 {
		return nil
	}
	if shape == Routes {
		return orb.MultiLineString{orb.LineString(coords)}
	}

	ring := orb.Ring(coords)
	if shape == Footprints && !ring.Closed() {
		ring = append(append(orb.Ring(nil), coords...), coords[0])
	}
	if len(ring) < 4 {
		return nil
	}
	if !ring.Closed() {
		// open ways in context layers (streams) stay lines
		return orb.LineString(coords)
	}
	return orb.Polygon{ring}
}

func relationGeometry(shape Shape, members []Member) orb.Geometry {
	if shape == Routes {
		var mls orb.MultiLineString
		for _, m := range members {
			if len(m.Coords) >= 2 {
				mls = append(mls, orb.LineString(m.Coords))
			}
		}
		if len(mls) == 0 {
			return nil
		}
		return mls
	}

	var outerParts, innerParts [][]orb.Point
	for _, m := range members {
		switch m.Role {
		case "outer":
			outerParts = append(outerParts, m.Coords)
		case "inner":
			innerParts = append(innerParts, m.Coords)
		}
	}

	outers := AssembleRings(outerParts)
	if len(outers) == 0 {
		return nil
	}

	polys := make(orb.MultiPolygon, len(outers))
	for i, o := range outers {
		polys[i] = orb.Polygon{o}
	}
	for _, inner := range AssembleRings(innerParts) {
		for i := range polys {
			if planar.RingContains(polys[i][0], inner[0]) {
				polys[i] = append(polys[i], inner)
				break
			}
		}
	}

	if len(polys) == 1 {
		return polys[0]
	}
	return polys
}

// AssembleRings joins way segments sharing end points into closed rings.
// Segments that cannot be closed, and rings shorter than four points, are dropped.
func AssembleRings(parts [][]orb.Point) []orb.Ring {
	remaining := make([][]orb.Point, 0, len(parts))
	for _, p := range parts {
		if len(p) >= 2 {
			remaining = append(remaining, p)
		}
	}

	var rings []orb.Ring
	for len(remaining) > 0 {
		current := append([]orb.Point(nil), remaining[0]...)
		remaining = remaining[1:]

		for !current[0].Equal(current[len(current)-1]) {
			end := current[len(current)-1]
			found := -1
			for i, p := range remaining {
				switch {
				case p[0].Equal(end):
					current = append(current, p[1:]...)
				case p[len(p)-1].Equal(end):
					for k := len(p) - 2; k >= 0; k-- {
						current = append(current, p[k])
					}
				default:
					continue
				}
				found = i
				break
			}
			if found < 0 {
				break
			}
			remaining = append(remaining[:found], remaining[found+1:]...)
		}

		ring := orb.Ring(current)
		if ring.Closed() && len(ring) >= 4 {
			rings = append(rings, ring)
		}
	}

	return rings
}

func newFeature(l Layer, kind string, id int64, tags map[string]string, g orb.Geometry) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.ID = kind + "/" + strconv.FormatInt(id, 10)
	osmID := strconv.FormatInt(id, 10)

	switch {
	case l.Columns != nil:
		f.Properties = osmDriverProperties(l.Columns, kind, osmID, tags)
	default:
		for k, v := range tags {
			f.Properties[k] = v
		}
		f.Properties[feature.IDKey] = osmID
	}

	if l.Shape == Routes {
		if c, ok := tags["colour"]; ok {
			rgb, err := HexToRGB(c)
			if err != nil {
				rgb = FallbackColour
			}
			f.Properties["colour"] = []int{rgb[0], rgb[1], rgb[2]}
		}
	}

	return f
}

// osmDriverProperties lays out tags the way the OGR OSM driver does: fixed
// columns, the element id split by element kind and the remaining tags packed
// into other_tags.
func osmDriverProperties(columns []string, kind, id string, tags map[string]string) geojson.Properties {
	props := make(geojson.Properties, len(columns)+3)
	props[feature.IDKey] = nil
	props[feature.WayIDKey] = nil
	if kind == "way" {
		props[feature.WayIDKey] = id
	} else {
		props[feature.IDKey] = id
	}

	fixed := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		fixed[c] = struct{}{}
		props[c] = nil
		if v, ok := tags[c]; ok {
			props[c] = v
		}
	}

	var rest []string
	for k := range tags {
		if _, ok := fixed[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)

	props[feature.OtherTagsKey] = nil
	if len(rest) > 0 {
		props[feature.OtherTagsKey] = feature.FormatTags(rest, tags)
	}

	return props
}

// HexToRGB parses a "#rrggbb" colour; longer values use their first six digits.
func HexToRGB(s string) ([3]int, error) {
	h := strings.TrimLeft(strings.TrimSpace(s), "#")
	var rgb [3]int
	if len(h) < 6 {
		return rgb, strconv.ErrSyntax
	}

	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(h[2*i:2*i+2], 16, 8)
		if err != nil {
			return rgb, err
		}
		rgb[i] = int(v)
	}
	return rgb, nil
}
