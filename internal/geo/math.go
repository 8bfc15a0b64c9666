package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// UTMZone identifies a Universal Transverse Mercator zone on one hemisphere.
type UTMZone struct {
	Number int
	North  bool
}

// ZoneFor returns the UTM zone covering the given WGS84 position.
// Longitude 180 falls into zone 60; latitude 0 counts as north.
func ZoneFor(lon, lat float64) UTMZone {
	n := int(math.Floor((lon+180)/6)) + 1
	if n < 1 {
		n = 1
	} else if n > 60 {
		n = 60
	}

	return UTMZone{Number: n, North: lat >= 0}
}

// ZoneForGeometries picks the zone of the mean centroid of the given WGS84 geometries.
// The second return is false when no geometry carries coordinates.
func ZoneForGeometries(geoms []orb.Geometry) (UTMZone, bool) {
	var sumLon, sumLat float64
	var n int
	for _, g := range geoms {
		if g == nil || IsEmpty(g) {
			continue
		}
		c, _ := planar.CentroidArea(g)
		if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
			continue
		}
		sumLon += c[0]
		sumLat += c[1]
		n++
	}
	if n == 0 {
		return UTMZone{}, false
	}

	return ZoneFor(sumLon/float64(n), sumLat/float64(n)), true
}

// EPSG returns the WGS84 / UTM code, 326xx for the north and 327xx for the south.
func (z UTMZone) EPSG() int {
	if z.North {
		return 32600 + z.Number
	}
	return 32700 + z.Number
}

// ZoneFromEPSG returns the UTM zone of a WGS84 / UTM EPSG code.
func ZoneFromEPSG(epsg int) (UTMZone, bool) {
	switch {
	case epsg > 32600 && epsg <= 32660:
		return UTMZone{Number: epsg - 32600, North: true}, true
	case epsg > 32700 && epsg <= 32760:
		return UTMZone{Number: epsg - 32700}, true
	default:
		return UTMZone{}, false
	}
}

// WGS84WKT is the OGC definition of EPSG:4326.
const WGS84WKT = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],` +
	`AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],` +
	`UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]]`

// Name returns the EPSG name of the zone.
func (z UTMZone) Name() string {
	return "WGS 84 / UTM zone " + z.String()
}

// WKT returns the OGC definition of the zone.
func (z UTMZone) WKT() string {
	northing := 10000000
	if z.North {
		northing = 0
	}
	return fmt.Sprintf(`PROJCS["%s",%s,PROJECTION["Transverse_Mercator"],`+
		`PARAMETER["latitude_of_origin",0],PARAMETER["central_meridian",%d],PARAMETER["scale_factor",0.9996],`+
		`PARAMETER["false_easting",500000],PARAMETER["false_northing",%d],`+
		`UNIT["metre",1,AUTHORITY["EPSG","9001"]],AXIS["Easting",EAST],AXIS["Northing",NORTH],AUTHORITY["EPSG","%d"]]`,
		z.Name(), WGS84WKT, z.Number*6-183, northing, z.EPSG())
}

// CRS returns the authority string understood by PROJ.
func (z UTMZone) CRS() string {
	return fmt.Sprintf("EPSG:%d", z.EPSG())
}

func (z UTMZone) String() string {
	h := "S"
	if z.North {
		h = "N"
	}
	return fmt.Sprintf("%d%s", z.Number, h)
}

func degrees(rad float64) float64 {
	return rad * (180.0 / math.Pi)
}
