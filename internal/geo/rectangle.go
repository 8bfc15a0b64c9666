package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// RectangleAzimuth returns the folded compass orientation of the longer of the
// first two edges of a rectangle ring. The first edge wins a tie.
func RectangleAzimuth(rect orb.Ring) float64 {
	if len(rect) < 3 {
		return 0
	}

	e1 := orb.Point{rect[1][0] - rect[0][0], rect[1][1] - rect[0][1]}
	e2 := orb.Point{rect[2][0] - rect[1][0], rect[2][1] - rect[1][1]}
	axis := e1
	if math.Hypot(e2[0], e2[1]) > math.Hypot(e1[0], e1[1]) {
		axis = e2
	}
	if axis[0] == 0 && axis[1] == 0 {
		return 0
	}

	az := math.Mod(90-degrees(math.Atan2(axis[1], axis[0])), 360)
	if az < 0 {
		az += 360
	}
	if az >= 360 {
		az -= 360
	}
	if az >= 180 {
		az -= 180
	}

	return az
}
