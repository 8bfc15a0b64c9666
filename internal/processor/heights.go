// Package processor annotates buildings with vertical attributes, colors and
// grid codes, and joins them with the installations they contain.
package processor

import "strconv"

const (
	// storeyHeight is the assumed height of one building level in metres.
	storeyHeight = 2.8

	// roofAllowance is added on top of the storeys of regular buildings.
	roofAllowance = 1.3
)

// Heights holds the derived vertical attributes of a building. Nil fields are absent.
type Heights struct {
	Building     *float64
	Roof         *float64
	BottomBridge *float64
	BottomRoof   *float64
}

// DeriveHeights computes the vertical attributes for a building category.
// Bridges keep the default building and roof heights and add the bridge
// underside; roofs have no building height and float above the ground.
func DeriveHeights(levels float64, category string, ground, minHeight float64) Heights {
	building := round2(levels*storeyHeight + roofAllowance)
	roof := round2(building + ground)
	h := Heights{Building: &building, Roof: &roof}

	switch category {
	case "cabin":
		building = round2(levels * storeyHeight)
		roof = round2(building + ground)
	case "bridge":
		bottom := round2(minHeight + ground)
		h.BottomBridge = &bottom
	case "roof":
		bottom := round2(levels*storeyHeight + ground)
		roof = round2(bottom + roofAllowance)
		h.BottomRoof = &bottom
		h.Building = nil
	}

	return h
}

// round2 rounds the exact binary value to two decimals, ties to even.
func round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}
