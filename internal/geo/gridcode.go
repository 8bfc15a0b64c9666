package geo

// gridAlphabet avoids vowels and glyphs that are easily confused.
const gridAlphabet = "23456789CFGHJMPQRVWX"

// GridCode encodes a WGS84 position as a base-20 grid code of eleven digits
// with a '+' separator after the eighth, e.g. "6FG22222+222" for (0, 0).
func GridCode(lat, lon float64) string {
	var latDigits, lonDigits [5]byte

	latRem := (lat + 90.0) / 20.0
	lonRem := (lon + 180.0) / 20.0
	for i := 0; i < 5; i++ {
		idx := int(latRem)
		latRem = (latRem - float64(idx)) * 20.0
		latDigits[i] = gridDigit(idx)

		idx = int(lonRem)
		lonRem = (lonRem - float64(idx)) * 20.0
		lonDigits[i] = gridDigit(idx)
	}

	row := int(latRem * 5 / 20)
	col := int(lonRem * 4 / 20)

	code := make([]byte, 0, 12)
	for i := 0; i < 4; i++ {
		code = append(code, latDigits[i], lonDigits[i])
	}
	code = append(code, '+', latDigits[4], lonDigits[4], gridDigit(row*4+col))

	return string(code)
}

func gridDigit(idx int) byte {
	if idx < 0 {
		idx = 0
	} else if idx > 19 {
		idx = 19
	}
	return gridAlphabet[idx]
}
