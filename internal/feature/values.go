package feature

import (
	"math"
	"strconv"
	"strings"
)

// ToFloat converts a raw attribute value to a number.
// Nil, empty and non-numeric values become 0; decimal commas are accepted.
func ToFloat(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case bool:
		return 0
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Float reads a numeric column. When the column is not part of the collection
// schema the fallback is returned; a registered but empty value reads as 0.
func (c *Collection) Float(f *Feature, key string, fallback float64) float64 {
	if !c.HasColumn(key) {
		return fallback
	}
	return ToFloat(f.Attributes[key])
}

// Text reads a string column, returning fallback when the column is unknown or the value is nil.
func (c *Collection) Text(f *Feature, key, fallback string) string {
	if !c.HasColumn(key) || !f.Attributes.Present(key) {
		return fallback
	}
	return f.Attributes.String(key)
}

// FormatHeight renders a height with two decimals and a dot separator; nil stays nil.
func FormatHeight(v *float64) any {
	if v == nil {
		return nil
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
