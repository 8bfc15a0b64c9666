package processor

import "github.com/woozymasta/geo3d/internal/feature"

// DefaultColor is used for residential houses and any unknown category.
var DefaultColor = feature.RGB{255, 255, 204}

var palette = func() map[string]feature.RGB {
	groups := []struct {
		color      feature.RGB
		categories []string
	}{
		{DefaultColor, []string{"house", "semidetached_house", "terrace"}},
		{feature.RGB{252, 194, 3}, []string{"apartments"}},
		{feature.RGB{119, 3, 252}, []string{"residential", "dormitory", "cabin"}},
		{feature.RGB{3, 132, 252}, []string{"garage", "parking"}},
		{feature.RGB{253, 141, 60}, []string{"retail", "supermarket"}},
		{feature.RGB{185, 206, 37}, []string{"office", "commercial"}},
		{feature.RGB{128, 0, 38}, []string{"school", "kindergarten", "university", "college"}},
		{feature.RGB{89, 182, 178}, []string{"clinic", "doctors", "hospital"}},
		{feature.RGB{181, 182, 89}, []string{
			"community_centre", "service", "post_office", "hall", "civic",
			"townhall", "police", "library", "fire_station",
		}},
		{feature.RGB{193, 255, 193}, []string{"warehouse", "industrial"}},
		{feature.RGB{139, 117, 0}, []string{"hotel"}},
		{feature.RGB{225, 225, 51}, []string{"church", "mosque", "synagogue"}},
	}

	m := make(map[string]feature.RGB)
	for _, g := range groups {
		for _, c := range g.categories {
			m[c] = g.color
		}
	}
	return m
}()

// FillColor returns the display color of a building category.
func FillColor(category string) feature.RGB {
	if c, ok := palette[category]; ok {
		return c
	}
	return DefaultColor
}
