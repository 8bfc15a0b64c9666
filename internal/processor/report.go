package processor

import (
	"github.com/montanaflynn/stats"
)

// Summary describes the outcome of one enrichment pass.
type Summary struct {
	Buildings          int `json:"buildings"`
	Installations      int `json:"installations"`
	WithInstallation   int `json:"buildings_with_installation"`
	ContainedInstalled int `json:"installations_contained"`

	RoofHeight       Distribution `json:"roof_height"`
	InstallationArea Distribution `json:"installation_area"`

	// Coverage is the share of installations contained in some building.
	Coverage float64 `json:"coverage"`
}

// Distribution holds summary statistics of one measure; zero when empty.
type Distribution struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
	Total  float64 `json:"total"`
}

// Summarize computes the summary of an enrichment result.
func Summarize(r *Result) Summary {
	s := Summary{
		Buildings:     len(r.Buildings),
		Installations: len(r.Installations),
	}

	var roofs, areas stats.Float64Data
	for _, b := range r.Buildings {
		if b.HasInstallation() {
			s.WithInstallation++
		}
		if b.RoofHeight != nil {
			roofs = append(roofs, *b.RoofHeight)
		}
	}
	for _, i := range r.Installations {
		if len(i.Parents) > 0 {
			s.ContainedInstalled++
		}
		areas = append(areas, i.Area)
	}

	s.RoofHeight = distribution(roofs)
	s.InstallationArea = distribution(areas)
	if s.Installations > 0 {
		s.Coverage = round2(float64(s.ContainedInstalled) / float64(s.Installations))
	}

	return s
}

func distribution(data stats.Float64Data) Distribution {
	if data.Len() == 0 {
		return Distribution{}
	}

	var d Distribution
	d.Mean, _ = data.Mean()
	d.Median, _ = data.Median()
	d.Max, _ = data.Max()
	d.Total, _ = data.Sum()

	d.Mean, d.Median, d.Max, d.Total = round2(d.Mean), round2(d.Median), round2(d.Max), round2(d.Total)
	return d
}
