package processor

import (
	"sync"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/geo3d/internal/feature"
	"github.com/woozymasta/geo3d/internal/geo"
)

// JoinStats summarises one containment join.
type JoinStats struct {
	Pairs   int
	Matches int
	Skipped bool
}

var defaultEngine = geo.NewGEOS()

type row struct {
	Building int
	Matches  []int
}

// Join runs JoinWith on the shared GEOS engine.
func Join(buildings []*feature.Building, installations []*feature.Installation, workers int) JoinStats {
	return JoinWith(defaultEngine, buildings, installations, workers)
}

// JoinWith tests every building against every installation and links each
// contained installation to its building in both directions. Children are
// ordered by installation index and parents by building index, whatever the
// worker count. Area and azimuth are computed for every installation even
// when the pairwise pass is skipped for an empty side.
func JoinWith(engine geo.Engine, buildings []*feature.Building, installations []*feature.Installation, workers int) JoinStats {
	var stats JoinStats

	for _, b := range buildings {
		b.Children = nil
	}
	for _, s := range installations {
		s.Parents = nil
	}

	if len(buildings) == 0 || len(installations) == 0 {
		log.Warn().
			Int("buildings", len(buildings)).
			Int("installations", len(installations)).
			Msg("Empty collection, skipping containment join")
		stats.Skipped = true
	} else {
		rows := joinRows(engine, buildings, installations, workers)
		stats.Pairs = len(buildings) * len(installations)

		// parents are assembled after all rows so workers never share a slice
		for i, matches := range rows {
			b := buildings[i]
			for _, j := range matches {
				s := installations[j]
				b.Children = append(b.Children, feature.Child{InstallationID: s.ID, Method: s.Method})
				s.Parents = append(s.Parents, b.ID)
				stats.Matches++
			}
		}
	}

	for _, s := range installations {
		s.Area = engine.Area(s.Geometry)
		s.Azimuth = azimuth(engine, s.Geometry)
	}

	log.Debug().
		Int("pairs", stats.Pairs).
		Int("matches", stats.Matches).
		Msg("Containment join finished")

	return stats
}

func joinRows(engine geo.Engine, buildings []*feature.Building, installations []*feature.Installation, workers int) [][]int {
	rows := make([][]int, len(buildings))

	if workers <= 1 {
		for i, b := range buildings {
			rows[i] = containedBy(engine, b, installations)
		}
		return rows
	}

	jobs := make(chan int, len(buildings))
	results := make(chan row, len(buildings))

	go func() {
		for i := range buildings {
			jobs <- i
		}
		close(jobs)
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results <- row{Building: i, Matches: containedBy(engine, buildings[i], installations)}
			}
		}()
	}
	wg.Wait()
	close(results)

	for r := range results {
		rows[r.Building] = r.Matches
	}

	return rows
}

func containedBy(engine geo.Engine, b *feature.Building, installations []*feature.Installation) []int {
	if b.Geometry == nil {
		return nil
	}

	bound := b.Geometry.Bound()
	var matches []int
	for j, s := range installations {
		if s.Geometry == nil || !bound.Intersects(s.Geometry.Bound()) {
			continue
		}
		if engine.Contains(b.Geometry, s.Geometry) {
			log.Trace().Str("building", b.ID).Str("installation", s.ID).Msg("Installation inside building")
			matches = append(matches, j)
		}
	}
	return matches
}

// azimuth orients polygonal installations by their minimum rotated rectangle.
func azimuth(engine geo.Engine, g orb.Geometry) float64 {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return 0
	}

	rect, ok := engine.MinimumRotatedRectangle(g)
	if !ok {
		return 0
	}
	return geo.RectangleAzimuth(rect)
}
