package source

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
	"github.com/serjvanilla/go-overpass"
	"github.com/woozymasta/geo3d/internal/config"
	"github.com/woozymasta/geo3d/internal/geofile"
)

// Fetcher runs an Overpass QL query.
type Fetcher interface {
	Fetch(ctx context.Context, query string) (Elements, error)
}

// OverpassClient fetches elements from an Overpass API endpoint.
type OverpassClient struct {
	client overpass.Client
}

// NewOverpassClient creates a client limited to cfg.Parallel concurrent requests.
func NewOverpassClient(cfg config.Overpass) *OverpassClient {
	httpClient := &http.Client{
		// server side timeout plus transfer time
		Timeout: cfg.Timeout + time.Minute,
	}

	return &OverpassClient{
		client: overpass.NewWithSettings(cfg.Endpoint, cfg.Parallel, httpClient),
	}
}

// Fetch runs the query. The Overpass client has no context support, so a
// cancelled context only stops waiting for the response.
func (c *OverpassClient) Fetch(ctx context.Context, query string) (Elements, error) {
	type reply struct {
		result overpass.Result
		err    error
	}

	done := make(chan reply, 1)
	go func() {
		res, err := c.client.Query(query)
		done <- reply{res, err}
	}()

	select {
	case <-ctx.Done():
		return Elements{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return Elements{}, fmt.Errorf("overpass query failed: %w", r.err)
		}
		return convertResult(&r.result), nil
	}
}

func convertResult(result *overpass.Result) Elements {
	var e Elements

	for _, w := range result.Ways {
		e.Ways = append(e.Ways, Way{ID: w.ID, Tags: w.Tags, Coords: wayCoords(w)})
	}

	for _, r := range result.Relations {
		rel := Relation{ID: r.ID, Tags: r.Tags}
		for _, m := range r.Members {
			if m.Type != overpass.ElementTypeWay || m.Way == nil {
				continue
			}
			rel.Members = append(rel.Members, Member{Role: m.Role, Coords: wayCoords(m.Way)})
		}
		e.Relations = append(e.Relations, rel)
	}

	return e
}

// wayCoords prefers the inline geometry of "out geom" responses over node references.
func wayCoords(w *overpass.Way) []orb.Point {
	if len(w.Geometry) > 0 {
		coords := make([]orb.Point, len(w.Geometry))
		for i, p := range w.Geometry {
			coords[i] = orb.Point{p.Lon, p.Lat}
		}
		return coords
	}

	coords := make([]orb.Point, 0, len(w.Nodes))
	for _, n := range w.Nodes {
		if n == nil {
			continue
		}
		coords = append(coords, orb.Point{n.Lon, n.Lat})
	}
	return coords
}

// Harvester downloads the layers of an area into <output>/<area>/raw.
type Harvester struct {
	Fetcher Fetcher
	Output  string
	Timeout time.Duration
	Force   bool
}

// RawPath returns the file a layer of an area is stored in.
func RawPath(output, area, layer string) string {
	return filepath.Join(output, area, "raw", layer+".geojson")
}

// Harvest fetches every layer of the area. Existing files are kept unless
// Force is set; empty optional layers are skipped.
func (h *Harvester) Harvest(ctx context.Context, area config.Area) error {
	layers, unknown := LayersFor(area)
	for _, n := range unknown {
		log.Warn().Str("area", area.Name).Str("layer", n).Msg("Unknown layer in configuration, ignored")
	}

	for _, l := range layers {
		if err := ctx.Err(); err != nil {
			return err
		}

		dest := RawPath(h.Output, area.Name, l.Name)
		if geofile.Exists(dest) && !h.Force {
			log.Debug().Str("area", area.Name).Str("layer", l.Name).Msg("Layer file exists, skipping")
			continue
		}

		start := time.Now()
		elements, err := h.Fetcher.Fetch(ctx, Query(l, area, h.Timeout))
		if err != nil {
			return fmt.Errorf("layer %s: %w", l.Name, err)
		}

		fc := Build(l, elements)
		if len(fc.Features) == 0 && !l.Required {
			log.Info().Str("area", area.Name).Str("layer", l.Name).Msg("No features found, layer skipped")
			continue
		}

		if err := geofile.Save(dest, fc); err != nil {
			return fmt.Errorf("layer %s: %w", l.Name, err)
		}

		log.Info().
			Str("area", area.Name).
			Str("layer", l.Name).
			Int("features", len(fc.Features)).
			Dur("took", time.Since(start)).
			Msg("Layer harvested")
	}

	return nil
}
