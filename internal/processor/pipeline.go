package processor

import (
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/geo3d/internal/feature"
	"github.com/woozymasta/geo3d/internal/geo"
)

// Options tunes one enrichment pass.
type Options struct {
	// Workers fans the join out over buildings; values below 2 keep it serial.
	Workers int

	// Unprojector maps footprints back to WGS84 for grid codes; nil means
	// the collections are already in WGS84.
	Unprojector Unprojector

	// Geometry provides the planar predicates; nil selects a shared GEOS engine.
	Geometry geo.Engine
}

// Result holds the enriched entities of one pass, in collection order.
type Result struct {
	Buildings     []*feature.Building
	Installations []*feature.Installation
	Join          JoinStats
}

var buildingKeys = keySet(
	KeyBuildingHeight, KeyRoofHeight, KeyGroundHeight, KeyBottomBridgeHeight, KeyBottomRoofHeight,
	KeyAddress, KeyGridCode, KeyFillColor, KeyChildren, KeyMethod, KeyHasInstallation,
)

var installationKeys = keySet(KeyParent, KeyArea, KeyAzimuth)

// Enrich expands the tag blobs of both collections, annotates every building
// with a footprint and joins the buildings with the installations.
// Derived values are written back into the feature attributes.
// Both collections must be in the same planar frame; installations may be nil.
func Enrich(buildings, installations *feature.Collection, opts Options) (*Result, error) {
	inv := opts.Unprojector
	if inv == nil {
		inv = Identity{}
	}
	engine := opts.Geometry
	if engine == nil {
		engine = defaultEngine
	}

	res := &Result{}

	buildings.ExpandTags(feature.OtherTagsKey)
	for _, f := range buildings.Features {
		if f.Geometry == nil {
			log.Trace().Str("id", f.ID).Msg("Building without geometry, skipping")
			continue
		}

		b := NewBuilding(buildings, f)
		if err := Annotate(engine, b, inv); err != nil {
			return nil, err
		}
		res.Buildings = append(res.Buildings, b)
	}

	if installations != nil {
		installations.ExpandTags(feature.OtherTagsKey)
		for _, f := range installations.Features {
			res.Installations = append(res.Installations, NewInstallation(installations, f))
		}
	}

	res.Join = JoinWith(engine, res.Buildings, res.Installations, opts.Workers)

	for _, b := range res.Buildings {
		WriteBuilding(b)
	}
	buildings.Register(buildingKeys)

	if installations != nil {
		for _, s := range res.Installations {
			WriteInstallation(s)
		}
		installations.Register(installationKeys)
	}

	log.Debug().
		Str("buildings", buildings.Name).
		Int("annotated", len(res.Buildings)).
		Int("installations", len(res.Installations)).
		Int("matches", res.Join.Matches).
		Msg("Enrichment pass finished")

	return res, nil
}

func keySet(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}
