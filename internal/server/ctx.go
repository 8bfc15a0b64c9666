package server

import (
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/geo3d/internal/config"
	"github.com/woozymasta/geo3d/internal/export"
)

// Area is one exported area listed by the API.
type Area struct {
	Name     string           `json:"name"`
	Large    string           `json:"large,omitempty"`
	Focus    string           `json:"focus,omitempty"`
	Viewer   string           `json:"viewer"`
	Manifest *export.Manifest `json:"manifest"`
}

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Output string
	Areas  []Area

	// dirs maps area names to their directories under Output
	dirs map[string]string
}

// NewServerContext scans the output tree for the configured areas.
// Areas without a manifest have not been enriched yet and are skipped.
func NewServerContext(cfg *config.Config) *ServerContext {
	log.Info().Int("config_areas_count", len(cfg.Areas)).Msg("Initializing server context")

	s := &ServerContext{
		Output: cfg.Output,
		dirs:   make(map[string]string),
	}

	for _, a := range cfg.Areas {
		dir := filepath.Join(cfg.Output, a.Name)
		m, err := export.ReadManifest(filepath.Join(dir, export.ManifestFile))
		if err != nil {
			log.Warn().
				Str("area", a.Name).
				Err(err).
				Msg("Skipping area: no readable manifest")
			continue
		}

		s.dirs[a.Name] = dir
		s.Areas = append(s.Areas, Area{
			Name:     a.Name,
			Large:    a.Large,
			Focus:    a.Focus,
			Viewer:   "/areas/" + a.Name + "/" + export.ViewerFile,
			Manifest: m,
		})

		log.Debug().
			Str("area", a.Name).
			Int("buildings", m.Summary.Buildings).
			Int("installations", m.Summary.Installations).
			Msg("Area added to context")
	}

	sort.Slice(s.Areas, func(i, j int) bool {
		return s.Areas[i].Name < s.Areas[j].Name
	})

	log.Info().
		Int("valid_areas_count", len(s.Areas)).
		Msg("Server context initialized successfully")

	return s
}
