package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/woozymasta/geo3d/internal/config"
	"github.com/woozymasta/geo3d/internal/logger"
	"github.com/woozymasta/geo3d/internal/store"
	"github.com/woozymasta/geo3d/internal/workflow"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string   `short:"c" long:"config"    env:"CONFIG_FILE"  description:"Path to configuration file" default:"config.yaml"`
	Limit      []string `short:"l" long:"limit"     env:"LIMIT_NAMES"  description:"Limit processing to specific area names"`
	Output     string   `short:"o" long:"output"    env:"OUTPUT_DIR"   description:"Output directory, overrides the configuration"`
	Workers    int      `short:"w" long:"workers"   env:"WORKERS"      description:"Spatial join workers, overrides the configuration"`
	DSN        string   `short:"d" long:"dsn"       env:"POSTGRES_DSN" description:"PostGIS connection string, overrides the configuration"`
	NoViewer   bool     `long:"no-viewer"           description:"Do not render index.html"`
	NoStore    bool     `long:"no-store"            description:"Do not write to PostGIS even when configured"`
	GeoPackage bool     `long:"gpkg"                env:"GEOPACKAGE"   description:"Also write every layer into layers.gpkg"`
	GpkgEPSG   int      `long:"gpkg-epsg"           env:"GEOPACKAGE_EPSG" description:"GeoPackage CRS, 4326 or a UTM zone; defaults to the area zone"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if opts.Output != "" {
		cfg.Output = opts.Output
	}
	if opts.GeoPackage {
		cfg.GeoPackage.Enabled = true
	}
	if opts.GpkgEPSG != 0 {
		cfg.GeoPackage.EPSG = opts.GpkgEPSG
	}
	if opts.DSN != "" {
		cfg.Postgres.DSN = opts.DSN
	}

	areas, unknown := cfg.Select(opts.Limit)
	for _, name := range unknown {
		log.Error().
			Str("name", name).
			Msg("Area specified in --limit not found in configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var sink workflow.Sink
	if cfg.Postgres.DSN != "" && !opts.NoStore {
		db, err := store.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostGIS")
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close PostGIS connection")
			}
		}()

		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate PostGIS schema")
		}
		sink = db
	}

	log.Info().
		Int("areas_total", len(cfg.Areas)).
		Int("areas_queued", len(areas)).
		Bool("store", sink != nil).
		Msg("Starting enrichment")

	failed := 0
	for _, area := range areas {
		if ctx.Err() != nil {
			break
		}

		workers := area.Workers
		if opts.Workers > 0 {
			workers = opts.Workers
		}

		_, err := workflow.Run(ctx, area, workflow.Options{
			Output:   cfg.Output,
			Workers:  workers,
			NoViewer: opts.NoViewer,
			Sink:     sink,

			GeoPackage:     cfg.GeoPackage.Enabled,
			GeoPackageEPSG: cfg.GeoPackage.EPSG,
		})
		if err != nil {
			log.Error().Err(err).Str("area", area.Name).Msg("Failed to enrich area")
			failed++
		}
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Msg("Enrichment finished with errors")
		os.Exit(1)
	}
	log.Info().Msg("Enrichment finished successfully")
}
