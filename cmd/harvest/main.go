package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/woozymasta/geo3d/internal/config"
	"github.com/woozymasta/geo3d/internal/logger"
	"github.com/woozymasta/geo3d/internal/source"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string        `short:"c" long:"config"   env:"CONFIG_FILE"       description:"Path to configuration file" default:"config.yaml"`
	Limit      []string      `short:"l" long:"limit"    env:"LIMIT_NAMES"       description:"Limit processing to specific area names"`
	Output     string        `short:"o" long:"output"   env:"OUTPUT_DIR"        description:"Output directory, overrides the configuration"`
	Endpoint   string        `short:"e" long:"endpoint" env:"OVERPASS_ENDPOINT" description:"Overpass interpreter URL, overrides the configuration"`
	Timeout    time.Duration `short:"t" long:"timeout"  env:"OVERPASS_TIMEOUT"  description:"Overpass query timeout, overrides the configuration"`
	Force      bool          `short:"f" long:"force"    description:"Force overwrite of existing files"`
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
	if opts.Endpoint != "" {
		cfg.Overpass.Endpoint = opts.Endpoint
	}
	if opts.Timeout > 0 {
		cfg.Overpass.Timeout = opts.Timeout
	}

	areas, unknown := cfg.Select(opts.Limit)
	for _, name := range unknown {
		log.Error().
			Str("name", name).
			Msg("Area specified in --limit not found in configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	harvester := &source.Harvester{
		Fetcher: source.NewOverpassClient(cfg.Overpass),
		Output:  cfg.Output,
		Timeout: cfg.Overpass.Timeout,
		Force:   opts.Force,
	}

	log.Info().
		Int("areas_total", len(cfg.Areas)).
		Int("areas_queued", len(areas)).
		Str("endpoint", cfg.Overpass.Endpoint).
		Msg("Starting harvester")

	failed := 0
	for _, area := range areas {
		if err := harvester.Harvest(ctx, area); err != nil {
			log.Error().Err(err).Str("area", area.Name).Msg("Failed to harvest area")
			failed++
			if ctx.Err() != nil {
				break
			}
		}
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Msg("Harvester finished with errors")
		os.Exit(1)
	}
	log.Info().Msg("Harvester finished successfully")
}
