package runtimeinit

import (
	"fmt"
	"io"
	"log"

	"notify-shell/src/config"
	"notify-shell/src/logutil"
	"notify-shell/src/theme"
)

type Options struct {
	LoadOptions config.LoadOptions
	// SetupLogging defaults to logutil.Setup.
	SetupLogging func(enable bool, path string) io.Closer
	// Verbose sends logs to stderr instead of the configured sink.
	Verbose bool
}

// Runtime is what every entry point needs after startup.
type Runtime struct {
	Config  *config.Config
	Palette theme.Palette
	Logs    io.Closer
}

// Bootstrap loads configuration, sets up logging and resolves the theme.
func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	setup := opts.SetupLogging
	if setup == nil {
		setup = logutil.Setup
	}
	logs := setup(cfg.EnableFileLogging, cfg.LogFile)
	if opts.Verbose {
		logutil.Verbose()
	}
	if cfg.EnvPath != "" {
		log.Printf("Config: loaded %s", cfg.EnvPath)
	}

	palette := theme.Resolve(cfg.Theme)
	log.Printf("Theme: %s requested, using %s", cfg.Theme, palette.Mode)
	return &Runtime{Config: cfg, Palette: palette, Logs: logs}, nil
}
