package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartlightd/internal/app"
	"github.com/dokzlo13/smartlightd/internal/config"
	"github.com/dokzlo13/smartlightd/internal/settings"
)

func main() {
	// Support both -c and --config for config path
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	useDefaults := flag.Bool("defaults", false, "Run with built-in defaults when the config file is missing")
	resetSettings := flag.Bool("reset-settings", false, "Restore default settings and power state, then exit")
	printDefaults := flag.Bool("print-default-settings", false, "Print the default settings document and exit")
	flag.Parse()

	cfg, err := loadConfig(configPath, *useDefaults)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if *printDefaults {
		fmt.Println(settings.DefaultJSON(app.SettingsDefaults(cfg)))
		return
	}

	setupLogging(cfg.Log.Level, cfg.Log.UseJSON, cfg.Log.Colors)

	if *resetSettings {
		if err := app.ResetSettings(cfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to reset settings")
		}
		return
	}

	log.Info().Str("config", configPath).Msg("Starting smartlightd")

	application, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	// Create context that cancels on shutdown signal
	ctx := app.SignalContext()

	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	waitErr := application.Wait()

	if err := application.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
	if waitErr != nil {
		log.Fatal().Err(waitErr).Msg("smartlightd stopped after a fatal error")
	}
}

func loadConfig(path string, useDefaults bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if useDefaults && errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
		return cfg, cfg.Validate()
	}
	return nil, err
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
