package app

import (
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartlightd/internal/config"
	"github.com/dokzlo13/smartlightd/internal/db"
	"github.com/dokzlo13/smartlightd/internal/device"
	"github.com/dokzlo13/smartlightd/internal/settings"
	"github.com/dokzlo13/smartlightd/internal/storage"
)

// ResetSettings rewrites the settings file with the defaults and forgets the
// stored power state. It only touches storage; no service is started.
func ResetSettings(cfg *config.Config) error {
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	store := settings.NewFileStore(cfg.Device.SettingsFile, cfg.Device.FormatIfFailed, SettingsDefaults(cfg))
	s, err := device.ResetStorage(store, storage.NewStore(database.DB))
	if err != nil {
		return err
	}

	log.Info().
		Str("path", cfg.Device.SettingsFile).
		Str("preset", s.Preset).
		Msg("Settings restored to defaults")
	return nil
}
