package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dokzlo13/smartlightd/internal/config"
	"github.com/dokzlo13/smartlightd/internal/device"
	"github.com/dokzlo13/smartlightd/internal/settings"
)

// SettingsWatchService reloads the settings file when another program edits it.
type SettingsWatchService struct {
	cfg     *config.Config
	watcher *settings.Watcher
	group   errgroup.Group
}

// NewSettingsWatchService creates the watcher when enabled.
func NewSettingsWatchService(cfg *config.Config, dev *device.Controller) *SettingsWatchService {
	s := &SettingsWatchService{cfg: cfg}
	if !cfg.Device.WatchSettings {
		return s
	}

	s.watcher = settings.NewWatcher(cfg.Device.SettingsFile, 0, func() {
		changed, err := dev.Reload("file")
		switch {
		case errors.Is(err, device.ErrInvalidSettings):
			log.Warn().Err(err).Msg("Ignoring edited settings file")
		case err != nil:
			log.Error().Err(err).Msg("Failed to reload settings")
		case changed:
			log.Info().Msg("Settings reloaded from file")
		}
	})
	return s
}

// Start watches in the background.
func (s *SettingsWatchService) Start(ctx context.Context) {
	if s.watcher == nil {
		return
	}
	s.group.Go(func() error {
		if err := s.watcher.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Settings watcher stopped")
			return err
		}
		return nil
	})
}

// Wait blocks until the watcher returned.
func (s *SettingsWatchService) Wait() {
	_ = s.group.Wait()
}
