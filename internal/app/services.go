package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartlightd/internal/api"
	"github.com/dokzlo13/smartlightd/internal/config"
	"github.com/dokzlo13/smartlightd/internal/db"
	"github.com/dokzlo13/smartlightd/internal/device"
	"github.com/dokzlo13/smartlightd/internal/eventbus"
	"github.com/dokzlo13/smartlightd/internal/ledger"
	"github.com/dokzlo13/smartlightd/internal/motion"
	"github.com/dokzlo13/smartlightd/internal/preset"
	"github.com/dokzlo13/smartlightd/internal/provision"
	"github.com/dokzlo13/smartlightd/internal/settings"
	"github.com/dokzlo13/smartlightd/internal/storage"
	"github.com/dokzlo13/smartlightd/internal/storage/kv"
)

const attemptsBucket = "provisioning_attempts"

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Bus    *eventbus.Bus
	Ledger *ledger.Ledger
	Store  *storage.Store
	KV     *kv.Manager

	// Light
	Presets     *preset.Registry
	Lua         *LuaService
	Device      *device.Controller
	Provisioner *provision.Provisioner
	Render      *RenderService

	// Background and network services
	GPIO        *GPIOService
	Watch       *SettingsWatchService
	Maintenance *MaintenanceService
	Health      *HealthService
	API         *APIService
}

// SettingsDefaults derives the factory settings from the configuration.
func SettingsDefaults(cfg *config.Config) settings.Defaults {
	return settings.Defaults{
		Hue:         uint8(cfg.Light.Hue),
		Sat:         uint8(cfg.Light.Saturation),
		Val:         uint8(cfg.Light.Brightness),
		Preset:      cfg.Strip.DefaultPreset,
		Awareness:   cfg.Motion.DefaultAwareness,
		NightMotion: cfg.Motion.DefaultNightMotion,
		MaxLength:   cfg.Device.MaxSettingsJSON,
	}
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())
	s.Ledger = ledger.New(database.DB)
	s.Bus.SubscribeAll(s.Ledger.Recorder())
	s.Store = storage.NewStore(database.DB)
	s.KV = kv.NewManager(database.DB)

	// Presets, including any the script adds
	timing := preset.Timing{
		CycleTime: cfg.Strip.ColorCycleTime.Duration(),
		HueRate:   cfg.Strip.CycleHueRate,
	}
	s.Presets = preset.NewRegistry(timing)
	s.Lua = NewLuaService(cfg, s.Presets, timing, s.KV)
	if err := s.Lua.LoadScript(); err != nil {
		s.Close()
		return nil, err
	}
	if !s.Presets.Has(cfg.Strip.DefaultPreset) {
		s.Close()
		return nil, fmt.Errorf("default preset %q is not registered", cfg.Strip.DefaultPreset)
	}

	store := settings.NewFileStore(cfg.Device.SettingsFile, cfg.Device.FormatIfFailed, SettingsDefaults(cfg))
	s.Device, err = device.New(device.Options{
		Name:            cfg.Device.Name,
		Product:         cfg.Device.Product,
		DefaultOn:       cfg.Light.DefaultOn,
		ColorShift:      cfg.Motion.ColorShift,
		NightBrightness: uint8(cfg.Motion.NightBrightness),
		Motion: motion.Timing{
			AwarenessPeriod: cfg.Motion.AwarenessPeriod.Duration(),
			NightTimeout:    cfg.Motion.NightTimeout.Duration(),
			Debounce:        cfg.Strip.SignalRepetitionTime.Duration(),
		},
	}, store, s.Store, s.Presets, s.Bus)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Provisioner, err = provision.New(
		s.KV.Bucket(provision.BucketName, true),
		s.KV.Bucket(attemptsBucket, false),
		s.Bus,
		cfg.Device.ProvisioningPassword,
	)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Render, err = NewRenderService(cfg, s.Presets, s.Device)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.GPIO = NewGPIOService(cfg,
		func() { s.Device.Motion("gpio") },
		func() {
			if err := s.FactoryReset(context.Background(), "gpio"); err != nil {
				log.Error().Err(err).Msg("Factory reset from reset pin failed")
			}
		},
	)
	s.Watch = NewSettingsWatchService(cfg, s.Device)
	s.Maintenance = NewMaintenanceService(cfg, s.Ledger, s.KV)
	s.Health = NewHealthService(cfg, database.DB)
	s.API = NewAPIService(cfg, api.Deps{
		Device:      s.Device,
		Provisioner: s.Provisioner,
		Ledger:      s.Ledger,
		Reset:       s.FactoryReset,
	})

	return s, nil
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a service cannot keep running.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	s.Render.Start(ctx)
	s.GPIO.Start(ctx)
	s.Watch.Start(ctx)
	s.Maintenance.Start(ctx)
	s.Health.Start(ctx)
	s.API.Start(ctx, onFatalError)

	log.Info().
		Str("device", s.cfg.Device.Name).
		Str("service_name", s.Provisioner.ServiceName()).
		Msg("Services started")
	return nil
}

// FactoryReset restores default settings and power and forgets the
// provisioning credentials.
func (s *Services) FactoryReset(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(
		s.Device.FactoryReset(source),
		s.Provisioner.Reset(),
	)
}

// Stop gracefully stops all services. The context passed to Start must
// already be cancelled.
func (s *Services) Stop(ctx context.Context) error {
	if s.Render != nil {
		s.Render.Close()
	}
	if s.GPIO != nil {
		s.GPIO.Wait()
	}
	if s.Watch != nil {
		s.Watch.Wait()
	}
	// The database stays open until nothing can query it anymore.
	if s.API != nil {
		s.API.Wait()
	}
	if s.Health != nil {
		s.Health.Wait()
	}
	if s.Maintenance != nil {
		s.Maintenance.Wait()
	}
	if s.Bus != nil {
		s.Bus.Close(ctx)
	}
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Device != nil {
		s.Device.Close()
	}
	if s.Lua != nil {
		s.Lua.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
