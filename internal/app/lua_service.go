package app

import (
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartlightd/internal/config"
	luart "github.com/dokzlo13/smartlightd/internal/lua"
	"github.com/dokzlo13/smartlightd/internal/preset"
	"github.com/dokzlo13/smartlightd/internal/storage/kv"
)

// LuaService hosts the optional preset script.
type LuaService struct {
	cfg     *config.Config
	Runtime *luart.Runtime
}

// NewLuaService creates the runtime when a script is configured.
func NewLuaService(cfg *config.Config, presets *preset.Registry, timing preset.Timing, kvm *kv.Manager) *LuaService {
	s := &LuaService{cfg: cfg}
	if cfg.Script == "" {
		return s
	}

	s.Runtime = luart.NewRuntime(presets, timing, cfg.Strip.NumLEDs, cfg.Light.SetSize)
	s.Runtime.EnableKV(kvm)
	return s
}

// LoadScript runs the configured script, registering its presets.
func (s *LuaService) LoadScript() error {
	if s.Runtime == nil {
		log.Debug().Msg("No Lua script configured")
		return nil
	}
	return s.Runtime.LoadScript(s.cfg.Script)
}

// Close closes the Lua runtime.
func (s *LuaService) Close() {
	if s.Runtime != nil {
		s.Runtime.Close()
	}
}
