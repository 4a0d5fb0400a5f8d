// Package lua hosts user scripts that define extra presets.
package lua

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/smartlightd/internal/color"
	"github.com/dokzlo13/smartlightd/internal/lua/modules"
	"github.com/dokzlo13/smartlightd/internal/preset"
	"github.com/dokzlo13/smartlightd/internal/storage/kv"
)

// Runtime owns the Lua VM. LState is not goroutine-safe, so every call into
// the VM holds mu.
type Runtime struct {
	mu       sync.Mutex
	L        *lua.LState
	registry *preset.Registry
	timing   preset.Timing
	closed   bool
}

// NewRuntime creates a runtime that registers script presets into registry.
func NewRuntime(registry *preset.Registry, timing preset.Timing, count, setSize int) *Runtime {
	r := &Runtime{
		L:        lua.NewState(),
		registry: registry,
		timing:   timing,
	}

	r.L.PreloadModule("log", modules.NewLogModule().Loader)
	r.L.PreloadModule("presets", modules.NewPresetsModule(r.registerPreset, count, setSize).Loader)

	return r
}

// EnableKV exposes buckets from manager to scripts as the kv module.
// Call it before loading a script.
func (r *Runtime) EnableKV(manager *kv.Manager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.L.PreloadModule("kv", modules.NewKVModule(manager).Loader)
}

// LoadScript executes a Lua file.
func (r *Runtime) LoadScript(path string) error {
	log.Info().Str("path", path).Msg("Loading Lua script")

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}

	log.Info().Strs("presets", r.registry.Names()).Msg("Lua script loaded successfully")
	return nil
}

// LoadString executes Lua source.
func (r *Runtime) LoadString(src string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.L.DoString(src); err != nil {
		return fmt.Errorf("failed to execute Lua source: %w", err)
	}
	return nil
}

// Close shuts the VM down. Script presets render black afterwards.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.closed {
		r.closed = true
		r.L.Close()
	}
}

// registerPreset runs inside a script call, so mu is already held.
func (r *Runtime) registerPreset(name string, fn *lua.LFunction) {
	r.registry.Register(&Preset{runtime: r, name: name, fn: fn})
	log.Debug().Str("preset", name).Msg("Registered Lua preset")
}

// Preset is a preset implemented by a Lua function
// fn(i, n, step, h, s, v) -> h, s, v evaluated for every pixel.
type Preset struct {
	runtime *Runtime
	name    string
	fn      *lua.LFunction

	failOnce sync.Once
}

// Name returns the preset name.
func (p *Preset) Name() string {
	return p.name
}

// Render evaluates the script for every pixel. A script error blanks the
// rest of the frame.
func (p *Preset) Render(f *preset.Frame) {
	r := p.runtime
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		blank(f.Pixels)
		return
	}

	L := r.L
	n := len(f.Pixels)
	step := r.timing.Step(f.Elapsed)

	for i := range f.Pixels {
		err := L.CallByParam(lua.P{Fn: p.fn, NRet: 3, Protect: true},
			lua.LNumber(i), lua.LNumber(n), lua.LNumber(step),
			lua.LNumber(f.Hue), lua.LNumber(f.Sat), lua.LNumber(f.Val))
		if err != nil {
			p.failOnce.Do(func() {
				log.Error().Err(err).Str("preset", p.name).Msg("Lua preset failed")
			})
			blank(f.Pixels[i:])
			return
		}

		h := L.Get(-3)
		s := L.Get(-2)
		v := L.Get(-1)
		L.Pop(3)

		f.Pixels[i] = color.HSVToRGB(wrapHue(h, f.Hue), clamp8(s, f.Sat), clamp8(v, f.Val))
	}
}

func wrapHue(v lua.LValue, fallback uint8) uint8 {
	n, ok := v.(lua.LNumber)
	if !ok {
		return fallback
	}
	return color.ShiftHue(0, int(n))
}

func clamp8(v lua.LValue, fallback uint8) uint8 {
	n, ok := v.(lua.LNumber)
	if !ok {
		return fallback
	}
	switch {
	case n < 0:
		return 0
	case n > 255:
		return 255
	default:
		return uint8(n)
	}
}

func blank(pixels []color.RGB) {
	for i := range pixels {
		pixels[i] = color.Black
	}
}
