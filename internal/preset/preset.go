// Package preset renders named color patterns into a pixel buffer.
package preset

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dokzlo13/smartlightd/internal/color"
)

// ErrUnknownPreset is returned for names not in the registry.
var ErrUnknownPreset = errors.New("unknown preset")

// Built-in preset names.
const (
	NameCustom     = "Custom"
	NameColorCycle = "ColorCycle"
	NameRainbow    = "Rainbow"
)

// Frame is the input and output of a single render.
type Frame struct {
	Elapsed time.Duration // Time since the preset became active
	Hue     uint8
	Sat     uint8
	Val     uint8
	SetSize int
	Pixels  []color.RGB
}

// Preset renders a pattern.
type Preset interface {
	Name() string
	Render(f *Frame)
}

// Timing controls how fast animated presets move.
type Timing struct {
	CycleTime time.Duration // Time between hue steps
	HueRate   int           // Hue steps per cycle
}

// Step returns how far the hue moved after elapsed.
func (t Timing) Step(elapsed time.Duration) int {
	if t.CycleTime <= 0 {
		return 0
	}
	return int(elapsed/t.CycleTime) * t.HueRate
}

// Registry holds the available presets.
type Registry struct {
	mu      sync.RWMutex
	presets map[string]Preset
}

// NewRegistry creates a registry with the built-in presets.
func NewRegistry(timing Timing) *Registry {
	r := &Registry{presets: make(map[string]Preset)}
	r.Register(Custom{})
	r.Register(ColorCycle{Timing: timing})
	r.Register(Rainbow{Timing: timing})
	return r
}

// Register adds or replaces a preset.
func (r *Registry) Register(p Preset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presets[p.Name()] = p
}

// Get looks up a preset by name.
func (r *Registry) Get(name string) (Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

// Names returns the registered preset names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Custom shows the stored color on every pixel.
type Custom struct{}

func (Custom) Name() string { return NameCustom }

func (Custom) Render(f *Frame) {
	fill(f.Pixels, color.HSVToRGB(f.Hue, f.Sat, f.Val))
}

// ColorCycle walks the whole strip around the color wheel.
type ColorCycle struct {
	Timing Timing
}

func (ColorCycle) Name() string { return NameColorCycle }

func (c ColorCycle) Render(f *Frame) {
	hue := color.ShiftHue(f.Hue, c.Timing.Step(f.Elapsed))
	fill(f.Pixels, color.HSVToRGB(hue, f.Sat, f.Val))
}

// Rainbow spreads one full color wheel over each LED set and rotates it.
type Rainbow struct {
	Timing Timing
}

func (Rainbow) Name() string { return NameRainbow }

func (r Rainbow) Render(f *Frame) {
	set := f.SetSize
	if set <= 0 {
		set = len(f.Pixels)
	}
	base := color.ShiftHue(f.Hue, r.Timing.Step(f.Elapsed))
	for i := range f.Pixels {
		offset := (i % set) * 256 / set
		f.Pixels[i] = color.HSVToRGB(color.ShiftHue(base, offset), f.Sat, f.Val)
	}
}

func fill(pixels []color.RGB, c color.RGB) {
	for i := range pixels {
		pixels[i] = c
	}
}
