// Package render drives the strip: it renders the active preset, fades the
// strip toward it and hands encoded frames to the output sink.
package render

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartlightd/internal/color"
	"github.com/dokzlo13/smartlightd/internal/device"
	"github.com/dokzlo13/smartlightd/internal/preset"
	"github.com/dokzlo13/smartlightd/internal/strip"
)

// TargetSource reports what the strip should show.
type TargetSource interface {
	Target() device.Target
}

// Options configures the renderer.
type Options struct {
	Interval  time.Duration // Tick period, at least 1ms
	BlendRate uint8         // Fade speed per tick, 0 jumps straight to the target
}

// Renderer owns the pixel buffers. Step is not safe for concurrent use;
// Run calls it from a single goroutine.
type Renderer struct {
	strip   strip.Strip
	presets *preset.Registry
	source  TargetSource
	sink    strip.Sink
	opts    Options

	target []color.RGB

	mu      sync.RWMutex
	current []color.RGB
	limited uint8

	activePreset string
	started      time.Time
	missing      string
}

// New creates a renderer with a black strip.
func New(s strip.Strip, presets *preset.Registry, source TargetSource, sink strip.Sink, opts Options) *Renderer {
	if opts.Interval < time.Millisecond {
		opts.Interval = time.Millisecond
	}
	return &Renderer{
		strip:   s,
		presets: presets,
		source:  source,
		sink:    sink,
		opts:    opts,
		target:  make([]color.RGB, s.Count),
		current: make([]color.RGB, s.Count),
		limited: 255,
	}
}

// Run ticks until ctx is cancelled, then shows a black frame.
func (r *Renderer) Run(ctx context.Context) error {
	log.Info().
		Int("leds", r.strip.Count).
		Dur("interval", r.opts.Interval).
		Uint8("blend_rate", r.opts.BlendRate).
		Msg("Renderer started")

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	failing := false
	for {
		select {
		case <-ctx.Done():
			r.blank()
			log.Info().Msg("Renderer stopped")
			return nil
		case now := <-ticker.C:
			if err := r.Step(ctx, now); err != nil {
				if !failing {
					log.Error().Err(err).Msg("Failed to show frame")
					failing = true
				}
				continue
			}
			if failing {
				log.Info().Msg("Output recovered")
				failing = false
			}
		}
	}
}

// Step renders and shows one frame.
func (r *Renderer) Step(ctx context.Context, now time.Time) error {
	t := r.source.Target()

	if t.On {
		r.renderTarget(t, now)
	} else {
		for i := range r.target {
			r.target[i] = color.Black
		}
		r.activePreset = ""
	}

	r.mu.Lock()
	for i := range r.current {
		if r.opts.BlendRate == 0 {
			r.current[i] = r.target[i]
		} else {
			r.current[i] = color.Blend(r.current[i], r.target[i], r.opts.BlendRate)
		}
	}
	brightness := color.LimitBrightness(r.current, 255, r.strip.Budget)
	if brightness != r.limited {
		log.Debug().Uint8("brightness", brightness).Msg("Power limit changed")
		r.limited = brightness
	}
	frame := r.strip.Encode(r.current, brightness)
	r.mu.Unlock()

	return r.sink.Show(ctx, frame)
}

// Pixels returns a copy of the pixels last shown, before power limiting.
func (r *Renderer) Pixels() []color.RGB {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]color.RGB(nil), r.current...)
}

// Brightness returns the brightness the power budget allowed for the last frame.
func (r *Renderer) Brightness() uint8 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limited
}

func (r *Renderer) renderTarget(t device.Target, now time.Time) {
	if t.Preset != r.activePreset {
		r.activePreset = t.Preset
		r.started = now
	}

	p, err := r.presets.Get(t.Preset)
	if err != nil {
		if r.missing != t.Preset {
			log.Warn().Err(err).Msg("Preset unavailable, showing plain color")
			r.missing = t.Preset
		}
		p = preset.Custom{}
	}

	p.Render(&preset.Frame{
		Elapsed: now.Sub(r.started),
		Hue:     t.HSV.Hue,
		Sat:     t.HSV.Sat,
		Val:     t.HSV.Val,
		SetSize: r.strip.SetSize,
		Pixels:  r.target,
	})
}

func (r *Renderer) blank() {
	r.mu.Lock()
	for i := range r.current {
		r.current[i] = color.Black
	}
	frame := r.strip.Encode(r.current, 0)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.sink.Show(ctx, frame); err != nil {
		log.Warn().Err(err).Msg("Failed to blank strip")
	}
}
