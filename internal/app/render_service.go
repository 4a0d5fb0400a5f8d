package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartlightd/internal/color"
	"github.com/dokzlo13/smartlightd/internal/config"
	"github.com/dokzlo13/smartlightd/internal/device"
	"github.com/dokzlo13/smartlightd/internal/preset"
	"github.com/dokzlo13/smartlightd/internal/render"
	"github.com/dokzlo13/smartlightd/internal/strip"
)

// RenderService owns the output sink and the render loop.
type RenderService struct {
	Renderer *render.Renderer
	sink     strip.Sink
	wg       sync.WaitGroup
}

// NewRenderService builds the strip description and opens the sink.
func NewRenderService(cfg *config.Config, presets *preset.Registry, dev *device.Controller) (*RenderService, error) {
	order, err := color.ParseOrder(cfg.Strip.ColorOrder)
	if err != nil {
		return nil, err
	}

	var out strip.Sink
	switch cfg.Output.Sink {
	case "udp":
		if order != color.OrderRGB {
			log.Warn().Str("order", order.String()).Msg("UDP receivers expect RGB order, overriding")
			order = color.OrderRGB
		}
		out, err = strip.NewUDPSink(cfg.Output.Address, cfg.Output.Timeout)
		if err != nil {
			return nil, err
		}
	case "memory":
		out = strip.NewMemorySink()
	default:
		return nil, fmt.Errorf("unknown output sink %q", cfg.Output.Sink)
	}

	s := strip.Strip{
		ChipType: cfg.Strip.Type,
		Count:    cfg.Strip.NumLEDs,
		SetSize:  cfg.Light.SetSize,
		Order:    order,
		Budget: color.PowerBudget{
			Volts:        cfg.Light.Volts,
			MaxMilliamps: cfg.Light.MaxMilliamps,
		},
	}

	sink := strip.NewPacedSink(out, cfg.Output.MaxFPS, cfg.Output.Refresh.Duration())
	r := render.New(s, presets, dev, sink, render.Options{
		Interval:  cfg.Strip.TransitionDelay.Duration(),
		BlendRate: uint8(cfg.Strip.BlendRate),
	})

	log.Info().
		Str("chip", s.ChipType).
		Int("leds", s.Count).
		Str("order", order.String()).
		Str("sink", cfg.Output.Sink).
		Msg("Strip configured")

	return &RenderService{Renderer: r, sink: sink}, nil
}

// Start runs the render loop until ctx is cancelled.
func (s *RenderService) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Renderer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Renderer error")
		}
	}()
}

// Close waits for the loop to blank the strip, then closes the sink.
func (s *RenderService) Close() {
	s.wg.Wait()
	if err := s.sink.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close output sink")
	}
}
