package app

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dokzlo13/smartlightd/internal/config"
	"github.com/dokzlo13/smartlightd/internal/motion"
)

// GPIOService watches the motion and reset pins.
type GPIOService struct {
	cfg      *config.Config
	watchers []*motion.PinWatcher
	group    errgroup.Group
}

// NewGPIOService wires pin edges to the given callbacks.
func NewGPIOService(cfg *config.Config, onMotion, onReset func()) *GPIOService {
	s := &GPIOService{cfg: cfg}
	if !cfg.GPIO.Enabled {
		return s
	}

	root := cfg.GPIO.SysfsRoot
	interval := cfg.GPIO.PollInterval.Duration()
	s.watchers = []*motion.PinWatcher{
		motion.NewPinWatcher("motion", root, cfg.Motion.Pin, interval, onMotion),
		motion.NewPinWatcher("reset", root, cfg.Device.ResetPin, interval, onReset),
	}
	return s
}

// Start polls the pins in the background. A pin that cannot be read stops
// its own watcher only; the daemon keeps running without it.
func (s *GPIOService) Start(ctx context.Context) {
	if len(s.watchers) == 0 {
		log.Debug().Msg("GPIO disabled")
		return
	}

	for _, w := range s.watchers {
		s.group.Go(func() error {
			if err := w.Run(ctx); err != nil {
				log.Error().Err(err).Msg("GPIO watcher stopped")
				return err
			}
			return nil
		})
	}
}

// Wait blocks until every watcher returned.
func (s *GPIOService) Wait() {
	_ = s.group.Wait()
}
