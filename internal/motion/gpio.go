package motion

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// PinWatcher polls a sysfs GPIO value file and reports rising edges.
type PinWatcher struct {
	name     string
	path     string
	interval time.Duration
	onRise   func()
}

// NewPinWatcher watches <root>/gpio<pin>/value. The pin must already be
// exported and configured as an input.
func NewPinWatcher(name, root string, pin int, interval time.Duration, onRise func()) *PinWatcher {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	return &PinWatcher{
		name:     name,
		path:     filepath.Join(root, fmt.Sprintf("gpio%d", pin), "value"),
		interval: interval,
		onRise:   onRise,
	}
}

// Run polls until ctx is cancelled.
func (w *PinWatcher) Run(ctx context.Context) error {
	log.Info().Str("pin", w.name).Str("path", w.path).Dur("interval", w.interval).Msg("Watching GPIO pin")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	high, err := w.read()
	if err != nil {
		return err
	}

	failing := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now, err := w.read()
			if err != nil {
				if !failing {
					log.Warn().Err(err).Str("pin", w.name).Msg("GPIO read failed")
					failing = true
				}
				continue
			}
			failing = false

			if now && !high {
				log.Debug().Str("pin", w.name).Msg("GPIO rising edge")
				w.onRise()
			}
			high = now
		}
	}
}

func (w *PinWatcher) read() (bool, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return false, fmt.Errorf("read gpio %s: %w", w.name, err)
	}
	return bytes.Equal(bytes.TrimSpace(data), []byte("1")), nil
}
