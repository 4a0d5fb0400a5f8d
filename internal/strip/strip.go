// Package strip encodes pixel buffers for an addressable LED strip and ships
// them to an output sink.
package strip

import (
	"context"

	"github.com/dokzlo13/smartlightd/internal/color"
)

// Strip describes the attached hardware.
type Strip struct {
	ChipType string
	Count    int
	SetSize  int
	Order    color.Order
	Budget   color.PowerBudget
}

// Encode scales pixels by brightness and writes them in wire order,
// 3 bytes per pixel. Pixels beyond Count are ignored; missing ones are black.
func (s Strip) Encode(pixels []color.RGB, brightness uint8) []byte {
	frame := make([]byte, s.Count*3)
	for i := 0; i < s.Count && i < len(pixels); i++ {
		s.Order.Put(frame[i*3:], color.Scale(pixels[i], brightness))
	}
	return frame
}

// Sink receives encoded frames.
type Sink interface {
	Show(ctx context.Context, frame []byte) error
	Close() error
}
