package strip

import (
	"bytes"
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PacedSink limits the frame rate reaching the wrapped sink and skips frames
// identical to the last one sent until the refresh interval passes.
type PacedSink struct {
	sink    Sink
	limiter *rate.Limiter
	refresh time.Duration

	mu       sync.Mutex
	last     []byte
	lastSent time.Time
}

// NewPacedSink wraps sink with at most maxFPS frames per second.
func NewPacedSink(sink Sink, maxFPS float64, refresh time.Duration) *PacedSink {
	if maxFPS <= 0 {
		maxFPS = 60
	}
	return &PacedSink{
		sink:    sink,
		limiter: rate.NewLimiter(rate.Limit(maxFPS), 1),
		refresh: refresh,
	}
}

// Show forwards the frame when it changed (or is due for a refresh) and the
// rate limit allows it. Dropped frames are superseded by the next call.
func (p *PacedSink) Show(ctx context.Context, frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	unchanged := p.last != nil && bytes.Equal(p.last, frame)
	if unchanged && (p.refresh <= 0 || now.Sub(p.lastSent) < p.refresh) {
		return nil
	}
	if !p.limiter.AllowN(now, 1) {
		return nil
	}

	if err := p.sink.Show(ctx, frame); err != nil {
		return err
	}
	p.last = append(p.last[:0], frame...)
	p.lastSent = now
	return nil
}

// Close closes the wrapped sink.
func (p *PacedSink) Close() error {
	return p.sink.Close()
}
