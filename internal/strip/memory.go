package strip

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// MemorySink keeps the last frame in memory. It backs dry runs and tests.
type MemorySink struct {
	mu     sync.Mutex
	last   []byte
	frames int
}

// NewMemorySink creates an empty memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Show stores a copy of the frame.
func (s *MemorySink) Show(_ context.Context, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = append(s.last[:0], frame...)
	s.frames++

	log.Trace().Int("bytes", len(frame)).Int("frames", s.frames).Msg("Frame shown")
	return nil
}

// Last returns a copy of the most recent frame.
func (s *MemorySink) Last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return nil
	}
	return append([]byte(nil), s.last...)
}

// Frames returns how many frames were shown.
func (s *MemorySink) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Close is a no-op.
func (s *MemorySink) Close() error {
	return nil
}
