package preset

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/smartlightd/internal/color"
)

var testTiming = Timing{CycleTime: 200 * time.Millisecond, HueRate: 2}

func newFrame(n int, elapsed time.Duration) *Frame {
	return &Frame{
		Elapsed: elapsed,
		Hue:     128,
		Sat:     255,
		Val:     127,
		SetSize: 4,
		Pixels:  make([]color.RGB, n),
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(testTiming)

	assert.Equal(t, []string{"ColorCycle", "Custom", "Rainbow"}, r.Names())
	assert.True(t, r.Has("Custom"))

	_, err := r.Get("Disco")
	assert.True(t, errors.Is(err, ErrUnknownPreset))
}

func TestCustom(t *testing.T) {
	f := newFrame(5, time.Hour)
	Custom{}.Render(f)

	want := color.HSVToRGB(128, 255, 127)
	for i, p := range f.Pixels {
		assert.Equal(t, want, p, "pixel %d", i)
	}
}

func TestColorCycle(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		hue     uint8
	}{
		{0, 128},
		{199 * time.Millisecond, 128},
		{200 * time.Millisecond, 130},
		{time.Second, 138},
		{128 * 200 * time.Millisecond, 128}, // full wheel
	}

	for _, tt := range tests {
		f := newFrame(3, tt.elapsed)
		ColorCycle{Timing: testTiming}.Render(f)
		assert.Equal(t, color.HSVToRGB(tt.hue, 255, 127), f.Pixels[2], "elapsed %s", tt.elapsed)
	}
}

func TestRainbow_RepeatsPerSet(t *testing.T) {
	f := newFrame(8, 0)
	Rainbow{Timing: testTiming}.Render(f)

	for i := 0; i < 4; i++ {
		assert.Equal(t, f.Pixels[i], f.Pixels[i+4], "pixel %d", i)
	}
	assert.Equal(t, color.HSVToRGB(128, 255, 127), f.Pixels[0])
	assert.Equal(t, color.HSVToRGB(192, 255, 127), f.Pixels[1])
	assert.NotEqual(t, f.Pixels[0], f.Pixels[2])
}

func TestRegistry_ReplaceBuiltin(t *testing.T) {
	r := NewRegistry(testTiming)
	r.Register(stub{name: NameCustom})

	p, err := r.Get(NameCustom)
	require.NoError(t, err)
	_, ok := p.(stub)
	assert.True(t, ok)
}

type stub struct{ name string }

func (s stub) Name() string  { return s.name }
func (s stub) Render(*Frame) {}
