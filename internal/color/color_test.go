package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHSVToRGB(t *testing.T) {
	tests := []struct {
		name    string
		h, s, v uint8
		want    RGB
	}{
		{"red", 0, 255, 255, RGB{255, 0, 0}},
		{"gray when unsaturated", 77, 0, 200, RGB{200, 200, 200}},
		{"black", 128, 255, 0, RGB{0, 0, 0}},
		{"green sector", 86, 255, 255, RGB{0, 255, 0}},
		{"blue sector", 172, 255, 255, RGB{0, 0, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HSVToRGB(tt.h, tt.s, tt.v)
			if got != tt.want {
				t.Errorf("HSVToRGB(%d, %d, %d) = %+v, want %+v", tt.h, tt.s, tt.v, got, tt.want)
			}
		})
	}
}

func TestHSVToRGB_ValueBoundsChannels(t *testing.T) {
	for h := 0; h < 256; h++ {
		c := HSVToRGB(uint8(h), 255, 127)
		for _, ch := range []uint8{c.R, c.G, c.B} {
			if ch > 127 {
				t.Fatalf("hue %d: channel %d exceeds value 127", h, ch)
			}
		}
	}
}

func TestShiftHue(t *testing.T) {
	assert.Equal(t, uint8(169), ShiftHue(128, 41))
	assert.Equal(t, uint8(9), ShiftHue(224, 41))
	assert.Equal(t, uint8(250), ShiftHue(3, -9))
	assert.Equal(t, uint8(3), ShiftHue(3, 512))
}

func TestBlend_Converges(t *testing.T) {
	from := RGB{0, 255, 10}
	to := RGB{200, 3, 10}

	c := from
	steps := 0
	for c != to {
		next := Blend(c, to, 5)
		require.NotEqual(t, c, next, "blend stalled at %+v", c)
		c = next
		steps++
		require.Less(t, steps, 1000)
	}
	assert.Equal(t, to, c)
}

func TestBlend_Edges(t *testing.T) {
	a := RGB{10, 20, 30}
	b := RGB{40, 50, 60}

	assert.Equal(t, a, Blend(a, b, 0))
	assert.Equal(t, b, Blend(a, b, 255))
	assert.Equal(t, b, Blend(b, b, 100))
	assert.Equal(t, RGB{11, 21, 31}, Blend(a, b, 5))
}

func TestScale(t *testing.T) {
	c := RGB{255, 128, 1}
	assert.Equal(t, c, Scale(c, 255))
	assert.Equal(t, Black, Scale(c, 0))
	assert.Equal(t, RGB{127, 64, 0}, Scale(c, 127))
}

func TestOrder(t *testing.T) {
	o, err := ParseOrder("grb")
	require.NoError(t, err)
	assert.Equal(t, OrderGRB, o)
	assert.Equal(t, "GRB", o.String())

	buf := make([]byte, 3)
	o.Put(buf, RGB{1, 2, 3})
	assert.Equal(t, []byte{2, 1, 3}, buf)

	OrderBGR.Put(buf, RGB{1, 2, 3})
	assert.Equal(t, []byte{3, 2, 1}, buf)

	_, err = ParseOrder("RGBW")
	assert.Error(t, err)
}

func TestLimitBrightness(t *testing.T) {
	white := make([]RGB, 192)
	for i := range white {
		white[i] = RGB{255, 255, 255}
	}
	budget := PowerBudget{Volts: 5, MaxMilliamps: 1500}

	got := LimitBrightness(white, 255, budget)
	assert.Less(t, got, uint8(255))
	assert.LessOrEqual(t, EstimateMilliamps(white, got), 1500)
	assert.Greater(t, EstimateMilliamps(white, got+1), 1500)
}

func TestLimitBrightness_WithinBudget(t *testing.T) {
	dim := make([]RGB, 10)
	for i := range dim {
		dim[i] = RGB{10, 0, 0}
	}

	assert.Equal(t, uint8(200), LimitBrightness(dim, 200, PowerBudget{Volts: 5, MaxMilliamps: 1500}))
	assert.Equal(t, uint8(200), LimitBrightness(dim, 200, PowerBudget{}))
}

func TestLimitBrightness_IdleExceedsBudget(t *testing.T) {
	pixels := make([]RGB, 100)
	for i := range pixels {
		pixels[i] = RGB{255, 0, 0}
	}
	assert.Equal(t, uint8(0), LimitBrightness(pixels, 255, PowerBudget{Volts: 5, MaxMilliamps: 50}))
}

func TestLimitBrightness_LargestFitting(t *testing.T) {
	tests := []struct {
		name   string
		pixels []RGB
		budget PowerBudget
	}{
		{"single red", []RGB{{R: 255}}, PowerBudget{Volts: 5, MaxMilliamps: 10}},
		{"mixed colors", []RGB{{R: 200, G: 30}, {G: 90, B: 255}, {R: 17, G: 17, B: 17}}, PowerBudget{Volts: 5, MaxMilliamps: 25}},
		{"teal strip", repeat(RGB{G: 180, B: 120}, 60), PowerBudget{Volts: 5, MaxMilliamps: 700}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := 0
			for b := 0; b <= 255; b++ {
				if EstimateMilliamps(tt.pixels, uint8(b)) <= tt.budget.MaxMilliamps {
					want = b
				}
			}
			assert.Equal(t, uint8(want), LimitBrightness(tt.pixels, 255, tt.budget))
		})
	}
}

func repeat(c RGB, n int) []RGB {
	out := make([]RGB, n)
	for i := range out {
		out[i] = c
	}
	return out
}
