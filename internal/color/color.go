// Package color implements the 8-bit color math used to drive addressable strips.
package color

import (
	"fmt"
	"strings"
)

// RGB is a pixel value.
type RGB struct {
	R, G, B uint8
}

// Black is the off pixel.
var Black = RGB{}

// HSVToRGB converts an 8-bit HSV triple. Hue 0..255 covers the whole wheel in
// six sectors of 43 steps.
func HSVToRGB(h, s, v uint8) RGB {
	if s == 0 {
		return RGB{v, v, v}
	}

	region := h / 43
	remainder := (int(h) - int(region)*43) * 6

	vi, si := int(v), int(s)
	p := uint8((vi * (255 - si)) >> 8)
	q := uint8((vi * (255 - ((si * remainder) >> 8))) >> 8)
	t := uint8((vi * (255 - ((si * (255 - remainder)) >> 8))) >> 8)

	switch region {
	case 0:
		return RGB{v, t, p}
	case 1:
		return RGB{q, v, p}
	case 2:
		return RGB{p, v, t}
	case 3:
		return RGB{p, q, v}
	case 4:
		return RGB{t, p, v}
	default:
		return RGB{v, p, q}
	}
}

// ShiftHue rotates a hue by delta steps, wrapping around the wheel.
func ShiftHue(h uint8, delta int) uint8 {
	return uint8((int(h) + delta%256 + 256) % 256)
}

// Blend moves from toward to by amount/255 of the distance. A non-zero
// amount always moves each differing channel by at least one step.
func Blend(from, to RGB, amount uint8) RGB {
	return RGB{
		R: blend8(from.R, to.R, amount),
		G: blend8(from.G, to.G, amount),
		B: blend8(from.B, to.B, amount),
	}
}

func blend8(a, b, amount uint8) uint8 {
	if a == b || amount == 0 {
		return a
	}
	if amount == 255 {
		return b
	}

	delta := int(b) - int(a)
	step := delta * int(amount) / 255
	if step == 0 {
		if delta > 0 {
			step = 1
		} else {
			step = -1
		}
	}
	return uint8(int(a) + step)
}

// Scale dims a pixel by brightness/256, keeping full brightness lossless.
func Scale(c RGB, brightness uint8) RGB {
	return RGB{
		R: scale8(c.R, brightness),
		G: scale8(c.G, brightness),
		B: scale8(c.B, brightness),
	}
}

func scale8(v, scale uint8) uint8 {
	return uint8((uint16(v) * (uint16(scale) + 1)) >> 8)
}

// Order is the byte order a strip chip expects on the wire.
type Order [3]uint8

// Known wire orders. Each entry lists which RGB channel goes first, second, third.
var (
	OrderRGB = Order{0, 1, 2}
	OrderRBG = Order{0, 2, 1}
	OrderGRB = Order{1, 0, 2}
	OrderGBR = Order{1, 2, 0}
	OrderBRG = Order{2, 0, 1}
	OrderBGR = Order{2, 1, 0}
)

var orders = map[string]Order{
	"RGB": OrderRGB,
	"RBG": OrderRBG,
	"GRB": OrderGRB,
	"GBR": OrderGBR,
	"BRG": OrderBRG,
	"BGR": OrderBGR,
}

// ParseOrder parses a color order name such as "GRB".
func ParseOrder(name string) (Order, error) {
	o, ok := orders[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Order{}, fmt.Errorf("unknown color order %q", name)
	}
	return o, nil
}

// String returns the order name.
func (o Order) String() string {
	const names = "RGB"
	return string([]byte{names[o[0]], names[o[1]], names[o[2]]})
}

// Put writes c into dst[0:3] in wire order.
func (o Order) Put(dst []byte, c RGB) {
	ch := [3]uint8{c.R, c.G, c.B}
	dst[0] = ch[o[0]]
	dst[1] = ch[o[1]]
	dst[2] = ch[o[2]]
}
