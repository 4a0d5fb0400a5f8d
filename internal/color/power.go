package color

// Per-channel draw of a typical WS2812 pixel at full intensity, in mA.
const (
	redMilliamps   = 16
	greenMilliamps = 11
	blueMilliamps  = 15
	idleMilliamps  = 1
)

// PowerBudget is the supply limit for a strip.
type PowerBudget struct {
	Volts        int
	MaxMilliamps int
}

// Enabled reports whether the budget limits anything.
func (b PowerBudget) Enabled() bool {
	return b.Volts > 0 && b.MaxMilliamps > 0
}

// EstimateMilliamps estimates the strip current for pixels shown at brightness.
func EstimateMilliamps(pixels []RGB, brightness uint8) int {
	active, idle := drawFull(pixels)
	return active*(int(brightness)+1)/256/255 + idle
}

// drawFull returns the active draw at full brightness in mA*255 and the idle draw in mA.
func drawFull(pixels []RGB) (active, idle int) {
	for _, p := range pixels {
		active += int(p.R)*redMilliamps + int(p.G)*greenMilliamps + int(p.B)*blueMilliamps
	}
	return active, len(pixels) * idleMilliamps
}

// LimitBrightness returns the largest brightness not above the requested one
// whose estimated draw fits the budget.
func LimitBrightness(pixels []RGB, brightness uint8, budget PowerBudget) uint8 {
	if !budget.Enabled() || brightness == 0 {
		return brightness
	}
	if EstimateMilliamps(pixels, brightness) <= budget.MaxMilliamps {
		return brightness
	}

	active, idle := drawFull(pixels)
	available := budget.MaxMilliamps - idle
	if available < 0 || active == 0 {
		return 0
	}

	// The estimate floors active*(b+1)/65280, so it stays within available
	// exactly while active*(b+1) < (available+1)*65280.
	b := ((available+1)*256*255-1)/active - 1
	if b < 0 {
		return 0
	}
	if b > int(brightness) {
		return brightness
	}
	return uint8(b)
}
