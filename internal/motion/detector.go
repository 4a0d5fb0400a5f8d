package motion

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Status is the light state the detector decides on.
type Status struct {
	LightOn     bool
	Awareness   bool
	NightMotion bool
}

// StatusFunc reports the current light state.
type StatusFunc func() Status

// ApplyFunc carries out an action after the state moved to next.
type ApplyFunc func(next State, action Action)

// Timing configures the detector.
type Timing struct {
	AwarenessPeriod time.Duration
	NightTimeout    time.Duration
	Debounce        time.Duration // Minimum gap between accepted triggers
}

// Detector runs the motion state machine with its timers.
//
// The status and apply callbacks are invoked with the detector lock held;
// they must not call back into the detector.
type Detector struct {
	timing Timing
	status StatusFunc
	apply  ApplyFunc

	mu          sync.Mutex
	state       State
	timer       *time.Timer
	generation  uint64
	lastTrigger time.Time
	stopped     bool
}

// NewDetector creates a detector in the idle state.
func NewDetector(timing Timing, status StatusFunc, apply ApplyFunc) *Detector {
	return &Detector{
		timing: timing,
		status: status,
		apply:  apply,
	}
}

// Trigger feeds a motion signal. It returns false when the signal was
// dropped as a repetition of the previous one.
func (d *Detector) Trigger() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}

	now := time.Now()
	if !d.lastTrigger.IsZero() && now.Sub(d.lastTrigger) < d.timing.Debounce {
		return false
	}
	d.lastTrigger = now

	d.handle(EventMotion)
	return true
}

// Notify feeds a non-motion event (power or flag changes).
func (d *Detector) Notify(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.handle(event)
}

// State returns the current state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Reset returns to idle, undoing an active overlay through the apply
// callback so the light and the detector never disagree.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopTimer()
	d.lastTrigger = time.Time{}

	prev := d.state
	d.state = StateIdle
	switch prev {
	case StateAware:
		d.apply(StateIdle, ActionRestoreColor)
	case StateNight:
		d.apply(StateIdle, ActionNightOff)
	}
}

// Stop cancels timers; later events are ignored.
func (d *Detector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopTimer()
	d.stopped = true
}

// handle must be called with mu held.
func (d *Detector) handle(event Event) {
	st := d.status()
	prev := d.state
	next, action := DetermineAction(prev, Input{
		Event:       event,
		LightOn:     st.LightOn,
		Awareness:   st.Awareness,
		NightMotion: st.NightMotion,
	})
	d.state = next

	switch next {
	case StateIdle:
		d.stopTimer()
	case StateAware:
		if action == ActionShiftColor || action == ActionExtend {
			d.startTimer(d.timing.AwarenessPeriod)
		}
	case StateNight:
		if action == ActionNightOn || action == ActionExtend {
			d.startTimer(d.timing.NightTimeout)
		}
	}

	if action == ActionNone {
		return
	}

	log.Debug().
		Str("event", event.String()).
		Str("from", prev.String()).
		Str("to", next.String()).
		Str("action", action.String()).
		Msg("Motion transition")

	d.apply(next, action)
}

// startTimer must be called with mu held.
func (d *Detector) startTimer(after time.Duration) {
	d.stopTimer()
	gen := d.generation
	d.timer = time.AfterFunc(after, func() { d.expire(gen) })
}

// stopTimer must be called with mu held. Bumping the generation makes any
// already-fired callback a no-op.
func (d *Detector) stopTimer() {
	d.generation++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Detector) expire(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || gen != d.generation {
		return
	}
	d.timer = nil
	d.handle(EventTimeout)
}
