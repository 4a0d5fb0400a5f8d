// Package motion turns motion sensor triggers into light overlays.
package motion

// State is the detector state.
type State int

const (
	StateIdle State = iota
	StateAware
	StateNight
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAware:
		return "aware"
	case StateNight:
		return "night"
	default:
		return "unknown"
	}
}

// Event is an input to the state machine.
type Event int

const (
	EventMotion Event = iota
	EventTimeout
	EventPowerOn
	EventPowerOff
	EventFlagsChanged
)

// String returns a human-readable name for the event.
func (e Event) String() string {
	switch e {
	case EventMotion:
		return "motion"
	case EventTimeout:
		return "timeout"
	case EventPowerOn:
		return "power_on"
	case EventPowerOff:
		return "power_off"
	case EventFlagsChanged:
		return "flags_changed"
	default:
		return "unknown"
	}
}

// Action is what the detector asks the light to do.
type Action int

const (
	ActionNone Action = iota
	ActionShiftColor
	ActionRestoreColor
	ActionNightOn
	ActionNightOff
	ActionExtend
)

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionShiftColor:
		return "shift_color"
	case ActionRestoreColor:
		return "restore_color"
	case ActionNightOn:
		return "night_on"
	case ActionNightOff:
		return "night_off"
	case ActionExtend:
		return "extend"
	default:
		return "unknown"
	}
}

// Input is everything a transition depends on.
type Input struct {
	Event       Event
	LightOn     bool // User power state, ignoring any overlay
	Awareness   bool
	NightMotion bool
}

// DetermineAction returns the next state and the action to take.
func DetermineAction(state State, in Input) (State, Action) {
	switch state {
	case StateIdle:
		return fromIdle(in)
	case StateAware:
		return fromAware(in)
	case StateNight:
		return fromNight(in)
	}
	return StateIdle, ActionNone
}

func fromIdle(in Input) (State, Action) {
	if in.Event != EventMotion {
		return StateIdle, ActionNone
	}
	if in.LightOn && in.Awareness {
		return StateAware, ActionShiftColor
	}
	if !in.LightOn && in.NightMotion {
		return StateNight, ActionNightOn
	}
	return StateIdle, ActionNone
}

func fromAware(in Input) (State, Action) {
	switch in.Event {
	case EventMotion:
		return StateAware, ActionExtend
	case EventTimeout, EventPowerOff:
		return StateIdle, ActionRestoreColor
	case EventFlagsChanged:
		if !in.Awareness {
			return StateIdle, ActionRestoreColor
		}
	}
	return StateAware, ActionNone
}

func fromNight(in Input) (State, Action) {
	switch in.Event {
	case EventMotion:
		return StateNight, ActionExtend
	case EventTimeout, EventPowerOn:
		return StateIdle, ActionNightOff
	case EventFlagsChanged:
		if !in.NightMotion {
			return StateIdle, ActionNightOff
		}
	}
	return StateNight, ActionNone
}
