// Package device owns the light's user-facing state: settings, power and the
// motion overlay, and computes what the strip should show.
package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartlightd/internal/color"
	"github.com/dokzlo13/smartlightd/internal/eventbus"
	"github.com/dokzlo13/smartlightd/internal/motion"
	"github.com/dokzlo13/smartlightd/internal/preset"
	"github.com/dokzlo13/smartlightd/internal/settings"
	"github.com/dokzlo13/smartlightd/internal/storage"
)

const (
	stateKind = "device"
	powerID   = "power"
)

// ErrInvalidSettings wraps every rejected settings update.
var ErrInvalidSettings = errors.New("invalid settings")

// Options configures a Controller.
type Options struct {
	Name            string
	Product         string
	DefaultOn       bool
	ColorShift      int
	NightBrightness uint8
	Motion          motion.Timing
}

// PowerState is the persisted power switch.
type PowerState struct {
	On bool `json:"on"`
}

// Target is what the renderer should show right now.
type Target struct {
	On      bool
	HSV     settings.HSV
	Preset  string
	Overlay motion.State
}

// Info summarizes the device for the API.
type Info struct {
	Name     string            `json:"name"`
	Product  string            `json:"product"`
	Power    bool              `json:"power"`
	Motion   string            `json:"motion_state"`
	Settings settings.Settings `json:"settings"`
	Presets  []string          `json:"presets"`
}

// Controller serializes every state change, persists it and publishes it.
//
// The motion detector calls back into the controller with its own lock held,
// so the controller never calls the detector while holding mu.
type Controller struct {
	opts     Options
	store    *settings.FileStore
	power    *storage.TypedStore[PowerState]
	presets  *preset.Registry
	bus      *eventbus.Bus
	detector *motion.Detector

	writeMu sync.Mutex // Serializes updates end to end

	mu       sync.RWMutex
	settings settings.Settings
	on       bool
	overlay  motion.State
}

// New loads persisted state and creates the controller.
func New(opts Options, store *settings.FileStore, states *storage.Store, presets *preset.Registry, bus *eventbus.Bus) (*Controller, error) {
	s, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if !presets.Has(s.Preset) {
		fallback := store.Defaults().Preset
		log.Warn().Str("preset", s.Preset).Str("fallback", fallback).Msg("Stored preset is not available")
		s.Preset = fallback
	}

	power := storage.NewTypedStore[PowerState](states, stateKind)
	ps, _, err := power.GetOr(powerID, PowerState{On: opts.DefaultOn})
	if err != nil {
		return nil, fmt.Errorf("failed to load power state: %w", err)
	}

	c := &Controller{
		opts:     opts,
		store:    store,
		power:    power,
		presets:  presets,
		bus:      bus,
		settings: s,
		on:       ps.On,
	}
	c.detector = motion.NewDetector(opts.Motion, c.motionStatus, c.applyMotion)

	log.Info().
		Bool("on", c.on).
		Str("preset", s.Preset).
		Uint8("hue", s.HSV.Hue).
		Uint8("sat", s.HSV.Sat).
		Uint8("val", s.HSV.Val).
		Msg("Device state loaded")

	return c, nil
}

// Settings returns the current settings.
func (c *Controller) Settings() settings.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// DefaultSettings returns the factory settings.
func (c *Controller) DefaultSettings() settings.Settings {
	return c.store.Defaults().Settings()
}

// DefaultJSON returns the factory settings document.
func (c *Controller) DefaultJSON() string {
	return settings.DefaultJSON(c.store.Defaults())
}

// ReplaceJSON stores a settings document; fields it leaves out take their
// factory values.
func (c *Controller) ReplaceJSON(data []byte, source string) (settings.Settings, error) {
	s, err := settings.Parse(data, c.store.Defaults())
	if err != nil {
		return c.Settings(), fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return c.Replace(s, source)
}

// Replace stores a complete settings document.
func (c *Controller) Replace(s settings.Settings, source string) (settings.Settings, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.replaceLocked(s, source)
}

// Patch applies a partial JSON document on top of the current settings.
func (c *Controller) Patch(data []byte, source string) (settings.Settings, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	cur := c.Settings()
	next, err := settings.Parse(data, cur.AsDefaults())
	if err != nil {
		return cur, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return c.replaceLocked(next, source)
}

// replaceLocked must be called with writeMu held.
func (c *Controller) replaceLocked(s settings.Settings, source string) (settings.Settings, error) {
	prev := c.Settings()

	if s.Preset == "" {
		s.Preset = c.store.Defaults().Preset
	}
	if !c.presets.Has(s.Preset) {
		return prev, fmt.Errorf("%w: %w: %q", ErrInvalidSettings, preset.ErrUnknownPreset, s.Preset)
	}
	if err := c.store.Save(s); err != nil {
		if errors.Is(err, settings.ErrTooLarge) {
			return prev, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
		return prev, fmt.Errorf("failed to save settings: %w", err)
	}

	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()

	log.Info().
		Str("source", source).
		Str("preset", s.Preset).
		Uint8("hue", s.HSV.Hue).
		Uint8("sat", s.HSV.Sat).
		Uint8("val", s.HSV.Val).
		Bool("awareness", s.Motion.Awareness).
		Bool("night_motion", s.Motion.NightMotion).
		Msg("Settings changed")

	c.publish(eventbus.EventTypeSettingsChanged, source, settingsData(s))

	if prev.Motion != s.Motion {
		c.detector.Notify(motion.EventFlagsChanged)
	}
	return s, nil
}

// Reload picks up a settings file edited outside the daemon. It reports
// whether anything changed; an unreadable file leaves the state untouched.
func (c *Controller) Reload(source string) (bool, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	s, err := c.store.Read()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if s == c.Settings() {
		return false, nil
	}
	if _, err := c.replaceLocked(s, source); err != nil {
		return false, err
	}
	return true, nil
}

// Power reports the user power state, ignoring the night overlay.
func (c *Controller) Power() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.on
}

// SetPower switches the light and persists the choice.
func (c *Controller) SetPower(on bool, source string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.power.Set(powerID, PowerState{On: on}); err != nil {
		return fmt.Errorf("failed to store power state: %w", err)
	}

	c.mu.Lock()
	changed := c.on != on
	c.on = on
	c.mu.Unlock()

	if !changed {
		return nil
	}

	log.Info().Str("source", source).Bool("on", on).Msg("Power changed")
	c.publish(eventbus.EventTypePowerChanged, source, map[string]interface{}{"on": on})

	if on {
		c.detector.Notify(motion.EventPowerOn)
	} else {
		c.detector.Notify(motion.EventPowerOff)
	}
	return nil
}

// Motion feeds a motion trigger. It returns false when the trigger was
// dropped as a repetition.
func (c *Controller) Motion(source string) bool {
	if !c.detector.Trigger() {
		log.Debug().Str("source", source).Msg("Motion trigger ignored")
		return false
	}
	c.publish(eventbus.EventTypeMotion, source, map[string]interface{}{
		"state": c.detector.State().String(),
	})
	return true
}

// MotionState returns the motion detector state.
func (c *Controller) MotionState() motion.State {
	return c.detector.State()
}

// FactoryReset restores default settings and power.
func (c *Controller) FactoryReset(source string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.detector.Reset()

	s, err := resetStorage(c.store, c.power)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.settings = s
	c.on = c.opts.DefaultOn
	c.mu.Unlock()

	log.Warn().Str("source", source).Msg("Factory reset")
	c.publish(eventbus.EventTypeReset, source, settingsData(s))
	return nil
}

// ResetStorage rewrites the settings file with defaults and drops the stored
// power state, for use while no controller is running.
func ResetStorage(store *settings.FileStore, states *storage.Store) (settings.Settings, error) {
	return resetStorage(store, storage.NewTypedStore[PowerState](states, stateKind))
}

func resetStorage(store *settings.FileStore, power *storage.TypedStore[PowerState]) (settings.Settings, error) {
	s, err := store.Reset()
	if err != nil {
		return settings.Settings{}, fmt.Errorf("failed to reset settings: %w", err)
	}
	if err := power.Delete(powerID); err != nil {
		return settings.Settings{}, fmt.Errorf("failed to reset power state: %w", err)
	}
	return s, nil
}

// Target returns what the strip should show, overlays applied.
func (c *Controller) Target() Target {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t := Target{
		On:      c.on,
		HSV:     c.settings.HSV,
		Preset:  c.settings.Preset,
		Overlay: c.overlay,
	}

	switch c.overlay {
	case motion.StateNight:
		t.On = true
		t.HSV.Val = c.opts.NightBrightness
		t.Preset = preset.NameCustom
	case motion.StateAware:
		t.HSV.Hue = color.ShiftHue(t.HSV.Hue, c.opts.ColorShift)
	}
	return t
}

// Info summarizes the device.
func (c *Controller) Info() Info {
	c.mu.RLock()
	info := Info{
		Name:     c.opts.Name,
		Product:  c.opts.Product,
		Power:    c.on,
		Settings: c.settings,
	}
	c.mu.RUnlock()

	info.Motion = c.detector.State().String()
	info.Presets = c.presets.Names()
	return info
}

// Close stops the motion timers.
func (c *Controller) Close() {
	c.detector.Stop()
}

// motionStatus runs under the detector lock.
func (c *Controller) motionStatus() motion.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return motion.Status{
		LightOn:     c.on,
		Awareness:   c.settings.Motion.Awareness,
		NightMotion: c.settings.Motion.NightMotion,
	}
}

// applyMotion runs under the detector lock.
func (c *Controller) applyMotion(next motion.State, action motion.Action) {
	c.mu.Lock()
	c.overlay = next
	c.mu.Unlock()

	log.Debug().Str("overlay", next.String()).Str("action", action.String()).Msg("Motion overlay changed")
}

func (c *Controller) publish(t eventbus.EventType, source string, data map[string]interface{}) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(eventbus.NewEvent(t, source, data))
}

func settingsData(s settings.Settings) map[string]interface{} {
	return map[string]interface{}{
		"hue":          s.HSV.Hue,
		"sat":          s.HSV.Sat,
		"val":          s.HSV.Val,
		"preset":       s.Preset,
		"awareness":    s.Motion.Awareness,
		"night_motion": s.Motion.NightMotion,
	}
}
