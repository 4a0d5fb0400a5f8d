// Package settings holds the user-adjustable light settings and their JSON form.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrTooLarge is returned when an encoded settings document exceeds the length limit.
var ErrTooLarge = errors.New("settings document too large")

// HSV is the stored color, each component on a 0..255 scale.
type HSV struct {
	Hue uint8 `json:"hue"`
	Sat uint8 `json:"sat"`
	Val uint8 `json:"val"`
}

// Motion holds the motion feature switches.
type Motion struct {
	Awareness   bool `json:"awareness"`
	NightMotion bool `json:"night_motion"`
}

// Settings is the persisted user state.
type Settings struct {
	HSV    HSV    `json:"hsv"`
	Preset string `json:"preset"`
	Motion Motion `json:"motion"`
}

// Defaults are the values used when nothing was persisted yet.
type Defaults struct {
	Hue         uint8
	Sat         uint8
	Val         uint8
	Preset      string
	Awareness   bool
	NightMotion bool

	// MaxLength bounds the encoded document; zero disables the check.
	MaxLength int
}

// Settings returns the default settings.
func (d Defaults) Settings() Settings {
	return Settings{
		HSV:    HSV{Hue: d.Hue, Sat: d.Sat, Val: d.Val},
		Preset: d.Preset,
		Motion: Motion{Awareness: d.Awareness, NightMotion: d.NightMotion},
	}
}

// AsDefaults turns s into defaults, so a partial document parsed against
// them only changes the fields it names.
func (s Settings) AsDefaults() Defaults {
	return Defaults{
		Hue:         s.HSV.Hue,
		Sat:         s.HSV.Sat,
		Val:         s.HSV.Val,
		Preset:      s.Preset,
		Awareness:   s.Motion.Awareness,
		NightMotion: s.Motion.NightMotion,
	}
}

const defaultTemplate = `{"hsv" : {"hue" :%d, "sat" :%d, "val" : %d}, "preset" : %s, "motion": { "awareness" : %t, "night_motion" : %t }}`

// DefaultJSON renders the default settings document.
// The preset name is JSON-escaped, so the output is valid JSON for any name.
func DefaultJSON(d Defaults) string {
	preset, _ := json.Marshal(d.Preset)
	return fmt.Sprintf(defaultTemplate, d.Hue, d.Sat, d.Val, preset, d.Awareness, d.NightMotion)
}

// Parse decodes a settings document. Fields missing from the document keep
// their default values.
func Parse(data []byte, d Defaults) (Settings, error) {
	s := d.Settings()

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Settings{}, fmt.Errorf("decode settings: unexpected data after document")
	}
	if s.Preset == "" {
		s.Preset = d.Preset
	}
	return s, nil
}

// Marshal encodes settings as compact JSON, enforcing maxLength when positive.
func Marshal(s Settings, maxLength int) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	if maxLength > 0 && len(data) > maxLength {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), maxLength)
	}
	return data, nil
}
