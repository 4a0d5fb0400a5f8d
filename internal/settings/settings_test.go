package settings

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefaults() Defaults {
	return Defaults{
		Hue:       128,
		Sat:       255,
		Val:       127,
		Preset:    "Custom",
		MaxLength: 256,
	}
}

func TestDefaultJSON_MatchesLiteral(t *testing.T) {
	want := `{"hsv" : {"hue" :128, "sat" :255, "val" : 127}, "preset" : "Custom", "motion": { "awareness" : false, "night_motion" : false }}`
	assert.Equal(t, want, DefaultJSON(testDefaults()))
}

func TestDefaultJSON_Parses(t *testing.T) {
	var doc struct {
		HSV struct {
			Hue int `json:"hue"`
			Sat int `json:"sat"`
			Val int `json:"val"`
		} `json:"hsv"`
		Preset string `json:"preset"`
		Motion struct {
			Awareness   bool `json:"awareness"`
			NightMotion bool `json:"night_motion"`
		} `json:"motion"`
	}
	require.NoError(t, json.Unmarshal([]byte(DefaultJSON(testDefaults())), &doc))

	assert.Equal(t, 128, doc.HSV.Hue)
	assert.Equal(t, 255, doc.HSV.Sat)
	assert.Equal(t, 127, doc.HSV.Val)
	assert.Equal(t, "Custom", doc.Preset)
	assert.False(t, doc.Motion.Awareness)
	assert.False(t, doc.Motion.NightMotion)
}

func TestDefaultJSON_EscapesPreset(t *testing.T) {
	d := testDefaults()
	d.Preset = `Quote "me" \ please`
	d.Awareness = true

	out := DefaultJSON(d)
	require.True(t, json.Valid([]byte(out)), out)

	s, err := Parse([]byte(out), testDefaults())
	require.NoError(t, err)
	assert.Equal(t, d.Preset, s.Preset)
	assert.True(t, s.Motion.Awareness)
}

func TestParse(t *testing.T) {
	d := testDefaults()

	tests := []struct {
		name    string
		input   string
		want    Settings
		wantErr bool
	}{
		{
			name:  "default document",
			input: DefaultJSON(d),
			want:  d.Settings(),
		},
		{
			name:  "partial hsv keeps defaults",
			input: `{"hsv":{"hue":5}}`,
			want: Settings{
				HSV:    HSV{Hue: 5, Sat: 255, Val: 127},
				Preset: "Custom",
			},
		},
		{
			name:  "full document",
			input: `{"hsv":{"hue":1,"sat":2,"val":3},"preset":"Rainbow","motion":{"awareness":true,"night_motion":true}}`,
			want: Settings{
				HSV:    HSV{Hue: 1, Sat: 2, Val: 3},
				Preset: "Rainbow",
				Motion: Motion{Awareness: true, NightMotion: true},
			},
		},
		{
			name:  "empty preset falls back",
			input: `{"preset":""}`,
			want:  d.Settings(),
		},
		{name: "empty", input: "", wantErr: true},
		{name: "truncated", input: `{"hsv":{"hue":5}`, wantErr: true},
		{name: "hue overflow", input: `{"hsv":{"hue":256}}`, wantErr: true},
		{name: "negative sat", input: `{"hsv":{"sat":-1}}`, wantErr: true},
		{name: "trailing data", input: `{} {}`, wantErr: true},
		{name: "wrong type", input: `{"motion":{"awareness":"yes"}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input), d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarshal_Limit(t *testing.T) {
	s := testDefaults().Settings()

	data, err := Marshal(s, 256)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(data), 256)

	s.Preset = strings.Repeat("x", 300)
	_, err = Marshal(s, 256)
	assert.True(t, errors.Is(err, ErrTooLarge))

	_, err = Marshal(s, 0)
	assert.NoError(t, err)
}

func TestFileStore_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "user_settings.txt")
	store := NewFileStore(path, true, testDefaults())

	s, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, testDefaults().Settings(), s)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultJSON(testDefaults()), string(data))
}

func TestFileStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_settings.txt")
	store := NewFileStore(path, true, testDefaults())

	want := Settings{
		HSV:    HSV{Hue: 10, Sat: 20, Val: 30},
		Preset: "ColorCycle",
		Motion: Motion{NightMotion: true},
	}
	require.NoError(t, store.Save(want))

	got, err := NewFileStore(path, false, testDefaults()).Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStore_Corrupt(t *testing.T) {
	t.Run("format restores defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "user_settings.txt")
		require.NoError(t, os.WriteFile(path, []byte("{garbage"), 0o644))

		s, err := NewFileStore(path, true, testDefaults()).Load()
		require.NoError(t, err)
		assert.Equal(t, testDefaults().Settings(), s)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, json.Valid(data))
	})

	t.Run("no format fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "user_settings.txt")
		require.NoError(t, os.WriteFile(path, []byte("{garbage"), 0o644))

		_, err := NewFileStore(path, false, testDefaults()).Load()
		assert.Error(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "{garbage", string(data))
	})
}

func TestFileStore_Reset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_settings.txt")
	store := NewFileStore(path, true, testDefaults())

	require.NoError(t, store.Save(Settings{HSV: HSV{Hue: 1}, Preset: "Rainbow"}))

	s, err := store.Reset()
	require.NoError(t, err)
	assert.Equal(t, testDefaults().Settings(), s)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, testDefaults().Settings(), loaded)
}

func TestFileStore_SaveRejectsTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_settings.txt")
	store := NewFileStore(path, true, testDefaults())

	err := store.Save(Settings{Preset: strings.Repeat("p", 512)})
	assert.ErrorIs(t, err, ErrTooLarge)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestParse_AgainstCurrentSettings(t *testing.T) {
	cur := Settings{
		HSV:    HSV{Hue: 10, Sat: 20, Val: 30},
		Preset: "Rainbow",
		Motion: Motion{Awareness: true},
	}

	got, err := Parse([]byte(`{"motion":{"night_motion":true}}`), cur.AsDefaults())
	require.NoError(t, err)

	assert.Equal(t, cur.HSV, got.HSV)
	assert.Equal(t, "Rainbow", got.Preset)
	assert.Equal(t, Motion{Awareness: true, NightMotion: true}, got.Motion)
}
