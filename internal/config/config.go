package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Device          DeviceConfig      `yaml:"device"`
	Light           LightConfig       `yaml:"light"`
	Strip           StripConfig       `yaml:"strip"`
	Output          OutputConfig      `yaml:"output"`
	Motion          MotionConfig      `yaml:"motion"`
	GPIO            GPIOConfig        `yaml:"gpio"`
	Database        DatabaseConfig    `yaml:"database"`
	Log             LogConfig         `yaml:"log"`
	Ledger          LedgerConfig      `yaml:"ledger"`
	API             APIConfig         `yaml:"api"`
	Healthcheck     HealthcheckConfig `yaml:"healthcheck"`
	EventBus        EventBusConfig    `yaml:"eventbus"`
	Script          string            `yaml:"script"`           // Optional Lua preset script
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// DeviceConfig contains device identity and storage settings
type DeviceConfig struct {
	Name                 string `yaml:"name"`
	Product              string `yaml:"product"`               // RGB lights product label
	ProvisioningPassword string `yaml:"provisioning_password"` // Proof of possession
	ResetPin             int    `yaml:"reset_pin"`
	FormatIfFailed       bool   `yaml:"format_if_failed"` // Rewrite settings file with defaults when unreadable
	SettingsFile         string `yaml:"settings_file"`
	MaxSettingsJSON      int    `yaml:"max_settings_json"` // Max encoded settings length in bytes
	WatchSettings        bool   `yaml:"watch_settings"`    // Reload the settings file when edited externally
}

// LightConfig contains LED electrical settings and color defaults
type LightConfig struct {
	Pin          int  `yaml:"pin"`
	SetSize      int  `yaml:"set_size"` // Pixels per LED set (pattern span)
	DefaultOn    bool `yaml:"default_on"`
	Brightness   int  `yaml:"brightness"`
	Saturation   int  `yaml:"saturation"`
	Hue          int  `yaml:"hue"`
	Volts        int  `yaml:"volts"`
	MaxMilliamps int  `yaml:"max_milliamps"`
}

// StripConfig contains addressable strip hardware and animation settings
type StripConfig struct {
	Type                 string   `yaml:"type"`
	NumLEDs              int      `yaml:"num_leds"`
	ColorOrder           string   `yaml:"color_order"`
	TransitionDelay      Duration `yaml:"transition_delay"`
	DefaultPreset        string   `yaml:"default_preset"`
	ColorCycleTime       Duration `yaml:"color_cycle_time"`
	CycleHueRate         int      `yaml:"cycle_hue_rate"`
	BlendRate            int      `yaml:"blend_rate"`
	SignalRepetitionTime Duration `yaml:"signal_repetition_time"`
}

// OutputConfig selects where rendered frames go
type OutputConfig struct {
	Sink    string   `yaml:"sink"`    // "memory" or "udp"
	Address string   `yaml:"address"` // host:port for the udp sink
	Timeout int      `yaml:"timeout"` // Seconds the receiver keeps realtime mode after the last packet
	MaxFPS  float64  `yaml:"max_fps"`
	Refresh Duration `yaml:"refresh"` // Resend interval for unchanged frames
}

// MotionConfig contains motion detector settings
type MotionConfig struct {
	Pin                int      `yaml:"pin"`
	DefaultAwareness   bool     `yaml:"default_awareness"`
	DefaultNightMotion bool     `yaml:"default_night_motion"`
	AwarenessPeriod    Duration `yaml:"awareness_period"`
	ColorShift         int      `yaml:"color_shift"`
	NightBrightness    int      `yaml:"night_brightness"`
	NightTimeout       Duration `yaml:"night_timeout"`
}

// GPIOConfig contains sysfs GPIO polling settings for the motion and reset pins
type GPIOConfig struct {
	Enabled      bool     `yaml:"enabled"`
	SysfsRoot    string   `yaml:"sysfs_root"`
	PollInterval Duration `yaml:"poll_interval"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"json"`
}

// LedgerConfig contains event ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// APIConfig contains HTTP API server settings
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// Retention returns the ledger retention period
func (c *LedgerConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file.
// Values absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.fillZeroes()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillZeroes restores defaults for numeric values explicitly set to zero
// where zero has no meaning.
func (c *Config) fillZeroes() {
	def := Default()

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.Device.SettingsFile == "" {
		c.Device.SettingsFile = def.Device.SettingsFile
	}
	if c.Device.MaxSettingsJSON <= 0 {
		c.Device.MaxSettingsJSON = def.Device.MaxSettingsJSON
	}
	if c.Strip.TransitionDelay <= 0 {
		c.Strip.TransitionDelay = Duration(time.Millisecond)
	}
	if c.Strip.ColorCycleTime <= 0 {
		c.Strip.ColorCycleTime = def.Strip.ColorCycleTime
	}
	if c.Strip.DefaultPreset == "" {
		c.Strip.DefaultPreset = def.Strip.DefaultPreset
	}
	if c.Output.Sink == "" {
		c.Output.Sink = def.Output.Sink
	}
	if c.Output.MaxFPS <= 0 {
		c.Output.MaxFPS = def.Output.MaxFPS
	}
	if c.Output.Refresh <= 0 {
		c.Output.Refresh = def.Output.Refresh
	}
	if c.GPIO.PollInterval <= 0 {
		c.GPIO.PollInterval = def.GPIO.PollInterval
	}
	if c.Ledger.CleanupInterval == 0 {
		c.Ledger.CleanupInterval = def.Ledger.CleanupInterval
	}
	if c.Ledger.RetentionDays == 0 {
		c.Ledger.RetentionDays = def.Ledger.RetentionDays
	}
	if c.API.Port == 0 {
		c.API.Port = def.API.Port
	}
	if c.API.Host == "" {
		c.API.Host = def.API.Host
	}
	if c.Healthcheck.Port == 0 {
		c.Healthcheck.Port = def.Healthcheck.Port
	}
	if c.Healthcheck.Host == "" {
		c.Healthcheck.Host = def.Healthcheck.Host
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
}

// Validate checks value ranges that would otherwise surface as odd behavior at runtime.
func (c *Config) Validate() error {
	for name, v := range map[string]int{
		"light.brightness":        c.Light.Brightness,
		"light.saturation":        c.Light.Saturation,
		"light.hue":               c.Light.Hue,
		"strip.cycle_hue_rate":    c.Strip.CycleHueRate,
		"strip.blend_rate":        c.Strip.BlendRate,
		"motion.color_shift":      c.Motion.ColorShift,
		"motion.night_brightness": c.Motion.NightBrightness,
	} {
		if v < 0 || v > 255 {
			return fmt.Errorf("%s must be within 0..255, got %d", name, v)
		}
	}
	if c.Strip.NumLEDs <= 0 {
		return fmt.Errorf("strip.num_leds must be positive, got %d", c.Strip.NumLEDs)
	}
	if c.Light.SetSize <= 0 || c.Light.SetSize > c.Strip.NumLEDs {
		return fmt.Errorf("light.set_size must be within 1..%d, got %d", c.Strip.NumLEDs, c.Light.SetSize)
	}
	if c.Light.Volts < 0 || c.Light.MaxMilliamps < 0 {
		return fmt.Errorf("light power budget must not be negative")
	}
	switch c.Output.Sink {
	case "memory":
	case "udp":
		if c.Output.Address == "" {
			return fmt.Errorf("output.address is required for the udp sink")
		}
	default:
		return fmt.Errorf("unknown output.sink %q", c.Output.Sink)
	}
	return nil
}

// GetShutdownTimeout returns the shutdown timeout
func (c *Config) GetShutdownTimeout() time.Duration {
	return c.ShutdownTimeout.Duration()
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
