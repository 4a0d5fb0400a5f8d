package config

import "time"

// Device identity
const (
	DefaultDeviceName           = "ESP_RAINMAKER"
	DefaultProduct              = "Nanoleaf"
	DefaultProvisioningPassword = "1234567"
	DefaultResetPin             = 4
	DefaultFormatIfFailed       = true
	DefaultSettingsFile         = "/user_settings.txt"
)

// Light values
const (
	DefaultLEDPin       = 26
	DefaultLEDSetSize   = 64
	DefaultLightOn      = true
	DefaultBrightness   = 127
	DefaultSaturation   = 255
	DefaultHue          = 128
	DefaultVolts        = 5
	DefaultMaxMilliamps = 1500
)

// Strip
const (
	DefaultStripType            = "WS2812"
	DefaultNumLEDs              = 192
	DefaultColorOrder           = "GRB"
	DefaultTransitionDelay      = 1 * time.Millisecond
	DefaultColorPreset          = "Custom"
	DefaultColorCycleTime       = 200 * time.Millisecond
	DefaultCycleHueRate         = 2
	DefaultBlendRate            = 5
	DefaultSignalRepetitionTime = 50000 * time.Microsecond
)

// Motion detector
const (
	DefaultMotionPin       = 27
	DefaultMotionAwareness = false
	DefaultNightMotion     = false
	DefaultAwarenessPeriod = 4000 * time.Millisecond
	DefaultColorShift      = 41
	DefaultNightBrightness = 100
	DefaultNightTimeout    = 10000 * time.Millisecond
)

// DefaultMaxSettingsJSON bounds the encoded settings document.
const DefaultMaxSettingsJSON = 256

// Default returns the configuration used when the file leaves a value out.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Name:                 DefaultDeviceName,
			Product:              DefaultProduct,
			ProvisioningPassword: DefaultProvisioningPassword,
			ResetPin:             DefaultResetPin,
			FormatIfFailed:       DefaultFormatIfFailed,
			SettingsFile:         DefaultSettingsFile,
			MaxSettingsJSON:      DefaultMaxSettingsJSON,
			WatchSettings:        true,
		},
		Light: LightConfig{
			Pin:          DefaultLEDPin,
			SetSize:      DefaultLEDSetSize,
			DefaultOn:    DefaultLightOn,
			Brightness:   DefaultBrightness,
			Saturation:   DefaultSaturation,
			Hue:          DefaultHue,
			Volts:        DefaultVolts,
			MaxMilliamps: DefaultMaxMilliamps,
		},
		Strip: StripConfig{
			Type:                 DefaultStripType,
			NumLEDs:              DefaultNumLEDs,
			ColorOrder:           DefaultColorOrder,
			TransitionDelay:      Duration(DefaultTransitionDelay),
			DefaultPreset:        DefaultColorPreset,
			ColorCycleTime:       Duration(DefaultColorCycleTime),
			CycleHueRate:         DefaultCycleHueRate,
			BlendRate:            DefaultBlendRate,
			SignalRepetitionTime: Duration(DefaultSignalRepetitionTime),
		},
		Output: OutputConfig{
			Sink:    "memory",
			Timeout: 2,
			MaxFPS:  60,
			Refresh: Duration(time.Second),
		},
		Motion: MotionConfig{
			Pin:                DefaultMotionPin,
			DefaultAwareness:   DefaultMotionAwareness,
			DefaultNightMotion: DefaultNightMotion,
			AwarenessPeriod:    Duration(DefaultAwarenessPeriod),
			ColorShift:         DefaultColorShift,
			NightBrightness:    DefaultNightBrightness,
			NightTimeout:       Duration(DefaultNightTimeout),
		},
		GPIO: GPIOConfig{
			SysfsRoot:    "/sys/class/gpio",
			PollInterval: Duration(20 * time.Millisecond),
		},
		Database: DatabaseConfig{
			Path: "./smartlightd.sqlite",
		},
		Log: LogConfig{
			Level: "info",
		},
		Ledger: LedgerConfig{
			CleanupInterval: Duration(24 * time.Hour),
			RetentionDays:   30,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
		},
		Healthcheck: HealthcheckConfig{
			Host: "0.0.0.0",
			Port: 9090,
		},
		ShutdownTimeout: Duration(5 * time.Second),
	}
}
