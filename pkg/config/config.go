package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/itohio/capsense/pkg/fdc1004"
	"github.com/itohio/capsense/pkg/report"
	"github.com/itohio/capsense/pkg/tick"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate error.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration.
type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Device  DeviceConfig  `yaml:"device"`
	Sampler SamplerConfig `yaml:"sampler"`
	Trace   TraceConfig   `yaml:"trace"`
	Mock    MockConfig    `yaml:"mock"`
	Log     LogConfig     `yaml:"log"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// DeviceConfig contains FDC1004 configuration.
type DeviceConfig struct {
	Address    uint16          `yaml:"address"`
	Rate       int             `yaml:"rate"`        // samples per second: 100, 200 or 400
	Extended   bool            `yaml:"extended"`    // 24-bit reads (MSB+LSB)
	CheckReady bool            `yaml:"check_ready"` // skip channels whose conversion is not done
	Channels   []ChannelConfig `yaml:"channels"`
}

// ChannelConfig contains per-channel conversion parameters.
type ChannelConfig struct {
	CAPDAC uint8   `yaml:"capdac"` // 3.125 pF steps, 0..31
	Scale  float32 `yaml:"scale"`  // gain correction
	Trim   float32 `yaml:"trim"`   // offset correction in pF
}

// SamplerConfig contains acquisition loop parameters.
type SamplerConfig struct {
	Period        time.Duration `yaml:"period"`         // tick period
	I2CBus        string        `yaml:"i2c_bus"`        // periph bus name, empty for the first bus
	I2CHz         int           `yaml:"i2c_hz"`         // bus clock, used for the timing budget
	StatsInterval time.Duration `yaml:"stats_interval"` // 0 disables periodic stats logging
}

// TraceConfig contains host-side display parameters.
type TraceConfig struct {
	WindowFrames      int `yaml:"window_frames"`      // frames kept for plotting
	CalibrationFrames int `yaml:"calibration_frames"` // frames averaged into the baseline
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	Baseline    float32       `yaml:"baseline"`     // pF
	Amplitude   float32       `yaml:"amplitude"`    // pF
	Period      time.Duration `yaml:"period"`       // waveform period
	NoiseLevel  float32       `yaml:"noise_level"`  // pF
	FailChannel int           `yaml:"fail_channel"` // channel whose bus reads fail, -1 for none
	SampleRate  time.Duration `yaml:"sample_rate"`  // report period
}

// LogConfig contains log file configuration. An empty File logs to stderr.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	channels := make([]ChannelConfig, fdc1004.NumChannels)
	for i := range channels {
		channels[i] = ChannelConfig{Scale: 1}
	}

	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 9600,
		},
		Device: DeviceConfig{
			Address:    fdc1004.Address,
			Rate:       100,
			CheckReady: true,
			Channels:   channels,
		},
		Sampler: SamplerConfig{
			Period:        100 * time.Millisecond,
			I2CHz:         100_000,
			StatsInterval: 10 * time.Second,
		},
		Trace: TraceConfig{
			WindowFrames:      50,
			CalibrationFrames: 50,
		},
		Mock: MockConfig{
			Baseline:    5.0,
			Amplitude:   1.5,
			Period:      4 * time.Second,
			NoiseLevel:  0.02,
			FailChannel: -1,
			SampleRate:  100 * time.Millisecond,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Device.Address == 0 {
		c.Device.Address = def.Device.Address
	}
	if c.Device.Rate == 0 {
		c.Device.Rate = def.Device.Rate
	}
	if len(c.Device.Channels) == 0 {
		c.Device.Channels = def.Device.Channels
	}
	for i := range c.Device.Channels {
		if c.Device.Channels[i].Scale == 0 {
			c.Device.Channels[i].Scale = 1
		}
	}

	if c.Sampler.Period == 0 {
		c.Sampler.Period = def.Sampler.Period
	}
	if c.Sampler.I2CHz == 0 {
		c.Sampler.I2CHz = def.Sampler.I2CHz
	}

	if c.Trace.WindowFrames == 0 {
		c.Trace.WindowFrames = def.Trace.WindowFrames
	}
	if c.Trace.CalibrationFrames == 0 {
		c.Trace.CalibrationFrames = def.Trace.CalibrationFrames
	}

	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
}

// Validate checks the configuration for values the sampler cannot run with.
func (c *Config) Validate() error {
	if n := len(c.Device.Channels); n != fdc1004.NumChannels {
		return fmt.Errorf("%w: %d channels configured, need %d", ErrInvalid, n, fdc1004.NumChannels)
	}
	for i, ch := range c.Device.Channels {
		if ch.CAPDAC > fdc1004.CAPDACMax {
			return fmt.Errorf("%w: channel %d CAPDAC %d exceeds %d", ErrInvalid, i, ch.CAPDAC, fdc1004.CAPDACMax)
		}
	}
	if fdc1004.RateFromSPS(c.Device.Rate) == 0 {
		return fmt.Errorf("%w: rate %d, must be 100, 200 or 400", ErrInvalid, c.Device.Rate)
	}
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("%w: baud rate %d", ErrInvalid, c.Serial.BaudRate)
	}
	if c.Sampler.Period <= 0 {
		return fmt.Errorf("%w: sampler period %s", ErrInvalid, c.Sampler.Period)
	}
	if c.Trace.WindowFrames < 2 {
		return fmt.Errorf("%w: window of %d frames", ErrInvalid, c.Trace.WindowFrames)
	}
	if c.Trace.CalibrationFrames < 1 {
		return fmt.Errorf("%w: calibration of %d frames", ErrInvalid, c.Trace.CalibrationFrames)
	}
	if c.Mock.FailChannel >= fdc1004.NumChannels {
		return fmt.Errorf("%w: mock fail channel %d", ErrInvalid, c.Mock.FailChannel)
	}

	dev := c.FDC1004()
	for ch := range fdc1004.NumChannels {
		if err := fdc1004.New(nil, dev).Conversion(ch).Validate(); err != nil {
			return fmt.Errorf("%w: channel %d: %v", ErrInvalid, ch, err)
		}
	}
	return nil
}

// FDC1004 returns the driver configuration. Validate must have succeeded.
func (c *Config) FDC1004() fdc1004.Config {
	cfg := fdc1004.Config{
		Address:    c.Device.Address,
		Rate:       fdc1004.RateFromSPS(c.Device.Rate),
		Extended:   c.Device.Extended,
		CheckReady: c.Device.CheckReady,
	}
	for i, ch := range c.Device.Channels {
		if i >= fdc1004.NumChannels {
			break
		}
		cfg.Channels[i] = fdc1004.Channel{CAPDAC: ch.CAPDAC, Scale: ch.Scale, Trim: ch.Trim}
	}
	return cfg
}

// Budget returns the timing budget of one tick for values within bound.
func (c *Config) Budget(bound float32) tick.Budget {
	return tick.Budget{
		Period:     c.Sampler.Period,
		I2CHz:      c.Sampler.I2CHz,
		BaudRate:   c.Serial.BaudRate,
		Channels:   fdc1004.NumChannels,
		Extended:   c.Device.Extended,
		CheckReady: c.Device.CheckReady,
		MaxLineLen: report.MaxLineLen(bound),
	}
}
