package config

import (
	"os"
	"testing"
	"time"

	"github.com/itohio/capsense/pkg/fdc1004"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	_, err = tmpfile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())
	return tmpfile.Name()
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, uint16(0x50), cfg.Device.Address)
	assert.Equal(t, 100, cfg.Device.Rate)
	assert.True(t, cfg.Device.CheckReady)
	assert.False(t, cfg.Device.Extended)
	assert.Len(t, cfg.Device.Channels, 4)
	assert.Equal(t, 100*time.Millisecond, cfg.Sampler.Period)
	assert.Equal(t, 100_000, cfg.Sampler.I2CHz)
	assert.Equal(t, 50, cfg.Trace.WindowFrames)
	assert.Equal(t, 50, cfg.Trace.CalibrationFrames)
	assert.Equal(t, -1, cfg.Mock.FailChannel)
	assert.Empty(t, cfg.Log.File)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	name := writeTemp(t, `
serial:
  port: "/dev/ttyUSB1"
  baud_rate: 115200

device:
  rate: 400
  extended: true
  check_ready: false
  channels:
    - capdac: 4
      scale: 1.0
    - capdac: 0
      scale: 0.98
      trim: -0.25
    - capdac: 31
    - {}

sampler:
  period: 50ms
  i2c_bus: "/dev/i2c-1"
  i2c_hz: 400000
  stats_interval: 1m

trace:
  window_frames: 100
  calibration_frames: 20

log:
  file: "/var/log/capsense.log"
  max_size_mb: 5
`)

	cfg, err := Load(name)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 400, cfg.Device.Rate)
	assert.True(t, cfg.Device.Extended)
	assert.False(t, cfg.Device.CheckReady)
	require.Len(t, cfg.Device.Channels, 4)
	assert.Equal(t, uint8(4), cfg.Device.Channels[0].CAPDAC)
	assert.Equal(t, float32(0.98), cfg.Device.Channels[1].Scale)
	assert.Equal(t, float32(-0.25), cfg.Device.Channels[1].Trim)
	assert.Equal(t, float32(1), cfg.Device.Channels[3].Scale, "zero scale defaults to 1")
	assert.Equal(t, 50*time.Millisecond, cfg.Sampler.Period)
	assert.Equal(t, "/dev/i2c-1", cfg.Sampler.I2CBus)
	assert.Equal(t, time.Minute, cfg.Sampler.StatsInterval)
	assert.Equal(t, 100, cfg.Trace.WindowFrames)
	assert.Equal(t, 20, cfg.Trace.CalibrationFrames)
	assert.Equal(t, "/var/log/capsense.log", cfg.Log.File)
	assert.Equal(t, 5, cfg.Log.MaxSizeMB)
	assert.Equal(t, 3, cfg.Log.MaxBackups) // default

	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	name := writeTemp(t, "invalid: yaml: content: [")

	cfg, err := Load(name)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	name := writeTemp(t, `
serial:
  port: "/dev/ttyS0"
`)

	cfg, err := Load(name)
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// Should use defaults for missing fields
	assert.Equal(t, "/dev/ttyS0", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)                // default
	assert.Equal(t, 100*time.Millisecond, cfg.Sampler.Period) // default
	assert.True(t, cfg.Device.CheckReady)                     // default
	assert.Len(t, cfg.Device.Channels, fdc1004.NumChannels)   // default
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Device.Channels[2].CAPDAC = 12
	cfg.Sampler.Period = 250 * time.Millisecond

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	// Load it back and verify
	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, uint8(12), loaded.Device.Channels[2].CAPDAC)
	assert.Equal(t, 250*time.Millisecond, loaded.Sampler.Period)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing channels", func(c *Config) { c.Device.Channels = c.Device.Channels[:2] }},
		{"capdac out of range", func(c *Config) { c.Device.Channels[1].CAPDAC = 32 }},
		{"bad rate", func(c *Config) { c.Device.Rate = 150 }},
		{"zero baud", func(c *Config) { c.Serial.BaudRate = 0 }},
		{"negative period", func(c *Config) { c.Sampler.Period = -time.Second }},
		{"tiny window", func(c *Config) { c.Trace.WindowFrames = 1 }},
		{"no calibration frames", func(c *Config) { c.Trace.CalibrationFrames = 0 }},
		{"mock fail channel", func(c *Config) { c.Mock.FailChannel = 4 }},
		{"zero scale", func(c *Config) { c.Device.Channels[0].Scale = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestFDC1004(t *testing.T) {
	cfg := Default()
	cfg.Device.Rate = 200
	cfg.Device.Extended = true
	cfg.Device.Channels[3] = ChannelConfig{CAPDAC: 2, Scale: 0.5, Trim: 0.1}

	dev := cfg.FDC1004()
	assert.Equal(t, uint16(fdc1004.Address), dev.Address)
	assert.Equal(t, fdc1004.Rate200, dev.Rate)
	assert.True(t, dev.Extended)
	assert.True(t, dev.CheckReady)
	assert.Equal(t, fdc1004.Channel{CAPDAC: 2, Scale: 0.5, Trim: 0.1}, dev.Channels[3])
	assert.Equal(t, fdc1004.Channel{Scale: 1}, dev.Channels[0])
}

func TestBudget(t *testing.T) {
	cfg := Default()
	b := cfg.Budget(16)

	assert.Equal(t, cfg.Sampler.Period, b.Period)
	assert.Equal(t, 9600, b.BaudRate)
	assert.Equal(t, fdc1004.NumChannels, b.Channels)
	assert.Equal(t, len("-16.00\n"), b.MaxLineLen)
	assert.NoError(t, b.Validate())

	cfg.Sampler.Period = 20 * time.Millisecond
	assert.Error(t, cfg.Budget(16).Validate())
}
