package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration shared by the bench panel,
// the CLI, and the browser bridge.
type Config struct {
	Serial SerialConfig `yaml:"serial"`
	Device DeviceConfig `yaml:"device"`
	Rate   RateConfig   `yaml:"rate"`
	Bridge BridgeConfig `yaml:"bridge"`
	Mock   MockConfig   `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// DeviceConfig mirrors the head unit's timing and identity parameters. The
// panel uses it for display and the mock device to stay faithful to the
// firmware's behavior.
type DeviceConfig struct {
	Version         string        `yaml:"version"`
	Name            string        `yaml:"name"`
	Debounce        time.Duration `yaml:"debounce"`
	HeartbeatPeriod time.Duration `yaml:"heartbeat_period"`
	AttachWait      time.Duration `yaml:"attach_wait"`
	LampPulse       time.Duration `yaml:"lamp_pulse"`
	RequireRelease  bool          `yaml:"require_release"`
}

// RateConfig contains stroke rate meter parameters.
type RateConfig struct {
	WindowSeconds float64 `yaml:"window_seconds"`
}

// BridgeConfig contains the browser bridge listen address and endpoint path.
type BridgeConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// MockConfig contains mock device simulation parameters.
type MockConfig struct {
	PressPeriod     time.Duration `yaml:"press_period"`      // Mean interval between simulated strokes
	PressJitter     float64       `yaml:"press_jitter"`      // Fractional jitter on the press interval (0..1)
	ClosedCellShare float64       `yaml:"closed_cell_share"` // Fraction of strokes landing on the cc channel
	HeartbeatPeriod time.Duration `yaml:"heartbeat_period"`  // Simulated heartbeat period
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port: "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			Baud: 115200,
		},
		Device: DeviceConfig{
			Version:         "0.1.0",
			Name:            "RR-FOAM-CTR",
			Debounce:        200 * time.Millisecond,
			HeartbeatPeriod: 5 * time.Second,
			AttachWait:      3 * time.Second,
			LampPulse:       30 * time.Millisecond,
			RequireRelease:  false,
		},
		Rate: RateConfig{
			WindowSeconds: 60,
		},
		Bridge: BridgeConfig{
			Listen: ":8737",
			Path:   "/ws",
		},
		Mock: MockConfig{
			PressPeriod:     1500 * time.Millisecond,
			PressJitter:     0.35,
			ClosedCellShare: 0.45,
			HeartbeatPeriod: 5 * time.Second,
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
			// File doesn't exist, return defaults
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
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}

	if c.Device.Version == "" {
		c.Device.Version = def.Device.Version
	}
	if c.Device.Name == "" {
		c.Device.Name = def.Device.Name
	}
	if c.Device.Debounce == 0 {
		c.Device.Debounce = def.Device.Debounce
	}
	if c.Device.HeartbeatPeriod == 0 {
		c.Device.HeartbeatPeriod = def.Device.HeartbeatPeriod
	}
	if c.Device.AttachWait == 0 {
		c.Device.AttachWait = def.Device.AttachWait
	}
	if c.Device.LampPulse == 0 {
		c.Device.LampPulse = def.Device.LampPulse
	}

	if c.Rate.WindowSeconds == 0 {
		c.Rate.WindowSeconds = def.Rate.WindowSeconds
	}

	if c.Bridge.Listen == "" {
		c.Bridge.Listen = def.Bridge.Listen
	}
	if c.Bridge.Path == "" {
		c.Bridge.Path = def.Bridge.Path
	}

	if c.Mock.PressPeriod == 0 {
		c.Mock.PressPeriod = def.Mock.PressPeriod
	}
	if c.Mock.ClosedCellShare == 0 {
		c.Mock.ClosedCellShare = def.Mock.ClosedCellShare
	}
	if c.Mock.HeartbeatPeriod == 0 {
		c.Mock.HeartbeatPeriod = def.Mock.HeartbeatPeriod
	}
}
