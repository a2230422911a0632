package engine

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BYTE-6D65/watchface/pkg/clock"
	"github.com/BYTE-6D65/watchface/pkg/render"
	"github.com/BYTE-6D65/watchface/pkg/tick"
	"github.com/BYTE-6D65/watchface/pkg/tzwatch"
)

// Config holds the tunable parameters of the watch face engine.
// Values can be set via:
//  1. Code (programmatic configuration)
//  2. Environment variables (WATCHFACE_*)
//  3. A YAML file named by WATCHFACE_CONFIG
//
// Precedence: Code > Env Vars > Config File > Defaults
type Config struct {
	// Ticking
	TickInterval time.Duration `yaml:"tick_interval" env:"WATCHFACE_TICK_INTERVAL" default:"1s"`

	// Time basis
	Zone             string        `yaml:"zone" env:"WATCHFACE_ZONE" default:""` // "" follows the system zone
	ZonePollInterval time.Duration `yaml:"zone_poll_interval" env:"WATCHFACE_ZONE_POLL_INTERVAL" default:"5s"`

	// Display
	LowBitAmbient bool `yaml:"low_bit_ambient" env:"WATCHFACE_LOW_BIT_AMBIENT" default:"false"`

	// Appearance
	Style render.Style `yaml:"style"`
	// ScaleStyle scales Style lengths by width/ReferenceSize. When false,
	// insets and radii are fixed pixel offsets at any surface size.
	ScaleStyle bool `yaml:"scale_style" env:"WATCHFACE_SCALE_STYLE" default:"false"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		TickInterval:     tick.DefaultInterval,
		Zone:             "",
		ZonePollInterval: tzwatch.DefaultPollInterval,
		LowBitAmbient:    false,
		Style:            render.DefaultStyle(),
		ScaleStyle:       false,
	}
}

// LoadFile reads a YAML config over the defaults. A missing file is not
// an error and yields the defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv loads the file named by WATCHFACE_CONFIG (if any), then
// applies WATCHFACE_* overrides. Unparseable values are ignored.
func LoadFromEnv() (Config, error) {
	return Load(os.Getenv("WATCHFACE_CONFIG"))
}

// Load reads the YAML file at path (skipped when empty), then applies
// WATCHFACE_* overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = fileCfg
	}

	if v := os.Getenv("WATCHFACE_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TickInterval = d
		}
	}
	if v, ok := os.LookupEnv("WATCHFACE_ZONE"); ok {
		cfg.Zone = v
	}
	if v := os.Getenv("WATCHFACE_ZONE_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ZonePollInterval = d
		}
	}
	if v := os.Getenv("WATCHFACE_LOW_BIT_AMBIENT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LowBitAmbient = b
		}
	}
	if v := os.Getenv("WATCHFACE_SCALE_STYLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ScaleStyle = b
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks that configuration values are sensible.
func (c *Config) Validate() error {
	if c.TickInterval < time.Millisecond {
		return fmt.Errorf("tick interval must be >= 1ms, got %s", c.TickInterval)
	}

	if c.TickInterval%time.Millisecond != 0 {
		return fmt.Errorf("tick interval must be a whole number of milliseconds, got %s", c.TickInterval)
	}

	if c.ZonePollInterval <= 0 {
		return fmt.Errorf("zone poll interval must be > 0, got %s", c.ZonePollInterval)
	}

	if c.Zone != "" {
		if _, err := time.LoadLocation(c.Zone); err != nil {
			return fmt.Errorf("%w %q: %v", clock.ErrUnknownZone, c.Zone, err)
		}
	}

	if c.Style.HandStroke <= 0 {
		return fmt.Errorf("hand stroke must be > 0, got %.1f", c.Style.HandStroke)
	}

	if c.Style.CapRadius < 0 || c.Style.BackPlateRadius < 0 || c.Style.DotRadius < 0 {
		return fmt.Errorf("radii must be >= 0")
	}

	return nil
}

// String returns a human-readable summary of the configuration.
func (c *Config) String() string {
	zone := c.Zone
	if zone == "" {
		zone = "system"
	}

	return fmt.Sprintf(`Watch Face Configuration:
  Ticking:
    Interval: %s

  Time Basis:
    Zone:          %s
    Zone Polling:  %s

  Display:
    Low-Bit Ambient: %t

  Style:
    Background: %s
    Hands:      %s
    Accent:     %s
    Stroke:     %.1f
    Scaled:     %t
`,
		c.TickInterval,
		zone,
		c.ZonePollInterval,
		c.LowBitAmbient,
		c.Style.Background,
		c.Style.Hands,
		c.Style.BackgroundDark,
		c.Style.HandStroke,
		c.ScaleStyle,
	)
}
