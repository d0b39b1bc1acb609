// Package config loads and validates the on-disk YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"portfolio-lab/internal/domain"
)

// Duration wraps time.Duration so YAML configs can say "90s" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the on-disk configuration shape (YAML).
type Config struct {
	InitialCapital float64  `yaml:"initial_capital"`
	BarsPerYear    float64  `yaml:"bars_per_year"` // defaults to 245
	Windows        []string `yaml:"windows"`       // defaults to [1Y, 3Y, 5Y, ALL]
	RiskFreeRate   float64  `yaml:"risk_free_rate"`
	Benchmark      string   `yaml:"benchmark"` // instrument id, empty disables regression

	InstrumentTimeout Duration `yaml:"instrument_timeout"`
	BatchTimeout      Duration `yaml:"batch_timeout"`
	Workers           int      `yaml:"workers"`

	OutputDir      string `yaml:"output_dir"`
	CheckpointPath string `yaml:"checkpoint_path"` // empty disables resume

	// PostgresDSN switches input loading from bundled fixtures to the
	// upstream database when set.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Load reads, defaults and validates a config file.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads config without defaulting or validation. Useful for
// debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.InitialCapital == 0 {
		c.InitialCapital = 1000000
	}
	if c.BarsPerYear == 0 {
		c.BarsPerYear = 245
	}
	if len(c.Windows) == 0 {
		c.Windows = []string{"1Y", "3Y", "5Y", "ALL"}
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.OutputDir == "" {
		c.OutputDir = "reports"
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.InitialCapital <= 0 {
		return errors.New("initial_capital must be positive")
	}
	if c.BarsPerYear <= 0 {
		return errors.New("bars_per_year must be positive")
	}
	if c.RiskFreeRate < 0 {
		return errors.New("risk_free_rate must not be negative")
	}
	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	if c.InstrumentTimeout < 0 || c.BatchTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if _, err := c.ParsedWindows(); err != nil {
		return err
	}
	return nil
}

// ParsedWindows maps the configured window labels to domain windows.
func (c *Config) ParsedWindows() ([]domain.Window, error) {
	windows := make([]domain.Window, 0, len(c.Windows))
	for _, label := range c.Windows {
		w, err := domain.ParseWindow(label)
		if err != nil {
			return nil, fmt.Errorf("windows: %w", err)
		}
		windows = append(windows, w)
	}
	return windows, nil
}
