// Package config loads simulation settings from YAML with sensible defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/farmshare/internal/negotiation"
)

// Duration lets YAML carry human-readable durations like "500ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds every tunable for a simulation run.
type Config struct {
	Rounds          int     `yaml:"rounds"`
	Method          string  `yaml:"method"`
	InitialResource float64 `yaml:"initial_resource"`
	// Seed drives the seasonal yield noise. Zero means draw a true random
	// seed at startup.
	Seed       int64  `yaml:"seed"`
	DBPath     string `yaml:"db_path"`
	APIPort    int    `yaml:"api_port"`
	AgentsFile string `yaml:"agents_file"`

	Oracle struct {
		MaxAttempts int      `yaml:"max_attempts"`
		Backoff     Duration `yaml:"backoff"`
	} `yaml:"oracle"`

	Negotiation negotiation.Config `yaml:"negotiation"`
}

// Default returns the baseline configuration: ten negotiation rounds over a
// pool of 100 grain, persisted next to the binary.
func Default() Config {
	cfg := Config{
		Rounds:          10,
		Method:          "negotiation",
		InitialResource: 100,
		Seed:            1,
		DBPath:          "farmshare.db",
		APIPort:         8080,
		Negotiation:     negotiation.DefaultConfig(),
	}
	cfg.Oracle.MaxAttempts = 3
	cfg.Oracle.Backoff = Duration(500 * time.Millisecond)
	return cfg
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the simulation cannot run with.
func (c Config) Validate() error {
	if c.Rounds < 1 {
		return fmt.Errorf("config: rounds must be at least 1, got %d", c.Rounds)
	}
	if c.InitialResource <= 0 {
		return fmt.Errorf("config: initial_resource must be positive, got %g", c.InitialResource)
	}
	if c.Oracle.MaxAttempts < 1 {
		return fmt.Errorf("config: oracle max_attempts must be at least 1, got %d", c.Oracle.MaxAttempts)
	}
	if err := c.Negotiation.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
