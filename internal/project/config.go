package project

import (
	"fmt"
	"os"

	"github.com/piwi3910/polysolve/internal/engine"
	"gopkg.in/yaml.v3"
)

// Config maps a YAML solver configuration file onto the engine settings.
// Duration fields take Go duration values in nanoseconds.
type Config struct {
	Solve  engine.SolveSettings  `yaml:"solve"`
	Prefix engine.PrefixSettings `yaml:"prefix"`
}

// DefaultConfig returns the engine defaults in config form.
func DefaultConfig() Config {
	return Config{
		Solve:  engine.DefaultSettings(),
		Prefix: engine.DefaultPrefixSettings(),
	}
}

// LoadConfig reads and validates a YAML configuration file. Fields left unset
// keep the engine defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config YAML %s: %w", path, err)
	}
	if err := cfg.Solve.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Prefix.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes a configuration file.
func SaveConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
