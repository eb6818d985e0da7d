// Package config loads a node's settings from three layers, lowest to
// highest precedence: compiled-in defaults, an optional YAML file, and
// environment variables. The cliargs package applies a fourth and
// final layer — explicit command-line flags — on top of whatever this
// package produces.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Config holds every setting a node needs, server or client alike.
// Fields unused by a given personality (e.g. MotorRoot on a client)
// are simply ignored by it.
type Config struct {
	Port      uint16 `yaml:"port" env:"EV3_PORT"`
	Name      string `yaml:"name" env:"EV3_NAME"`
	MotorRoot string `yaml:"motor_root" env:"EV3_MOTOR_ROOT"`
	LogDir    string `yaml:"log_dir" env:"EV3_LOG_DIR"`
	LogMode   string `yaml:"log_mode" env:"EV3_LOG_MODE"`
}

// Default returns the configuration a node starts from before any
// file, environment, or flag overrides are applied.
func Default() Config {
	return Config{
		Port:      4721,
		Name:      "ev3",
		MotorRoot: "/sys/class/tacho-motor",
		LogDir:    "./logs",
		LogMode:   "dev",
	}
}

// Load builds a Config from Default, overlaying path (if non-empty
// and present) and then any EV3_* environment variables that are set.
// A missing yamlPath is not an error — it means "no file layer" — but
// a present, malformed one is.
func Load(yamlPath string) (Config, error) {
	cfg := Default()

	if yamlPath != "" {
		if err := mergeYAMLFile(&cfg, yamlPath); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}

	return cfg, nil
}

func mergeYAMLFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate reports whether cfg is usable as-is; it does not mutate
// cfg.
func (c Config) Validate() error {
	if c.Port == 0 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.Name == "" {
		return fmt.Errorf("config: name must not be empty")
	}
	return nil
}
