// Package config loads server settings from defaults, an optional YAML file
// and ESSENTIALS_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Address         string `yaml:"address" env:"ADDRESS"`
	MaxPlayers      int    `yaml:"maxPlayers" env:"MAX_PLAYERS"`
	MOTD            string `yaml:"motd" env:"MOTD"`
	DefaultGameMode string `yaml:"defaultGameMode" env:"DEFAULT_GAMEMODE"`
	LogLevel        string `yaml:"logLevel" env:"LOG_LEVEL"`

	Vanish Vanish `yaml:"vanish" envPrefix:"VANISH_"`
}

// Vanish configures the vanish module.
type Vanish struct {
	// MissingPlayer is "visible" or "fail"; see vanish.MissingPolicy.
	MissingPlayer string `yaml:"missingPlayer" env:"MISSING_PLAYER"`
	// Database is the sqlite file holding persisted vanish flags.
	// Empty keeps vanish state in memory only.
	Database string `yaml:"database" env:"DATABASE"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Address:         ":25565",
		MaxPlayers:      20,
		MOTD:            "An Essentials Server",
		DefaultGameMode: "survival",
		LogLevel:        "info",
		Vanish: Vanish{
			MissingPlayer: "visible",
			Database:      "essentials.db",
		},
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped when
// path is empty or the file does not exist) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "ESSENTIALS_"}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Write stores cfg as YAML at path, creating a template users can edit.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
