// Package config loads server and game-balance tuning from a YAML file.
// Engine rule constants (support caps, fatigue curve, shift bands) live in
// the engine itself; this file carries the operational knobs an operator is
// expected to adjust between deployments.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full campaignd configuration.
type Config struct {
	Port     int    `yaml:"port"`
	DBPath   string `yaml:"db_path"`
	AdminKey string `yaml:"admin_key"`
	Game     Game   `yaml:"game"`
}

// Game stores per-game tuning defaults.
type Game struct {
	MaxTurns        int `yaml:"max_turns"`
	MaxPlayers      int `yaml:"max_players"`
	TurnDurationSec int `yaml:"turn_duration_sec"`
	BaseBudget      int `yaml:"base_budget"`
	CharismaPerTurn int `yaml:"charisma_per_turn"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Port:   8080,
		DBPath: "data/outvoted.db",
		Game: Game{
			MaxTurns:        30,
			MaxPlayers:      2,
			TurnDurationSec: 60,
			BaseBudget:      1_000_000,
			CharismaPerTurn: 5,
		},
	}
}

// Load reads a YAML config file, filling unset fields with defaults.
// A missing file is not an error; defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Game.MaxTurns <= 0 {
		cfg.Game.MaxTurns = 30
	}
	if cfg.Game.MaxPlayers < 2 {
		cfg.Game.MaxPlayers = 2
	}
	if cfg.Game.MaxPlayers > 6 {
		cfg.Game.MaxPlayers = 6
	}
	if cfg.Game.TurnDurationSec <= 0 {
		cfg.Game.TurnDurationSec = 60
	}
	if cfg.Game.BaseBudget <= 0 {
		cfg.Game.BaseBudget = 1_000_000
	}
	if cfg.Game.CharismaPerTurn <= 0 {
		cfg.Game.CharismaPerTurn = 5
	}

	return cfg, nil
}
