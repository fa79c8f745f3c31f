// Package config loads server settings from the environment and the
// optional TOML stats file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/MRamiBalles/vitals/internal/domain/player"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds the server settings.
type Config struct {
	Addr             string        `env:"VITALS_ADDR" envDefault:":8080"`
	DBPath           string        `env:"VITALS_DB_PATH" envDefault:"vitals.db"`
	PlayerID         string        `env:"VITALS_PLAYER_ID" envDefault:"PLAYER_1"`
	StatsFile        string        `env:"VITALS_STATS_FILE"`
	TickInterval     time.Duration `env:"VITALS_TICK_INTERVAL" envDefault:"1s"`
	SnapshotInterval time.Duration `env:"VITALS_SNAPSHOT_INTERVAL" envDefault:"5s"`
	Unbounded        bool          `env:"VITALS_UNBOUNDED"`
	Profile          string        `env:"VITALS_PROFILE" envDefault:"default"` // default | stress | low
}

// ParseEnv loads configuration from environment variables.
func ParseEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive, got %s", ErrInvalidConfig, c.TickInterval)
	}
	if c.SnapshotInterval <= 0 {
		return fmt.Errorf("%w: snapshot interval must be positive, got %s", ErrInvalidConfig, c.SnapshotInterval)
	}
	if c.PlayerID == "" {
		return fmt.Errorf("%w: player id is empty", ErrInvalidConfig)
	}
	switch c.Profile {
	case "default", "stress", "low":
	default:
		return fmt.Errorf("%w: unknown profile %q", ErrInvalidConfig, c.Profile)
	}
	return nil
}

// Policy returns the bounds policy selected by the config.
func (c Config) Policy() player.Policy {
	if c.Unbounded {
		return player.UnboundedPolicy()
	}
	return player.DefaultPolicy()
}

// LoadStats returns the starting stats: DefaultStats overlaid with the
// stats file when one is configured.
func (c Config) LoadStats() (player.Stats, error) {
	stats := player.DefaultStats()
	if c.StatsFile == "" {
		return stats, nil
	}

	data, err := os.ReadFile(c.StatsFile)
	if err != nil {
		return player.Stats{}, fmt.Errorf("read stats file: %w", err)
	}
	return DecodeStats(data, stats)
}

// DecodeStats decodes TOML stats on top of base. Keys absent from the
// document keep their base value.
func DecodeStats(data []byte, base player.Stats) (player.Stats, error) {
	stats := base
	if _, err := toml.Decode(string(data), &stats); err != nil {
		return player.Stats{}, fmt.Errorf("decode stats: %w", err)
	}
	if err := stats.Validate(); err != nil {
		return player.Stats{}, err
	}
	return stats, nil
}
