package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MRamiBalles/vitals/internal/domain/player"
)

func TestParseEnvDefaults(t *testing.T) {
	cfg, err := ParseEnv()
	if err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.TickInterval != time.Second {
		t.Errorf("TickInterval = %s, want 1s", cfg.TickInterval)
	}
	if !cfg.Policy().ClampResources {
		t.Errorf("Expected the default policy to clamp")
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("VITALS_TICK_INTERVAL", "250ms")
	t.Setenv("VITALS_UNBOUNDED", "true")
	t.Setenv("VITALS_PLAYER_ID", "HERO")

	cfg, err := ParseEnv()
	if err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}

	if cfg.TickInterval != 250*time.Millisecond {
		t.Errorf("TickInterval = %s, want 250ms", cfg.TickInterval)
	}
	if cfg.PlayerID != "HERO" {
		t.Errorf("PlayerID = %q, want HERO", cfg.PlayerID)
	}
	if p := cfg.Policy(); p.ClampResources || p.LevelUp {
		t.Errorf("Expected the unbounded policy, got %+v", p)
	}
}

func TestParseEnvRejectsBadValues(t *testing.T) {
	t.Setenv("VITALS_TICK_INTERVAL", "0s")

	if _, err := ParseEnv(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestDecodeStatsOverlay(t *testing.T) {
	doc := `
level = 3

[mana]
current = 80
max = 120
`
	stats, err := DecodeStats([]byte(doc), player.DefaultStats())
	if err != nil {
		t.Fatalf("DecodeStats: %v", err)
	}

	if stats.Mana.Current != 80 || stats.Mana.Max != 120 {
		t.Errorf("Mana = %+v, want 80/120", stats.Mana)
	}
	if stats.Level != 3 {
		t.Errorf("Level = %d, want 3", stats.Level)
	}
	if stats.Health.Current != 100 {
		t.Errorf("Health should keep its default, got %+v", stats.Health)
	}
}

func TestDecodeStatsRejectsInvalid(t *testing.T) {
	doc := `
[stamina]
current = 90
max = 75
`
	if _, err := DecodeStats([]byte(doc), player.DefaultStats()); !errors.Is(err, player.ErrInvalidStats) {
		t.Errorf("Expected ErrInvalidStats, got %v", err)
	}
}

func TestLoadStatsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.toml")
	if err := os.WriteFile(path, []byte("experience = 40\n"), 0o644); err != nil {
		t.Fatalf("write stats file: %v", err)
	}

	cfg := Config{StatsFile: path}
	stats, err := cfg.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats: %v", err)
	}
	if stats.Experience != 40 {
		t.Errorf("Experience = %d, want 40", stats.Experience)
	}

	cfg.StatsFile = filepath.Join(t.TempDir(), "missing.toml")
	if _, err := cfg.LoadStats(); err == nil {
		t.Errorf("Expected an error for a missing stats file")
	}
}
