// Package main is the entry point for the vitals server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/vitals/internal/platform/config"
)

var (
	dbPath   string
	playerID string
)

var rootCmd = &cobra.Command{
	Use:   "vitals-server",
	Short: "Vitals - a reactive resource and progress store driven by a tick loop",
	Long: `vitals-server runs the tick loop over one player's health, mana, stamina
and progression, streams every cell change to websocket views, and keeps
snapshots and the event trail in SQLite.

Settings come from VITALS_* environment variables; flags override them.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides VITALS_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&playerID, "player", "", "player id (overrides VITALS_PLAYER_ID)")
}

// loadConfig parses the environment and applies the persistent flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.ParseEnv()
	if err != nil {
		return config.Config{}, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if playerID != "" {
		cfg.PlayerID = playerID
	}
	return cfg, nil
}
