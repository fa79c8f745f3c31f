package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/vitals/internal/infra/storage"
	"github.com/MRamiBalles/vitals/internal/platform/optimization"
)

var (
	inspectRebuild    bool
	inspectRecapSince int64
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the stored snapshot of a player",
	Long: `Print the last snapshot stored for a player as JSON.

With --rebuild the player's state is also rebuilt from the persisted event
trail, starting from the configured stats. With --recap-since the level-ups
and depletions after that tick are listed.`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectRebuild, "rebuild", false, "rebuild state from the event trail")
	inspectCmd.Flags().Int64Var(&inspectRecapSince, "recap-since", -1, "list notable events after this tick")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := storage.InitSQLite(cfg.DBPath, optimization.LowResourceConfig())
	if err != nil {
		return fmt.Errorf("initialize sqlite: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")

	snap, err := storage.NewSQLiteSnapshotRepository(db).GetByPlayerID(ctx, cfg.PlayerID)
	switch {
	case errors.Is(err, storage.ErrSnapshotNotFound):
		fmt.Fprintf(os.Stderr, "no snapshot stored for %s\n", cfg.PlayerID)
	case err != nil:
		return err
	default:
		if err := out.Encode(snap); err != nil {
			return err
		}
	}

	rc := storage.NewReconstructor(storage.NewSQLiteEventRepository(db, cfg.PlayerID))

	if inspectRebuild {
		base, err := cfg.LoadStats()
		if err != nil {
			return err
		}
		rebuilt, err := rc.RebuildStats(ctx, cfg.PlayerID, base)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "rebuilt from events:")
		if err := out.Encode(rebuilt); err != nil {
			return err
		}
	}

	if inspectRecapSince >= 0 {
		recap, err := rc.GenerateRecap(ctx, cfg.PlayerID, inspectRecapSince)
		if err != nil {
			return err
		}
		for _, e := range recap {
			fmt.Fprintf(os.Stdout, "tick %6d  %-18s %s\n", e.TickNumber, e.EventType, e.Summary)
		}
	}
	return nil
}
