package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/vitals/internal/domain/player"
	"github.com/MRamiBalles/vitals/internal/engine"
	"github.com/MRamiBalles/vitals/internal/events"
	"github.com/MRamiBalles/vitals/internal/infra/storage"
	"github.com/MRamiBalles/vitals/internal/network"
	"github.com/MRamiBalles/vitals/internal/platform/config"
	"github.com/MRamiBalles/vitals/internal/platform/logger"
	"github.com/MRamiBalles/vitals/internal/platform/metrics"
	"github.com/MRamiBalles/vitals/internal/platform/optimization"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tick loop and serve views",
	Long:  `Restore the player from its last snapshot, start ticking, and serve /ws, /api and /metrics until interrupted.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides VITALS_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	appLogger := logger.NewLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	tuning := optimization.ForProfile(cfg.Profile)

	appLogger.Info("Initializing SQLite database '" + cfg.DBPath + "'...")
	db, err := storage.InitSQLite(cfg.DBPath, tuning)
	if err != nil {
		return fmt.Errorf("initialize sqlite: %w", err)
	}
	defer db.Close()

	snapRepo := storage.NewSQLiteSnapshotRepository(db)
	p, restored, err := bootstrapPlayer(cmd.Context(), cfg, snapRepo, appLogger)
	if err != nil {
		return err
	}

	appLogger.Info("Bootstrapping EventLog...")
	eventRepo := storage.NewSQLiteEventRepository(db, cfg.PlayerID)
	eventLog := events.NewEventLog(eventRepo, tuning.EventChannelBuffer)

	// The persister outlives the engine so the final events are written.
	persistCtx, stopPersist := context.WithCancel(context.Background())
	persistDone := make(chan struct{})
	go func() {
		eventLog.Run(persistCtx)
		close(persistDone)
	}()

	appLogger.Info("Bootstrapping Engine...")
	eng := engine.NewEngine(p, eventLog, appLogger, cfg.TickInterval)
	if restored != nil {
		eng.RestoreTickNumber(restored.TickNumber)
		eventLog.Append(events.Event{
			Type:       events.EventTypeSnapshotRestored,
			ActorID:    engine.ActorStore,
			TargetID:   p.ID,
			Payload:    restored,
			TickNumber: restored.TickNumber,
		})
		appLogger.Infof("Restored %s from snapshot at tick %d.", p.ID, restored.TickNumber)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng.Start(ctx)

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(eng, appLogger, tuning)
	go hub.Run(ctx)

	// Automated State Backup Routine
	go func() {
		backupTicker := time.NewTicker(cfg.SnapshotInterval)
		defer backupTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-backupTicker.C:
				saveSnapshot(ctx, snapRepo, eng, appLogger)
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		network.ServeWs(hub, w, r)
	})
	network.NewReplayHandler(eng, appLogger).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP API & WS Server listening on " + cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	appLogger.Info("Server running. Press Ctrl+C to exit.")

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	stop()

	appLogger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		appLogger.Errorf("HTTP shutdown: %v", shutdownErr)
	}

	eng.Close()
	saveSnapshot(shutdownCtx, snapRepo, eng, appLogger)
	stopPersist()
	<-persistDone

	for _, note := range optimization.Analyze(metrics.Get().Snapshot()).Notes {
		appLogger.Warn("Tuning: " + note)
	}
	return err
}

// bootstrapPlayer restores the player from its snapshot, or builds it from
// the configured stats when there is none. A snapshot that no longer
// validates (e.g. written under the unbounded policy) is ignored.
func bootstrapPlayer(ctx context.Context, cfg config.Config, repo storage.SnapshotRepository, appLogger *logger.Logger) (*player.Player, *storage.PlayerSnapshot, error) {
	stats, err := cfg.LoadStats()
	if err != nil {
		return nil, nil, err
	}

	appLogger.Info("Checking DB for an existing snapshot...")
	snap, err := repo.GetByPlayerID(ctx, cfg.PlayerID)
	switch {
	case errors.Is(err, storage.ErrSnapshotNotFound):
		appLogger.Info("No snapshot found. Starting from configured stats.")
		snap = nil
	case err != nil:
		return nil, nil, fmt.Errorf("load snapshot: %w", err)
	default:
		if verr := snap.Stats.Validate(); verr != nil {
			appLogger.Warnf("Ignoring stored snapshot: %v", verr)
			snap = nil
		} else {
			stats = snap.Stats
		}
	}

	p, err := player.New(cfg.PlayerID, stats, cfg.Policy())
	if err != nil {
		return nil, nil, err
	}
	return p, snap, nil
}

func saveSnapshot(ctx context.Context, repo storage.SnapshotRepository, eng *engine.Engine, appLogger *logger.Logger) {
	p := eng.Player()
	err := repo.Upsert(ctx, storage.PlayerSnapshot{
		PlayerID:   p.ID,
		Stats:      p.Snapshot(),
		TickNumber: eng.TickNumber(),
	})
	metrics.Get().RecordSnapshot(err)
	if err != nil {
		appLogger.Errorf("Snapshot backup failed: %v", err)
	}
}
