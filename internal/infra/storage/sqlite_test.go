package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MRamiBalles/vitals/internal/domain/player"
	"github.com/MRamiBalles/vitals/internal/engine"
	"github.com/MRamiBalles/vitals/internal/events"
	"github.com/MRamiBalles/vitals/internal/platform/logger"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "data", "vitals.db"), nil)
	if err != nil {
		t.Fatalf("InitSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteSnapshotRepository(openTestDB(t))

	if _, err := repo.GetByPlayerID(ctx, "P001"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("Expected ErrSnapshotNotFound, got %v", err)
	}

	stats := player.DefaultStats()
	stats.Mana.Current = 12
	if err := repo.Upsert(ctx, PlayerSnapshot{PlayerID: "P001", Stats: stats, TickNumber: 38}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	stats.Level = 3
	if err := repo.Upsert(ctx, PlayerSnapshot{PlayerID: "P001", Stats: stats, TickNumber: 40}); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}

	got, err := repo.GetByPlayerID(ctx, "P001")
	if err != nil {
		t.Fatalf("GetByPlayerID: %v", err)
	}
	if got.Stats != stats || got.TickNumber != 40 {
		t.Errorf("Expected %+v at tick 40, got %+v at tick %d", stats, got.Stats, got.TickNumber)
	}
	if got.LastUpdated.IsZero() {
		t.Errorf("Expected last_updated to be set")
	}
}

func TestEventRepositoryQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteEventRepository(openTestDB(t), "P001")

	el := events.NewEventLog(nil, 0)
	for tick := int64(1); tick <= 3; tick++ {
		e := el.Append(events.Event{
			Type:       events.EventTypeTimeTick,
			ActorID:    engine.ActorTicker,
			Payload:    engine.TimeTickPayload{TickNumber: tick, Interval: time.Second},
			TickNumber: tick,
		})
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	levelUp := el.Append(events.Event{
		Type:       events.EventTypeLevelUp,
		ActorID:    engine.ActorVitals,
		TargetID:   "P001",
		Payload:    engine.LevelUpPayload{Level: 2, LevelsGained: 1, MaxExperience: 150},
		TickNumber: 3,
	})
	if err := repo.Append(ctx, levelUp); err != nil {
		t.Fatalf("Append: %v", err)
	}

	all, err := repo.GetByPlayerID(ctx, "P001")
	if err != nil || len(all) != 4 {
		t.Fatalf("Expected 4 events, got %d (%v)", len(all), err)
	}
	if all[3].ID != levelUp.ID || all[3].Seq != levelUp.Seq {
		t.Errorf("Events out of order: %+v", all[3])
	}

	ups, err := repo.GetByEventType(ctx, "P001", string(events.EventTypeLevelUp))
	if err != nil || len(ups) != 1 {
		t.Fatalf("Expected 1 LEVEL_UP, got %d (%v)", len(ups), err)
	}
	if level, _ := ups[0].Payload["level"].(float64); level != 2 {
		t.Errorf("Expected payload level 2, got %v", ups[0].Payload)
	}

	since, err := repo.GetSinceTick(ctx, "P001", 2)
	if err != nil || len(since) != 2 {
		t.Errorf("Expected 2 events after tick 2, got %d (%v)", len(since), err)
	}

	other, err := repo.GetByPlayerID(ctx, "P002")
	if err != nil || len(other) != 0 {
		t.Errorf("Expected no events for another player, got %d (%v)", len(other), err)
	}
}

func TestRebuildFromPersistedTrail(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo := NewSQLiteEventRepository(openTestDB(t), "P001")

	el := events.NewEventLog(repo, 4096)
	done := make(chan struct{})
	go func() {
		el.Run(ctx)
		close(done)
	}()

	eng := engine.NewEngine(player.NewDefault("P001"), el, logger.NewDiscard(), time.Hour)
	for i := 0; i < 12; i++ {
		eng.Tick()
	}
	want := eng.Player().Snapshot()
	eng.Close()
	cancel()
	<-done

	rc := NewReconstructor(repo)
	got, err := rc.RebuildStats(context.Background(), "P001", player.DefaultStats())
	if err != nil {
		t.Fatalf("RebuildStats: %v", err)
	}
	if got != want {
		t.Errorf("Rebuilt %+v, want %+v", got, want)
	}

	recap, err := rc.GenerateRecap(context.Background(), "P001", 0)
	if err != nil {
		t.Fatalf("GenerateRecap: %v", err)
	}
	if len(recap) != 1 || recap[0].Summary != "Reached level 2." || recap[0].TickNumber != 10 {
		t.Errorf("Unexpected recap %+v", recap)
	}
}
