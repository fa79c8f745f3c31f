package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/MRamiBalles/vitals/internal/platform/optimization"
)

// InitSQLite opens the local SQLite database and creates the schemas for
// player snapshots and the event trail. A nil tuning uses the default profile.
func InitSQLite(dbPath string, tuning *optimization.Config) (*sql.DB, error) {
	if tuning == nil {
		tuning = optimization.DefaultConfig()
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(tuning.DBMaxOpenConns)
	db.SetMaxIdleConns(tuning.DBMaxIdleConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS player_snapshots (
			player_id TEXT PRIMARY KEY,
			health_current INTEGER NOT NULL,
			health_max INTEGER NOT NULL,
			mana_current INTEGER NOT NULL,
			mana_max INTEGER NOT NULL,
			stamina_current INTEGER NOT NULL,
			stamina_max INTEGER NOT NULL,
			level INTEGER NOT NULL,
			experience INTEGER NOT NULL,
			max_experience INTEGER NOT NULL,
			tick_number INTEGER NOT NULL DEFAULT 0,
			last_updated DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER NOT NULL,
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			event_type TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			tick_number INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_player_id ON events(player_id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_event_type ON events(event_type);`,
		`CREATE INDEX IF NOT EXISTS idx_events_tick_number ON events(tick_number);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
