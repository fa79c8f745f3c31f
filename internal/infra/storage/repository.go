// Package storage provides the persistence layer for the vitals server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/MRamiBalles/vitals/internal/domain/player"
	"github.com/MRamiBalles/vitals/internal/events"
)

// ErrSnapshotNotFound is returned when no snapshot exists for a player.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// StoredEvent is an event as read back from the database. The payload comes
// back as decoded JSON, not as the original Go type.
type StoredEvent struct {
	Seq        int64                  `json:"seq" db:"seq"`
	ID         string                 `json:"id" db:"id"`
	PlayerID   string                 `json:"player_id" db:"player_id"`
	Timestamp  time.Time              `json:"timestamp" db:"timestamp"`
	EventType  string                 `json:"event_type" db:"event_type"`
	ActorID    string                 `json:"actor_id" db:"actor_id"`
	TargetID   string                 `json:"target_id" db:"target_id"`
	Payload    map[string]interface{} `json:"payload" db:"payload"`
	TickNumber int64                  `json:"tick_number" db:"tick_number"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event events.Event) error

	// GetByPlayerID retrieves every event for a player, oldest first.
	GetByPlayerID(ctx context.Context, playerID string) ([]StoredEvent, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, playerID string, eventType string) ([]StoredEvent, error)

	// GetSinceTick retrieves events recorded after a tick.
	GetSinceTick(ctx context.Context, playerID string, tick int64) ([]StoredEvent, error)
}

// PlayerSnapshot is the latest persisted state of a player.
type PlayerSnapshot struct {
	PlayerID    string       `json:"player_id" db:"player_id"`
	Stats       player.Stats `json:"stats"`
	TickNumber  int64        `json:"tick_number" db:"tick_number"`
	LastUpdated time.Time    `json:"last_updated" db:"last_updated"`
}

// SnapshotRepository defines the interface for player state snapshots.
type SnapshotRepository interface {
	// Upsert updates or inserts a player snapshot.
	Upsert(ctx context.Context, snapshot PlayerSnapshot) error

	// GetByPlayerID retrieves a player's snapshot or ErrSnapshotNotFound.
	GetByPlayerID(ctx context.Context, playerID string) (*PlayerSnapshot, error)
}
