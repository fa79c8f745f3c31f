package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MRamiBalles/vitals/internal/events"
)

// SQLiteEventRepository implements EventRepository for SQLite. It also
// satisfies events.EventPersister, so it can back an EventLog directly.
type SQLiteEventRepository struct {
	db       *sql.DB
	playerID string
}

// NewSQLiteEventRepository stores events under playerID.
func NewSQLiteEventRepository(db *sql.DB, playerID string) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db, playerID: playerID}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event events.Event) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (seq, id, player_id, timestamp, event_type, actor_id, target_id, payload, tick_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.Seq, event.ID, r.playerID, event.Timestamp, string(event.Type), event.ActorID,
		event.TargetID, string(payloadBytes), event.TickNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

const selectEvents = `SELECT seq, id, player_id, timestamp, event_type, actor_id, target_id, payload, tick_number FROM events`

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]StoredEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stored []StoredEvent
	for rows.Next() {
		var e StoredEvent
		var payloadStr string
		err := rows.Scan(
			&e.Seq, &e.ID, &e.PlayerID, &e.Timestamp, &e.EventType, &e.ActorID,
			&e.TargetID, &payloadStr, &e.TickNumber,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, err
		}
		stored = append(stored, e)
	}
	return stored, rows.Err()
}

func (r *SQLiteEventRepository) GetByPlayerID(ctx context.Context, playerID string) ([]StoredEvent, error) {
	query := selectEvents + ` WHERE player_id = ? ORDER BY rowid ASC`
	return r.getMany(ctx, query, playerID)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, playerID string, eventType string) ([]StoredEvent, error) {
	query := selectEvents + ` WHERE player_id = ? AND event_type = ? ORDER BY rowid ASC`
	return r.getMany(ctx, query, playerID, eventType)
}

func (r *SQLiteEventRepository) GetSinceTick(ctx context.Context, playerID string, tick int64) ([]StoredEvent, error) {
	query := selectEvents + ` WHERE player_id = ? AND tick_number > ? ORDER BY rowid ASC`
	return r.getMany(ctx, query, playerID, tick)
}

// ---------------------------------------------------------
// SQLiteSnapshotRepository
// ---------------------------------------------------------

type SQLiteSnapshotRepository struct {
	db *sql.DB
}

func NewSQLiteSnapshotRepository(db *sql.DB) *SQLiteSnapshotRepository {
	return &SQLiteSnapshotRepository{db: db}
}

func (r *SQLiteSnapshotRepository) Upsert(ctx context.Context, snapshot PlayerSnapshot) error {
	query := `
		INSERT INTO player_snapshots (player_id, health_current, health_max, mana_current, mana_max,
			stamina_current, stamina_max, level, experience, max_experience, tick_number, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			health_current=excluded.health_current,
			health_max=excluded.health_max,
			mana_current=excluded.mana_current,
			mana_max=excluded.mana_max,
			stamina_current=excluded.stamina_current,
			stamina_max=excluded.stamina_max,
			level=excluded.level,
			experience=excluded.experience,
			max_experience=excluded.max_experience,
			tick_number=excluded.tick_number,
			last_updated=excluded.last_updated
	`
	s := snapshot.Stats
	_, err := r.db.ExecContext(ctx, query,
		snapshot.PlayerID, s.Health.Current, s.Health.Max, s.Mana.Current, s.Mana.Max,
		s.Stamina.Current, s.Stamina.Max, s.Level, s.Experience, s.MaxExperience,
		snapshot.TickNumber, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteSnapshotRepository) GetByPlayerID(ctx context.Context, playerID string) (*PlayerSnapshot, error) {
	query := `SELECT player_id, health_current, health_max, mana_current, mana_max, stamina_current, stamina_max,
		level, experience, max_experience, tick_number, last_updated FROM player_snapshots WHERE player_id = ?`
	var p PlayerSnapshot
	s := &p.Stats
	err := r.db.QueryRowContext(ctx, query, playerID).Scan(
		&p.PlayerID, &s.Health.Current, &s.Health.Max, &s.Mana.Current, &s.Mana.Max,
		&s.Stamina.Current, &s.Stamina.Max, &s.Level, &s.Experience, &s.MaxExperience,
		&p.TickNumber, &p.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, playerID)
		}
		return nil, err
	}
	return &p, nil
}
