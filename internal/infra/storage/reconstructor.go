// Package storage - reconstructor.go
// Rebuilds player state from the persisted event trail: state = f(events).
package storage

import (
	"context"
	"fmt"

	"github.com/MRamiBalles/vitals/internal/domain/player"
	"github.com/MRamiBalles/vitals/internal/events"
)

// Reconstructor rebuilds player state from the event log.
// This is used for:
// 1. Checking a stored snapshot against the trail (inspect --rebuild)
// 2. The recap of what happened since a tick
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new state reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RecapEvent is a simplified event for the recap listing.
type RecapEvent struct {
	TickNumber int64  `json:"tick_number"`
	EventType  string `json:"event_type"`
	Summary    string `json:"summary"` // Human-readable description
}

// RebuildStats replays every CELL_CHANGED event of a player onto base.
// Only the last write of each cell matters, so base only supplies values
// for cells that never changed.
func (r *Reconstructor) RebuildStats(ctx context.Context, playerID string, base player.Stats) (player.Stats, error) {
	stored, err := r.eventRepo.GetByEventType(ctx, playerID, string(events.EventTypeCellChanged))
	if err != nil {
		return base, fmt.Errorf("failed to get events for player: %w", err)
	}

	state := base
	for _, e := range stored {
		if err := applyCellChange(&state, e); err != nil {
			return base, fmt.Errorf("event %s: %w", e.ID, err)
		}
	}
	return state, nil
}

// GenerateRecap lists the level-ups and depletions after sinceTick.
func (r *Reconstructor) GenerateRecap(ctx context.Context, playerID string, sinceTick int64) ([]RecapEvent, error) {
	stored, err := r.eventRepo.GetSinceTick(ctx, playerID, sinceTick)
	if err != nil {
		return nil, err
	}

	var recap []RecapEvent
	for _, e := range stored {
		summary := summarize(e)
		if summary == "" {
			continue
		}
		recap = append(recap, RecapEvent{
			TickNumber: e.TickNumber,
			EventType:  e.EventType,
			Summary:    summary,
		})
	}
	return recap, nil
}

func applyCellChange(state *player.Stats, e StoredEvent) error {
	cell, _ := e.Payload["cell"].(string)
	value, ok := e.Payload["value"].(float64) // JSON numbers decode as float64
	if cell == "" || !ok {
		return fmt.Errorf("malformed %s payload", e.EventType)
	}
	return state.SetCell(cell, int(value))
}

func summarize(e StoredEvent) string {
	switch events.EventType(e.EventType) {
	case events.EventTypeLevelUp:
		return fmt.Sprintf("Reached level %v.", e.Payload["level"])
	case events.EventTypeResourceDepleted:
		return fmt.Sprintf("%v ran out.", e.Payload["resource"])
	case events.EventTypeSnapshotRestored:
		return "State restored from a saved snapshot."
	default:
		return ""
	}
}
