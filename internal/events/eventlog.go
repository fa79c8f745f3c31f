// Package events provides the append-only trail of everything the engine
// did to the vitals store.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/vitals/internal/platform/metrics"
)

// EventType defines the category of a store event.
type EventType string

const (
	EventTypeTimeTick         EventType = "TIME_TICK"
	EventTypeCellChanged      EventType = "CELL_CHANGED"
	EventTypeResourceDepleted EventType = "RESOURCE_DEPLETED"
	EventTypeLevelUp          EventType = "LEVEL_UP"
	EventTypeSnapshotRestored EventType = "SNAPSHOT_RESTORED"
)

// DefaultRetention is how many events the in-memory log keeps.
const DefaultRetention = 10000

// Event represents an immutable record of a change.
type Event struct {
	Seq        int64       `json:"seq"`
	ID         string      `json:"id"`
	Timestamp  time.Time   `json:"timestamp"`
	Type       EventType   `json:"type"`
	ActorID    string      `json:"actor_id"`  // Component that caused it
	TargetID   string      `json:"target_id"` // Cell or player affected (optional)
	Payload    interface{} `json:"payload"`   // Event-specific data
	TickNumber int64       `json:"tick_number"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(ctx context.Context, event Event) error
}

// EventLog is the in-memory append-only log. When a persister is set,
// events are also queued for a background writer started with Run.
type EventLog struct {
	mu        sync.RWMutex
	events    []Event
	nextSeq   int64
	retention int

	persister EventPersister
	queue     chan Event
	metrics   *metrics.Collector
}

// NewEventLog creates a new event log with an optional persister.
// queueSize bounds the number of events waiting to be persisted.
func NewEventLog(persister EventPersister, queueSize int) *EventLog {
	el := &EventLog{
		events:    make([]Event, 0),
		retention: DefaultRetention,
		persister: persister,
		metrics:   metrics.Get(),
	}
	if persister != nil {
		if queueSize <= 0 {
			queueSize = 1
		}
		el.queue = make(chan Event, queueSize)
	}
	return el
}

// SetRetention changes how many events are kept in memory.
func (el *EventLog) SetRetention(n int) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.retention = n
	el.trim()
}

// Append adds a new event to the log and returns it with Seq, ID and
// Timestamp filled in. Events are immutable once appended.
func (el *EventLog) Append(event Event) Event {
	el.mu.Lock()
	el.nextSeq++
	event.Seq = el.nextSeq
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	el.events = append(el.events, event)
	el.trim()
	el.mu.Unlock()

	if el.queue != nil {
		select {
		case el.queue <- event:
		default:
			el.metrics.RecordEventDropped()
		}
	}
	return event
}

// trim must be called with mu held.
func (el *EventLog) trim() {
	if el.retention > 0 && len(el.events) > el.retention {
		drop := len(el.events) - el.retention
		el.events = append([]Event(nil), el.events[drop:]...)
	}
}

// Run writes queued events through the persister until ctx is done, then
// drains what is left in the queue.
func (el *EventLog) Run(ctx context.Context) {
	if el.queue == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			el.drain()
			return
		case event := <-el.queue:
			el.persist(ctx, event)
		}
	}
}

func (el *EventLog) drain() {
	for {
		select {
		case event := <-el.queue:
			el.persist(context.Background(), event)
		default:
			return
		}
	}
}

func (el *EventLog) persist(ctx context.Context, event Event) {
	start := time.Now()
	err := el.persister.Append(ctx, event)
	el.metrics.RecordEventWrite(time.Since(start), err)
}

// Since returns every retained event with a sequence number above seq.
func (el *EventLog) Since(seq int64) []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []Event
	for _, e := range el.events {
		if e.Seq > seq {
			result = append(result, e)
		}
	}
	return result
}

// GetByType returns the most recent events of a type, oldest first.
// limit <= 0 returns all of them.
func (el *EventLog) GetByType(eventType EventType, limit int) []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []Event
	for _, e := range el.events {
		if eventType == "" || e.Type == eventType {
			result = append(result, e)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result
}

// GetByActor returns all events caused by a specific component.
func (el *EventLog) GetByActor(actorID string) []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []Event
	for _, e := range el.events {
		if e.ActorID == actorID {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of the retained history.
func (el *EventLog) Replay() []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return append([]Event(nil), el.events...)
}

// LastSeq returns the sequence number of the newest event.
func (el *EventLog) LastSeq() int64 {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.nextSeq
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
