// Package network - replay.go
// Read-only HTTP API over the store: the current snapshot and the event trail.
package network

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/vitals/internal/domain/player"
	"github.com/MRamiBalles/vitals/internal/engine"
	"github.com/MRamiBalles/vitals/internal/events"
	"github.com/MRamiBalles/vitals/internal/platform/logger"
	"github.com/MRamiBalles/vitals/internal/platform/metrics"
)

// ReplayHandler provides the snapshot and replay API.
type ReplayHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewReplayHandler creates a new replay handler.
func NewReplayHandler(eng *engine.Engine, log *logger.Logger) *ReplayHandler {
	return &ReplayHandler{
		engine: eng,
		logger: log,
	}
}

// ReplayEvent is an event formatted for display.
type ReplayEvent struct {
	Seq        int64       `json:"seq"`
	ID         string      `json:"id"`
	Timestamp  string      `json:"timestamp"`
	TickNumber int64       `json:"tick_number"`
	Type       string      `json:"type"`
	Actor      string      `json:"actor"`
	Target     string      `json:"target,omitempty"`
	Summary    string      `json:"summary"`
	Impact     string      `json:"impact"`
	Details    interface{} `json:"details,omitempty"`
}

// ReplayResponse is the API response for a replay.
type ReplayResponse struct {
	PlayerID    string        `json:"player_id"`
	TotalEvents int           `json:"total_events"`
	FilteredBy  string        `json:"filtered_by,omitempty"`
	GeneratedAt string        `json:"generated_at"`
	Events      []ReplayEvent `json:"events"`
}

// SnapshotResponse is the API response for the current store state.
type SnapshotResponse struct {
	PlayerID   string       `json:"player_id"`
	TickNumber int64        `json:"tick_number"`
	Stats      player.Stats `json:"stats"`
}

// HandleSnapshot returns the current values of every cell.
// GET /api/snapshot
func (rh *ReplayHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p := rh.engine.Player()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SnapshotResponse{
		PlayerID:   p.ID,
		TickNumber: rh.engine.TickNumber(),
		Stats:      p.Snapshot(),
	})
}

// HandleReplay returns the retained event trail.
// GET /api/events?type=LEVEL_UP&since=SEQ&limit=N
func (rh *ReplayHandler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	eventType := q.Get("type")

	var since int64
	if s := q.Get("since"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 0 {
			rh.jsonError(w, "Invalid since", http.StatusBadRequest)
			return
		}
		since = n
	}

	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			rh.jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var replayEvents []ReplayEvent
	for _, e := range rh.engine.EventLog().Since(since) {
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		replayEvents = append(replayEvents, rh.convertToReplayEvent(e))
	}
	if limit > 0 && len(replayEvents) > limit {
		replayEvents = replayEvents[len(replayEvents)-limit:]
	}

	filterDesc := ""
	if eventType != "" {
		filterDesc = "type " + eventType
	}

	response := ReplayResponse{
		PlayerID:    rh.engine.Player().ID,
		TotalEvents: len(replayEvents),
		FilteredBy:  filterDesc,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      replayEvents,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RegisterRoutes sets up the API routes.
func (rh *ReplayHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/snapshot", rh.HandleSnapshot)
	mux.HandleFunc("/api/events", rh.HandleReplay)
	mux.HandleFunc("/metrics", metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())
}

// convertToReplayEvent transforms an internal event to display format.
func (rh *ReplayHandler) convertToReplayEvent(e events.Event) ReplayEvent {
	return ReplayEvent{
		Seq:        e.Seq,
		ID:         e.ID,
		Timestamp:  e.Timestamp.Format(time.RFC3339),
		TickNumber: e.TickNumber,
		Type:       string(e.Type),
		Actor:      e.ActorID,
		Target:     e.TargetID,
		Summary:    summarizeEvent(e),
		Impact:     determineImpact(e),
		Details:    e.Payload,
	}
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(e events.Event) string {
	switch e.Type {
	case events.EventTypeTimeTick:
		return "Tick " + strconv.FormatInt(e.TickNumber, 10) + " ran."
	case events.EventTypeCellChanged:
		if p, ok := e.Payload.(engine.CellChangePayload); ok {
			return p.Cell + " is now " + strconv.Itoa(p.Value) + "."
		}
		return e.TargetID + " changed."
	case events.EventTypeResourceDepleted:
		return "A resource ran out."
	case events.EventTypeLevelUp:
		if p, ok := e.Payload.(engine.LevelUpPayload); ok {
			return "Reached level " + strconv.Itoa(p.Level) + "."
		}
		return "Levelled up."
	case events.EventTypeSnapshotRestored:
		return "State restored from a saved snapshot."
	default:
		return "Something happened."
	}
}

// determineImpact classifies the event impact.
func determineImpact(e events.Event) string {
	switch e.Type {
	case events.EventTypeResourceDepleted:
		return "NEGATIVE"
	case events.EventTypeLevelUp:
		return "POSITIVE"
	default:
		return "NEUTRAL"
	}
}

// jsonError sends an error response.
func (rh *ReplayHandler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
