package network

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MRamiBalles/vitals/internal/domain/player"
	"github.com/MRamiBalles/vitals/internal/engine"
	"github.com/MRamiBalles/vitals/internal/events"
	"github.com/MRamiBalles/vitals/internal/platform/logger"
)

func newTestReplay(t *testing.T, ticks int) (*engine.Engine, *http.ServeMux) {
	t.Helper()
	eng := engine.NewEngine(player.NewDefault("P001"), events.NewEventLog(nil, 0), logger.NewDiscard(), time.Hour)
	t.Cleanup(eng.Close)
	for i := 0; i < ticks; i++ {
		eng.Tick()
	}
	mux := http.NewServeMux()
	NewReplayHandler(eng, logger.NewDiscard()).RegisterRoutes(mux)
	return eng, mux
}

func TestHandleSnapshot(t *testing.T) {
	_, mux := newTestReplay(t, 3)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp SnapshotResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if resp.TickNumber != 3 || resp.Stats.Health.Current != 97 || resp.Stats.Experience != 30 {
		t.Errorf("Unexpected snapshot %+v", resp)
	}
}

func TestHandleSnapshotRejectsPost(t *testing.T) {
	_, mux := newTestReplay(t, 0)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/snapshot", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestHandleReplayFilters(t *testing.T) {
	_, mux := newTestReplay(t, 10)

	tests := []struct {
		query string
		code  int
		count int
	}{
		{"/api/events?type=LEVEL_UP", http.StatusOK, 1},
		{"/api/events?type=TIME_TICK&limit=4", http.StatusOK, 4},
		{"/api/events?type=TIME_TICK&since=50", http.StatusOK, 1},
		{"/api/events?limit=x", http.StatusBadRequest, 0},
		{"/api/events?since=-1", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.query, nil))
		if rec.Code != tt.code {
			t.Errorf("%s: expected %d, got %d", tt.query, tt.code, rec.Code)
			continue
		}
		if tt.code != http.StatusOK {
			continue
		}
		var resp ReplayResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("%s: decode: %v", tt.query, err)
		}
		if resp.TotalEvents != tt.count {
			t.Errorf("%s: expected %d events, got %d", tt.query, tt.count, resp.TotalEvents)
		}
	}
}

func TestReplaySummaries(t *testing.T) {
	_, mux := newTestReplay(t, 10)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events?type=LEVEL_UP", nil))

	var resp ReplayResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(resp.Events) != 1 {
		t.Fatalf("Expected one event, got %d", len(resp.Events))
	}
	ev := resp.Events[0]
	if ev.Summary != "Reached level 2." || ev.Impact != "POSITIVE" || ev.TickNumber != 10 {
		t.Errorf("Unexpected replay event %+v", ev)
	}
}
