// Package metrics provides observability for the vitals server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Store metrics
	CellChanges int64

	// Event metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64
	EventsDropped    int64

	// Snapshot backups
	SnapshotsSaved int64
	SnapshotErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = NewCollector()

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordCellChange counts one notification-producing write to the store.
func (c *Collector) RecordCellChange() {
	atomic.AddInt64(&c.CellChanges, 1)
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.EventWriteLatMax) {
		atomic.StoreInt64(&c.EventWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordEventDropped records an event that never reached the database
// because the write queue was full.
func (c *Collector) RecordEventDropped() {
	atomic.AddInt64(&c.EventsDropped, 1)
}

// RecordSnapshot records a snapshot backup attempt.
func (c *Collector) RecordSnapshot(err error) {
	if err != nil {
		atomic.AddInt64(&c.SnapshotErrors, 1)
		return
	}
	atomic.AddInt64(&c.SnapshotsSaved, 1)
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	// Calculate averages
	var tickAvg, eventAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	lastTick := ""
	if !c.LastTickTime.IsZero() {
		lastTick = c.LastTickTime.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      lastTick,
		},

		"store": map[string]interface{}{
			"cell_changes": atomic.LoadInt64(&c.CellChanges),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
			"dropped":          atomic.LoadInt64(&c.EventsDropped),
		},

		"snapshots": map[string]interface{}{
			"saved":  atomic.LoadInt64(&c.SnapshotsSaved),
			"errors": atomic.LoadInt64(&c.SnapshotErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := collector.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		// Tick metrics
		fmt.Fprintf(w, "# HELP vitals_tick_count Total tick cycles\n")
		fmt.Fprintf(w, "# TYPE vitals_tick_count counter\n")
		fmt.Fprintf(w, "vitals_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP vitals_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE vitals_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "vitals_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP vitals_cell_changes Total store writes that notified subscribers\n")
		fmt.Fprintf(w, "# TYPE vitals_cell_changes counter\n")
		fmt.Fprintf(w, "vitals_cell_changes %d\n\n", atomic.LoadInt64(&c.CellChanges))

		// Event metrics
		fmt.Fprintf(w, "# HELP vitals_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE vitals_events_written counter\n")
		fmt.Fprintf(w, "vitals_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP vitals_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE vitals_event_write_errors counter\n")
		fmt.Fprintf(w, "vitals_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		fmt.Fprintf(w, "# HELP vitals_events_dropped Events dropped before persistence\n")
		fmt.Fprintf(w, "# TYPE vitals_events_dropped counter\n")
		fmt.Fprintf(w, "vitals_events_dropped %d\n\n", atomic.LoadInt64(&c.EventsDropped))

		fmt.Fprintf(w, "# HELP vitals_snapshots_total Snapshot backups by outcome\n")
		fmt.Fprintf(w, "# TYPE vitals_snapshots_total counter\n")
		fmt.Fprintf(w, "vitals_snapshots_total{outcome=\"saved\"} %d\n", atomic.LoadInt64(&c.SnapshotsSaved))
		fmt.Fprintf(w, "vitals_snapshots_total{outcome=\"error\"} %d\n\n", atomic.LoadInt64(&c.SnapshotErrors))

		// WebSocket metrics
		fmt.Fprintf(w, "# HELP vitals_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE vitals_ws_connections gauge\n")
		fmt.Fprintf(w, "vitals_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP vitals_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE vitals_ws_messages_total counter\n")
		fmt.Fprintf(w, "vitals_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "vitals_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
