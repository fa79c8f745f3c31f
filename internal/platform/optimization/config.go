// Package optimization provides concurrency tuning for the vitals server:
// channel buffers for the view hub and the event writer, and the SQLite pool.
package optimization

import (
	"runtime"
)

// Config holds tuned parameters for a load profile.
type Config struct {
	// Channel buffer sizes
	EventChannelBuffer     int // pending event writes to SQLite
	BroadcastChannelBuffer int // cell updates waiting for the hub loop
	ClientSendBuffer       int // per websocket

	// Connection pool
	DBMaxOpenConns int
	DBMaxIdleConns int

	MaxClients int
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		EventChannelBuffer:     1024,
		BroadcastChannelBuffer: 256,
		ClientSendBuffer:       64,

		// SQLite serializes writers; extra conns only help readers.
		DBMaxOpenConns: numCPU,
		DBMaxIdleConns: 2,

		MaxClients: 200,
	}
}

// StressTestConfig returns aggressive settings for soak runs with fast ticks.
func StressTestConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		EventChannelBuffer:     4096,
		BroadcastChannelBuffer: 1024,
		ClientSendBuffer:       256,

		DBMaxOpenConns: numCPU * 2,
		DBMaxIdleConns: numCPU,

		MaxClients: 500,
	}
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	return &Config{
		EventChannelBuffer:     64,
		BroadcastChannelBuffer: 16,
		ClientSendBuffer:       8,

		DBMaxOpenConns: 1,
		DBMaxIdleConns: 1,

		MaxClients: 20,
	}
}

// ForProfile maps a profile name to its settings. Unknown names get the
// defaults.
func ForProfile(name string) *Config {
	switch name {
	case "stress":
		return StressTestConfig()
	case "low":
		return LowResourceConfig()
	default:
		return DefaultConfig()
	}
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseEventBuffer     bool
	IncreaseBroadcastBuffer bool
	IncreaseDBConnections   bool
	Notes                   []string
}

// Analyze examines a metrics snapshot and returns tuning recommendations.
func Analyze(metrics map[string]interface{}) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	// Check tick latency
	if tick, ok := metrics["tick"].(map[string]interface{}); ok {
		if maxLat, ok := tick["max_latency_ms"].(float64); ok && maxLat > 100 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "Tick latency exceeds 100ms - slow subscribers are holding up notifications")
		}
	}

	// Check event write latency
	if events, ok := metrics["events"].(map[string]interface{}); ok {
		if maxLat, ok := events["max_write_lat_ms"].(float64); ok && maxLat > 50 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write latency exceeds 50ms - increase DB connections")
		}
		if errors, ok := events["errors"].(int64); ok && errors > 0 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write errors detected - check DB connection pool")
		}
		if dropped, ok := events["dropped"].(int64); ok && dropped > 0 {
			rec.IncreaseEventBuffer = true
			rec.Notes = append(rec.Notes, "Events dropped before persistence - increase event buffer")
		}
	}

	// Check WebSocket backpressure
	if ws, ok := metrics["websocket"].(map[string]interface{}); ok {
		if errors, ok := ws["errors"].(int64); ok && errors > 0 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
	}

	return rec
}
