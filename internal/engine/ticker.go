// Package engine contains the tick loop that drives the vitals store.
//
// ARCHITECTURAL RULE: The Ticker does NOT touch the store itself.
// It calls its tick handler and records a TimeTickEvent; the VitalsSystem
// owns the mutation steps.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MRamiBalles/vitals/internal/events"
	"github.com/MRamiBalles/vitals/internal/platform/logger"
	"github.com/MRamiBalles/vitals/internal/platform/metrics"
)

// TickRate is the default interval between ticks.
const TickRate = 1 * time.Second

// TimeTickPayload is the data attached to each TimeTickEvent.
type TimeTickPayload struct {
	TickNumber int64         `json:"tick_number"`
	Interval   time.Duration `json:"interval"`
}

// Ticker manages the recurring tick. It runs until its context is cancelled
// or Stop is called.
type Ticker struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector
	interval time.Duration
	onTick   func(TimeTickPayload)

	mu         sync.Mutex // one tick at a time
	tickNumber atomic.Int64

	started  atomic.Bool
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewTicker creates a ticker that calls onTick every interval.
// A non-positive interval falls back to TickRate.
func NewTicker(eventLog *events.EventLog, log *logger.Logger, interval time.Duration, onTick func(TimeTickPayload)) *Ticker {
	if interval <= 0 {
		interval = TickRate
	}
	return &Ticker{
		eventLog: eventLog,
		logger:   log,
		metrics:  metrics.Get(),
		interval: interval,
		onTick:   onTick,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the tick loop and blocks until it ends. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	if !t.started.CompareAndSwap(false, true) {
		t.logger.Warn("Ticker already started.")
		return
	}
	defer close(t.done)

	t.logger.Info("Ticker started every " + t.interval.String())

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Ticker stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Ticker stopped manually.")
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Stop ends the loop and waits for it to exit. Safe to call more than once
// and before Start.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
	})
	if t.started.Load() {
		<-t.done
	}
}

// Tick runs one tick synchronously.
func (t *Ticker) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := time.Now()
	payload := TimeTickPayload{
		TickNumber: t.tickNumber.Add(1),
		Interval:   t.interval,
	}

	if t.onTick != nil {
		t.onTick(payload)
	}

	t.eventLog.Append(events.Event{
		Type:       events.EventTypeTimeTick,
		ActorID:    ActorTicker,
		Payload:    payload,
		TickNumber: payload.TickNumber,
	})
	t.metrics.RecordTick(time.Since(start))
	t.logger.Event(string(events.EventTypeTimeTick), ActorTicker, fmt.Sprintf("Tick %d", payload.TickNumber))
}

// TickNumber returns how many ticks have run.
func (t *Ticker) TickNumber() int64 {
	return t.tickNumber.Load()
}

// SetTickNumber restores the counter, e.g. after loading a snapshot.
func (t *Ticker) SetTickNumber(n int64) {
	t.tickNumber.Store(n)
}

// Interval returns the tick interval.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}
