package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MRamiBalles/vitals/internal/domain/player"
	"github.com/MRamiBalles/vitals/internal/events"
	"github.com/MRamiBalles/vitals/internal/platform/logger"
	"github.com/MRamiBalles/vitals/internal/platform/metrics"
)

// Actor IDs recorded on events.
const (
	ActorTicker = "TICKER"
	ActorVitals = "VITALS"
	ActorStore  = "STORE"
)

// CellChangePayload is attached to every CELL_CHANGED event.
type CellChangePayload struct {
	Cell  string `json:"cell"`
	Value int    `json:"value"`
}

// Engine owns the store for its lifetime: it wires the ticker to the
// VitalsSystem, records every cell change, and tears both down in Close.
type Engine struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector
	player   *player.Player
	ticker   *Ticker

	// Sub-systems
	vitalsSystem *VitalsSystem

	// Seq of the latest CELL_CHANGED event per cell. Fixed key set.
	changeSeq map[string]*atomic.Int64

	mu     sync.Mutex
	unsubs []func()
	closed bool
}

// NewEngine initializes the tick loop for p. interval <= 0 means TickRate.
func NewEngine(p *player.Player, eventLog *events.EventLog, log *logger.Logger, interval time.Duration) *Engine {
	e := &Engine{
		eventLog:     eventLog,
		logger:       log,
		metrics:      metrics.Get(),
		player:       p,
		vitalsSystem: NewVitalsSystem(eventLog, log, p),
		changeSeq:    make(map[string]*atomic.Int64),
	}
	e.ticker = NewTicker(eventLog, log, interval, e.vitalsSystem.OnTimeTick)

	for _, cell := range p.Cells() {
		name := cell.Name
		e.changeSeq[name] = new(atomic.Int64)
		e.unsubs = append(e.unsubs, cell.Value.Subscribe(func(v int) {
			e.recordChange(name, v)
		}))
	}
	return e
}

func (e *Engine) recordChange(cell string, value int) {
	e.metrics.RecordCellChange()
	recorded := e.eventLog.Append(events.Event{
		Type:       events.EventTypeCellChanged,
		ActorID:    ActorStore,
		TargetID:   cell,
		Payload:    CellChangePayload{Cell: cell, Value: value},
		TickNumber: e.ticker.TickNumber(),
	})
	e.changeSeq[cell].Store(recorded.Seq)
}

// ChangeSeq returns the seq of the CELL_CHANGED event recorded for the
// cell's latest change, or 0 if it has not changed. Subscribers added after
// NewEngine are notified after the engine, so from their callback this is
// the seq of the change being delivered.
func (e *Engine) ChangeSeq(cell string) int64 {
	if seq, ok := e.changeSeq[cell]; ok {
		return seq.Load()
	}
	return 0
}

// Start spawns the ticker.
func (e *Engine) Start(ctx context.Context) {
	e.logger.Info("Starting vitals engine for " + e.player.ID)
	go e.ticker.Start(ctx)
}

// Tick runs one tick synchronously, outside the timed loop.
func (e *Engine) Tick() {
	e.ticker.Tick()
}

// Close stops the ticker and drops the engine's subscriptions. Safe to call
// more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true

	e.ticker.Stop()
	for _, unsubscribe := range e.unsubs {
		unsubscribe()
	}
	e.unsubs = nil
	e.logger.Info("Vitals engine closed for " + e.player.ID)
}

// Player returns the store the engine drives.
func (e *Engine) Player() *player.Player {
	return e.player
}

// EventLog exposes the event trail for the API and the hub.
func (e *Engine) EventLog() *events.EventLog {
	return e.eventLog
}

// TickNumber returns how many ticks have run.
func (e *Engine) TickNumber() int64 {
	return e.ticker.TickNumber()
}

// RestoreTickNumber sets the tick counter after loading a snapshot.
func (e *Engine) RestoreTickNumber(n int64) {
	e.ticker.SetTickNumber(n)
}
