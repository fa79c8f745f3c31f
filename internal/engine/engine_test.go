package engine

import (
	"context"
	"testing"
	"time"

	"github.com/MRamiBalles/vitals/internal/domain/player"
	"github.com/MRamiBalles/vitals/internal/events"
	"github.com/MRamiBalles/vitals/internal/platform/logger"
)

func newTestEngine(t *testing.T, policy player.Policy, interval time.Duration) *Engine {
	t.Helper()
	p, err := player.New("P001", player.DefaultStats(), policy)
	if err != nil {
		t.Fatalf("player.New: %v", err)
	}
	e := NewEngine(p, events.NewEventLog(nil, 0), logger.NewDiscard(), interval)
	t.Cleanup(e.Close)
	return e
}

func TestTickArithmetic(t *testing.T) {
	e := newTestEngine(t, player.UnboundedPolicy(), time.Hour)
	p := e.Player()

	for k := 0; k < 5; k++ {
		e.Tick()
	}

	checks := []struct {
		name string
		got  int
		want int
	}{
		{"health", p.Health.Current.Get(), 95},
		{"mana", p.Mana.Current.Get(), 45},
		{"stamina", p.Stamina.Current.Get(), 70},
		{"experience", p.Progress.Experience.Get(), 50},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("after 5 ticks %s = %d, want %d", c.name, c.got, c.want)
		}
	}
	if e.TickNumber() != 5 {
		t.Errorf("TickNumber = %d, want 5", e.TickNumber())
	}
}

func TestTickStepOrder(t *testing.T) {
	e := newTestEngine(t, player.DefaultPolicy(), time.Hour)
	p := e.Player()
	var order []string

	p.Health.Current.Subscribe(func(int) { order = append(order, "health") })
	p.Mana.Current.Subscribe(func(int) { order = append(order, "mana") })
	p.Stamina.Current.Subscribe(func(int) {
		// Step 3 is visible before step 4 runs.
		if p.Progress.Experience.Get() != 0 {
			t.Errorf("experience changed before stamina was written")
		}
		order = append(order, "stamina")
	})
	p.Progress.Experience.Subscribe(func(int) { order = append(order, "experience") })

	e.Tick()

	want := []string{"health", "mana", "stamina", "experience"}
	if len(order) != len(want) {
		t.Fatalf("Expected steps %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("step %d = %s, want %s", i+1, order[i], want[i])
		}
	}
}

func TestBoundaryUnbounded(t *testing.T) {
	e := newTestEngine(t, player.UnboundedPolicy(), time.Hour)

	for k := 0; k < 101; k++ {
		e.Tick()
	}

	// Raw arithmetic runs past the floor.
	if got := e.Player().Health.Current.Get(); got != -1 {
		t.Errorf("health = %d, want -1 under the unbounded policy", got)
	}
	if got := e.Player().Progress.Experience.Get(); got != 1010 {
		t.Errorf("experience = %d, want 1010", got)
	}
}

func TestBoundaryClamped(t *testing.T) {
	e := newTestEngine(t, player.DefaultPolicy(), time.Hour)
	p := e.Player()

	for k := 0; k < 101; k++ {
		e.Tick()
	}

	for _, r := range p.Resources() {
		if got := r.Current.Get(); got < 0 || got > r.Max.Get() {
			t.Errorf("%s = %d, outside [0, %d]", r.Name, got, r.Max.Get())
		}
	}
	if got := p.Health.Current.Get(); got != 0 {
		t.Errorf("health = %d, want 0", got)
	}
	if got := p.Progress.Level.Get(); got != 5 {
		t.Errorf("level = %d, want 5", got)
	}
	if got := p.Progress.Experience.Get(); got != 197 {
		t.Errorf("experience = %d, want 197", got)
	}
	if got := p.Progress.MaxExperience.Get(); got != 507 {
		t.Errorf("max experience = %d, want 507", got)
	}
}

func TestLevelUpEvent(t *testing.T) {
	e := newTestEngine(t, player.DefaultPolicy(), time.Hour)

	for k := 0; k < 10; k++ {
		e.Tick()
	}

	ups := e.EventLog().GetByType(events.EventTypeLevelUp, 0)
	if len(ups) != 1 {
		t.Fatalf("Expected one LEVEL_UP event after 10 ticks, got %d", len(ups))
	}
	payload, ok := ups[0].Payload.(LevelUpPayload)
	if !ok {
		t.Fatalf("Unexpected payload type %T", ups[0].Payload)
	}
	if payload.Level != 2 || ups[0].TickNumber != 10 {
		t.Errorf("Unexpected level-up %+v at tick %d", payload, ups[0].TickNumber)
	}
}

func TestDepletedEventFiresOnce(t *testing.T) {
	e := newTestEngine(t, player.DefaultPolicy(), time.Hour)

	for k := 0; k < 60; k++ {
		e.Tick()
	}

	depleted := e.EventLog().GetByType(events.EventTypeResourceDepleted, 0)
	if len(depleted) != 1 {
		t.Fatalf("Expected only mana to deplete within 60 ticks, got %d events", len(depleted))
	}
	if payload := depleted[0].Payload.(DepletedPayload); payload.Resource != player.ResourceMana {
		t.Errorf("Expected mana to deplete first, got %s", payload.Resource)
	}
	if depleted[0].TickNumber != 50 {
		t.Errorf("Expected mana to deplete at tick 50, got %d", depleted[0].TickNumber)
	}
}

func TestCellChangesRecorded(t *testing.T) {
	e := newTestEngine(t, player.DefaultPolicy(), time.Hour)

	e.Tick()

	changes := e.EventLog().GetByType(events.EventTypeCellChanged, 0)
	if len(changes) != 4 {
		t.Fatalf("Expected 4 CELL_CHANGED events for one tick, got %d", len(changes))
	}
	if changes[0].TargetID != "health.current" || changes[3].TargetID != "progress.experience" {
		t.Errorf("Unexpected cells %s .. %s", changes[0].TargetID, changes[3].TargetID)
	}
	if ticks := e.EventLog().GetByType(events.EventTypeTimeTick, 0); len(ticks) != 1 {
		t.Errorf("Expected one TIME_TICK event, got %d", len(ticks))
	}
}

func TestChangeSeqSeenByLaterSubscriber(t *testing.T) {
	e := newTestEngine(t, player.DefaultPolicy(), time.Hour)
	mana := e.Player().Mana.Current

	var seqAtDelivery int64
	unsubscribe := mana.Subscribe(func(int) { seqAtDelivery = e.ChangeSeq("mana.current") })
	defer unsubscribe()

	if got := e.ChangeSeq("mana.current"); got != 0 {
		t.Errorf("Expected 0 before any change, got %d", got)
	}
	e.Tick()

	changes := e.EventLog().GetByType(events.EventTypeCellChanged, 0)
	var manaSeq int64
	for _, c := range changes {
		if c.TargetID == "mana.current" {
			manaSeq = c.Seq
		}
	}
	if manaSeq == 0 || seqAtDelivery != manaSeq {
		t.Errorf("Subscriber saw seq %d, CELL_CHANGED has %d", seqAtDelivery, manaSeq)
	}
	if got := e.ChangeSeq("no.such.cell"); got != 0 {
		t.Errorf("Expected 0 for an unknown cell, got %d", got)
	}
}

func TestCloseDropsSubscriptions(t *testing.T) {
	e := newTestEngine(t, player.DefaultPolicy(), time.Hour)

	e.Close()
	e.Close()

	for _, cell := range e.Player().Cells() {
		if n := cell.Value.Len(); n != 0 {
			t.Errorf("%s still has %d subscribers after Close", cell.Name, n)
		}
	}
}

func TestTickerStopsOnContextCancel(t *testing.T) {
	el := events.NewEventLog(nil, 0)
	ticks := make(chan int64, 100)
	tk := NewTicker(el, logger.NewDiscard(), 5*time.Millisecond, func(p TimeTickPayload) {
		ticks <- p.TickNumber
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tk.Start(ctx)
		close(done)
	}()

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("Ticker never ticked")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Ticker did not stop after context cancel")
	}
}

func TestTickerStop(t *testing.T) {
	el := events.NewEventLog(nil, 0)
	tk := NewTicker(el, logger.NewDiscard(), time.Millisecond, nil)

	go tk.Start(context.Background())
	time.Sleep(10 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		tk.Stop()
		tk.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	n := tk.TickNumber()
	time.Sleep(10 * time.Millisecond)
	if tk.TickNumber() != n {
		t.Errorf("Ticker kept ticking after Stop")
	}
}

func TestTickerStopBeforeStart(t *testing.T) {
	tk := NewTicker(events.NewEventLog(nil, 0), logger.NewDiscard(), time.Hour, nil)

	tk.Stop()
	tk.Start(context.Background()) // returns immediately

	if tk.TickNumber() != 0 {
		t.Errorf("Expected no ticks, got %d", tk.TickNumber())
	}
}

func TestDefaultInterval(t *testing.T) {
	tk := NewTicker(events.NewEventLog(nil, 0), logger.NewDiscard(), 0, nil)
	if tk.Interval() != TickRate {
		t.Errorf("Interval = %s, want %s", tk.Interval(), TickRate)
	}
}
