// Package test - drain_scenario.go
// Scenario harness: runs a fresh player through k ticks under each bounds
// policy and checks the resulting cells against closed-form expectations.
package test

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MRamiBalles/vitals/internal/domain/player"
	"github.com/MRamiBalles/vitals/internal/engine"
	"github.com/MRamiBalles/vitals/internal/events"
	"github.com/MRamiBalles/vitals/internal/platform/logger"
	"github.com/MRamiBalles/vitals/internal/reactive"
)

// TestResult captures the outcome of each scenario.
type TestResult struct {
	ScenarioName string
	Ticks        int
	Expected     string
	Actual       string
	Passed       bool
	Reason       string
}

// Outcome is what a scenario run leaves behind: the final cells, the event
// log, and every frame rendered by the views bound to each cell.
type Outcome struct {
	Stats  player.Stats
	Events *events.EventLog
	Frames map[string][]int
}

// Scenario is one run of k ticks and the check applied afterwards.
type Scenario struct {
	Name   string
	Policy player.Policy
	Ticks  int
	Check  func(o Outcome) (expected, actual string, ok bool)
}

// DrainScenarioTest runs the scenarios against in-memory engines.
type DrainScenarioTest struct {
	logger    *logger.Logger
	scenarios []Scenario
	results   []TestResult
	verbose   bool
}

// NewDrainScenarioTest creates the harness with the built-in scenarios.
func NewDrainScenarioTest(verbose bool) *DrainScenarioTest {
	return &DrainScenarioTest{
		logger:    logger.NewDiscard(),
		scenarios: DefaultScenarios(),
		verbose:   verbose,
	}
}

// DefaultScenarios covers the tick arithmetic and both boundary policies.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:   "Five ticks of raw arithmetic",
			Policy: player.UnboundedPolicy(),
			Ticks:  5,
			Check: func(o Outcome) (string, string, bool) {
				return expectCells(o.Stats, 95, 45, 70, 50)
			},
		},
		{
			Name:   "Unbounded run past the floor",
			Policy: player.UnboundedPolicy(),
			Ticks:  101,
			Check: func(o Outcome) (string, string, bool) {
				return expectCells(o.Stats, -1, -51, -26, 1010)
			},
		},
		{
			Name:   "Clamped run stays in range",
			Policy: player.DefaultPolicy(),
			Ticks:  101,
			Check: func(o Outcome) (string, string, bool) {
				return expectCells(o.Stats, 0, 0, 0, 197)
			},
		},
		{
			Name:   "Level-ups carry experience over",
			Policy: player.DefaultPolicy(),
			Ticks:  101,
			Check: func(o Outcome) (string, string, bool) {
				s := o.Stats
				ups := len(o.Events.GetByType(events.EventTypeLevelUp, 0))
				expected := "level=5 max_experience=507 level_ups=4"
				actual := fmt.Sprintf("level=%d max_experience=%d level_ups=%d", s.Level, s.MaxExperience, ups)
				return expected, actual, expected == actual
			},
		},
		{
			Name:   "Each resource depletes once",
			Policy: player.DefaultPolicy(),
			Ticks:  150,
			Check: func(o Outcome) (string, string, bool) {
				var ticks []string
				for _, e := range o.Events.GetByType(events.EventTypeResourceDepleted, 0) {
					p := e.Payload.(engine.DepletedPayload)
					ticks = append(ticks, fmt.Sprintf("%s@%d", p.Resource, e.TickNumber))
				}
				expected := "mana@50 stamina@75 health@100"
				actual := strings.Join(ticks, " ")
				return expected, actual, expected == actual
			},
		},
		{
			Name:   "Views render on mount and on every change",
			Policy: player.DefaultPolicy(),
			Ticks:  3,
			Check: func(o Outcome) (string, string, bool) {
				changes := make(map[string]int)
				for _, e := range o.Events.GetByType(events.EventTypeCellChanged, 0) {
					changes[e.TargetID]++
				}
				var extra []string
				for cell, frames := range o.Frames {
					if len(frames) != changes[cell]+1 {
						extra = append(extra, cell)
					}
				}
				expected := "health.current=[100 99 98 97] progress.level=[1] mismatched=0"
				actual := fmt.Sprintf("health.current=%v progress.level=%v mismatched=%d",
					o.Frames["health.current"], o.Frames["progress.level"], len(extra))
				return expected, actual, expected == actual
			},
		},
	}
}

func expectCells(s player.Stats, health, mana, stamina, experience int) (string, string, bool) {
	expected := fmt.Sprintf("health=%d mana=%d stamina=%d experience=%d", health, mana, stamina, experience)
	actual := fmt.Sprintf("health=%d mana=%d stamina=%d experience=%d",
		s.Health.Current, s.Mana.Current, s.Stamina.Current, s.Experience)
	return expected, actual, expected == actual
}

// RunTest executes every scenario. It stops early if ctx is cancelled.
func (t *DrainScenarioTest) RunTest(ctx context.Context) {
	for _, sc := range t.scenarios {
		if ctx.Err() != nil {
			return
		}
		t.results = append(t.results, t.run(sc))
	}
}

func (t *DrainScenarioTest) run(sc Scenario) TestResult {
	result := TestResult{ScenarioName: sc.Name, Ticks: sc.Ticks}

	p, err := player.New("SCENARIO", player.DefaultStats(), sc.Policy)
	if err != nil {
		result.Reason = err.Error()
		return result
	}
	el := events.NewEventLog(nil, 0)
	eng := engine.NewEngine(p, el, t.logger, time.Hour)
	defer eng.Close()

	frames := make(map[string][]int)
	for _, cell := range p.Cells() {
		name := cell.Name
		unbind := reactive.Bind[int](cell.Value, func(v int) {
			frames[name] = append(frames[name], v)
		})
		defer unbind()
	}

	for k := 0; k < sc.Ticks; k++ {
		eng.Tick()
	}

	result.Expected, result.Actual, result.Passed = sc.Check(Outcome{Stats: p.Snapshot(), Events: el, Frames: frames})
	if result.Passed {
		result.Reason = "matches"
	} else {
		result.Reason = "mismatch after " + fmt.Sprint(sc.Ticks) + " ticks"
	}

	if t.verbose {
		mark := "PASS"
		if !result.Passed {
			mark = "FAIL"
		}
		fmt.Printf("[%s] %s (%d ticks)\n       expected: %s\n       actual:   %s\n",
			mark, sc.Name, sc.Ticks, result.Expected, result.Actual)
	}
	return result
}

// GetResults returns all test results.
func (t *DrainScenarioTest) GetResults() []TestResult {
	return t.results
}
