package harness

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/roach88/hotswap/internal/bundle"
	"github.com/roach88/hotswap/internal/installer"
	"github.com/roach88/hotswap/internal/plan"
	"github.com/roach88/hotswap/internal/testutil"
)

// DefaultCycleID is used when a scenario doesn't pin one.
const DefaultCycleID = "cycle-0001"

// TraceEvent is one executed task in a scenario's trace.
type TraceEvent struct {
	Seq     int    `json:"seq"`
	SortKey string `json:"sort_key"`
	Task    string `json:"task"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// FinalModule is a module's state after the cycle finished.
type FinalModule struct {
	ID      string `json:"id"`
	State   string `json:"state"`
	Version string `json:"version,omitempty"`
}

// Result holds everything a scenario run produced.
type Result struct {
	Cycle   *installer.CycleResult
	Trace   []TraceEvent
	Modules []FinalModule
	Logs    *testutil.LogRecorder
}

// Run executes a scenario: seed the runtime, compile the plan into a
// cycle, drain it and capture the trace and final module states.
func Run(scenario *Scenario) (*Result, error) {
	rt, err := seedRuntime(scenario)
	if err != nil {
		return nil, err
	}

	p := &plan.Plan{Refresh: scenario.Plan.Refresh}
	for _, e := range scenario.Plan.Install {
		p.Install = append(p.Install, plan.Entry{ID: e.ID, Version: e.Version})
	}
	for _, e := range scenario.Plan.Update {
		p.Update = append(p.Update, plan.Entry{ID: e.ID, Version: e.Version})
	}
	for _, e := range scenario.Plan.Uninstall {
		p.Uninstall = append(p.Uninstall, plan.Entry{ID: e.ID})
	}

	cycleID := scenario.CycleID
	if cycleID == "" {
		cycleID = DefaultCycleID
	}

	logs := testutil.NewLogRecorder()
	exec := installer.New(rt,
		installer.WithLogger(logs.Logger()),
		installer.WithCycleIDs(installer.NewFixedGenerator(cycleID)),
	)

	cycle := installer.NewCycle(plan.Compile(p)...)
	cycleResult, err := exec.RunCycle(context.Background(), cycle)
	if err != nil {
		return nil, fmt.Errorf("cycle %s: %w", cycleID, err)
	}

	result := &Result{Cycle: cycleResult, Logs: logs}
	for _, tr := range cycleResult.Results {
		ev := TraceEvent{
			Seq:     tr.Seq,
			SortKey: tr.SortKey,
			Task:    tr.Task,
			Outcome: tr.Outcome(),
		}
		if tr.Err != nil {
			ev.Error = tr.Err.Error()
		}
		result.Trace = append(result.Trace, ev)
	}

	mods := rt.List()
	sort.Slice(mods, func(i, j int) bool { return mods[i].ID() < mods[j].ID() })
	for _, m := range mods {
		result.Modules = append(result.Modules, FinalModule{
			ID:      string(m.ID()),
			State:   m.State().String(),
			Version: m.Version(),
		})
	}

	return result, nil
}

func seedRuntime(scenario *Scenario) (*bundle.MemRuntime, error) {
	opts := []bundle.MemOption{}
	if scenario.RefreshDelayMS > 0 {
		opts = append(opts, bundle.WithRefreshDelay(time.Duration(scenario.RefreshDelayMS)*time.Millisecond))
	}
	rt := bundle.NewMemRuntime(opts...)

	seeds := make([]bundle.SeedModule, 0, len(scenario.Modules))
	for _, m := range scenario.Modules {
		state := bundle.Installed
		if m.State != "" {
			parsed, ok := bundle.ParseState(m.State)
			if !ok {
				return nil, fmt.Errorf("module %s: unknown state %q", m.ID, m.State)
			}
			state = parsed
		}
		seeds = append(seeds, bundle.SeedModule{
			ID:      bundle.ID(m.ID),
			Version: m.Version,
			State:   state,
		})
	}
	rt.Seed(seeds...)
	return rt, nil
}

// Check evaluates all of the scenario's assertions against the result.
// Returns the first failing assertion as an error, nil when all pass.
func Check(scenario *Scenario, result *Result) error {
	for i, a := range scenario.Assertions {
		if err := checkOne(&a, result); err != nil {
			return fmt.Errorf("assertions[%d] (%s): %w", i, a.Type, err)
		}
	}
	return nil
}

func checkOne(a *Assertion, result *Result) error {
	switch a.Type {
	case AssertTaskOrder:
		return checkTaskOrder(a.Tasks, result.Trace)
	case AssertTaskCount:
		if len(result.Trace) != a.Count {
			return fmt.Errorf("expected %d task(s), got %d", a.Count, len(result.Trace))
		}
		return nil
	case AssertTaskOutcome:
		for _, ev := range result.Trace {
			if ev.Task == a.Task {
				if ev.Outcome != a.Outcome {
					return fmt.Errorf("task %s: expected outcome %s, got %s", a.Task, a.Outcome, ev.Outcome)
				}
				return nil
			}
		}
		return fmt.Errorf("task %s not found in trace", a.Task)
	case AssertModuleState:
		return checkModuleState(a, result.Modules)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// checkTaskOrder verifies the named tasks appear in the trace in the
// given relative order. Other tasks may interleave.
func checkTaskOrder(tasks []string, trace []TraceEvent) error {
	next := 0
	for _, ev := range trace {
		if next < len(tasks) && ev.Task == tasks[next] {
			next++
		}
	}
	if next != len(tasks) {
		return fmt.Errorf("task %q missing or out of order", tasks[next])
	}
	return nil
}

func checkModuleState(a *Assertion, modules []FinalModule) error {
	for _, m := range modules {
		if m.ID != a.Module {
			continue
		}
		if a.State == StateGone {
			return fmt.Errorf("module %s: expected absent, found in state %s", a.Module, m.State)
		}
		if m.State != a.State {
			return fmt.Errorf("module %s: expected state %s, got %s", a.Module, a.State, m.State)
		}
		if a.Version != "" && m.Version != a.Version {
			return fmt.Errorf("module %s: expected version %s, got %s", a.Module, a.Version, m.Version)
		}
		return nil
	}
	if a.State == StateGone {
		return nil
	}
	return fmt.Errorf("module %s not found in runtime", a.Module)
}
