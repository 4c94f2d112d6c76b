package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures the complete outcome of a scenario execution.
// Field order is fixed so the JSON form is byte-stable for golden
// comparison. Timings are deliberately excluded.
type TraceSnapshot struct {
	ScenarioName string        `json:"scenario_name"`
	CycleID      string        `json:"cycle_id"`
	Trace        []TraceEvent  `json:"trace"`
	Modules      []FinalModule `json:"modules"`
}

// RunWithGolden executes a scenario, checks its assertions and compares
// the trace snapshot against a golden file. Golden files live in
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario fails to run or an assertion fails.
// Golden mismatch fails the test via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if err := Check(scenario, result); err != nil {
		return err
	}

	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		CycleID:      result.Cycle.ID,
		Trace:        result.Trace,
		Modules:      result.Modules,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}
