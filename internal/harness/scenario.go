package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios seed a runtime, apply a plan as one cycle and assert on the
// execution trace and the final module states.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Modules seeds the runtime before the cycle runs.
	Modules []ModuleSeed `yaml:"modules,omitempty"`

	// Plan holds the entries compiled into the cycle's tasks.
	Plan PlanSpec `yaml:"plan"`

	// CycleID is an optional fixed cycle ID for deterministic traces.
	// Defaults to "cycle-0001".
	CycleID string `yaml:"cycle_id,omitempty"`

	// RefreshDelayMS overrides how long the runtime takes to complete a
	// package refresh. Defaults to 5ms.
	RefreshDelayMS int `yaml:"refresh_delay_ms,omitempty"`

	// Assertions validate the trace and final state.
	// Supported types: task_order, task_count, task_outcome, module_state
	Assertions []Assertion `yaml:"assertions"`
}

// ModuleSeed describes one pre-existing module in the runtime.
type ModuleSeed struct {
	ID      string `yaml:"id"`
	Version string `yaml:"version,omitempty"`
	// State is the lifecycle state name (INSTALLED, ACTIVE, ...).
	// Defaults to INSTALLED.
	State string `yaml:"state,omitempty"`
}

// PlanSpec mirrors a plan file inline in the scenario.
type PlanSpec struct {
	Install   []PlanEntry `yaml:"install,omitempty"`
	Update    []PlanEntry `yaml:"update,omitempty"`
	Uninstall []PlanEntry `yaml:"uninstall,omitempty"`
	// Refresh overrides the default refresh decision when set.
	Refresh *bool `yaml:"refresh,omitempty"`
}

// PlanEntry is one module reference in a plan section.
type PlanEntry struct {
	ID      string `yaml:"id"`
	Version string `yaml:"version,omitempty"`
}

// Assertion validates the trace or final module state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "task_order": tasks appear in this relative order in the trace
	// - "task_count": the trace holds exactly N tasks
	// - "task_outcome": the named task finished with the given outcome
	// - "module_state": a module ends in the given state (and version)
	Type string `yaml:"type"`

	// Tasks is the expected ordering (task_order). Entries match the
	// task's String form, e.g. "update:com.example.core".
	Tasks []string `yaml:"tasks,omitempty"`

	// Count is the expected task count (task_count).
	Count int `yaml:"count,omitempty"`

	// Task names a single task (task_outcome).
	Task string `yaml:"task,omitempty"`

	// Outcome is "ok" or "failed" (task_outcome).
	Outcome string `yaml:"outcome,omitempty"`

	// Module names a module (module_state).
	Module string `yaml:"module,omitempty"`

	// State is the expected final state name (module_state).
	// "GONE" asserts the module is absent from the runtime.
	State string `yaml:"state,omitempty"`

	// Version is the expected final version (module_state, optional).
	Version string `yaml:"version,omitempty"`
}

// Assertion type constants.
const (
	AssertTaskOrder   = "task_order"
	AssertTaskCount   = "task_count"
	AssertTaskOutcome = "task_outcome"
	AssertModuleState = "module_state"

	// StateGone asserts a module is no longer present in the runtime.
	StateGone = "GONE"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	empty := len(s.Plan.Install) == 0 && len(s.Plan.Update) == 0 && len(s.Plan.Uninstall) == 0
	if empty && s.Plan.Refresh == nil {
		return fmt.Errorf("plan must name at least one module or force a refresh")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, m := range s.Modules {
		if m.ID == "" {
			return fmt.Errorf("modules[%d]: id is required", i)
		}
	}

	for section, entries := range map[string][]PlanEntry{
		"install":   s.Plan.Install,
		"update":    s.Plan.Update,
		"uninstall": s.Plan.Uninstall,
	} {
		for i, e := range entries {
			if e.ID == "" {
				return fmt.Errorf("plan.%s[%d]: id is required", section, i)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTaskOrder:
		if len(a.Tasks) == 0 {
			return fmt.Errorf("assertions[%d]: tasks list is required for task_order", index)
		}
	case AssertTaskCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for task_count", index)
		}
	case AssertTaskOutcome:
		if a.Task == "" {
			return fmt.Errorf("assertions[%d]: task is required for task_outcome", index)
		}
		if a.Outcome != "ok" && a.Outcome != "failed" {
			return fmt.Errorf("assertions[%d]: outcome must be ok or failed, got %q", index, a.Outcome)
		}
	case AssertModuleState:
		if a.Module == "" {
			return fmt.Errorf("assertions[%d]: module is required for module_state", index)
		}
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for module_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
