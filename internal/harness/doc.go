// Package harness provides a scenario-based conformance harness for the
// installer.
//
// Scenarios are YAML files that seed an in-memory module runtime, apply a
// plan as one cycle and assert on the execution trace and the resulting
// module states. Golden files capture the full trace for regression
// comparison.
//
// A scenario looks like:
//
//	name: update-with-refresh
//	description: Updating an active module refreshes wiring and restarts it.
//	modules:
//	  - id: com.example.core
//	    version: 1.0.0
//	    state: ACTIVE
//	plan:
//	  update:
//	    - id: com.example.core
//	      version: 1.1.0
//	assertions:
//	  - type: task_order
//	    tasks: ["update:com.example.core", "refresh-packages", "start:com.example.core"]
//	  - type: module_state
//	    module: com.example.core
//	    state: ACTIVE
//	    version: 1.1.0
//
// Cycle IDs are fixed per scenario so traces are byte-stable across runs.
package harness
