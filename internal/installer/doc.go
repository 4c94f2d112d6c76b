// Package installer implements the hotswap task execution engine.
//
// The engine applies ordered, idempotent tasks to a live set of bundles:
// install, start, stop, update, uninstall, and a packages refresh that
// wraps an inherently asynchronous runtime operation in a bounded,
// synchronous-looking task.
//
// ARCHITECTURE:
//
// Single Execution Goroutine:
// A Cycle is drained by exactly one goroutine. Tasks never run
// concurrently with each other, so ordering and idempotence arguments
// stay simple. The only concurrency in the engine is the runtime's
// notification goroutine, which crosses into RefreshTask through a
// single atomic counter and a coalescing wake channel.
//
// Cycle Processing Flow:
// 1. Tasks enqueued onto a Cycle (initially from a compiled plan)
// 2. Executor.RunCycle() pops tasks in sort-key order until the cycle drains
// 3. Each task executes against a Context scoped to that execution
// 4. Tasks may append follow-on tasks to the same cycle; the cycle is
//    re-sorted before each pop, so injected tasks land in order
// 5. Outcomes are journaled to the store and counted in metrics
//
// Deterministic Ordering:
// Sort keys are constants per task variant with the bundle ID as the
// tie-break, so a cycle's execution order is a pure function of its task
// set. Refresh sorts ahead of start, which is what makes the restart
// tasks a refresh injects meaningful.
//
// Failure Policy:
// A task failure aborts only that task. The failure is journaled and the
// remaining tasks still run; a refresh timeout is not even a failure,
// only a warning. The installer must make progress even when the
// underlying runtime is slow or silent.
package installer
