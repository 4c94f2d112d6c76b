package installer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/hotswap/internal/bundle"
	"github.com/roach88/hotswap/internal/store"
)

// Executor drains installer cycles.
//
// One cycle is drained at a time, on the calling goroutine; tasks never
// run concurrently with each other. A task failure is journaled and
// logged but does not abort the cycle - the remaining tasks still run.
type Executor struct {
	runtime  bundle.Runtime
	log      *slog.Logger
	journal  *store.Store
	metrics  *Metrics
	cycleIDs CycleIDGenerator
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the diagnostic logger. Default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) { e.log = log }
}

// WithJournal makes the executor record cycles, task executions and
// module states in the given store.
func WithJournal(s *store.Store) Option {
	return func(e *Executor) { e.journal = s }
}

// WithMetrics makes the executor count task executions.
func WithMetrics(m *Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithCycleIDs overrides the cycle ID generator. Default is UUIDv7.
func WithCycleIDs(g CycleIDGenerator) Option {
	return func(e *Executor) { e.cycleIDs = g }
}

// New creates an executor driving the given runtime.
func New(rt bundle.Runtime, opts ...Option) *Executor {
	e := &Executor{
		runtime:  rt,
		log:      slog.Default(),
		cycleIDs: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TaskResult is the outcome of one task execution within a cycle.
type TaskResult struct {
	Seq     int
	SortKey string
	Task    string
	Err     error
	Elapsed time.Duration
}

// Outcome returns "ok" or "failed".
func (r TaskResult) Outcome() string {
	if r.Err != nil {
		return "failed"
	}
	return "ok"
}

// CycleResult summarizes one drained cycle.
type CycleResult struct {
	ID      string
	Results []TaskResult
	Elapsed time.Duration
}

// Failed returns the results of tasks that returned an error.
func (r *CycleResult) Failed() []TaskResult {
	var out []TaskResult
	for _, tr := range r.Results {
		if tr.Err != nil {
			out = append(out, tr)
		}
	}
	return out
}

// RunCycle drains the cycle to convergence, executing tasks in sort-key
// order, including tasks appended while the cycle runs.
//
// Returns an error only for engine-level conditions (context cancelled,
// journal unavailable); individual task failures are reported in the
// result and do not abort the drain.
func (e *Executor) RunCycle(ctx context.Context, cycle *Cycle) (*CycleResult, error) {
	id := e.cycleIDs.Generate()
	log := e.log.With("cycle", id)
	start := time.Now()

	if e.journal != nil {
		if err := e.journal.BeginCycle(ctx, id, start); err != nil {
			return nil, fmt.Errorf("run cycle: %w", err)
		}
	}

	result := &CycleResult{ID: id}
	log.Info("cycle started", "pending", cycle.Len())

	seq := 0
	for {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("run cycle: %w", err)
		}
		task, ok := cycle.Next()
		if !ok {
			break
		}
		seq++

		tr := e.executeOne(log, task, cycle, seq)
		result.Results = append(result.Results, tr)

		if e.journal != nil {
			rec := store.TaskExecution{
				CycleID:   id,
				Seq:       tr.Seq,
				SortKey:   tr.SortKey,
				Task:      tr.Task,
				Outcome:   tr.Outcome(),
				ElapsedMS: tr.Elapsed.Milliseconds(),
			}
			if tr.Err != nil {
				rec.Error = tr.Err.Error()
			}
			if err := e.journal.RecordExecution(ctx, rec); err != nil {
				return result, fmt.Errorf("run cycle: %w", err)
			}
		}
	}

	result.Elapsed = time.Since(start)

	if e.journal != nil {
		if err := e.snapshotModuleStates(ctx); err != nil {
			return result, fmt.Errorf("run cycle: %w", err)
		}
		if err := e.journal.FinishCycle(ctx, id, time.Now(), seq); err != nil {
			return result, fmt.Errorf("run cycle: %w", err)
		}
	}

	log.Info("cycle finished", "tasks", seq, "failed", len(result.Failed()),
		"elapsed", result.Elapsed)
	return result, nil
}

// executeOne runs a single task and converts its outcome into a result.
// Task panics are not recovered: a panicking task is a bug in the closed
// variant set, not an operational failure.
func (e *Executor) executeOne(log *slog.Logger, task Task, cycle *Cycle, seq int) TaskResult {
	name := taskString(task)
	log.Debug("executing task", "task", name, "seq", seq)

	start := time.Now()
	err := task.Execute(NewContext(e.runtime, cycle, log))
	elapsed := time.Since(start)

	e.metrics.observe(taskType(task), outcomeLabel(err), elapsed)

	if err != nil {
		log.Error("task failed", "task", name, "seq", seq, "error", err)
	}
	return TaskResult{
		Seq:     seq,
		SortKey: task.SortKey(),
		Task:    name,
		Err:     err,
		Elapsed: elapsed,
	}
}

// snapshotModuleStates journals the runtime's current view of every
// bundle after a cycle completes. Rows for bundles no longer present
// are removed, so the journal never reseeds an uninstalled bundle into
// a later run.
func (e *Executor) snapshotModuleStates(ctx context.Context) error {
	if e.runtime == nil {
		return nil
	}
	present := make(map[bundle.ID]bool)
	now := time.Now()
	for _, m := range e.runtime.List() {
		present[m.ID()] = true
		if err := e.journal.SaveModuleState(ctx, m.ID(), m.State(), m.Version(), now); err != nil {
			return err
		}
	}
	recorded, err := e.journal.ModuleStates(ctx)
	if err != nil {
		return err
	}
	for _, rec := range recorded {
		if !present[rec.Module] {
			if err := e.journal.DeleteModuleState(ctx, rec.Module); err != nil {
				return err
			}
		}
	}
	return nil
}

func outcomeLabel(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}

func taskString(t Task) string {
	if s, ok := t.(fmt.Stringer); ok {
		return s.String()
	}
	return t.SortKey()
}
