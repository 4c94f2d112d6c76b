package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/hotswap/internal/bundle"
)

// TaskExecution is one journal row: a single task executed within a cycle.
type TaskExecution struct {
	CycleID   string
	Seq       int
	SortKey   string
	Task      string
	Outcome   string // "ok" | "failed"
	Error     string
	ElapsedMS int64
}

// BeginCycle inserts a cycle row. Duplicate cycle IDs are silently
// ignored so that a re-run with a fixed generator stays idempotent.
func (s *Store) BeginCycle(ctx context.Context, id string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles (id, started_at)
		VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, startedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("begin cycle: %w", err)
	}
	return nil
}

// FinishCycle records a cycle's completion time and task count.
func (s *Store) FinishCycle(ctx context.Context, id string, finishedAt time.Time, tasks int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE cycles SET finished_at = ?, tasks = ? WHERE id = ?
	`, finishedAt.UTC().Format(time.RFC3339Nano), tasks, id)
	if err != nil {
		return fmt.Errorf("finish cycle: %w", err)
	}
	return nil
}

// RecordExecution inserts a task execution row.
// Uses ON CONFLICT DO NOTHING for idempotency - a duplicate (cycle, seq)
// is silently ignored. Other constraint violations still return errors.
func (s *Store) RecordExecution(ctx context.Context, rec TaskExecution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_executions
		(cycle_id, seq, sort_key, task, outcome, error, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cycle_id, seq) DO NOTHING
	`,
		rec.CycleID,
		rec.Seq,
		rec.SortKey,
		rec.Task,
		rec.Outcome,
		rec.Error,
		rec.ElapsedMS,
	)
	if err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return nil
}

// SaveModuleState upserts the last known lifecycle state of a bundle.
func (s *Store) SaveModuleState(ctx context.Context, id bundle.ID, state bundle.State, version string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO module_states (module_id, state, version, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(module_id) DO UPDATE SET
			state = excluded.state,
			version = excluded.version,
			updated_at = excluded.updated_at
	`, id.String(), state.String(), version, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save module state: %w", err)
	}
	return nil
}

// DeleteModuleState removes a bundle's state row, used after uninstall.
func (s *Store) DeleteModuleState(ctx context.Context, id bundle.ID) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM module_states WHERE module_id = ?
	`, id.String())
	if err != nil {
		return fmt.Errorf("delete module state: %w", err)
	}
	return nil
}
