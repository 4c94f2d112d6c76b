package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/hotswap/internal/bundle"
)

// CycleRecord is a journal row describing one installer cycle.
type CycleRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Tasks      int
}

// ModuleState is the last journaled lifecycle state of a bundle.
type ModuleState struct {
	Module    bundle.ID
	State     bundle.State
	Version   string
	UpdatedAt time.Time
}

// ListCycles returns all cycles ordered by ID. Cycle IDs are UUIDv7, so
// ID order is creation order.
func (s *Store) ListCycles(ctx context.Context) ([]CycleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, tasks
		FROM cycles
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	defer rows.Close()

	var out []CycleRecord
	for rows.Next() {
		var rec CycleRecord
		var started string
		var finished *string
		if err := rows.Scan(&rec.ID, &started, &finished, &rec.Tasks); err != nil {
			return nil, fmt.Errorf("list cycles: scan: %w", err)
		}
		rec.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("list cycles: parse started_at: %w", err)
		}
		if finished != nil {
			ts, err := time.Parse(time.RFC3339Nano, *finished)
			if err != nil {
				return nil, fmt.Errorf("list cycles: parse finished_at: %w", err)
			}
			rec.FinishedAt = &ts
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListExecutions returns a cycle's task executions ordered by seq.
func (s *Store) ListExecutions(ctx context.Context, cycleID string) ([]TaskExecution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle_id, seq, sort_key, task, outcome, error, elapsed_ms
		FROM task_executions
		WHERE cycle_id = ?
		ORDER BY seq ASC
	`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var out []TaskExecution
	for rows.Next() {
		var rec TaskExecution
		if err := rows.Scan(&rec.CycleID, &rec.Seq, &rec.SortKey, &rec.Task,
			&rec.Outcome, &rec.Error, &rec.ElapsedMS); err != nil {
			return nil, fmt.Errorf("list executions: scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ModuleStates returns all journaled bundle states ordered by module ID.
func (s *Store) ModuleStates(ctx context.Context) ([]ModuleState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT module_id, state, version, updated_at
		FROM module_states
		ORDER BY module_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("module states: %w", err)
	}
	defer rows.Close()

	var out []ModuleState
	for rows.Next() {
		var id, state, version, updated string
		if err := rows.Scan(&id, &state, &version, &updated); err != nil {
			return nil, fmt.Errorf("module states: scan: %w", err)
		}
		parsed, ok := bundle.ParseState(state)
		if !ok {
			return nil, fmt.Errorf("module states: unknown state %q for module %q", state, id)
		}
		ts, err := time.Parse(time.RFC3339Nano, updated)
		if err != nil {
			return nil, fmt.Errorf("module states: parse updated_at: %w", err)
		}
		out = append(out, ModuleState{
			Module:    bundle.ID(id),
			State:     parsed,
			Version:   version,
			UpdatedAt: ts,
		})
	}
	return out, rows.Err()
}
