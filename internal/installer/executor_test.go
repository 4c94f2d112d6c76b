package installer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hotswap/internal/bundle"
	"github.com/roach88/hotswap/internal/store"
)

func TestExecutor_RunCycle_EndToEndUpdateRefreshRestart(t *testing.T) {
	rt := bundle.NewMemRuntime(bundle.WithRefreshDelay(time.Millisecond))
	rt.Seed(
		bundle.SeedModule{ID: bundle.NewID("com.example.a"), State: bundle.Active, Version: "1"},
		bundle.SeedModule{ID: bundle.NewID("com.example.b"), State: bundle.Installed, Version: "1"},
	)

	exec := New(rt, WithCycleIDs(NewFixedGenerator("cycle-1")))
	cycle := NewCycle(
		NewRefreshTask(WithMaxRefreshWait(5*time.Second)),
		NewUpdateTask(bundle.NewID("com.example.a"), "2"),
	)

	result, err := exec.RunCycle(context.Background(), cycle)
	require.NoError(t, err)
	require.Empty(t, result.Failed())

	// Update ran first, refresh stopped the stale active bundle, and the
	// injected restart brought it back - all within one cycle.
	var names []string
	for _, tr := range result.Results {
		names = append(names, tr.Task)
	}
	assert.Equal(t, []string{
		"update:com.example.a",
		"refresh-packages",
		"start:com.example.a",
	}, names)

	m, _ := rt.Get(bundle.NewID("com.example.a"))
	assert.Equal(t, bundle.Active, m.State())
	assert.Equal(t, "2", m.Version())
}

func TestExecutor_TaskFailureDoesNotAbortCycle(t *testing.T) {
	rt := bundle.NewMemRuntime()
	exec := New(rt, WithCycleIDs(NewFixedGenerator("cycle-1")))

	boom := errors.New("boom")
	ran := false
	cycle := NewCycle(
		&fakeTask{key: "10-fails", fn: func(*Context) error { return boom }},
		&fakeTask{key: "20-runs", fn: func(*Context) error { ran = true; return nil }},
	)

	result, err := exec.RunCycle(context.Background(), cycle)
	require.NoError(t, err, "task failures are not engine failures")
	assert.True(t, ran, "remaining tasks must still run")

	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "10-fails", failed[0].Task)
	assert.ErrorIs(t, failed[0].Err, boom)
}

func TestExecutor_ContextCancellationStopsDrain(t *testing.T) {
	rt := bundle.NewMemRuntime()
	exec := New(rt, WithCycleIDs(NewFixedGenerator("cycle-1")))

	ctx, cancel := context.WithCancel(context.Background())
	ran := 0
	cycle := NewCycle(
		&fakeTask{key: "10-a", fn: func(*Context) error { ran++; cancel(); return nil }},
		&fakeTask{key: "20-b", fn: func(*Context) error { ran++; return nil }},
	)

	_, err := exec.RunCycle(ctx, cycle)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, ran)
}

func TestExecutor_JournalsExecutionsAndModuleStates(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer st.Close()

	rt := bundle.NewMemRuntime(bundle.WithRefreshDelay(time.Millisecond))
	rt.Seed(bundle.SeedModule{ID: bundle.NewID("com.example.a"), State: bundle.Active, Version: "1"})

	exec := New(rt, WithJournal(st), WithCycleIDs(NewFixedGenerator("cycle-1")))
	cycle := NewCycle(NewUpdateTask(bundle.NewID("com.example.a"), "2"))

	_, err = exec.RunCycle(context.Background(), cycle)
	require.NoError(t, err)

	ctx := context.Background()
	cycles, err := st.ListCycles(ctx)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, "cycle-1", cycles[0].ID)
	require.NotNil(t, cycles[0].FinishedAt)
	assert.Equal(t, 1, cycles[0].Tasks)

	execs, err := st.ListExecutions(ctx, "cycle-1")
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, "update:com.example.a", execs[0].Task)
	assert.Equal(t, "ok", execs[0].Outcome)

	states, err := st.ModuleStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, bundle.NewID("com.example.a"), states[0].Module)
	assert.Equal(t, "2", states[0].Version)
}

func TestExecutor_UninstallDropsJournaledModuleState(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer st.Close()

	rt := bundle.NewMemRuntime(bundle.WithRefreshDelay(time.Millisecond))
	rt.Seed(
		bundle.SeedModule{ID: bundle.NewID("com.example.keep"), State: bundle.Active, Version: "1"},
		bundle.SeedModule{ID: bundle.NewID("com.example.gone"), State: bundle.Active, Version: "1"},
	)

	exec := New(rt, WithJournal(st), WithCycleIDs(NewFixedGenerator("cycle-1", "cycle-2")))

	// First cycle journals both bundles.
	_, err = exec.RunCycle(context.Background(), NewCycle(
		NewUpdateTask(bundle.NewID("com.example.keep"), "2"),
	))
	require.NoError(t, err)

	states, err := st.ModuleStates(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 2)

	// Uninstalling must remove the journal row too, or the bundle would
	// come back when a later run seeds from the journal.
	_, err = exec.RunCycle(context.Background(), NewCycle(
		NewUninstallTask(bundle.NewID("com.example.gone")),
	))
	require.NoError(t, err)

	states, err = st.ModuleStates(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, bundle.NewID("com.example.keep"), states[0].Module)
}

func TestFixedGenerator_PanicsWhenExhausted(t *testing.T) {
	g := NewFixedGenerator("only")
	assert.Equal(t, "only", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
