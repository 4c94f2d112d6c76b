package installer

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hotswap/internal/bundle"
	"github.com/roach88/hotswap/internal/testutil"
)

func seedThreeBundles(rt *bundle.MemRuntime) {
	rt.Seed(
		bundle.SeedModule{ID: bundle.NewID("com.example.a"), State: bundle.Active},
		bundle.SeedModule{ID: bundle.NewID("com.example.b"), State: bundle.Installed},
		bundle.SeedModule{ID: bundle.NewID("com.example.c"), State: bundle.Active},
	)
}

func restartKeys(c *Cycle) []string {
	var keys []string
	for {
		task, ok := c.Next()
		if !ok {
			return keys
		}
		keys = append(keys, task.SortKey())
	}
}

func TestRefreshTask_QueuesRestartsForActiveBundlesOnly(t *testing.T) {
	rt := bundle.NewMemRuntime(bundle.WithRefreshDelay(time.Millisecond))
	seedThreeBundles(rt)
	cycle := NewCycle()
	task := NewRefreshTask(WithMaxRefreshWait(5 * time.Second))

	require.NoError(t, task.Execute(NewContext(rt, cycle, nil)))

	// Restart tasks are present before Execute returns: one per bundle
	// observed ACTIVE at snapshot time, none for the merely installed one.
	assert.Equal(t, []string{
		StartOrder + "com.example.a",
		StartOrder + "com.example.c",
	}, restartKeys(cycle))
}

func TestRefreshTask_CompletesBeforeBoundWhenEventFires(t *testing.T) {
	rt := bundle.NewMemRuntime(bundle.WithRefreshDelay(50 * time.Millisecond))
	seedThreeBundles(rt)
	rec := testutil.NewLogRecorder()
	task := NewRefreshTask(WithMaxRefreshWait(30 * time.Second))

	start := time.Now()
	require.NoError(t, task.Execute(NewContext(rt, NewCycle(), rec.Logger())))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 5*time.Second, "must return well before the bound")
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Equal(t, 0, rec.CountLevel(slog.LevelWarn), "no warning on success")
	assert.Equal(t, int64(1), task.EventsObserved())
}

func TestRefreshTask_TimeoutIsWarningNotError(t *testing.T) {
	rt := bundle.NewMemRuntime(bundle.WithSilentRefresh())
	seedThreeBundles(rt)
	rec := testutil.NewLogRecorder()
	cycle := NewCycle()
	task := NewRefreshTask(WithMaxRefreshWait(100 * time.Millisecond))

	start := time.Now()
	err := task.Execute(NewContext(rt, cycle, rec.Logger()))
	elapsed := time.Since(start)

	require.NoError(t, err, "timeout is not a fatal condition")
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond, "must wait out the bound")
	assert.Equal(t, 1, rec.CountLevel(slog.LevelWarn))

	// The restart tasks queued before the refresh still run.
	assert.Equal(t, []string{
		StartOrder + "com.example.a",
		StartOrder + "com.example.c",
	}, restartKeys(cycle))
}

func TestRefreshTask_SubscriptionScopedToExecution(t *testing.T) {
	rt := bundle.NewMemRuntime(bundle.WithRefreshDelay(time.Millisecond))
	seedThreeBundles(rt)
	task := NewRefreshTask(WithMaxRefreshWait(5 * time.Second))

	require.NoError(t, task.Execute(NewContext(rt, NewCycle(), nil)))
	assert.Equal(t, 0, rt.SubscriberCount(), "subscription must not leak past Execute")

	observed := task.EventsObserved()

	// A refresh completed by someone else, after this task's execution
	// window, has no observable effect on the task instance.
	require.NoError(t, rt.Refresh(nil))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, observed, task.EventsObserved())
}

func TestRefreshTask_SubscriptionReleasedOnTimeoutPath(t *testing.T) {
	rt := bundle.NewMemRuntime(bundle.WithSilentRefresh())
	task := NewRefreshTask(WithMaxRefreshWait(50 * time.Millisecond))

	require.NoError(t, task.Execute(NewContext(rt, NewCycle(), nil)))
	assert.Equal(t, 0, rt.SubscriberCount())
}

func TestRefreshTask_IdempotentAcrossExecutions(t *testing.T) {
	rt := bundle.NewMemRuntime(bundle.WithRefreshDelay(time.Millisecond))
	seedThreeBundles(rt)
	task := NewRefreshTask(WithMaxRefreshWait(5 * time.Second))

	first := NewCycle()
	require.NoError(t, task.Execute(NewContext(rt, first, nil)))
	firstKeys := restartKeys(first)

	// No intervening state changes: the second run must queue the same
	// restart set, and the counter/target scheme must still terminate.
	second := NewCycle()
	require.NoError(t, task.Execute(NewContext(rt, second, nil)))
	secondKeys := restartKeys(second)

	assert.Equal(t, firstKeys, secondKeys)
	assert.Equal(t, int64(2), task.EventsObserved())
}

func TestRefreshTask_NoRuntimeFailsTask(t *testing.T) {
	task := NewRefreshTask()
	err := task.Execute(NewContext(nil, NewCycle(), nil))
	assert.True(t, IsRuntimeUnavailable(err))
}

func TestRefreshTask_SortsAheadOfInjectedRestarts(t *testing.T) {
	refresh := NewRefreshTask()
	restart := NewStartTask(bundle.NewID("any"))
	assert.Less(t, refresh.SortKey(), restart.SortKey())
}
