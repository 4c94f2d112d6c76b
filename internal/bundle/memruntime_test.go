package bundle

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemRuntime_InstallStartStop(t *testing.T) {
	rt := NewMemRuntime()

	require.NoError(t, rt.Install(NewID("com.example.a"), "1.0.0"))

	m, ok := rt.Get(NewID("com.example.a"))
	require.True(t, ok)
	assert.Equal(t, Installed, m.State())
	assert.Equal(t, "1.0.0", m.Version())

	require.NoError(t, rt.Start(NewID("com.example.a")))
	m, _ = rt.Get(NewID("com.example.a"))
	assert.Equal(t, Active, m.State())

	// Starting an active bundle is a no-op.
	require.NoError(t, rt.Start(NewID("com.example.a")))

	require.NoError(t, rt.Stop(NewID("com.example.a")))
	m, _ = rt.Get(NewID("com.example.a"))
	assert.Equal(t, Resolved, m.State())

	// Stopping a non-active bundle is a no-op.
	require.NoError(t, rt.Stop(NewID("com.example.a")))
}

func TestMemRuntime_StartUnknownBundle(t *testing.T) {
	rt := NewMemRuntime()
	err := rt.Start(NewID("nope"))
	assert.Error(t, err)
}

func TestMemRuntime_ListOrderedByID(t *testing.T) {
	rt := NewMemRuntime()
	rt.Seed(
		SeedModule{ID: NewID("zzz"), State: Active},
		SeedModule{ID: NewID("aaa"), State: Installed},
		SeedModule{ID: NewID("mmm"), State: Resolved},
	)

	var ids []ID
	for _, m := range rt.List() {
		ids = append(ids, m.ID())
	}
	assert.Equal(t, []ID{"aaa", "mmm", "zzz"}, ids)
}

func TestMemRuntime_RefreshStopsStaleActiveBundles(t *testing.T) {
	rt := NewMemRuntime(WithRefreshDelay(time.Millisecond))
	rt.Seed(SeedModule{ID: NewID("a"), State: Active, Version: "1.0.0"})

	require.NoError(t, rt.Update(NewID("a"), "2.0.0"))

	m, _ := rt.Get(NewID("a"))
	assert.Equal(t, Active, m.State(), "update alone must not stop the bundle")

	require.NoError(t, rt.Refresh(nil))

	m, _ = rt.Get(NewID("a"))
	assert.Equal(t, Resolved, m.State(), "refresh stops bundles with stale wiring")
	assert.Equal(t, "2.0.0", m.Version())
}

func TestMemRuntime_RefreshFiresCompletionAsynchronously(t *testing.T) {
	rt := NewMemRuntime(WithRefreshDelay(time.Millisecond))

	got := make(chan Event, 1)
	sub := rt.Subscribe(func(ev Event) {
		if ev.Type == EventRefreshed {
			select {
			case got <- ev:
			default:
			}
		}
	})
	defer sub.Cancel()

	require.NoError(t, rt.Refresh(nil))

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("no refresh completion event within 1s")
	}
}

func TestMemRuntime_SilentRefreshNeverCompletes(t *testing.T) {
	rt := NewMemRuntime(WithSilentRefresh())

	var mu sync.Mutex
	fired := false
	sub := rt.Subscribe(func(ev Event) {
		if ev.Type == EventRefreshed {
			mu.Lock()
			fired = true
			mu.Unlock()
		}
	})
	defer sub.Cancel()

	require.NoError(t, rt.Refresh(nil))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, fired)
}

func TestMemRuntime_SubscriptionCancelIsIdempotent(t *testing.T) {
	rt := NewMemRuntime()

	sub := rt.Subscribe(func(Event) {})
	assert.Equal(t, 1, rt.SubscriberCount())

	sub.Cancel()
	sub.Cancel()
	assert.Equal(t, 0, rt.SubscriberCount())
}

func TestMemRuntime_EventsDeliveredOffCallerGoroutine(t *testing.T) {
	rt := NewMemRuntime()

	done := make(chan struct{})
	var once sync.Once
	sub := rt.Subscribe(func(ev Event) {
		once.Do(func() { close(done) })
	})
	defer sub.Cancel()

	require.NoError(t, rt.Install(NewID("a"), "1.0.0"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("module-changed event not delivered")
	}
}
