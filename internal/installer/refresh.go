package installer

import (
	"sync/atomic"
	"time"

	"github.com/roach88/hotswap/internal/bundle"
)

// DefaultMaxRefreshWait bounds how long a refresh task waits for the
// runtime's completion notification before proceeding anyway.
const DefaultMaxRefreshWait = 30 * time.Second

// RefreshTask performs a packages refresh, synchronously.
//
// Refreshing recomputes module wiring and may stop active bundles as a
// side effect, so the task first snapshots every ACTIVE bundle and queues
// a restart for each into the current cycle. It then issues the refresh
// and waits - bounded - for the runtime's completion notification.
//
// Completion notifications are fire-and-forget broadcasts with no request
// correlation: the task cannot tell "my refresh finished" apart from
// "someone's refresh finished" except by counting occurrences. It records
// target = observed + 1 before issuing the refresh and waits until the
// observed count reaches the target. A refresh with nothing to do may
// never notify at all, which is exactly why the wait is bounded: timeout
// is a warning, not a failure, and the queued restarts still run.
//
// Thread-safety: the completion handler runs on the runtime's
// notification goroutine, concurrently with the waiting execution
// goroutine. The shared count is an atomic; the wake channel has a
// one-slot buffer so notifications coalesce instead of blocking the
// notifier.
type RefreshTask struct {
	maxWait time.Duration

	// events counts completion notifications observed by this task
	// instance, across executions.
	events atomic.Int64
	wake   chan struct{}
}

// RefreshOption configures a RefreshTask.
type RefreshOption func(*RefreshTask)

// WithMaxRefreshWait sets the wait bound for the completion notification.
// Default is DefaultMaxRefreshWait.
func WithMaxRefreshWait(d time.Duration) RefreshOption {
	return func(t *RefreshTask) { t.maxWait = d }
}

// NewRefreshTask creates a refresh task.
func NewRefreshTask(opts ...RefreshOption) *RefreshTask {
	t := &RefreshTask{
		maxWait: DefaultMaxRefreshWait,
		wake:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SortKey places the refresh ahead of stop and start tasks, so restarts
// injected by Execute land after it in the same cycle.
func (t *RefreshTask) SortKey() string { return RefreshOrder + "refresh-packages" }

func (t *RefreshTask) String() string { return "refresh-packages" }

// EventsObserved returns how many completion notifications this instance
// has counted. Exposed for tests.
func (t *RefreshTask) EventsObserved() int64 { return t.events.Load() }

// handleEvent is the completion subscriber. It increments the counter
// exactly once per refresh-completed notification; other notification
// kinds are ignored.
func (t *RefreshTask) handleEvent(ev bundle.Event) {
	if ev.Type != bundle.EventRefreshed {
		return
	}
	t.events.Add(1)
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *RefreshTask) Execute(ctx *Context) error {
	rt := ctx.Runtime()
	if rt == nil {
		return errRuntimeUnavailable("refresh-packages")
	}
	log := ctx.Log()

	// Refreshing may stop some bundles; queue a restart for everything
	// active right now, before the refresh runs, so stopped bundles are
	// matched 1:1 against the pre-refresh snapshot.
	for _, m := range rt.List() {
		if m.State() == bundle.Active {
			restart := NewStartTask(m.ID())
			ctx.Add(restart)
			log.Debug("queued restart for after refresh", "task", restart.String())
		}
	}

	target := t.events.Load() + 1
	start := time.Now()

	if err := rt.Refresh(nil); err != nil {
		return &TaskError{Code: ErrCodeRuntimeOp, Message: "refresh failed", Err: err}
	}

	sub := rt.Subscribe(t.handleEvent)
	// The subscription must never outlive this execution, on any exit path.
	defer sub.Cancel()

	deadline := time.NewTimer(t.maxWait)
	defer deadline.Stop()

	for t.events.Load() < target {
		select {
		case <-t.wake:
			// Re-check the counter; wakes coalesce and may be stale.
		case <-deadline.C:
			log.Warn("no refresh completion observed within bound, proceeding",
				"wait", t.maxWait)
			return nil
		}
	}

	log.Debug("refresh completed", "elapsed", time.Since(start))
	return nil
}
