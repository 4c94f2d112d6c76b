package bundle

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemRuntime is an in-memory Runtime.
//
// It backs the CLI's embedded mode and the test suites. Refresh completion
// is delivered asynchronously on a runtime-owned goroutine, mirroring how
// a real module host signals out-of-band.
//
// Thread-safety: all methods are safe for concurrent use. Event handlers
// run on notification goroutines, never on the caller's goroutine.
type MemRuntime struct {
	mu      sync.Mutex
	mods    map[ID]*memModule
	subs    map[int]func(Event)
	nextSub int

	// pendingRefresh holds bundles whose wiring is stale (updated or
	// uninstalled since the last refresh). Refresh stops the active ones,
	// matching a real host's stop-as-side-effect behavior.
	pendingRefresh map[ID]bool

	refreshDelay  time.Duration
	silentRefresh bool
}

type memModule struct {
	id      ID
	state   State
	version string
	headers map[string]string
	entries []string
}

// MemOption configures a MemRuntime.
type MemOption func(*MemRuntime)

// WithRefreshDelay sets how long after Refresh the completion event fires.
// Default is 5ms.
func WithRefreshDelay(d time.Duration) MemOption {
	return func(r *MemRuntime) { r.refreshDelay = d }
}

// WithSilentRefresh makes Refresh never fire a completion event. Used to
// exercise the installer's bounded-wait timeout path.
func WithSilentRefresh() MemOption {
	return func(r *MemRuntime) { r.silentRefresh = true }
}

// NewMemRuntime creates an empty in-memory runtime.
func NewMemRuntime(opts ...MemOption) *MemRuntime {
	r := &MemRuntime{
		mods:           make(map[ID]*memModule),
		subs:           make(map[int]func(Event)),
		pendingRefresh: make(map[ID]bool),
		refreshDelay:   5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SeedModule describes one bundle to pre-install into a MemRuntime.
type SeedModule struct {
	ID      ID
	Version string
	State   State
	Headers map[string]string
	Entries []string
}

// Seed installs bundles directly in the given states, without emitting
// events. Used to establish initial conditions in tests and scenarios.
func (r *MemRuntime) Seed(mods ...SeedModule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range mods {
		state := m.State
		if state == 0 {
			state = Installed
		}
		r.mods[m.ID] = &memModule{
			id:      m.ID,
			state:   state,
			version: m.Version,
			headers: m.Headers,
			entries: m.Entries,
		}
	}
}

// moduleSnapshot is an immutable Module view.
type moduleSnapshot struct {
	id      ID
	state   State
	version string
	headers map[string]string
	entries []string
}

func (s moduleSnapshot) ID() ID                     { return s.id }
func (s moduleSnapshot) State() State               { return s.state }
func (s moduleSnapshot) Version() string            { return s.version }
func (s moduleSnapshot) Headers() map[string]string { return s.headers }
func (s moduleSnapshot) Entries() []string          { return s.entries }

func (m *memModule) snapshot() moduleSnapshot {
	return moduleSnapshot{
		id:      m.id,
		state:   m.state,
		version: m.version,
		headers: m.headers,
		entries: m.entries,
	}
}

// List returns snapshots of all bundles, ordered by ID.
func (r *MemRuntime) List() []Module {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Module, 0, len(r.mods))
	for _, m := range r.mods {
		out = append(out, m.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Get returns a snapshot of one bundle.
func (r *MemRuntime) Get(id ID) (Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.mods[id]
	if !ok {
		return nil, false
	}
	return m.snapshot(), true
}

// Install makes a bundle available in Installed state. Installing an
// existing ID behaves like Update.
func (r *MemRuntime) Install(id ID, version string) error {
	if !id.IsValid() {
		return fmt.Errorf("install: invalid bundle id %q", id)
	}

	r.mu.Lock()
	if existing, ok := r.mods[id]; ok {
		existing.version = version
		r.pendingRefresh[id] = true
	} else {
		r.mods[id] = &memModule{id: id, state: Installed, version: version}
	}
	r.mu.Unlock()

	r.emit(Event{Type: EventModuleChanged, Module: id})
	return nil
}

// Start activates a bundle. Starting an Active bundle is a no-op.
func (r *MemRuntime) Start(id ID) error {
	r.mu.Lock()
	m, ok := r.mods[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("start: bundle %q not installed", id)
	}
	if m.state == Active {
		r.mu.Unlock()
		return nil
	}
	if m.state == Uninstalled {
		r.mu.Unlock()
		return fmt.Errorf("start: bundle %q is uninstalled", id)
	}
	m.state = Active
	r.mu.Unlock()

	r.emit(Event{Type: EventModuleChanged, Module: id})
	return nil
}

// Stop deactivates a bundle. Stopping a non-Active bundle is a no-op.
func (r *MemRuntime) Stop(id ID) error {
	r.mu.Lock()
	m, ok := r.mods[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("stop: bundle %q not installed", id)
	}
	if m.state != Active {
		r.mu.Unlock()
		return nil
	}
	m.state = Resolved
	r.mu.Unlock()

	r.emit(Event{Type: EventModuleChanged, Module: id})
	return nil
}

// Update replaces a bundle's content. The running code keeps its old
// wiring until the next Refresh.
func (r *MemRuntime) Update(id ID, version string) error {
	r.mu.Lock()
	m, ok := r.mods[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("update: bundle %q not installed", id)
	}
	m.version = version
	r.pendingRefresh[id] = true
	r.mu.Unlock()

	r.emit(Event{Type: EventModuleChanged, Module: id})
	return nil
}

// Uninstall removes a bundle.
func (r *MemRuntime) Uninstall(id ID) error {
	r.mu.Lock()
	m, ok := r.mods[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("uninstall: bundle %q not installed", id)
	}
	m.state = Uninstalled
	delete(r.mods, id)
	delete(r.pendingRefresh, id)
	r.mu.Unlock()

	r.emit(Event{Type: EventModuleChanged, Module: id})
	return nil
}

// Refresh recomputes module wiring. Active bundles with stale wiring are
// stopped as a side effect. Completion is signalled by an EventRefreshed
// notification after the configured delay, on a notification goroutine -
// or never, if the runtime was built WithSilentRefresh.
func (r *MemRuntime) Refresh(ids []ID) error {
	r.mu.Lock()
	targets := r.pendingRefresh
	if ids != nil {
		targets = make(map[ID]bool, len(ids))
		for _, id := range ids {
			targets[id] = true
		}
	}
	var stopped []ID
	for id := range targets {
		if m, ok := r.mods[id]; ok && m.state == Active {
			m.state = Resolved
			stopped = append(stopped, id)
		}
	}
	if ids == nil {
		r.pendingRefresh = make(map[ID]bool)
	} else {
		for _, id := range ids {
			delete(r.pendingRefresh, id)
		}
	}
	silent := r.silentRefresh
	delay := r.refreshDelay
	r.mu.Unlock()

	for _, id := range stopped {
		r.emit(Event{Type: EventModuleChanged, Module: id})
	}
	if !silent {
		time.AfterFunc(delay, func() {
			r.emit(Event{Type: EventRefreshed})
		})
	}
	return nil
}

// Subscribe registers an event handler.
func (r *MemRuntime) Subscribe(fn func(Event)) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.nextSub
	r.nextSub++
	r.subs[key] = fn
	return &memSubscription{runtime: r, key: key}
}

// SubscriberCount returns the number of active subscriptions. Used by
// tests to verify that task subscriptions never leak.
func (r *MemRuntime) SubscriberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// emit delivers an event to all subscribers on a notification goroutine.
// Delivery order across events is not guaranteed.
func (r *MemRuntime) emit(ev Event) {
	r.mu.Lock()
	handlers := make([]func(Event), 0, len(r.subs))
	for _, fn := range r.subs {
		handlers = append(handlers, fn)
	}
	r.mu.Unlock()

	go func() {
		for _, fn := range handlers {
			fn(ev)
		}
	}()
}

type memSubscription struct {
	runtime *MemRuntime
	key     int
	once    sync.Once
}

func (s *memSubscription) Cancel() {
	s.once.Do(func() {
		s.runtime.mu.Lock()
		delete(s.runtime.subs, s.key)
		s.runtime.mu.Unlock()
	})
}
