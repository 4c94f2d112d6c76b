package bundle

// Module is a read-only view of one installed bundle.
//
// Module values are snapshots owned by the Runtime; tasks keep only the
// ID and re-query the Runtime when they execute.
type Module interface {
	ID() ID
	State() State
	Version() string
	// Headers returns the bundle's manifest headers (e.g. "Test-Package").
	Headers() map[string]string
	// Entries returns the bundle's content entry paths, used for test
	// class discovery. The slice must not be mutated by callers.
	Entries() []string
}

// Subscription is a registered event handler. Cancel removes the handler;
// it is idempotent and safe to call from any goroutine.
type Subscription interface {
	Cancel()
}

// Runtime is the module host the installer drives.
//
// Lifecycle operations are keyed by ID so that tasks never hold module
// objects across a refresh. All methods are safe for concurrent use.
type Runtime interface {
	// List returns snapshots of all installed bundles, ordered by ID.
	List() []Module
	// Get returns a snapshot of one bundle, or false if the ID is not
	// installed.
	Get(id ID) (Module, bool)

	// Install makes a bundle's content available in Installed state.
	// Installing an existing ID is an update.
	Install(id ID, version string) error
	// Start activates a bundle. Starting an Active bundle is a no-op.
	Start(id ID) error
	// Stop deactivates a bundle. Stopping a non-Active bundle is a no-op.
	Stop(id ID) error
	// Update replaces a bundle's content with a new version. The bundle
	// must be refreshed before the new wiring takes effect.
	Update(id ID, version string) error
	// Uninstall removes a bundle.
	Uninstall(id ID) error

	// Refresh recomputes module linkage for the given bundles, or for
	// everything eligible when ids is nil. Completion is signalled
	// asynchronously via an EventRefreshed notification, which may never
	// arrive if there was nothing to refresh.
	Refresh(ids []ID) error

	// Subscribe registers a handler for runtime events. Handlers run on a
	// runtime-owned goroutine.
	Subscribe(fn func(Event)) Subscription
}
