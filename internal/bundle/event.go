package bundle

// EventType distinguishes runtime notification kinds.
type EventType int

const (
	// EventRefreshed is fired after a Refresh has finished recomputing
	// module linkage. It is a broadcast: it carries no correlation to the
	// Refresh call that caused it, and it may belong to someone else's
	// refresh entirely.
	EventRefreshed EventType = iota + 1
	// EventModuleChanged is fired when a single bundle changes lifecycle
	// state (started, stopped, updated, uninstalled).
	EventModuleChanged
)

func (t EventType) String() string {
	switch t {
	case EventRefreshed:
		return "REFRESHED"
	case EventModuleChanged:
		return "MODULE_CHANGED"
	default:
		return "UNKNOWN"
	}
}

// Event is a runtime notification delivered to subscribers.
//
// Events are delivered on a runtime-owned goroutine, not on the goroutine
// that triggered the change.
type Event struct {
	Type EventType
	// Module is set for EventModuleChanged; empty for EventRefreshed.
	Module ID
}
