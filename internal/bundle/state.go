package bundle

// State is a bundle's lifecycle state.
type State int

const (
	// Installed means the bundle's content is present but its imports
	// have not been wired to exporters yet.
	Installed State = iota + 1
	// Resolved means the bundle's dependencies are wired and it can be
	// started.
	Resolved
	// Starting is the transient state while activation runs.
	Starting
	// Active means the bundle is running.
	Active
	// Stopping is the transient state while deactivation runs.
	Stopping
	// Uninstalled means the bundle has been removed and cannot be used.
	Uninstalled
)

var stateNames = map[State]string{
	Installed:   "INSTALLED",
	Resolved:    "RESOLVED",
	Starting:    "STARTING",
	Active:      "ACTIVE",
	Stopping:    "STOPPING",
	Uninstalled: "UNINSTALLED",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// ParseState converts a journal or config string back into a State.
// Returns (0, false) for unknown names.
func ParseState(name string) (State, bool) {
	for s, n := range stateNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}
