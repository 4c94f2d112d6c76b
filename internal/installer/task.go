package installer

// Task is one unit of installer work.
//
// Tasks are immutable once constructed, except for task-local execution
// state (RefreshTask's completion counter). A task executes at most once
// per cycle; re-execution only happens if a later planning pass creates
// a fresh task.
type Task interface {
	// SortKey returns the task's position in a cycle's total order. Keys
	// are compared as strings. Each variant contributes a constant order
	// prefix; variants that target a bundle append the bundle ID so that
	// ties break deterministically.
	SortKey() string

	// Execute performs the work against the given context. Execute may
	// append follow-on tasks to the current cycle via ctx.Add. The
	// context must not be retained past the call.
	Execute(ctx *Context) error
}

// Order prefixes per task variant. Uninstalls and updates run first so a
// subsequent refresh sees their effects; refresh runs before stop/start
// so that restart tasks it injects land after it in the same cycle.
const (
	UninstallOrder = "10-"
	UpdateOrder    = "20-"
	InstallOrder   = "30-"
	RefreshOrder   = "40-"
	StopOrder      = "50-"
	StartOrder     = "60-"
)
