package installer

import (
	"github.com/roach88/hotswap/internal/bundle"
)

// StartTask activates a bundle.
//
// A bundle that is no longer installed when the task executes is skipped:
// refresh snapshots can race with uninstalls, and a missing bundle must
// not fail the cycle.
type StartTask struct {
	id bundle.ID
}

// NewStartTask creates a start task for the given bundle.
func NewStartTask(id bundle.ID) *StartTask { return &StartTask{id: id} }

func (t *StartTask) SortKey() string { return StartOrder + t.id.String() }
func (t *StartTask) String() string  { return "start:" + t.id.String() }

func (t *StartTask) Execute(ctx *Context) error {
	rt := ctx.Runtime()
	if rt == nil {
		return errRuntimeUnavailable("start")
	}
	if _, ok := rt.Get(t.id); !ok {
		ctx.Log().Debug("bundle gone before start, skipping", "module", t.id)
		return nil
	}
	if err := rt.Start(t.id); err != nil {
		return errRuntimeOp("start", t.id, err)
	}
	return nil
}

// StopTask deactivates a bundle. Unknown bundles are skipped.
type StopTask struct {
	id bundle.ID
}

// NewStopTask creates a stop task for the given bundle.
func NewStopTask(id bundle.ID) *StopTask { return &StopTask{id: id} }

func (t *StopTask) SortKey() string { return StopOrder + t.id.String() }
func (t *StopTask) String() string  { return "stop:" + t.id.String() }

func (t *StopTask) Execute(ctx *Context) error {
	rt := ctx.Runtime()
	if rt == nil {
		return errRuntimeUnavailable("stop")
	}
	if _, ok := rt.Get(t.id); !ok {
		ctx.Log().Debug("bundle gone before stop, skipping", "module", t.id)
		return nil
	}
	if err := rt.Stop(t.id); err != nil {
		return errRuntimeOp("stop", t.id, err)
	}
	return nil
}

// InstallTask installs a bundle and queues a start for it in the same
// cycle. The start runs after any refresh planned alongside the install,
// so the new bundle activates against fresh wiring.
type InstallTask struct {
	id      bundle.ID
	version string
}

// NewInstallTask creates an install task.
func NewInstallTask(id bundle.ID, version string) *InstallTask {
	return &InstallTask{id: id, version: version}
}

func (t *InstallTask) SortKey() string { return InstallOrder + t.id.String() }
func (t *InstallTask) String() string  { return "install:" + t.id.String() }

func (t *InstallTask) Execute(ctx *Context) error {
	rt := ctx.Runtime()
	if rt == nil {
		return errRuntimeUnavailable("install")
	}
	if err := rt.Install(t.id, t.version); err != nil {
		return errRuntimeOp("install", t.id, err)
	}
	ctx.Add(NewStartTask(t.id))
	ctx.Log().Debug("installed, start queued", "module", t.id, "version", t.version)
	return nil
}

// UpdateTask replaces a bundle's content. The new wiring takes effect at
// the next refresh; restarting is the refresh task's business.
type UpdateTask struct {
	id      bundle.ID
	version string
}

// NewUpdateTask creates an update task.
func NewUpdateTask(id bundle.ID, version string) *UpdateTask {
	return &UpdateTask{id: id, version: version}
}

func (t *UpdateTask) SortKey() string { return UpdateOrder + t.id.String() }
func (t *UpdateTask) String() string  { return "update:" + t.id.String() }

func (t *UpdateTask) Execute(ctx *Context) error {
	rt := ctx.Runtime()
	if rt == nil {
		return errRuntimeUnavailable("update")
	}
	if _, ok := rt.Get(t.id); !ok {
		ctx.Log().Debug("bundle gone before update, skipping", "module", t.id)
		return nil
	}
	if err := rt.Update(t.id, t.version); err != nil {
		return errRuntimeOp("update", t.id, err)
	}
	return nil
}

// UninstallTask removes a bundle. Unknown bundles are skipped.
type UninstallTask struct {
	id bundle.ID
}

// NewUninstallTask creates an uninstall task.
func NewUninstallTask(id bundle.ID) *UninstallTask { return &UninstallTask{id: id} }

func (t *UninstallTask) SortKey() string { return UninstallOrder + t.id.String() }
func (t *UninstallTask) String() string  { return "uninstall:" + t.id.String() }

func (t *UninstallTask) Execute(ctx *Context) error {
	rt := ctx.Runtime()
	if rt == nil {
		return errRuntimeUnavailable("uninstall")
	}
	if _, ok := rt.Get(t.id); !ok {
		ctx.Log().Debug("bundle gone before uninstall, skipping", "module", t.id)
		return nil
	}
	if err := rt.Uninstall(t.id); err != nil {
		return errRuntimeOp("uninstall", t.id, err)
	}
	return nil
}
