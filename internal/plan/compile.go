package plan

import (
	"github.com/roach88/hotswap/internal/bundle"
	"github.com/roach88/hotswap/internal/installer"
)

// Compile turns a plan into installer tasks.
//
// The returned slice is in no particular order: a Cycle sorts by sort key
// before execution, so compilation only decides the task set, never the
// order. refreshOpts apply to the refresh task if one is appended.
func Compile(p *Plan, refreshOpts ...installer.RefreshOption) []installer.Task {
	var tasks []installer.Task
	for _, e := range p.Uninstall {
		tasks = append(tasks, installer.NewUninstallTask(bundle.NewID(e.ID)))
	}
	for _, e := range p.Update {
		tasks = append(tasks, installer.NewUpdateTask(bundle.NewID(e.ID), e.Version))
	}
	for _, e := range p.Install {
		tasks = append(tasks, installer.NewInstallTask(bundle.NewID(e.ID), e.Version))
	}
	if p.NeedsRefresh() {
		tasks = append(tasks, installer.NewRefreshTask(refreshOpts...))
	}
	return tasks
}
