package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hotswap/internal/installer"
)

func writePlan(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plan.cue"), []byte(content), 0o644))
	return dir
}

func TestLoad_ValidPlan(t *testing.T) {
	dir := writePlan(t, `
install: [{id: "com.example.api", version: "2.1.0"}]
update: [{id: "com.example.core", version: "1.4.2"}]
uninstall: [{id: "com.example.legacy"}]
`)

	p, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, p.Install, 1)
	assert.Equal(t, "com.example.api", p.Install[0].ID)
	assert.Equal(t, "2.1.0", p.Install[0].Version)
	require.Len(t, p.Update, 1)
	require.Len(t, p.Uninstall, 1)
	assert.True(t, p.NeedsRefresh())
}

func TestLoad_EmptyID_Rejected(t *testing.T) {
	dir := writePlan(t, `install: [{id: ""}]`)

	_, err := Load(dir)
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeSchemaFailed, le.Code)
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeNotFound, le.Code)
}

func TestLoad_EmptyDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeNoFiles, le.Code)
}

func TestNeedsRefresh_Defaults(t *testing.T) {
	assert.False(t, (&Plan{Install: []Entry{{ID: "a"}}}).NeedsRefresh(),
		"pure installs do not need a refresh")
	assert.True(t, (&Plan{Update: []Entry{{ID: "a"}}}).NeedsRefresh())
	assert.True(t, (&Plan{Uninstall: []Entry{{ID: "a"}}}).NeedsRefresh())

	off := false
	assert.False(t, (&Plan{Update: []Entry{{ID: "a"}}, Refresh: &off}).NeedsRefresh(),
		"explicit refresh field wins")
}

func TestCompile_TaskSet(t *testing.T) {
	p := &Plan{
		Install:   []Entry{{ID: "com.example.api", Version: "2.1.0"}},
		Update:    []Entry{{ID: "com.example.core", Version: "1.4.2"}},
		Uninstall: []Entry{{ID: "com.example.legacy"}},
	}

	tasks := Compile(p)
	require.Len(t, tasks, 4)

	// A cycle orders them: uninstall, update, install, refresh.
	cycle := installer.NewCycle(tasks...)
	var keys []string
	for {
		task, ok := cycle.Next()
		if !ok {
			break
		}
		keys = append(keys, task.SortKey())
	}
	assert.Equal(t, []string{
		installer.UninstallOrder + "com.example.legacy",
		installer.UpdateOrder + "com.example.core",
		installer.InstallOrder + "com.example.api",
		installer.RefreshOrder + "refresh-packages",
	}, keys)
}
