package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidPlan(t *testing.T) {
	planDir := writePlanDir(t, `
install: [{id: "com.example.api", version: "1.0.0"}]
uninstall: [{id: "com.example.legacy"}]
`)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{planDir})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "valid")
	assert.Contains(t, buf.String(), "refresh=true")
}

func TestValidateValidPlanJSON(t *testing.T) {
	planDir := writePlanDir(t, `install: [{id: "com.example.api", version: "1.0.0"}]`)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{planDir})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateBadPlan(t *testing.T) {
	planDir := writePlanDir(t, `install: [{id: ""}]`)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{planDir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "PLAN_SCHEMA_VIOLATION")
}

func TestValidateMissingDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/plan/dir"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
