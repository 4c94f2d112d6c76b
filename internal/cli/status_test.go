package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusAfterApply(t *testing.T) {
	planDir := writePlanDir(t, `install: [{id: "com.example.api", version: "1.0.0"}]`)
	journal := filepath.Join(t.TempDir(), "journal.db")
	cfg := filepath.Join(t.TempDir(), "absent.yaml")

	apply := NewApplyCommand(&RootOptions{Format: "text", Config: cfg})
	apply.SetOut(&bytes.Buffer{})
	apply.SetErr(&bytes.Buffer{})
	apply.SetArgs([]string{"--journal", journal, planDir})
	require.NoError(t, apply.Execute())

	buf := &bytes.Buffer{}
	status := NewStatusCommand(&RootOptions{Format: "text", Config: cfg})
	status.SetOut(buf)
	status.SetArgs([]string{"--journal", journal})
	require.NoError(t, status.Execute())

	out := buf.String()
	assert.Contains(t, out, "1 cycle(s)")
	assert.Contains(t, out, "com.example.api")
}

func TestStatusCycleExecutions(t *testing.T) {
	planDir := writePlanDir(t, `install: [{id: "com.example.api", version: "1.0.0"}]`)
	journal := filepath.Join(t.TempDir(), "journal.db")
	cfg := filepath.Join(t.TempDir(), "absent.yaml")

	apply := NewApplyCommand(&RootOptions{Format: "text", Config: cfg})
	apply.SetOut(&bytes.Buffer{})
	apply.SetErr(&bytes.Buffer{})
	apply.SetArgs([]string{"--journal", journal, planDir})
	require.NoError(t, apply.Execute())

	// Find the cycle ID via JSON output.
	buf := &bytes.Buffer{}
	status := NewStatusCommand(&RootOptions{Format: "json", Config: cfg})
	status.SetOut(buf)
	status.SetArgs([]string{"--journal", journal})
	require.NoError(t, status.Execute())

	var resp struct {
		Result struct {
			Cycles []struct {
				ID string `json:"ID"`
			} `json:"cycles"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Result.Cycles, 1)

	buf.Reset()
	status = NewStatusCommand(&RootOptions{Format: "text", Config: cfg})
	status.SetOut(buf)
	status.SetArgs([]string{"--journal", journal, "--cycle", resp.Result.Cycles[0].ID})
	require.NoError(t, status.Execute())

	out := buf.String()
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "install:com.example.api")
	assert.Contains(t, out, "start:com.example.api")
}

func TestStatusEmptyJournal(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "journal.db")
	cfg := filepath.Join(t.TempDir(), "absent.yaml")

	buf := &bytes.Buffer{}
	status := NewStatusCommand(&RootOptions{Format: "text", Config: cfg})
	status.SetOut(buf)
	status.SetArgs([]string{"--journal", journal})
	require.NoError(t, status.Execute())

	assert.Contains(t, buf.String(), "0 cycle(s)")
}
