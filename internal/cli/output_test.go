package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hotswap/internal/plan"
)

func TestExitError(t *testing.T) {
	base := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "failed to open journal", base)

	assert.Equal(t, "failed to open journal: disk full", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "tasks failed")))
}

func TestPrinter_ReportText(t *testing.T) {
	buf := &bytes.Buffer{}
	p := &Printer{Format: "text", Out: buf}

	require.NoError(t, p.Report(validateSummary{Plan: "./p", Install: 1}))
	assert.Contains(t, buf.String(), "plan ./p: valid")
}

func TestPrinter_ReportJSONEnvelope(t *testing.T) {
	buf := &bytes.Buffer{}
	p := &Printer{Format: "json", Out: buf}

	require.NoError(t, p.Report(map[string]int{"tasks": 3}))

	var resp envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
}

func TestPrinter_FailJSONEnvelope(t *testing.T) {
	buf := &bytes.Buffer{}
	p := &Printer{Format: "json", Out: buf}

	require.NoError(t, p.Fail(plan.ErrCodeNotFound, "invalid plan", "no such dir"))

	var resp envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, plan.ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "no such dir", resp.Error.Detail)
}

func TestPlanErrorCode(t *testing.T) {
	le := &plan.LoadError{Code: plan.ErrCodeSchemaFailed, Message: "empty id"}
	assert.Equal(t, plan.ErrCodeSchemaFailed, planErrorCode(fmt.Errorf("load: %w", le)))
	assert.Equal(t, "PLAN_INVALID", planErrorCode(errors.New("other")))
}
