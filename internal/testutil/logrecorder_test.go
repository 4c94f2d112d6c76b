package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogRecorder_CapturesByLevel(t *testing.T) {
	rec := NewLogRecorder()
	log := rec.Logger()

	log.Debug("d")
	log.Warn("careful")
	log.Warn("careful")
	log.Error("boom")

	assert.Equal(t, 1, rec.CountLevel(slog.LevelDebug))
	assert.Equal(t, 2, rec.CountLevel(slog.LevelWarn))
	assert.True(t, rec.HasMessage(slog.LevelError, "boom"))
	assert.False(t, rec.HasMessage(slog.LevelWarn, "boom"))
	assert.Len(t, rec.Records(), 4)
}
