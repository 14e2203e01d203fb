package logger

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetDebugMode(false)
	})
	return &buf
}

func TestDebugRespectsMode(t *testing.T) {
	buf := captureOutput(t)

	Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetDebugMode(true)
	Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "[DEBUG]")
	assert.Contains(t, buf.String(), "shown 2")
}

func TestLevelsPrefix(t *testing.T) {
	buf := captureOutput(t)

	Info("starting")
	Warn("careful")
	Error("failed")

	out := buf.String()
	assert.Contains(t, out, "[INFO] ")
	assert.Contains(t, out, "[WARN] ")
	assert.Contains(t, out, "[ERROR] ")
}

func TestLogResponseAlwaysLogsServerErrors(t *testing.T) {
	buf := captureOutput(t)

	LogResponse("GET", "/api/notes", 200, time.Millisecond)
	assert.Empty(t, buf.String())

	LogResponse("POST", "/api/notes", 500, time.Millisecond)
	assert.Contains(t, buf.String(), "POST /api/notes -> 500")
}
