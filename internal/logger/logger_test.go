package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSystemLogger_WritesJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	log, err := NewSystemLogger(dir, slog.LevelInfo)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("notification sent", "notification_id", "n-1")

	raw, err := os.ReadFile(filepath.Join(dir, "system.log"))
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "notification sent", entry["msg"])
	assert.Equal(t, "n-1", entry["notification_id"])
}

func TestNewSystemLogger_InvalidDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	_, err := NewSystemLogger(filepath.Join(file, "logs"), slog.LevelInfo)
	require.Error(t, err)
}

func TestRotatingFile(t *testing.T) {
	w := rotatingFile("/var/log/x.log")
	assert.Equal(t, "/var/log/x.log", w.Filename)
	assert.Equal(t, maxSizeMB, w.MaxSize)
	assert.True(t, w.Compress)
}
