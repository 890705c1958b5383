package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelInfo, FormatJSON).With("component", "pool")

	logger.Debug("hidden %d", 1)
	logger.Warn("session %d retired", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "session 3 retired", entry["message"])
	assert.Equal(t, "pool", entry["component"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelError, FormatJSON)

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.SetLevel(LevelDebug)
	logger.Debug("kept")
	assert.Contains(t, buf.String(), "kept")
	assert.Equal(t, LevelDebug, logger.Level())
}

func TestGlobalLogger_CallerSkipsWrapper(t *testing.T) {
	var buf bytes.Buffer
	prev := GetLogger()
	SetLogger(NewWithWriter(&buf, LevelDebug, FormatJSON))
	t.Cleanup(func() { SetLogger(prev) })

	Info("hello %s", "world")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "hello world", entry["message"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "subtrans.log")

	logger, err := NewFileLogger(path, LevelInfo)
	require.NoError(t, err)
	logger.Info("written to %s", "file")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
