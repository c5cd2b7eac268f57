package logger

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

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		lines = append(lines, entry)
	}
	return lines
}

func TestLoggerWritesFiles(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	errPath := filepath.Join(dir, "error.log")

	l, err := New(Configuration{LogFile: logPath, ErrorFile: errPath, Level: "info"})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("mint started", "quantity", 3)
	l.Error("mint failed", "kind", "issuance_failed")
	require.NoError(t, l.Close())

	all := readLines(t, logPath)
	require.Len(t, all, 2)
	assert.Equal(t, "mint started", all[0]["message"])
	assert.Equal(t, "info", all[0]["level"])
	assert.EqualValues(t, 3, all[0]["quantity"])
	assert.Contains(t, all[0], "timestamp")

	errs := readLines(t, errPath)
	require.Len(t, errs, 1)
	assert.Equal(t, "mint failed", errs[0]["message"])
	assert.Equal(t, "issuance_failed", errs[0]["kind"])
}

func TestLoggerConsole(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Configuration{Level: "warn", Console: true, ConsoleWriter: &buf})
	require.NoError(t, err)

	l.Info("quiet")
	l.Warn("loud", "txHash", "0xabc")
	_ = l.Zap().Sync()

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, "0xabc")
}

func TestLoggerInvalidLevelDefaultsToDebug(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Configuration{Level: "chatty", Console: true, ConsoleWriter: &buf})
	require.NoError(t, err)

	l.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestLoggerBadPath(t *testing.T) {
	_, err := New(Configuration{LogFile: filepath.Join(t.TempDir(), "missing", "app.log")})
	assert.Error(t, err)
}

func TestLoggerNoSinks(t *testing.T) {
	l, err := New(Configuration{})
	require.NoError(t, err)
	l.Info("dropped")
	assert.NoError(t, l.Close())
}
