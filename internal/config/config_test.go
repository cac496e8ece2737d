package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config lookup at an empty directory and clears the
// environment overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, k := range []string{
		"TAKEOVER_CONFIG", "TAKEOVER_SERVER", "TAKEOVER_STREAM_PATH", "TAKEOVER_TIMEOUT",
		"TAKEOVER_RECONNECT_DELAY", "TAKEOVER_LOG_FILE", "TAKEOVER_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8123", cfg.ServerURL)
	assert.Equal(t, "/ws/all", cfg.StreamPath)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "takeover", "config.yaml"), `
server: https://console.example.com/
timeout: 5s
reconnect_delay: 1s
log_level: debug
`)
	t.Setenv("TAKEOVER_TIMEOUT", "10s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://console.example.com", cfg.ServerURL)
	assert.Equal(t, 10*time.Second, cfg.Timeout, "env wins over file")
	assert.Equal(t, time.Second, cfg.ReconnectDelay)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "/ws/all", cfg.StreamPath)
}

func TestLoadExplicitFileMustExist(t *testing.T) {
	dir := isolate(t)
	t.Setenv("TAKEOVER_CONFIG", filepath.Join(dir, "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"not a duration", "TAKEOVER_TIMEOUT", "soon"},
		{"zero delay", "TAKEOVER_RECONNECT_DELAY", "0s"},
		{"negative timeout", "TAKEOVER_TIMEOUT", "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	writeFile(t, path, "server: [unclosed")
	t.Setenv("TAKEOVER_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLogLevel("Error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("nonsense"))
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("stream connected", "conversation", "42")

	assert.Contains(t, stderr.String(), "stream connected")
	assert.NotContains(t, stderr.String(), "hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(file.String())), &rec))
	assert.Equal(t, "42", rec["conversation"])
}

func TestSetupFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "takeover.log")
	logger, cleanup := SetupFileLogger(path, slog.LevelDebug)
	logger.Debug("selected", "conversation", "7")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"conversation":"7"`)
}
