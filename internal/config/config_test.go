package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
database: /tmp/campus.db
remote:
  base_url: https://events.example.edu
  api_key: k-123
  timeout: 3s
sync:
  schedule: "@every 5m"
log:
  level: debug
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/campus.db", c.Database)
	assert.Equal(t, "https://events.example.edu", c.Remote.BaseURL)
	assert.Equal(t, "k-123", c.Remote.APIKey)
	assert.Equal(t, 3*time.Second, c.Remote.Timeout)
	assert.Equal(t, "events", c.Remote.EventsCollection)
	assert.Equal(t, "@every 5m", c.Sync.Schedule)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "remote:\n  base_url: https://file.example.edu\n")
	t.Setenv("MYUNI_REMOTE_BASE_URL", "https://env.example.edu")
	t.Setenv("MYUNI_DATABASE", "env.db")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.edu", c.Remote.BaseURL)
	assert.Equal(t, "env.db", c.Database)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad log level", "log:\n  level: loud\n"},
		{"non-http base url", "remote:\n  base_url: ftp://x\n"},
		{"zero timeout", "remote:\n  timeout: 0s\n"},
		{"empty collection", "remote:\n  events_collection: \"\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %T: %v", err, err)
			assert.NotEmpty(t, ve.Problems)
		})
	}
}

func TestValidate_Default(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestValidate_CollectsProblems(t *testing.T) {
	c := Default()
	c.Log.Level = "verbose"
	c.Database = ""

	err := Validate(c)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.GreaterOrEqual(t, len(ve.Problems), 2)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLogConfig_SlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogConfig{Level: "debug"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{Level: "info"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelError, LogConfig{Level: "error"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{}.SlogLevel())
}
