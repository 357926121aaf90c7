package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetracker/internal/ui/preferences"
)

func TestLoadSettingsFileMissingReturnsDefaults(t *testing.T) {
	settings, err := LoadSettingsFile(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, preferences.DefaultSettings(), settings)
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", settingsFileName)
	want := preferences.Settings{
		TickInterval:    2 * time.Second,
		IdleEnabled:     false,
		IdleReturnAfter: 10 * time.Minute,
		WakeDetection:   true,
		DarkMode:        true,
		Autostart:       true,
		LogLevel:        "debug",
		DatabasePath:    "/tmp/tracker.db",
	}

	require.NoError(t, SaveSettingsFile(path, want))
	got, err := LoadSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadSettingsFileIgnoresInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), settingsFileName)
	raw := "tick_interval_seconds: 0\nidle_return_after_minutes: -3\nlog_level: loud\ndark_mode: true\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	settings, err := LoadSettingsFile(path)
	require.NoError(t, err)
	defaults := preferences.DefaultSettings()
	assert.Equal(t, defaults.TickInterval, settings.TickInterval)
	assert.Equal(t, defaults.IdleReturnAfter, settings.IdleReturnAfter)
	assert.Equal(t, "info", settings.LogLevel)
	assert.True(t, settings.DarkMode)
}

func TestLoadSettingsFileBadYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), settingsFileName)
	require.NoError(t, os.WriteFile(path, []byte("dark_mode: [unterminated"), 0o644))

	settings, err := LoadSettingsFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse settings yaml")
	assert.Equal(t, preferences.DefaultSettings(), settings)
}
