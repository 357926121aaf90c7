package preferences

import (
	"fmt"
	"time"

	"timetracker/internal/core/model"
)

// Settings defines editable user preferences.
type Settings struct {
	TickInterval    time.Duration
	IdleEnabled     bool
	IdleReturnAfter time.Duration
	WakeDetection   bool

	DarkMode  bool
	Autostart bool

	LogLevel     string
	DatabasePath string
}

// DefaultSettings returns default settings for the tracker.
func DefaultSettings() Settings {
	return Settings{
		TickInterval:    time.Second,
		IdleEnabled:     true,
		IdleReturnAfter: 5 * time.Minute,
		WakeDetection:   true,
		DarkMode:        false,
		Autostart:       false,
		LogLevel:        "info",
	}
}

// TrackerConfig converts settings to TrackerConfig.
func (settings Settings) TrackerConfig() model.TrackerConfig {
	return model.TrackerConfig{
		TickInterval: settings.TickInterval,
		IdleReturn: model.IdleReturnConfig{
			Enabled:       settings.IdleEnabled,
			Threshold:     settings.IdleReturnAfter,
			CheckInterval: 5 * time.Second,
		},
		WakeDetection:     settings.WakeDetection,
		WakeCheckInterval: 2 * time.Second,
	}
}

// String renders settings for logs.
func (settings Settings) String() string {
	return fmt.Sprintf("tick=%s idle=%t/%s wake=%t dark=%t autostart=%t log=%s",
		settings.TickInterval, settings.IdleEnabled, settings.IdleReturnAfter,
		settings.WakeDetection, settings.DarkMode, settings.Autostart, settings.LogLevel)
}
