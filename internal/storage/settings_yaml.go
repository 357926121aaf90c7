package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"timetracker/internal/ui/preferences"
)

const (
	settingsFileName = "settings.yaml"
	databaseFileName = "timetracker.db"
)

type yamlSettings struct {
	TickIntervalSeconds    int    `yaml:"tick_interval_seconds"`
	IdleEnabled            bool   `yaml:"idle_enabled"`
	IdleReturnAfterMinutes int    `yaml:"idle_return_after_minutes"`
	WakeDetection          bool   `yaml:"wake_detection"`
	DarkMode               bool   `yaml:"dark_mode"`
	Autostart              bool   `yaml:"autostart"`
	LogLevel               string `yaml:"log_level"`
	DatabasePath           string `yaml:"database_path"`
}

// LoadSettings reads user preferences from YAML.
// If the config file does not exist, default settings are returned.
func LoadSettings(appName string) (preferences.Settings, error) {
	configPath, err := ResolveConfigPath(appName)
	if err != nil {
		settings := preferences.DefaultSettings()
		return settings, err
	}
	settings, err := LoadSettingsFile(configPath)
	if settings.DatabasePath == "" {
		settings.DatabasePath = filepath.Join(filepath.Dir(configPath), databaseFileName)
	}
	return settings, err
}

// LoadSettingsFile reads preferences from an explicit path.
func LoadSettingsFile(configPath string) (preferences.Settings, error) {
	settings := preferences.DefaultSettings()
	rawData, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// SaveSettings writes user preferences to YAML.
func SaveSettings(appName string, settings preferences.Settings) error {
	configPath, err := ResolveConfigPath(appName)
	if err != nil {
		return err
	}
	return SaveSettingsFile(configPath, settings)
}

// SaveSettingsFile writes preferences to an explicit path.
func SaveSettingsFile(configPath string, settings preferences.Settings) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	fileData := yamlSettings{
		TickIntervalSeconds:    int(settings.TickInterval / time.Second),
		IdleEnabled:            settings.IdleEnabled,
		IdleReturnAfterMinutes: int(settings.IdleReturnAfter / time.Minute),
		WakeDetection:          settings.WakeDetection,
		DarkMode:               settings.DarkMode,
		Autostart:              settings.Autostart,
		LogLevel:               settings.LogLevel,
		DatabasePath:           settings.DatabasePath,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(configPath, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

// ResolveConfigPath returns the settings file location for appName.
func ResolveConfigPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, strings.ToLower(appName), settingsFileName), nil
}

func applyYamlSettings(settings *preferences.Settings, fileData yamlSettings) {
	if fileData.TickIntervalSeconds > 0 {
		settings.TickInterval = time.Duration(fileData.TickIntervalSeconds) * time.Second
	}
	if fileData.IdleReturnAfterMinutes > 0 {
		settings.IdleReturnAfter = time.Duration(fileData.IdleReturnAfterMinutes) * time.Minute
	}
	switch strings.ToLower(fileData.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
		settings.LogLevel = strings.ToLower(fileData.LogLevel)
	}
	if fileData.DatabasePath != "" {
		settings.DatabasePath = fileData.DatabasePath
	}

	settings.IdleEnabled = fileData.IdleEnabled
	settings.WakeDetection = fileData.WakeDetection
	settings.DarkMode = fileData.DarkMode
	settings.Autostart = fileData.Autostart
}
