package platform

import (
	"fmt"
	"os"
	"strings"
)

// HiddenFlag is passed to autostarted instances so they open in the tray only.
const HiddenFlag = "--hidden"

// Service defines OS-specific helpers needed by the application.
type Service interface {
	GetConfigDir() (string, error)
	EnableAutostart(entry AutostartEntry) error
	DisableAutostart(appName string) error
}

// AutostartEntry describes the login item to register.
type AutostartEntry struct {
	AppName  string
	ExecPath string
	Args     []string
}

type platformService struct{}

// NewService returns a platform-specific implementation.
func NewService() Service {
	return &platformService{}
}

// SyncAutostart registers or removes the login item to match enabled.
func SyncAutostart(service Service, appName string, enabled bool) error {
	if !enabled {
		return service.DisableAutostart(appName)
	}
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	return service.EnableAutostart(AutostartEntry{
		AppName:  appName,
		ExecPath: execPath,
		Args:     []string{HiddenFlag},
	})
}

// GetConfigDir returns the OS-standard configuration directory.
func (service *platformService) GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err == nil && configDir != "" {
		return configDir, nil
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		if err != nil {
			return "", fmt.Errorf("get config dir: %w", err)
		}
		return "", fmt.Errorf("get config dir: %w", homeErr)
	}

	return fallbackConfigDir(homeDir), nil
}

func (entry AutostartEntry) validate(action string) error {
	if strings.TrimSpace(entry.AppName) == "" {
		return fmt.Errorf("%s autostart: app name is empty", action)
	}
	if entry.ExecPath == "" {
		return fmt.Errorf("%s autostart: exec path is empty", action)
	}
	return nil
}

func slugName(appName string) string {
	name := strings.ToLower(strings.TrimSpace(appName))
	if name == "" {
		name = "timetracker"
	}
	return strings.ReplaceAll(name, " ", "-")
}

func quoteArg(arg string) string {
	if strings.ContainsAny(arg, " \t") && !strings.HasPrefix(arg, `"`) {
		return `"` + arg + `"`
	}
	return arg
}
