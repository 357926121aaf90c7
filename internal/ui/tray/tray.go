package tray

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"timetracker/internal/core/stopwatch"
	"timetracker/internal/report"
	"timetracker/internal/session"
)

const menuTitle = "Time Tracker"

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnShow        func()
	OnPreferences func()
	OnToggle      func()
	OnStop        func()
	OnQuit        func()
}

// Icons maps stopwatch statuses to tray icons.
type Icons struct {
	Running fyne.Resource
	Paused  fyne.Resource
	Stopped fyne.Resource
}

// Manager handles system tray state.
type Manager struct {
	app        desktop.App
	callbacks  Callbacks
	icons      Icons
	statusItem *fyne.MenuItem
	toggleItem *fyne.MenuItem
	stopItem   *fyne.MenuItem
	state      session.State
	hasState   bool
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, icons Icons, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:       app,
		callbacks: callbacks,
		icons:     icons,
	}

	manager.statusItem = fyne.NewMenuItem("", nil)
	manager.statusItem.Disabled = true
	manager.toggleItem = fyne.NewMenuItem("Start", func() {
		call(manager.callbacks.OnToggle)
	})
	manager.stopItem = fyne.NewMenuItem("Stop", func() {
		call(manager.callbacks.OnStop)
	})

	manager.SetStatus(session.State{Status: stopwatch.StatusStopped})
	return manager
}

// SetStatus updates labels, enabled items and icon for state.
func (manager *Manager) SetStatus(state session.State) {
	statusChanged := !manager.hasState || manager.state.Status != state.Status
	manager.state = state
	manager.hasState = true

	manager.statusItem.Label = StatusLine(state)
	manager.toggleItem.Label = ToggleLabel(state.Status)
	manager.toggleItem.Disabled = state.Status == stopwatch.StatusStopped && state.TaskID == ""
	manager.stopItem.Disabled = state.Status == stopwatch.StatusStopped

	if statusChanged {
		manager.refreshIcon()
	}
	manager.refreshMenu()
}

// State returns the last rendered state.
func (manager *Manager) State() session.State {
	return manager.state
}

// StatusLine is the disabled first menu item.
func StatusLine(state session.State) string {
	task := state.TaskName
	if task == "" {
		task = "no task"
	}
	switch state.Status {
	case stopwatch.StatusRunning:
		return fmt.Sprintf("%s: %s", task, report.FormatClock(state.Seconds))
	case stopwatch.StatusPaused:
		return fmt.Sprintf("%s: %s (paused)", task, report.FormatClock(state.Seconds))
	default:
		return fmt.Sprintf("%s: stopped", task)
	}
}

// ToggleLabel names the start/pause item for status.
func ToggleLabel(status stopwatch.Status) string {
	switch status {
	case stopwatch.StatusRunning:
		return "Pause"
	case stopwatch.StatusPaused:
		return "Resume"
	default:
		return "Start"
	}
}

func (manager *Manager) refreshIcon() {
	if manager.app == nil {
		return
	}
	var icon fyne.Resource
	switch manager.state.Status {
	case stopwatch.StatusRunning:
		icon = manager.icons.Running
	case stopwatch.StatusPaused:
		icon = manager.icons.Paused
	default:
		icon = manager.icons.Stopped
	}
	if icon != nil {
		manager.app.SetSystemTrayIcon(icon)
	}
}

func (manager *Manager) refreshMenu() {
	if manager.app == nil {
		return
	}
	manager.app.SetSystemTrayMenu(fyne.NewMenu(menuTitle,
		manager.statusItem,
		fyne.NewMenuItemSeparator(),
		manager.toggleItem,
		manager.stopItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Show Tracker", func() {
			call(manager.callbacks.OnShow)
		}),
		fyne.NewMenuItem("Preferences", func() {
			call(manager.callbacks.OnPreferences)
		}),
		fyne.NewMenuItem("Quit", func() {
			call(manager.callbacks.OnQuit)
		}),
	))
}

func call(handler func()) {
	if handler != nil {
		handler()
	}
}
