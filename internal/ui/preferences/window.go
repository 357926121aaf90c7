package preferences

import (
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Window handles the preferences UI.
type Window struct {
	window    fyne.Window
	settings  Settings
	onSave    func(Settings)
	tickSecs  *widget.Entry
	idleCheck *widget.Check
	idleMins  *widget.Entry
	wakeCheck *widget.Check
	darkMode  *widget.Check
	autostart *widget.Check
	logLevel  *widget.Select
	database  *widget.Label
}

// New creates a preferences window.
func New(app fyne.App, settings Settings, onSave func(Settings)) *Window {
	window := app.NewWindow("Time Tracker Settings")

	prefs := &Window{
		window:    window,
		onSave:    onSave,
		tickSecs:  widget.NewEntry(),
		idleCheck: widget.NewCheck("Refresh when I come back from idle", nil),
		idleMins:  widget.NewEntry(),
		wakeCheck: widget.NewCheck("Refresh after sleep or suspend", nil),
		darkMode:  widget.NewCheck("Dark theme", nil),
		autostart: widget.NewCheck("Start at login (in tray)", nil),
		logLevel:  widget.NewSelect(logLevels, nil),
		database:  widget.NewLabel(""),
	}
	prefs.database.Wrapping = fyne.TextWrapBreak
	prefs.idleCheck.OnChanged = func(enabled bool) {
		if enabled {
			prefs.idleMins.Enable()
		} else {
			prefs.idleMins.Disable()
		}
	}

	form := container.NewVBox(
		widget.NewLabelWithStyle("Timer", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Refresh display every"), prefs.tickSecs, widget.NewLabel("sec")),
		prefs.idleCheck,
		container.NewHBox(widget.NewLabel("Idle for at least"), prefs.idleMins, widget.NewLabel("min")),
		prefs.wakeCheck,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Application", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.darkMode,
		prefs.autostart,
		container.NewHBox(widget.NewLabel("Log level"), prefs.logLevel),
		widget.NewLabel("Database"),
		prefs.database,
	)

	saveButton := widget.NewButton("Save", prefs.handleSave)
	saveButton.Importance = widget.HighImportance
	cancelButton := widget.NewButton("Cancel", func() {
		prefs.UpdateSettings(prefs.settings)
		window.Hide()
	})
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, form))
	window.Resize(fyne.NewSize(420, 440))
	window.SetCloseIntercept(func() {
		window.Hide()
	})

	prefs.UpdateSettings(settings)
	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings Settings) {
	prefs.settings = settings
	prefs.tickSecs.SetText(strconv.Itoa(int(settings.TickInterval / time.Second)))
	prefs.idleCheck.SetChecked(settings.IdleEnabled)
	prefs.idleMins.SetText(strconv.Itoa(int(settings.IdleReturnAfter / time.Minute)))
	if settings.IdleEnabled {
		prefs.idleMins.Enable()
	} else {
		prefs.idleMins.Disable()
	}
	prefs.wakeCheck.SetChecked(settings.WakeDetection)
	prefs.darkMode.SetChecked(settings.DarkMode)
	prefs.autostart.SetChecked(settings.Autostart)
	prefs.logLevel.SetSelected(strings.ToLower(settings.LogLevel))
	prefs.database.SetText(settings.DatabasePath)
}

// Settings returns the last saved settings.
func (prefs *Window) Settings() Settings {
	return prefs.settings
}

func (prefs *Window) handleSave() {
	settings := prefs.settings

	if seconds, ok := parsePositiveInt(prefs.tickSecs.Text); ok {
		settings.TickInterval = time.Duration(seconds) * time.Second
	}
	if minutes, ok := parsePositiveInt(prefs.idleMins.Text); ok {
		settings.IdleReturnAfter = time.Duration(minutes) * time.Minute
	}
	settings.IdleEnabled = prefs.idleCheck.Checked
	settings.WakeDetection = prefs.wakeCheck.Checked
	settings.DarkMode = prefs.darkMode.Checked
	settings.Autostart = prefs.autostart.Checked
	if prefs.logLevel.Selected != "" {
		settings.LogLevel = prefs.logLevel.Selected
	}

	prefs.settings = settings
	if prefs.onSave != nil {
		prefs.onSave(settings)
	}
	prefs.window.Hide()
}

func parsePositiveInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
