// Package app wires storage, the session controller and the Fyne UI into the
// desktop tracker.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/sirupsen/logrus"

	"timetracker/internal/control"
	"timetracker/internal/core/model"
	"timetracker/internal/core/stopwatch"
	"timetracker/internal/metrics"
	"timetracker/internal/platform"
	"timetracker/internal/session"
	"timetracker/internal/storage"
	"timetracker/internal/ui/preferences"
	"timetracker/internal/ui/tracker"
	"timetracker/internal/ui/tray"
	"timetracker/resources"
)

const (
	appID       = "com.timetracker.app"
	eventBuffer = 16
	stopTimeout = 5 * time.Second
	seedTimeout = 10 * time.Second
)

// Options configures Run.
type Options struct {
	AppName string
	// Hidden starts in the tray without showing the tracker window.
	Hidden bool
}

// App is the running desktop tracker.
type App struct {
	name       string
	log        *logrus.Logger
	settings   preferences.Settings
	fyne       fyne.App
	keeper     *stopwatch.Keeper
	controller *session.Controller
	metrics    *metrics.Metrics
	window     *tracker.Window
	prefs      *preferences.Window
	tray       *tray.Manager

	ctx         context.Context
	watchCancel context.CancelFunc
	closing     atomic.Bool
}

// Run starts the tracker and blocks until the user quits.
func Run(options Options) error {
	settings, settingsErr := storage.LoadSettings(options.AppName)
	logger := NewLogger(settings.LogLevel, nil)
	if settingsErr != nil {
		logger.WithError(settingsErr).Warn("settings unreadable, using defaults")
	}

	guard, err := platform.AcquireSingleInstance(options.AppName)
	if err != nil {
		return err
	}
	defer func() {
		_ = guard.Release()
	}()

	db, err := storage.Open(settings.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	collectors := metrics.New()
	keeper := stopwatch.NewKeeper(stopwatch.Config{TickInterval: settings.TickInterval})
	defer keeper.Close()
	controller := session.New(db, keeper, session.Options{
		Logger:   logger,
		Observer: collectors,
	})

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), seedTimeout)
	err = controller.SeedDefaults(seedCtx)
	cancelSeed()
	if err != nil {
		return fmt.Errorf("seed tasks: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := &App{
		name:       options.AppName,
		log:        logger,
		settings:   settings,
		fyne:       fyneapp.NewWithID(appID),
		keeper:     keeper,
		controller: controller,
		metrics:    collectors,
		ctx:        ctx,
	}
	app.buildUI()
	app.syncAutostart()
	app.startWatchers()

	server := control.NewServer(&remoteTracker{Controller: controller, changed: app.remoteChanged}, collectors.Registry, logger)
	go func() {
		if err := server.Serve(ctx, guard.Listener()); err != nil {
			logger.WithError(err).Error("control server stopped")
		}
	}()
	go app.handleEvents(keeper.Subscribe(eventBuffer))

	if !options.Hidden || app.tray == nil {
		app.window.Show()
	}
	logger.WithFields(logrus.Fields{
		"address":  guard.Address(),
		"database": settings.DatabasePath,
	}).Info("tracker started")

	app.fyne.Run()
	app.shutdown()
	return nil
}

func (app *App) buildUI() {
	app.fyne.SetIcon(resources.MustLogo(resources.LogoActive))
	applyTheme(app.fyne, app.settings.DarkMode)
	// Foregrounding recomputes the display from timestamps.
	app.fyne.Lifecycle().SetOnEnteredForeground(app.keeper.Resume)

	app.window = tracker.New(app.fyne, app.controller)
	app.prefs = preferences.New(app.fyne, app.settings, app.applySettings)

	desktopApp, ok := app.fyne.(desktop.App)
	if !ok {
		app.log.Info("system tray unsupported on this platform")
		app.window.SetOnStateChanged(app.metricsOnly)
		return
	}
	app.tray = tray.New(desktopApp, tray.Icons{
		Running: resources.MustLogo(resources.LogoActive),
		Paused:  resources.MustLogo(resources.LogoPaused),
		Stopped: resources.MustLogo(resources.LogoIdle),
	}, tray.Callbacks{
		OnShow:        app.window.Show,
		OnPreferences: app.prefs.Show,
		OnToggle:      app.toggle,
		OnStop:        app.stop,
		OnQuit:        app.fyne.Quit,
	})
	desktopApp.SetSystemTrayWindow(app.window.Window())
	app.window.SetOnStateChanged(func(state session.State) {
		app.tray.SetStatus(state)
		app.metrics.SetStatus(state.Status)
	})
	app.tray.SetStatus(app.controller.State())
}

func (app *App) metricsOnly(state session.State) {
	app.metrics.SetStatus(state.Status)
}

// handleEvents forwards Keeper events to the UI thread.
func (app *App) handleEvents(events <-chan stopwatch.Event) {
	for event := range events {
		event := event
		app.metrics.SetStatus(event.Status)
		// The UI loop is gone once Run returns.
		if app.closing.Load() {
			continue
		}
		switch event.Type {
		case stopwatch.EventTick, stopwatch.EventResumed:
			fyne.Do(func() {
				app.window.SetSeconds(event.Seconds)
				if app.tray != nil {
					app.tray.SetStatus(app.controller.State())
				}
			})
		case stopwatch.EventStatusChange:
			fyne.Do(app.render)
		}
	}
}

// render redraws window and tray from the controller. UI thread only.
func (app *App) render() {
	state := app.controller.State()
	app.window.SetState(state)
	if app.tray != nil {
		app.tray.SetStatus(state)
	}
}

// remoteChanged runs after a control API call changed the session.
func (app *App) remoteChanged() {
	if app.closing.Load() {
		return
	}
	fyne.Do(func() {
		app.window.Refresh()
		if app.tray != nil {
			app.tray.SetStatus(app.controller.State())
		}
	})
}

func (app *App) toggle() {
	if app.controller.State().Status == stopwatch.StatusRunning {
		app.controller.Pause()
		app.render()
		return
	}
	if err := app.controller.Start(); err != nil {
		if errors.Is(err, session.ErrNoActiveTask) {
			app.window.Show()
		}
		app.log.WithError(err).Warn("start from tray")
		return
	}
	app.render()
}

func (app *App) stop() {
	ctx, cancel := context.WithTimeout(app.ctx, stopTimeout)
	defer cancel()
	if _, err := app.controller.Stop(ctx); err != nil {
		app.log.WithError(err).Error("stop from tray")
	}
	app.window.Refresh()
	app.render()
}

func (app *App) applySettings(updated preferences.Settings) {
	if updated.DatabasePath != app.settings.DatabasePath {
		app.log.Info("database path change applies on next start")
	}
	app.settings = updated
	if err := storage.SaveSettings(app.name, updated); err != nil {
		app.log.WithError(err).Error("save settings")
	}
	SetLevel(app.log, updated.LogLevel)
	applyTheme(app.fyne, updated.DarkMode)
	app.keeper.SetTickInterval(updated.TickInterval)
	app.syncAutostart()
	app.startWatchers()
	app.log.WithField("settings", updated.String()).Debug("settings applied")
}

func (app *App) syncAutostart() {
	if err := platform.SyncAutostart(platform.NewService(), app.name, app.settings.Autostart); err != nil {
		app.log.WithError(err).Warn("sync autostart")
	}
}

// startWatchers (re)starts idle-return and wake detection for the current
// settings. Both feed Keeper.Resume.
func (app *App) startWatchers() {
	if app.watchCancel != nil {
		app.watchCancel()
	}
	ctx, cancel := context.WithCancel(app.ctx)
	app.watchCancel = cancel

	config := app.settings.TrackerConfig()
	startWatchers(ctx, config, platform.NewIdleProvider(), app.keeper.Resume, app.log)
}

func startWatchers(ctx context.Context, config model.TrackerConfig, idle platform.IdleProvider, resume func(), logger logrus.FieldLogger) int {
	started := 0
	if config.IdleReturn.Enabled {
		watcher := platform.NewReturnWatcher(idle, config.IdleReturn.Threshold, config.IdleReturn.CheckInterval, resume, logger)
		go watcher.Run(ctx)
		started++
	}
	if config.WakeDetection {
		detector := platform.NewWakeDetector(config.WakeCheckInterval, func(gap time.Duration) {
			logger.WithField("gap", gap.Round(time.Second)).Info("host resumed")
			resume()
		})
		go detector.Run(ctx)
		started++
	}
	return started
}

// shutdown records a session still in progress.
func (app *App) shutdown() {
	app.closing.Store(true)
	if app.watchCancel != nil {
		app.watchCancel()
	}
	app.window.Close()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	entry, err := app.controller.Stop(ctx)
	if err != nil {
		app.log.WithError(err).Error("record session on quit")
		return
	}
	if entry != nil {
		app.log.WithField("seconds", entry.DurationSeconds).Info("recorded session on quit")
	}
}

// remoteTracker notifies the UI after control API mutations.
type remoteTracker struct {
	*session.Controller
	changed func()
}

func (remote *remoteTracker) Start() error {
	err := remote.Controller.Start()
	remote.changed()
	return err
}

func (remote *remoteTracker) Pause() {
	remote.Controller.Pause()
	remote.changed()
}

func (remote *remoteTracker) Stop(ctx context.Context) (*model.TimeEntry, error) {
	entry, err := remote.Controller.Stop(ctx)
	remote.changed()
	return entry, err
}

func (remote *remoteTracker) SelectTask(ctx context.Context, id string) (*model.TimeEntry, error) {
	entry, err := remote.Controller.SelectTask(ctx, id)
	remote.changed()
	return entry, err
}
