package tracker

import (
	"context"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"timetracker/internal/core/model"
	"timetracker/internal/core/stopwatch"
	"timetracker/internal/report"
	"timetracker/internal/session"
	"timetracker/internal/ui/pulse"
)

// Controller is the session surface the window drives.
type Controller interface {
	Tasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, name string) (model.Task, error)
	RenameTask(ctx context.Context, id, name string) error
	DeleteTask(ctx context.Context, id string) error
	SelectTask(ctx context.Context, id string) (*model.TimeEntry, error)
	Start() error
	Pause()
	Stop(ctx context.Context) (*model.TimeEntry, error)
	State() session.State
	Entries(ctx context.Context, fromDate, toDate string) ([]model.TimeEntry, error)
	Today() time.Time
}

const (
	clockTextSize  = 48
	swatchSize     = 14
	indicatorSize  = 12
	windowWidth    = 760
	windowHeight   = 520
	requestTimeout = 5 * time.Second
)

// defaultTaskColor matches model.DefaultColor.
var defaultTaskColor = color.NRGBA{R: 0x3B, G: 0x82, B: 0xF6, A: 0xFF}

// Window is the main tracker window: task list, stopwatch and reports.
type Window struct {
	window     fyne.Window
	controller Controller

	tasks      []model.Task
	selectedID string
	syncing    bool
	taskList   *widget.List
	newTask    *widget.Entry
	renameBtn  *widget.Button
	deleteBtn  *widget.Button

	clock       *canvas.Text
	statusLabel *widget.Label
	taskLabel   *widget.Label
	indicator   *canvas.Circle
	startBtn    *widget.Button
	pauseBtn    *widget.Button
	stopBtn     *widget.Button

	todayTotal *widget.Label
	todayBox   *fyne.Container
	weekTotal  *widget.Label
	weekBars   *fyne.Container
	weekTasks  *fyne.Container
	dayDetail  *fyne.Container

	week        report.Week
	selectedDay string

	engine      *pulse.Engine
	pulseCancel context.CancelFunc
	lastStatus  stopwatch.Status

	onStateChanged func(session.State)
}

// New creates the tracker window. It does not show it.
func New(app fyne.App, controller Controller) *Window {
	window := app.NewWindow("Time Tracker")
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}

	view := &Window{
		window:     window,
		controller: controller,
		lastStatus: stopwatch.StatusStopped,
	}

	window.SetContent(container.NewHSplit(view.buildTaskPanel(), container.NewVSplit(view.buildTimerPanel(), view.buildReportPanel())))
	window.Resize(fyne.NewSize(windowWidth, windowHeight))
	window.SetCloseIntercept(func() {
		window.Hide()
	})

	view.engine = pulse.New(pulse.DefaultConfig(), func(visible bool) {
		fyne.Do(func() {
			view.setIndicatorVisible(visible)
		})
	})

	view.reloadTasks()
	view.SetState(controller.State())
	view.RefreshReports()
	return view
}

// Window returns the underlying Fyne window.
func (view *Window) Window() fyne.Window {
	return view.window
}

// SetOnStateChanged registers a callback fired after user actions change the session.
func (view *Window) SetOnStateChanged(handler func(session.State)) {
	view.onStateChanged = handler
}

// Show displays the window and brings it to front.
func (view *Window) Show() {
	view.window.Show()
	view.window.RequestFocus()
}

// Hide hides the window; the tracker keeps running in the tray.
func (view *Window) Hide() {
	view.window.Hide()
}

// Close stops the indicator loop.
func (view *Window) Close() {
	view.stopPulse()
	view.engine.Stop()
}

// SetState renders a session state. Must run on the UI thread.
func (view *Window) SetState(state session.State) {
	view.clock.Text = report.FormatClock(state.Seconds)
	view.clock.Refresh()
	view.statusLabel.SetText(StatusText(state.Status))
	if state.TaskName == "" {
		view.taskLabel.SetText("No task selected")
	} else {
		view.taskLabel.SetText(state.TaskName)
	}
	view.indicator.FillColor = StatusColor(state.Status)
	view.indicator.Refresh()

	switch state.Status {
	case stopwatch.StatusRunning:
		view.startBtn.Disable()
		view.pauseBtn.Enable()
		view.stopBtn.Enable()
	case stopwatch.StatusPaused:
		view.startBtn.SetText("Resume")
		view.startBtn.Enable()
		view.pauseBtn.Disable()
		view.stopBtn.Enable()
	default:
		view.startBtn.SetText("Start")
		if state.TaskID == "" {
			view.startBtn.Disable()
		} else {
			view.startBtn.Enable()
		}
		view.pauseBtn.Disable()
		view.stopBtn.Disable()
	}

	if state.Status != view.lastStatus {
		view.applyPulse(state.Status)
		view.lastStatus = state.Status
	}
}

// SetSeconds updates only the clock text. Must run on the UI thread.
func (view *Window) SetSeconds(seconds int64) {
	view.clock.Text = report.FormatClock(seconds)
	view.clock.Refresh()
}

// RefreshReports reloads the today and week panels. Must run on the UI thread.
func (view *Window) RefreshReports() {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	today := view.controller.Today()
	dates := report.WeekDates(today)
	entries, err := view.controller.Entries(ctx, dates[0], dates[len(dates)-1])
	if err != nil {
		view.showError(err)
		return
	}
	week := report.BuildWeek(report.BuildDaily(entries, view.tasks), today)
	view.renderToday(week.Today)
	view.renderWeek(week)
}

// Refresh reloads tasks and reports, e.g. after a control API call.
func (view *Window) Refresh() {
	view.reloadTasks()
	view.SetState(view.controller.State())
	view.RefreshReports()
}

func (view *Window) buildTaskPanel() fyne.CanvasObject {
	view.taskList = widget.NewList(
		func() int { return len(view.tasks) },
		func() fyne.CanvasObject {
			swatch := canvas.NewRectangle(color.Transparent)
			swatch.CornerRadius = 3
			return container.NewHBox(
				container.NewGridWrap(fyne.NewSize(swatchSize, swatchSize), swatch),
				widget.NewLabel("task"),
				layout.NewSpacer(),
				widget.NewLabel("0s"),
			)
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			if id < 0 || id >= len(view.tasks) {
				return
			}
			task := view.tasks[id]
			row := item.(*fyne.Container)
			swatch := row.Objects[0].(*fyne.Container).Objects[0].(*canvas.Rectangle)
			swatch.FillColor = ParseHexColor(task.Color)
			swatch.Refresh()
			row.Objects[1].(*widget.Label).SetText(task.Name)
			row.Objects[3].(*widget.Label).SetText(report.FormatDuration(task.TotalSeconds))
		},
	)
	view.taskList.OnSelected = view.handleSelect

	view.newTask = widget.NewEntry()
	view.newTask.SetPlaceHolder("New task")
	view.newTask.OnSubmitted = func(string) { view.handleCreate() }
	addBtn := widget.NewButtonWithIcon("", theme.ContentAddIcon(), view.handleCreate)

	view.renameBtn = widget.NewButtonWithIcon("Rename", theme.DocumentCreateIcon(), view.handleRename)
	view.deleteBtn = widget.NewButtonWithIcon("Delete", theme.DeleteIcon(), view.handleDelete)
	view.renameBtn.Disable()
	view.deleteBtn.Disable()

	header := widget.NewLabelWithStyle("Tasks", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	footer := container.NewVBox(
		container.NewBorder(nil, nil, nil, addBtn, view.newTask),
		container.NewGridWithColumns(2, view.renameBtn, view.deleteBtn),
	)
	return container.NewBorder(header, footer, nil, nil, view.taskList)
}

func (view *Window) buildTimerPanel() fyne.CanvasObject {
	view.clock = canvas.NewText("00:00:00", theme.Color(theme.ColorNameForeground))
	view.clock.Alignment = fyne.TextAlignCenter
	view.clock.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}
	view.clock.TextSize = clockTextSize

	view.indicator = canvas.NewCircle(StatusColor(stopwatch.StatusStopped))
	view.statusLabel = widget.NewLabel(StatusText(stopwatch.StatusStopped))
	view.taskLabel = widget.NewLabelWithStyle("No task selected", fyne.TextAlignCenter, fyne.TextStyle{Italic: true})

	view.startBtn = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), view.handleStart)
	view.startBtn.Importance = widget.HighImportance
	view.pauseBtn = widget.NewButtonWithIcon("Pause", theme.MediaPauseIcon(), view.handlePause)
	view.stopBtn = widget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), view.handleStop)

	status := container.NewCenter(container.NewHBox(
		container.NewCenter(container.NewGridWrap(fyne.NewSize(indicatorSize, indicatorSize), view.indicator)),
		view.statusLabel,
	))
	buttons := container.NewCenter(container.NewHBox(view.startBtn, view.pauseBtn, view.stopBtn))
	return container.NewVBox(layout.NewSpacer(), view.taskLabel, view.clock, status, buttons, layout.NewSpacer())
}

func (view *Window) buildReportPanel() fyne.CanvasObject {
	view.todayTotal = widget.NewLabelWithStyle("Today: 0s", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	view.todayBox = container.NewVBox()
	view.weekTotal = widget.NewLabelWithStyle("Last 7 days: 0s", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	view.weekBars = container.NewVBox()
	view.weekTasks = container.NewVBox()
	view.dayDetail = container.NewVBox()

	today := container.NewVScroll(container.NewVBox(view.todayTotal, view.todayBox))
	week := container.NewVScroll(container.NewVBox(
		view.weekTotal, view.weekBars, view.dayDetail, widget.NewSeparator(), view.weekTasks))
	return container.NewAppTabs(
		container.NewTabItem("Today", today),
		container.NewTabItem("Week", week),
	)
}

func (view *Window) renderToday(daily *report.Daily) {
	view.todayBox.RemoveAll()
	if daily == nil {
		view.todayTotal.SetText("Today: 0s")
		view.todayBox.Add(widget.NewLabel("Nothing tracked yet."))
		return
	}
	view.todayTotal.SetText("Today: " + report.FormatDuration(daily.TotalSeconds))
	addTaskRows(view.todayBox, daily.Tasks)
}

func (view *Window) renderWeek(week report.Week) {
	view.week = week
	view.weekTotal.SetText("Last 7 days: " + report.FormatDuration(week.TotalSeconds))

	var longest int64
	for _, day := range week.Days {
		if day.TotalSeconds > longest {
			longest = day.TotalSeconds
		}
	}

	inWeek := false
	view.weekBars.RemoveAll()
	for _, day := range week.Days {
		label := widget.NewLabel(DayLabel(day.Date))
		if day.Date == view.selectedDay {
			label.TextStyle = fyne.TextStyle{Bold: true}
			inWeek = true
		}
		bar := newDayBar(day, longest, view.toggleDay)
		view.weekBars.Add(container.NewBorder(nil, nil, label, nil, bar))
	}
	if !inWeek {
		view.selectedDay = ""
	}
	view.renderDayDetail()

	view.weekTasks.RemoveAll()
	if len(week.Tasks) > 0 {
		view.weekTasks.Add(widget.NewLabelWithStyle("Top tasks", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
	}
	for _, task := range week.TopTasks(report.WeekTopTasks) {
		view.weekTasks.Add(container.NewHBox(
			widget.NewLabel(task.TaskName),
			layout.NewSpacer(),
			widget.NewLabel(report.FormatDuration(task.TotalSeconds)),
		))
	}
}

// toggleDay opens the breakdown of date, or closes it when already open.
func (view *Window) toggleDay(date string) {
	if view.selectedDay == date {
		view.selectedDay = ""
	} else {
		view.selectedDay = date
	}
	view.renderWeek(view.week)
}

func (view *Window) renderDayDetail() {
	view.dayDetail.RemoveAll()
	if view.selectedDay == "" {
		return
	}
	daily, ok := view.week.Day(view.selectedDay)
	view.dayDetail.Add(widget.NewSeparator())
	view.dayDetail.Add(widget.NewLabelWithStyle(DayLabel(daily.Date)+"  ("+daily.Date+")",
		fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
	if !ok {
		view.dayDetail.Add(widget.NewLabel("Nothing tracked."))
		return
	}
	addTaskRows(view.dayDetail, daily.Tasks)
	view.dayDetail.Add(container.NewHBox(
		widget.NewLabelWithStyle("Total", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		layout.NewSpacer(),
		widget.NewLabelWithStyle(report.FormatDuration(daily.TotalSeconds), fyne.TextAlignTrailing, fyne.TextStyle{Bold: true}),
	))
}

func addTaskRows(box *fyne.Container, tasks []report.TaskTotal) {
	for _, task := range tasks {
		swatch := canvas.NewRectangle(ParseHexColor(task.Color))
		box.Add(container.NewHBox(
			container.NewCenter(container.NewGridWrap(fyne.NewSize(swatchSize, swatchSize), swatch)),
			widget.NewLabel(task.TaskName),
			layout.NewSpacer(),
			widget.NewLabel(report.FormatDuration(task.TotalSeconds)),
		))
	}
}

func (view *Window) reloadTasks() {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	tasks, err := view.controller.Tasks(ctx)
	if err != nil {
		view.showError(err)
		return
	}
	view.tasks = tasks

	view.selectedID = view.controller.State().TaskID
	view.syncing = true
	view.taskList.Refresh()
	view.taskList.UnselectAll()
	for index, task := range tasks {
		if task.ID == view.selectedID {
			view.taskList.Select(index)
			break
		}
	}
	view.syncing = false
	view.updateTaskButtons()
}

func (view *Window) handleSelect(id widget.ListItemID) {
	if view.syncing || id < 0 || id >= len(view.tasks) {
		return
	}
	task := view.tasks[id]
	view.selectedID = task.ID
	view.updateTaskButtons()
	if view.controller.State().TaskID == task.ID {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	recorded, err := view.controller.SelectTask(ctx, task.ID)
	if err != nil {
		view.showError(err)
		return
	}
	if recorded != nil {
		view.Refresh()
	}
	view.notifyState()
}

func (view *Window) handleCreate() {
	name := strings.TrimSpace(view.newTask.Text)
	if name == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	task, err := view.controller.CreateTask(ctx, name)
	if err != nil {
		view.showError(err)
		return
	}
	view.newTask.SetText("")
	view.reloadTasks()
	if view.controller.State().TaskID == "" {
		for index := range view.tasks {
			if view.tasks[index].ID == task.ID {
				view.taskList.Select(index)
			}
		}
	}
}

func (view *Window) handleRename() {
	task, ok := view.selectedTask()
	if !ok {
		return
	}
	entry := widget.NewEntry()
	entry.SetText(task.Name)
	dialog.ShowForm("Rename task", "Save", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Name", entry),
	}, func(confirmed bool) {
		if !confirmed {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := view.controller.RenameTask(ctx, task.ID, entry.Text); err != nil {
			view.showError(err)
			return
		}
		view.Refresh()
		view.notifyState()
	}, view.window)
}

func (view *Window) handleDelete() {
	task, ok := view.selectedTask()
	if !ok {
		return
	}
	message := fmt.Sprintf("Delete %q? Recorded time stays in the reports.", task.Name)
	dialog.ShowConfirm("Delete task", message, func(confirmed bool) {
		if !confirmed {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := view.controller.DeleteTask(ctx, task.ID); err != nil {
			view.showError(err)
			return
		}
		view.Refresh()
		view.notifyState()
	}, view.window)
}

func (view *Window) handleStart() {
	if err := view.controller.Start(); err != nil {
		view.showError(err)
		return
	}
	view.notifyState()
}

func (view *Window) handlePause() {
	view.controller.Pause()
	view.notifyState()
}

func (view *Window) handleStop() {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if _, err := view.controller.Stop(ctx); err != nil {
		view.showError(err)
		return
	}
	view.Refresh()
	view.notifyState()
}

func (view *Window) notifyState() {
	state := view.controller.State()
	view.SetState(state)
	if view.onStateChanged != nil {
		view.onStateChanged(state)
	}
}

func (view *Window) selectedTask() (model.Task, bool) {
	for _, task := range view.tasks {
		if task.ID == view.selectedID {
			return task, true
		}
	}
	return model.Task{}, false
}

func (view *Window) updateTaskButtons() {
	if _, ok := view.selectedTask(); ok {
		view.renameBtn.Enable()
		view.deleteBtn.Enable()
		return
	}
	view.renameBtn.Disable()
	view.deleteBtn.Disable()
}

func (view *Window) applyPulse(status stopwatch.Status) {
	view.stopPulse()
	if status != stopwatch.StatusRunning {
		view.setIndicatorVisible(true)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	view.pulseCancel = cancel
	view.engine.Start(ctx)
}

func (view *Window) stopPulse() {
	if view.pulseCancel != nil {
		view.pulseCancel()
		view.pulseCancel = nil
	}
}

func (view *Window) setIndicatorVisible(visible bool) {
	if visible {
		view.indicator.Show()
	} else {
		view.indicator.Hide()
	}
}

func (view *Window) showError(err error) {
	dialog.ShowError(err, view.window)
}

// StatusText is the label shown next to the status indicator.
func StatusText(status stopwatch.Status) string {
	switch status {
	case stopwatch.StatusRunning:
		return "Running"
	case stopwatch.StatusPaused:
		return "Paused"
	default:
		return "Stopped"
	}
}

// StatusColor is the indicator colour for a status.
func StatusColor(status stopwatch.Status) color.Color {
	switch status {
	case stopwatch.StatusRunning:
		return color.NRGBA{R: 0x10, G: 0xB9, B: 0x81, A: 0xFF}
	case stopwatch.StatusPaused:
		return color.NRGBA{R: 0xF5, G: 0x9E, B: 0x0B, A: 0xFF}
	default:
		return color.NRGBA{R: 0x9C, G: 0xA3, B: 0xAF, A: 0xFF}
	}
}

// ParseHexColor parses "#RRGGBB". Invalid input yields the default task colour.
func ParseHexColor(value string) color.NRGBA {
	rgb, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(value), "#"), 16, 32)
	if err != nil || len(strings.TrimPrefix(strings.TrimSpace(value), "#")) != 6 {
		return defaultTaskColor
	}
	return color.NRGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 0xFF}
}

// DayLabel renders a date bucket as a short weekday, e.g. "Mon 04".
func DayLabel(date string) string {
	parsed, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return date
	}
	return parsed.Format("Mon 02")
}
