package tracker

import (
	"context"
	"image/color"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetracker/internal/core/model"
	"timetracker/internal/core/stopwatch"
	"timetracker/internal/session"
)

type fakeController struct {
	tasks   []model.Task
	entries []model.TimeEntry
	state   session.State
	today   time.Time
}

func (fake *fakeController) Tasks(context.Context) ([]model.Task, error) { return fake.tasks, nil }

func (fake *fakeController) CreateTask(_ context.Context, name string) (model.Task, error) {
	task := model.Task{ID: name, Name: name, Color: model.NextColor(fake.tasks)}
	fake.tasks = append(fake.tasks, task)
	return task, nil
}

func (fake *fakeController) RenameTask(_ context.Context, id, name string) error {
	for index := range fake.tasks {
		if fake.tasks[index].ID == id {
			fake.tasks[index].Name = name
		}
	}
	return nil
}

func (fake *fakeController) DeleteTask(_ context.Context, id string) error {
	kept := fake.tasks[:0]
	for _, task := range fake.tasks {
		if task.ID != id {
			kept = append(kept, task)
		}
	}
	fake.tasks = kept
	return nil
}

func (fake *fakeController) SelectTask(_ context.Context, id string) (*model.TimeEntry, error) {
	for _, task := range fake.tasks {
		if task.ID == id {
			fake.state.TaskID = task.ID
			fake.state.TaskName = task.Name
			return nil, nil
		}
	}
	return nil, session.ErrTaskNotFound
}

func (fake *fakeController) Start() error {
	if fake.state.TaskID == "" {
		return session.ErrNoActiveTask
	}
	fake.state.Status = stopwatch.StatusRunning
	return nil
}

func (fake *fakeController) Pause() {
	if fake.state.Status == stopwatch.StatusRunning {
		fake.state.Status = stopwatch.StatusPaused
	}
}

func (fake *fakeController) Stop(context.Context) (*model.TimeEntry, error) {
	fake.state.Status = stopwatch.StatusStopped
	fake.state.Seconds = 0
	return nil, nil
}

func (fake *fakeController) State() session.State { return fake.state }

func (fake *fakeController) Entries(context.Context, string, string) ([]model.TimeEntry, error) {
	return fake.entries, nil
}

func (fake *fakeController) Today() time.Time { return fake.today }

func newTestWindow(t *testing.T, controller *fakeController) *Window {
	t.Helper()
	app := test.NewApp()
	view := New(app, controller)
	t.Cleanup(func() {
		view.Close()
		app.Quit()
	})
	return view
}

func TestWindowInitialState(t *testing.T) {
	controller := &fakeController{
		tasks: []model.Task{{ID: "a", Name: "Write", Color: "#10B981"}},
		state: session.State{Status: stopwatch.StatusStopped},
		today: time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
	}
	view := newTestWindow(t, controller)

	assert.Equal(t, "00:00:00", view.clock.Text)
	assert.Equal(t, "Stopped", view.statusLabel.Text)
	assert.Equal(t, "No task selected", view.taskLabel.Text)
	assert.True(t, view.startBtn.Disabled())
	assert.True(t, view.pauseBtn.Disabled())
	assert.True(t, view.stopBtn.Disabled())
	assert.Equal(t, "Today: 0s", view.todayTotal.Text)
}

func TestWindowSelectStartPauseStop(t *testing.T) {
	controller := &fakeController{
		tasks: []model.Task{{ID: "a", Name: "Write", Color: "#10B981"}},
		state: session.State{Status: stopwatch.StatusStopped},
		today: time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
	}
	view := newTestWindow(t, controller)

	var notified []stopwatch.Status
	view.SetOnStateChanged(func(state session.State) {
		notified = append(notified, state.Status)
	})

	view.handleSelect(0)
	assert.Equal(t, "Write", view.taskLabel.Text)
	assert.False(t, view.startBtn.Disabled())
	assert.False(t, view.renameBtn.Disabled())

	test.Tap(view.startBtn)
	assert.Equal(t, "Running", view.statusLabel.Text)
	assert.True(t, view.startBtn.Disabled())

	controller.state.Seconds = 65
	view.SetSeconds(controller.state.Seconds)
	assert.Equal(t, "00:01:05", view.clock.Text)

	test.Tap(view.pauseBtn)
	assert.Equal(t, "Paused", view.statusLabel.Text)
	assert.Equal(t, "Resume", view.startBtn.Text)

	test.Tap(view.stopBtn)
	assert.Equal(t, "Stopped", view.statusLabel.Text)
	assert.Equal(t, "00:00:00", view.clock.Text)

	assert.Equal(t, []stopwatch.Status{
		stopwatch.StatusStopped,
		stopwatch.StatusRunning,
		stopwatch.StatusPaused,
		stopwatch.StatusStopped,
	}, notified)
}

func TestWindowReports(t *testing.T) {
	controller := &fakeController{
		tasks: []model.Task{{ID: "a", Name: "Write", Color: "#10B981"}},
		entries: []model.TimeEntry{
			{TaskID: "a", TaskName: "Write", DurationSeconds: 3720, Date: "2024-03-04"},
			{TaskID: "a", TaskName: "Write", DurationSeconds: 60, Date: "2024-03-02"},
		},
		state: session.State{Status: stopwatch.StatusStopped},
		today: time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
	}
	view := newTestWindow(t, controller)

	assert.Equal(t, "Today: 1h 02m", view.todayTotal.Text)
	assert.Equal(t, "Last 7 days: 1h 03m", view.weekTotal.Text)
	assert.Len(t, view.weekBars.Objects, 7)
	assert.Len(t, view.weekTasks.Objects, 2)
	assert.Empty(t, view.dayDetail.Objects)
}

func findDayBar(t *testing.T, view *Window, date string) *dayBar {
	t.Helper()
	for _, row := range view.weekBars.Objects {
		for _, object := range row.(*fyne.Container).Objects {
			if bar, ok := object.(*dayBar); ok && bar.date == date {
				return bar
			}
		}
	}
	t.Fatalf("no bar for %s", date)
	return nil
}

func labelTexts(box *fyne.Container) []string {
	var texts []string
	for _, object := range box.Objects {
		switch object := object.(type) {
		case *widget.Label:
			texts = append(texts, object.Text)
		case *fyne.Container:
			texts = append(texts, labelTexts(object)...)
		}
	}
	return texts
}

func TestWindowWeekListsTopTasksByTotal(t *testing.T) {
	controller := &fakeController{
		state: session.State{Status: stopwatch.StatusStopped},
		today: time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
	}
	for i, name := range []string{"a", "b", "c", "d", "e", "f"} {
		controller.entries = append(controller.entries, model.TimeEntry{
			TaskID: name, TaskName: name, DurationSeconds: int64(60 * (i + 1)), Date: "2024-03-03",
		})
	}
	view := newTestWindow(t, controller)

	assert.Equal(t, []string{"Top tasks", "f", "6m", "e", "5m", "d", "4m", "c", "3m", "b", "2m"},
		labelTexts(view.weekTasks))
}

func TestWindowDayBarShowsBreakdown(t *testing.T) {
	controller := &fakeController{
		tasks: []model.Task{
			{ID: "a", Name: "Write", Color: "#10B981"},
			{ID: "b", Name: "Study", Color: "#EF4444"},
		},
		entries: []model.TimeEntry{
			{TaskID: "a", TaskName: "Write", DurationSeconds: 60, Date: "2024-03-02"},
			{TaskID: "b", TaskName: "Study", DurationSeconds: 600, Date: "2024-03-02"},
		},
		state: session.State{Status: stopwatch.StatusStopped},
		today: time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
	}
	view := newTestWindow(t, controller)

	test.Tap(findDayBar(t, view, "2024-03-02"))
	assert.Equal(t, "2024-03-02", view.selectedDay)
	assert.Equal(t, []string{"Sat 02  (2024-03-02)", "Study", "10m", "Write", "1m", "Total", "11m"},
		labelTexts(view.dayDetail))

	test.Tap(findDayBar(t, view, "2024-03-01"))
	assert.Equal(t, []string{"Fri 01  (2024-03-01)", "Nothing tracked."}, labelTexts(view.dayDetail))

	test.Tap(findDayBar(t, view, "2024-03-01"))
	assert.Empty(t, view.selectedDay)
	assert.Empty(t, view.dayDetail.Objects)

	test.Tap(findDayBar(t, view, "2024-03-02"))
	controller.today = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	view.RefreshReports()
	assert.Empty(t, view.selectedDay, "selection outside the week is dropped")
	assert.Empty(t, view.dayDetail.Objects)
}

func TestWindowCreateTaskSelectsWhenIdle(t *testing.T) {
	controller := &fakeController{
		state: session.State{Status: stopwatch.StatusStopped},
		today: time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
	}
	view := newTestWindow(t, controller)

	view.newTask.SetText("  Review ")
	view.handleCreate()

	require.Len(t, controller.tasks, 1)
	assert.Equal(t, "Review", controller.state.TaskName)
	assert.Equal(t, "", view.newTask.Text)
}

func TestParseHexColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 0x10, G: 0xB9, B: 0x81, A: 0xFF}, ParseHexColor("#10B981"))
	assert.Equal(t, defaultTaskColor, ParseHexColor("nope"))
	assert.Equal(t, defaultTaskColor, ParseHexColor("#12"))
	assert.Equal(t, defaultTaskColor, ParseHexColor(model.DefaultColor))
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Running", StatusText(stopwatch.StatusRunning))
	assert.Equal(t, "Paused", StatusText(stopwatch.StatusPaused))
	assert.Equal(t, "Stopped", StatusText(stopwatch.StatusStopped))
}

func TestDayLabel(t *testing.T) {
	assert.Equal(t, "Mon 04", DayLabel("2024-03-04"))
	assert.Equal(t, "garbage", DayLabel("garbage"))
}
