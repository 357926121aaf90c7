// Package session connects task selection to the stopwatch and turns finished
// runs into persisted time entries.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"timetracker/internal/core/model"
	"timetracker/internal/core/stopwatch"
)

var (
	// ErrNoActiveTask is returned when the timer is started without a selected task.
	ErrNoActiveTask = errors.New("no active task")
	// ErrTaskNotFound is returned for unknown task ids.
	ErrTaskNotFound = errors.New("task not found")
	// ErrEmptyName is returned when a task name is blank.
	ErrEmptyName = errors.New("task name is empty")
)

// Store persists tasks and time entries.
type Store interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	SaveTask(ctx context.Context, task model.Task) error
	DeleteTask(ctx context.Context, id string) error
	AddEntry(ctx context.Context, entry model.TimeEntry) (model.TimeEntry, error)
	ListEntries(ctx context.Context, fromDate, toDate string) ([]model.TimeEntry, error)
}

// Timer is the part of stopwatch.Keeper the controller drives.
type Timer interface {
	Start()
	Pause()
	Stop() stopwatch.Result
	Snapshot() stopwatch.Snapshot
}

// Observer is notified about recorded entries.
type Observer interface {
	EntryRecorded(entry model.TimeEntry)
}

// Options configures a Controller.
type Options struct {
	Clock    stopwatch.Clock
	Logger   logrus.FieldLogger
	Observer Observer
	Location *time.Location
}

// State is what the UI renders for the current session.
type State struct {
	Status   stopwatch.Status
	Seconds  int64
	TaskID   string
	TaskName string
}

// Controller is the session controller. It owns task selection and is the
// only caller of the Timer's mutating methods.
type Controller struct {
	mu       sync.Mutex
	store    Store
	timer    Timer
	clock    stopwatch.Clock
	log      logrus.FieldLogger
	observer Observer
	location *time.Location
	active   *model.Task
	unsaved  []model.TimeEntry
}

// New creates a Controller.
func New(store Store, timer Timer, options Options) *Controller {
	if options.Clock == nil {
		options.Clock = stopwatch.SystemClock
	}
	if options.Logger == nil {
		options.Logger = logrus.StandardLogger()
	}
	if options.Location == nil {
		options.Location = time.Local
	}
	return &Controller{
		store:    store,
		timer:    timer,
		clock:    options.Clock,
		log:      options.Logger.WithField("component", "session"),
		observer: options.Observer,
		location: options.Location,
	}
}

// SeedDefaults inserts the default task list into an empty store.
func (controller *Controller) SeedDefaults(ctx context.Context) error {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	tasks, err := controller.store.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) > 0 {
		return nil
	}
	for _, name := range model.DefaultTaskNames {
		if _, err := controller.createLocked(ctx, name, tasks); err != nil {
			return err
		}
		tasks, err = controller.store.ListTasks(ctx)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
	}
	controller.log.WithField("tasks", len(model.DefaultTaskNames)).Info("seeded default tasks")
	return nil
}

// Tasks returns all tasks.
func (controller *Controller) Tasks(ctx context.Context) ([]model.Task, error) {
	tasks, err := controller.store.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// CreateTask adds a task with the first unused palette colour.
func (controller *Controller) CreateTask(ctx context.Context, name string) (model.Task, error) {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	tasks, err := controller.store.ListTasks(ctx)
	if err != nil {
		return model.Task{}, fmt.Errorf("list tasks: %w", err)
	}
	return controller.createLocked(ctx, name, tasks)
}

// RenameTask changes a task name. Entries already recorded keep the old name.
func (controller *Controller) RenameTask(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	controller.mu.Lock()
	defer controller.mu.Unlock()

	task, err := controller.findLocked(ctx, id)
	if err != nil {
		return err
	}
	task.Name = name
	if err := controller.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	if controller.active != nil && controller.active.ID == id {
		controller.active.Name = name
	}
	return nil
}

// DeleteTask removes a task. Deleting the active task records its session
// first and clears the selection.
func (controller *Controller) DeleteTask(ctx context.Context, id string) error {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	if controller.active != nil && controller.active.ID == id {
		if _, err := controller.stopLocked(ctx); err != nil {
			return err
		}
		controller.active = nil
	}
	if err := controller.store.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// SelectTask makes id the active task. A session in progress is stopped and
// recorded against the previous task; the recorded entry is returned.
func (controller *Controller) SelectTask(ctx context.Context, id string) (*model.TimeEntry, error) {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	task, err := controller.findLocked(ctx, id)
	if err != nil {
		return nil, err
	}

	recorded, err := controller.stopLocked(ctx)
	if err != nil {
		return nil, err
	}
	controller.active = &task
	controller.log.WithField("task", task.Name).Debug("task selected")
	return recorded, nil
}

// Start runs the stopwatch for the active task.
func (controller *Controller) Start() error {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	if controller.active == nil {
		return ErrNoActiveTask
	}
	controller.timer.Start()
	return nil
}

// Pause pauses the stopwatch.
func (controller *Controller) Pause() {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	controller.timer.Pause()
}

// Stop ends the session and records it, retrying any entry an earlier stop
// failed to save. It returns nil when there was nothing to record.
func (controller *Controller) Stop(ctx context.Context) (*model.TimeEntry, error) {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.stopLocked(ctx)
}

// Unsaved returns the number of finished sessions waiting to be saved.
func (controller *Controller) Unsaved() int {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return len(controller.unsaved)
}

// State returns the current status, elapsed seconds and active task.
func (controller *Controller) State() State {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	snapshot := controller.timer.Snapshot()
	state := State{
		Status:  snapshot.Status,
		Seconds: snapshot.Seconds,
	}
	if controller.active != nil {
		state.TaskID = controller.active.ID
		state.TaskName = controller.active.Name
	}
	return state
}

// Entries returns entries whose date bucket lies in [fromDate, toDate].
func (controller *Controller) Entries(ctx context.Context, fromDate, toDate string) ([]model.TimeEntry, error) {
	entries, err := controller.store.ListEntries(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// Today returns the current date bucket.
func (controller *Controller) Today() time.Time {
	return controller.clock.Now().In(controller.location)
}

func (controller *Controller) createLocked(ctx context.Context, name string, existing []model.Task) (model.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Task{}, ErrEmptyName
	}
	task := model.Task{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     model.NextColor(existing),
		CreatedAt: controller.clock.Now(),
	}
	if err := controller.store.SaveTask(ctx, task); err != nil {
		return model.Task{}, fmt.Errorf("save task: %w", err)
	}
	return task, nil
}

func (controller *Controller) findLocked(ctx context.Context, id string) (model.Task, error) {
	tasks, err := controller.store.ListTasks(ctx)
	if err != nil {
		return model.Task{}, fmt.Errorf("list tasks: %w", err)
	}
	for _, task := range tasks {
		if task.ID == id {
			return task, nil
		}
	}
	return model.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

func (controller *Controller) stopLocked(ctx context.Context) (*model.TimeEntry, error) {
	if controller.active != nil && controller.timer.Snapshot().Status != stopwatch.StatusStopped {
		result := controller.timer.Stop()
		if result.WasRunning && result.DurationSeconds >= 0 {
			controller.unsaved = append(controller.unsaved, controller.entryFor(result))
		}
	}
	return controller.flushLocked(ctx)
}

func (controller *Controller) entryFor(result stopwatch.Result) model.TimeEntry {
	startedAt := result.StartedAt
	if startedAt.IsZero() {
		startedAt = result.EndedAt.Add(-time.Duration(result.DurationSeconds) * time.Second)
	}
	return model.TimeEntry{
		TaskID:          controller.active.ID,
		TaskName:        controller.active.Name,
		StartedAt:       startedAt,
		EndedAt:         result.EndedAt,
		DurationSeconds: result.DurationSeconds,
		Date:            result.EndedAt.In(controller.location).Format(model.DateLayout),
	}
}

// flushLocked writes the queued entries in order. An entry that fails to save
// stays queued, together with everything after it, until the next stop.
func (controller *Controller) flushLocked(ctx context.Context) (*model.TimeEntry, error) {
	var last *model.TimeEntry
	for len(controller.unsaved) > 0 {
		entry := controller.unsaved[0]
		saved, err := controller.store.AddEntry(ctx, entry)
		if err != nil {
			controller.log.WithError(err).WithFields(logrus.Fields{
				"task_id":    entry.TaskID,
				"task":       entry.TaskName,
				"started_at": entry.StartedAt.Format(time.RFC3339),
				"ended_at":   entry.EndedAt.Format(time.RFC3339),
				"seconds":    entry.DurationSeconds,
				"date":       entry.Date,
				"queued":     len(controller.unsaved),
			}).Error("session not recorded; will retry")
			return nil, fmt.Errorf("record entry: %w", err)
		}
		controller.unsaved = controller.unsaved[1:]

		if controller.active != nil && controller.active.ID == saved.TaskID {
			controller.active.TotalSeconds += saved.DurationSeconds
		}
		controller.log.WithFields(logrus.Fields{
			"task":    saved.TaskName,
			"seconds": saved.DurationSeconds,
		}).Info("session recorded")
		if controller.observer != nil {
			controller.observer.EntryRecorded(saved)
		}
		last = &saved
	}
	return last, nil
}
