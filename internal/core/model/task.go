package model

import "time"

// DateLayout is the date bucket format of time entries and reports.
const DateLayout = "2006-01-02"

// DefaultColor is used when a task colour cannot be resolved.
const DefaultColor = "#3B82F6"

// Palette lists the colours handed out to new tasks.
var Palette = []string{
	"#3B82F6", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#84CC16", "#F97316", "#EC4899", "#6366F1",
}

// DefaultTaskNames seeds an empty store.
var DefaultTaskNames = []string{
	"Create content",
	"Record videos",
	"Edit videos",
	"Write scripts",
	"Study",
	"Side business",
}

// Task is something time is tracked against.
type Task struct {
	ID           string
	Name         string
	Color        string
	TotalSeconds int64
	CreatedAt    time.Time
}

// TimeEntry is one recorded stopwatch run.
type TimeEntry struct {
	ID              int64
	TaskID          string
	TaskName        string
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds int64
	Date            string
}

// NextColor returns the first palette colour not in use.
func NextColor(tasks []Task) string {
	used := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		used[task.Color] = true
	}
	for _, color := range Palette {
		if !used[color] {
			return color
		}
	}
	return Palette[0]
}
