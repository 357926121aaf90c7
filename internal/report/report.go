// Package report aggregates recorded time entries into daily and weekly views.
package report

import (
	"fmt"
	"sort"
	"time"

	"timetracker/internal/core/model"
)

// TaskTotal is the time spent on one task within a report.
type TaskTotal struct {
	TaskID       string
	TaskName     string
	Color        string
	TotalSeconds int64
}

// Daily is the report of a single date bucket.
type Daily struct {
	Date         string
	Tasks        []TaskTotal
	TotalSeconds int64
}

// DayTotal is one bar of the week chart.
type DayTotal struct {
	Date         string
	TotalSeconds int64
}

// NameTotal is the week total of one task name.
type NameTotal struct {
	TaskName     string
	TotalSeconds int64
}

// WeekTopTasks is how many task totals the week view lists.
const WeekTopTasks = 5

// Week summarises the last seven days ending today. Tasks is ordered by
// total, largest first.
type Week struct {
	Days         []DayTotal
	Tasks        []NameTotal
	TotalSeconds int64
	Today        *Daily
	Reports      map[string]Daily
}

// TopTasks returns at most n task totals, largest first.
func (week Week) TopTasks(n int) []NameTotal {
	if n < 0 || n >= len(week.Tasks) {
		return week.Tasks
	}
	return week.Tasks[:n]
}

// Day returns the report of date with its tasks ordered by time spent,
// largest first. ok is false when nothing was tracked on date.
func (week Week) Day(date string) (daily Daily, ok bool) {
	daily, ok = week.Reports[date]
	if !ok {
		return Daily{Date: date}, false
	}
	return daily.ByTime(), true
}

// ByTime returns a copy of daily with tasks ordered by total, largest first.
// Ties keep first-seen order.
func (daily Daily) ByTime() Daily {
	tasks := make([]TaskTotal, len(daily.Tasks))
	copy(tasks, daily.Tasks)
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].TotalSeconds > tasks[j].TotalSeconds
	})
	daily.Tasks = tasks
	return daily
}

// BuildDaily groups entries by date. Dates and tasks keep first-seen order.
func BuildDaily(entries []model.TimeEntry, tasks []model.Task) []Daily {
	colors := make(map[string]string, len(tasks))
	for _, task := range tasks {
		colors[task.ID] = task.Color
	}

	var reports []Daily
	byDate := make(map[string]int)
	for _, entry := range entries {
		index, ok := byDate[entry.Date]
		if !ok {
			index = len(reports)
			byDate[entry.Date] = index
			reports = append(reports, Daily{Date: entry.Date})
		}

		daily := &reports[index]
		found := false
		for i := range daily.Tasks {
			if daily.Tasks[i].TaskID == entry.TaskID {
				daily.Tasks[i].TotalSeconds += entry.DurationSeconds
				found = true
				break
			}
		}
		if !found {
			color, ok := colors[entry.TaskID]
			if !ok {
				color = model.DefaultColor
			}
			daily.Tasks = append(daily.Tasks, TaskTotal{
				TaskID:       entry.TaskID,
				TaskName:     entry.TaskName,
				Color:        color,
				TotalSeconds: entry.DurationSeconds,
			})
		}
		daily.TotalSeconds += entry.DurationSeconds
	}
	return reports
}

// WeekDates returns the seven date buckets ending on today, oldest first.
func WeekDates(today time.Time) []string {
	dates := make([]string, 7)
	for i := 0; i < 7; i++ {
		dates[i] = today.AddDate(0, 0, i-6).Format(model.DateLayout)
	}
	return dates
}

// BuildWeek summarises daily reports over the week ending today. Reports
// outside the week are ignored.
func BuildWeek(reports []Daily, today time.Time) Week {
	dates := WeekDates(today)
	byDate := make(map[string]Daily, len(reports))
	for _, daily := range reports {
		byDate[daily.Date] = daily
	}

	week := Week{
		Days:    make([]DayTotal, 0, len(dates)),
		Reports: make(map[string]Daily, len(dates)),
	}
	names := make(map[string]int)
	for _, date := range dates {
		daily, ok := byDate[date]
		week.Days = append(week.Days, DayTotal{Date: date, TotalSeconds: daily.TotalSeconds})
		if !ok {
			continue
		}
		week.Reports[date] = daily
		for _, task := range daily.Tasks {
			index, seen := names[task.TaskName]
			if !seen {
				index = len(week.Tasks)
				names[task.TaskName] = index
				week.Tasks = append(week.Tasks, NameTotal{TaskName: task.TaskName})
			}
			week.Tasks[index].TotalSeconds += task.TotalSeconds
			week.TotalSeconds += task.TotalSeconds
		}
	}

	sort.SliceStable(week.Tasks, func(i, j int) bool {
		return week.Tasks[i].TotalSeconds > week.Tasks[j].TotalSeconds
	})
	if daily, ok := byDate[dates[len(dates)-1]]; ok {
		week.Today = &daily
	}
	return week
}

// FormatClock renders seconds as HH:MM:SS.
func FormatClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds%60)
}

// FormatDuration renders seconds for report labels.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %02dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
