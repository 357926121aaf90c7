package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"timetracker/internal/core/model"
)

// ErrNotFound is returned when a task does not exist.
var ErrNotFound = errors.New("not found")

// DB stores tasks and time entries in SQLite.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at path.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite is single-writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			color         TEXT NOT NULL,
			total_seconds INTEGER NOT NULL DEFAULT 0,
			created_at    INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS time_entries (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id          TEXT NOT NULL,
			task_name        TEXT NOT NULL,
			started_at       INTEGER NOT NULL,
			ended_at         INTEGER NOT NULL,
			duration_seconds INTEGER NOT NULL,
			date             TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_time_entries_date ON time_entries(date)`,
	}
	for _, stmt := range migrations {
		if _, err := d.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ListTasks returns tasks in creation order. Tasks sharing a timestamp keep
// their insertion order.
func (d *DB) ListTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, color, total_seconds, created_at FROM tasks ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var task model.Task
		var createdAt int64
		if err := rows.Scan(&task.ID, &task.Name, &task.Color, &task.TotalSeconds, &createdAt); err != nil {
			return nil, err
		}
		task.CreatedAt = time.UnixMilli(createdAt)
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// SaveTask inserts or updates a task. Totals are only changed by AddEntry.
func (d *DB) SaveTask(ctx context.Context, task model.Task) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO tasks (id, name, color, total_seconds, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, color = excluded.color`,
		task.ID, task.Name, task.Color, task.TotalSeconds, task.CreatedAt.UnixMilli())
	return err
}

// DeleteTask removes a task. Its time entries are kept for reports.
func (d *DB) DeleteTask(ctx context.Context, id string) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddEntry records a time entry and adds its duration to the task total.
func (d *DB) AddEntry(ctx context.Context, entry model.TimeEntry) (model.TimeEntry, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return model.TimeEntry{}, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO time_entries (task_id, task_name, started_at, ended_at, duration_seconds, date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.TaskID, entry.TaskName, entry.StartedAt.UnixMilli(), entry.EndedAt.UnixMilli(),
		entry.DurationSeconds, entry.Date)
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("insert entry: %w", err)
	}
	entry.ID, err = result.LastInsertId()
	if err != nil {
		return model.TimeEntry{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET total_seconds = total_seconds + ? WHERE id = ?`,
		entry.DurationSeconds, entry.TaskID); err != nil {
		return model.TimeEntry{}, fmt.Errorf("update task total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.TimeEntry{}, err
	}
	return entry, nil
}

// ListEntries returns entries whose date lies in [fromDate, toDate], oldest first.
func (d *DB) ListEntries(ctx context.Context, fromDate, toDate string) ([]model.TimeEntry, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, task_id, task_name, started_at, ended_at, duration_seconds, date
		FROM time_entries
		WHERE date BETWEEN ? AND ?
		ORDER BY started_at, id`, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.TimeEntry
	for rows.Next() {
		var entry model.TimeEntry
		var startedAt, endedAt int64
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.TaskName, &startedAt, &endedAt,
			&entry.DurationSeconds, &entry.Date); err != nil {
			return nil, err
		}
		entry.StartedAt = time.UnixMilli(startedAt)
		entry.EndedAt = time.UnixMilli(endedAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
