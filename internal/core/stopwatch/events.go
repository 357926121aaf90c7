package stopwatch

import "time"

// Status represents the current Stopwatch mode.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
)

// EventType defines the type of Keeper event.
type EventType string

const (
	EventStatusChange EventType = "status_change"
	EventTick         EventType = "tick"
	EventResumed      EventType = "resumed"
)

// Event represents a Keeper update for observers.
type Event struct {
	Type    EventType
	Status  Status
	Seconds int64
	At      time.Time
}

// Snapshot is a consistent read of the stopwatch fields.
type Snapshot struct {
	Status    Status
	Seconds   int64
	StartedAt time.Time
}
