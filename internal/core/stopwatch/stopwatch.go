// Package stopwatch measures time spent on a task across pause/resume cycles.
//
// Elapsed time is always recomputed from wall-clock timestamps, never from the
// number of ticks observed, so missed ticks (a suspended host, a starved
// goroutine) cannot make the displayed value drift.
package stopwatch

import "time"

// Clock supplies the current wall-clock time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (fn ClockFunc) Now() time.Time {
	return fn()
}

// SystemClock reads time.Now.
var SystemClock Clock = ClockFunc(time.Now)

// Result is returned by Stop.
type Result struct {
	// StartedAt is zero when the stopwatch was already stopped.
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds int64
	WasRunning      bool
}

// Stopwatch is the timer state machine. It is not safe for concurrent use;
// Keeper serializes access to it.
type Stopwatch struct {
	clock            Clock
	status           Status
	startedAt        time.Time
	accumulatedPause int64
	displaySeconds   int64
}

// New creates a stopped Stopwatch reading time from clock.
func New(clock Clock) *Stopwatch {
	if clock == nil {
		clock = SystemClock
	}
	return &Stopwatch{
		clock:  clock,
		status: StatusStopped,
	}
}

// Status returns the current mode.
func (watch *Stopwatch) Status() Status {
	return watch.status
}

// DisplaySeconds returns the last computed elapsed seconds.
func (watch *Stopwatch) DisplaySeconds() int64 {
	return watch.displaySeconds
}

// StartedAt returns the start of the current run, zero when stopped.
func (watch *Stopwatch) StartedAt() time.Time {
	return watch.startedAt
}

// AccumulatedPause returns the paused seconds excluded from the current run.
func (watch *Stopwatch) AccumulatedPause() int64 {
	return watch.accumulatedPause
}

// Snapshot returns the fields observers render.
func (watch *Stopwatch) Snapshot() Snapshot {
	return Snapshot{
		Status:    watch.status,
		Seconds:   watch.displaySeconds,
		StartedAt: watch.startedAt,
	}
}

// Elapsed returns the running seconds at now, excluding paused time.
func (watch *Stopwatch) Elapsed(now time.Time) int64 {
	if watch.startedAt.IsZero() {
		return 0
	}
	elapsed := watch.wallSeconds(now) - watch.accumulatedPause
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Start begins a run from Stopped or continues one from Paused.
// It reports whether the status changed.
func (watch *Stopwatch) Start() bool {
	now := watch.clock.Now()
	switch watch.status {
	case StatusRunning:
		return false
	case StatusPaused:
		var incurred int64
		if !watch.startedAt.IsZero() {
			incurred = watch.wallSeconds(now) - watch.accumulatedPause - watch.displaySeconds
		}
		if incurred > 0 {
			watch.accumulatedPause += incurred
		}
	default:
		watch.startedAt = now
		watch.accumulatedPause = 0
		watch.displaySeconds = 0
	}
	watch.status = StatusRunning
	return true
}

// Pause freezes the display. It is a no-op unless Running.
func (watch *Stopwatch) Pause() bool {
	if watch.status != StatusRunning {
		return false
	}
	watch.displaySeconds = watch.Elapsed(watch.clock.Now())
	watch.status = StatusPaused
	return true
}

// Stop ends the run and returns its result. Stopping a stopped
// Stopwatch returns WasRunning=false and changes nothing.
func (watch *Stopwatch) Stop() Result {
	now := watch.clock.Now()
	if watch.status == StatusStopped {
		return Result{
			EndedAt:         now,
			DurationSeconds: watch.displaySeconds,
		}
	}

	duration := watch.displaySeconds
	if watch.status == StatusRunning {
		duration = watch.Elapsed(now)
	}
	result := Result{
		StartedAt:       watch.startedAt,
		EndedAt:         now,
		DurationSeconds: duration,
		WasRunning:      true,
	}
	watch.clear()
	return result
}

// Reset forces the Stopwatch back to Stopped and discards the run.
func (watch *Stopwatch) Reset() {
	watch.clear()
}

// Refresh recomputes the display from timestamps while Running.
// It reports whether the displayed value changed.
func (watch *Stopwatch) Refresh() bool {
	if watch.status != StatusRunning {
		return false
	}
	elapsed := watch.Elapsed(watch.clock.Now())
	if elapsed == watch.displaySeconds {
		return false
	}
	watch.displaySeconds = elapsed
	return true
}

func (watch *Stopwatch) clear() {
	watch.status = StatusStopped
	watch.startedAt = time.Time{}
	watch.accumulatedPause = 0
	watch.displaySeconds = 0
}

func (watch *Stopwatch) wallSeconds(now time.Time) int64 {
	delta := now.Sub(watch.startedAt)
	if delta < 0 {
		return 0
	}
	return int64(delta / time.Second)
}
