package stopwatch

import (
	"sync"
	"time"
)

// Config contains runtime options for Keeper.
type Config struct {
	TickInterval time.Duration
	Clock        Clock
	Scheduler    Scheduler
}

// Keeper owns the single Stopwatch of a session and drives its ticks.
// All mutations happen under one lock, so observers never see a partial
// transition.
type Keeper struct {
	mu         sync.Mutex
	options    Config
	watch      *Stopwatch
	cancelTick func()
	generation uint64
	events     []chan Event
	closed     bool
}

// NewKeeper creates a Keeper with a stopped Stopwatch.
func NewKeeper(options Config) *Keeper {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.Clock == nil {
		options.Clock = SystemClock
	}
	if options.Scheduler == nil {
		options.Scheduler = TickerScheduler{}
	}

	return &Keeper{
		options: options,
		watch:   New(options.Clock),
	}
}

// Subscribe registers a new observer channel. Slow observers miss events
// rather than block the Keeper.
func (keeper *Keeper) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	keeper.mu.Lock()
	if keeper.closed {
		close(ch)
	} else {
		keeper.events = append(keeper.events, ch)
	}
	keeper.mu.Unlock()
	return ch
}

// Start begins or continues the run and arms the tick.
func (keeper *Keeper) Start() {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	if keeper.closed || !keeper.watch.Start() {
		return
	}
	keeper.armLocked()
	keeper.emitStatusLocked()
}

// Pause freezes the display and disarms the tick.
func (keeper *Keeper) Pause() {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	if !keeper.watch.Pause() {
		return
	}
	keeper.disarmLocked()
	keeper.emitStatusLocked()
}

// Stop ends the run and returns its result.
func (keeper *Keeper) Stop() Result {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	result := keeper.watch.Stop()
	if result.WasRunning {
		keeper.disarmLocked()
		keeper.emitStatusLocked()
	}
	return result
}

// Reset discards the current run.
func (keeper *Keeper) Reset() {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	previous := keeper.watch.Status()
	keeper.disarmLocked()
	keeper.watch.Reset()
	if previous != StatusStopped {
		keeper.emitStatusLocked()
	}
}

// Resume recomputes the display immediately. Call it when the host regains
// attention (window focus, wake from sleep, user back from idle); it does not
// alter the tick cadence.
func (keeper *Keeper) Resume() {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	if keeper.watch.Status() != StatusRunning {
		return
	}
	keeper.watch.Refresh()
	keeper.emitLocked(EventResumed)
}

// SetTickInterval changes the tick cadence. A running stopwatch is re-armed.
func (keeper *Keeper) SetTickInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	if interval == keeper.options.TickInterval {
		return
	}
	keeper.options.TickInterval = interval
	if !keeper.closed && keeper.watch.Status() == StatusRunning {
		keeper.armLocked()
	}
}

// Snapshot returns the current status and display seconds.
func (keeper *Keeper) Snapshot() Snapshot {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	return keeper.watch.Snapshot()
}

// Close disarms the tick and closes observers. The run is left as is.
func (keeper *Keeper) Close() {
	keeper.mu.Lock()
	if keeper.closed {
		keeper.mu.Unlock()
		return
	}
	keeper.closed = true
	keeper.disarmLocked()
	events := keeper.events
	keeper.events = nil
	keeper.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
}

func (keeper *Keeper) tick(generation uint64) {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	// A tick queued before its cancel must not touch a later run.
	if generation != keeper.generation || keeper.watch.Status() != StatusRunning {
		return
	}
	if keeper.watch.Refresh() {
		keeper.emitLocked(EventTick)
	}
}

func (keeper *Keeper) armLocked() {
	keeper.disarmLocked()
	generation := keeper.generation
	keeper.cancelTick = keeper.options.Scheduler.Every(keeper.options.TickInterval, func() {
		keeper.tick(generation)
	})
}

func (keeper *Keeper) disarmLocked() {
	if keeper.cancelTick != nil {
		keeper.cancelTick()
		keeper.cancelTick = nil
	}
	keeper.generation++
}

func (keeper *Keeper) emitStatusLocked() {
	keeper.emitLocked(EventStatusChange)
}

func (keeper *Keeper) emitLocked(eventType EventType) {
	snapshot := keeper.watch.Snapshot()
	event := Event{
		Type:    eventType,
		Status:  snapshot.Status,
		Seconds: snapshot.Seconds,
		At:      keeper.options.Clock.Now(),
	}
	for _, ch := range keeper.events {
		select {
		case ch <- event:
		default:
		}
	}
}
