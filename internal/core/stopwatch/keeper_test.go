package stopwatch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type armedTick struct {
	interval  time.Duration
	fn        func()
	cancelled bool
}

type fakeScheduler struct {
	mu    sync.Mutex
	armed []*armedTick
}

func (scheduler *fakeScheduler) Every(interval time.Duration, fn func()) func() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	tick := &armedTick{interval: interval, fn: fn}
	scheduler.armed = append(scheduler.armed, tick)
	return func() {
		scheduler.mu.Lock()
		tick.cancelled = true
		scheduler.mu.Unlock()
	}
}

// Fire runs every live callback once.
func (scheduler *fakeScheduler) Fire() {
	scheduler.mu.Lock()
	var live []func()
	for _, tick := range scheduler.armed {
		if !tick.cancelled {
			live = append(live, tick.fn)
		}
	}
	scheduler.mu.Unlock()
	for _, fn := range live {
		fn()
	}
}

func (scheduler *fakeScheduler) active() int {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	count := 0
	for _, tick := range scheduler.armed {
		if !tick.cancelled {
			count++
		}
	}
	return count
}

func newTestKeeper() (*Keeper, *fakeClock, *fakeScheduler) {
	clock := newFakeClock()
	scheduler := &fakeScheduler{}
	keeper := NewKeeper(Config{
		TickInterval: time.Second,
		Clock:        clock,
		Scheduler:    scheduler,
	})
	return keeper, clock, scheduler
}

func drain(events <-chan Event) []Event {
	var out []Event
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, event)
		default:
			return out
		}
	}
}

func TestKeeperArmsTickOnlyWhileRunning(t *testing.T) {
	keeper, _, scheduler := newTestKeeper()

	keeper.Start()
	assert.Equal(t, 1, scheduler.active())
	assert.Equal(t, time.Second, scheduler.armed[0].interval)

	keeper.Start()
	assert.Equal(t, 1, scheduler.active(), "repeated start does not arm twice")

	keeper.Pause()
	assert.Zero(t, scheduler.active())

	keeper.Start()
	assert.Equal(t, 1, scheduler.active())

	keeper.Stop()
	assert.Zero(t, scheduler.active())
}

func TestKeeperSetTickIntervalRearmsRunning(t *testing.T) {
	keeper, _, scheduler := newTestKeeper()

	keeper.SetTickInterval(5 * time.Second)
	assert.Empty(t, scheduler.armed, "stopped keeper arms nothing")

	keeper.Start()
	keeper.SetTickInterval(2 * time.Second)
	require.Len(t, scheduler.armed, 2)
	assert.True(t, scheduler.armed[0].cancelled)
	assert.Equal(t, 2*time.Second, scheduler.armed[1].interval)
	assert.Equal(t, 1, scheduler.active())

	keeper.SetTickInterval(2 * time.Second)
	keeper.SetTickInterval(0)
	assert.Len(t, scheduler.armed, 2)
}

func TestKeeperTickRecomputesFromClock(t *testing.T) {
	keeper, clock, scheduler := newTestKeeper()
	events := keeper.Subscribe(10)

	keeper.Start()
	clock.Advance(3 * time.Second)
	scheduler.Fire()

	assert.Equal(t, int64(3), keeper.Snapshot().Seconds, "one tick after three seconds shows three")

	got := drain(events)
	require.Len(t, got, 2)
	assert.Equal(t, EventStatusChange, got[0].Type)
	assert.Equal(t, StatusRunning, got[0].Status)
	assert.Equal(t, EventTick, got[1].Type)
	assert.Equal(t, int64(3), got[1].Seconds)
}

func TestKeeperTickWithoutChangeIsSilent(t *testing.T) {
	keeper, clock, scheduler := newTestKeeper()
	events := keeper.Subscribe(10)
	keeper.Start()
	drain(events)

	clock.Advance(300 * time.Millisecond)
	scheduler.Fire()
	assert.Empty(t, drain(events))
}

func TestKeeperResumeAfterSuspension(t *testing.T) {
	keeper, clock, scheduler := newTestKeeper()
	events := keeper.Subscribe(10)
	keeper.Start()
	clock.Advance(time.Second)
	scheduler.Fire()
	drain(events)

	clock.Advance(29 * time.Second)
	keeper.Resume()

	assert.Equal(t, int64(30), keeper.Snapshot().Seconds)
	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, EventResumed, got[0].Type)
	assert.Equal(t, int64(30), got[0].Seconds)
	assert.Equal(t, 1, scheduler.active(), "resume does not arm another tick")
}

func TestKeeperResumeIgnoredUnlessRunning(t *testing.T) {
	keeper, clock, _ := newTestKeeper()
	events := keeper.Subscribe(10)

	keeper.Resume()
	keeper.Start()
	clock.Advance(5 * time.Second)
	keeper.Pause()
	drain(events)

	clock.Advance(5 * time.Second)
	keeper.Resume()
	assert.Empty(t, drain(events))
	assert.Equal(t, int64(5), keeper.Snapshot().Seconds)
}

func TestKeeperStaleTickIsDropped(t *testing.T) {
	keeper, clock, scheduler := newTestKeeper()
	keeper.Start()
	stale := scheduler.armed[0].fn

	clock.Advance(4 * time.Second)
	keeper.Pause()

	// The callback from the first run was already in flight when Pause ran.
	clock.Advance(10 * time.Second)
	stale()
	assert.Equal(t, int64(4), keeper.Snapshot().Seconds)

	keeper.Start()
	clock.Advance(2 * time.Second)
	stale()
	assert.Equal(t, int64(4), keeper.Snapshot().Seconds, "old generation must not refresh the new run")

	scheduler.Fire()
	assert.Equal(t, int64(6), keeper.Snapshot().Seconds)
}

func TestKeeperStop(t *testing.T) {
	keeper, clock, _ := newTestKeeper()
	events := keeper.Subscribe(10)

	result := keeper.Stop()
	assert.False(t, result.WasRunning)
	assert.Empty(t, drain(events))

	keeper.Start()
	clock.Advance(42 * time.Second)
	result = keeper.Stop()
	assert.True(t, result.WasRunning)
	assert.Equal(t, int64(42), result.DurationSeconds)

	got := drain(events)
	require.Len(t, got, 2)
	assert.Equal(t, StatusStopped, got[1].Status)
	assert.Equal(t, Snapshot{Status: StatusStopped}, keeper.Snapshot())
}

func TestKeeperReset(t *testing.T) {
	keeper, clock, scheduler := newTestKeeper()
	keeper.Start()
	clock.Advance(9 * time.Second)

	keeper.Reset()
	assert.Zero(t, scheduler.active())
	assert.Equal(t, Snapshot{Status: StatusStopped}, keeper.Snapshot())
	assert.False(t, keeper.Stop().WasRunning)
}

func TestKeeperCloseClosesObservers(t *testing.T) {
	keeper, _, scheduler := newTestKeeper()
	events := keeper.Subscribe(1)
	keeper.Start()
	<-events

	keeper.Close()
	_, ok := <-events
	assert.False(t, ok)
	assert.Zero(t, scheduler.active())

	late := keeper.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)

	keeper.Start()
	assert.Zero(t, scheduler.active())
}

func TestTickerSchedulerStopsAfterCancel(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	cancel := TickerScheduler{}.Every(5*time.Millisecond, func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	}, time.Second, time.Millisecond)

	cancel()
	cancel()
	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	after := calls
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, after, calls)
}
