package pulse

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	states []bool
}

func (r *recorder) update(visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, visible)
}

func (r *recorder) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.states...)
}

func TestEngineAlternatesAndStopsVisible(t *testing.T) {
	rec := &recorder{}
	engine := New(Config{On: 2 * time.Millisecond, Off: 2 * time.Millisecond}, rec.update)

	engine.Start(context.Background())
	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 4 }, time.Second, time.Millisecond)
	assert.True(t, engine.Running())

	engine.Stop()
	assert.False(t, engine.Running())

	states := rec.snapshot()
	assert.True(t, states[0])
	assert.False(t, states[1])
	assert.True(t, states[len(states)-1], "indicator is left visible")

	count := len(states)
	time.Sleep(10 * time.Millisecond)
	assert.Len(t, rec.snapshot(), count, "no updates after Stop")
}

func TestStopWithoutStart(t *testing.T) {
	rec := &recorder{}
	engine := New(Config{}, rec.update)
	engine.Stop()
	assert.Empty(t, rec.snapshot())
}

func TestParentCancelEndsLoop(t *testing.T) {
	rec := &recorder{}
	engine := New(Config{On: time.Millisecond, Off: time.Millisecond}, rec.update)
	ctx, cancel := context.WithCancel(context.Background())
	engine.Start(ctx)
	cancel()
	engine.Stop()
	assert.False(t, engine.Running())
}
