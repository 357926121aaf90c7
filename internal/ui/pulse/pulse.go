// Package pulse blinks the running indicator while the stopwatch runs.
package pulse

import (
	"context"
	"sync"
	"time"
)

// Config contains blink timing values.
type Config struct {
	On  time.Duration
	Off time.Duration
}

// DefaultConfig returns a slow, unobtrusive blink.
func DefaultConfig() Config {
	return Config{
		On:  800 * time.Millisecond,
		Off: 400 * time.Millisecond,
	}
}

// Engine drives a visibility callback on a cancellable loop.
type Engine struct {
	mu     sync.Mutex
	config Config
	update func(visible bool)
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a pulse engine. update is called from the engine goroutine.
func New(config Config, update func(visible bool)) *Engine {
	if config.On <= 0 || config.Off <= 0 {
		config = DefaultConfig()
	}
	return &Engine{
		config: config,
		update: update,
	}
}

// Start begins blinking, replacing any loop already running.
func (engine *Engine) Start(ctx context.Context) {
	engine.Stop()

	engine.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	engine.cancel = cancel
	engine.done = done
	engine.mu.Unlock()

	go func() {
		defer close(done)
		for {
			engine.update(true)
			if !sleepWithContext(runCtx, engine.config.On) {
				return
			}
			engine.update(false)
			if !sleepWithContext(runCtx, engine.config.Off) {
				return
			}
		}
	}()
}

// Stop ends blinking and leaves the indicator visible.
func (engine *Engine) Stop() {
	engine.mu.Lock()
	cancel, done := engine.cancel, engine.done
	engine.cancel, engine.done = nil, nil
	engine.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	engine.update(true)
}

// Running reports whether a loop is active.
func (engine *Engine) Running() bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.cancel != nil
}

func sleepWithContext(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
