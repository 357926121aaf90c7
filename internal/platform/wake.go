package platform

import (
	"context"
	"time"
)

// WakeDetector notices host suspension. The monotonic clock stops while the
// machine sleeps on some platforms, so gaps are measured on the wall clock.
type WakeDetector struct {
	interval time.Duration
	slack    time.Duration
	onWake   func(gap time.Duration)
	last     time.Time
}

// NewWakeDetector creates a detector checking every interval.
func NewWakeDetector(interval time.Duration, onWake func(gap time.Duration)) *WakeDetector {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &WakeDetector{
		interval: interval,
		slack:    3 * interval,
		onWake:   onWake,
	}
}

// Observe records a check at now and reports whether it followed a suspension.
func (detector *WakeDetector) Observe(now time.Time) bool {
	now = now.Round(0)
	last := detector.last
	detector.last = now
	if last.IsZero() {
		return false
	}
	gap := now.Sub(last)
	if gap <= detector.interval+detector.slack {
		return false
	}
	if detector.onWake != nil {
		detector.onWake(gap)
	}
	return true
}

// Run checks until ctx is done.
func (detector *WakeDetector) Run(ctx context.Context) {
	ticker := time.NewTicker(detector.interval)
	defer ticker.Stop()

	detector.Observe(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			detector.Observe(time.Now())
		}
	}
}
