package model

import "time"

// IdleReturnConfig controls the "user is back" signal derived from idle time.
type IdleReturnConfig struct {
	Enabled       bool
	Threshold     time.Duration
	CheckInterval time.Duration
}

// TrackerConfig contains runtime settings for the stopwatch and its signals.
type TrackerConfig struct {
	TickInterval time.Duration

	IdleReturn IdleReturnConfig

	WakeDetection     bool
	WakeCheckInterval time.Duration
}
