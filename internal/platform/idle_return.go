package platform

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// ReturnWatcher polls idle time and reports when the user comes back after
// having been idle for at least Threshold.
type ReturnWatcher struct {
	provider      IdleProvider
	threshold     time.Duration
	checkInterval time.Duration
	onReturn      func()
	log           logrus.FieldLogger
	away          bool
}

// NewReturnWatcher creates a watcher calling onReturn on each return.
func NewReturnWatcher(provider IdleProvider, threshold, checkInterval time.Duration, onReturn func(), logger logrus.FieldLogger) *ReturnWatcher {
	if checkInterval <= 0 {
		checkInterval = 5 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ReturnWatcher{
		provider:      provider,
		threshold:     threshold,
		checkInterval: checkInterval,
		onReturn:      onReturn,
		log:           logger.WithField("component", "idle"),
	}
}

// Check polls once and reports whether a return was signalled.
func (watcher *ReturnWatcher) Check() (bool, error) {
	idle, err := watcher.provider.IdleDuration()
	if err != nil {
		return false, err
	}
	if idle >= watcher.threshold {
		watcher.away = true
		return false, nil
	}
	if !watcher.away {
		return false, nil
	}
	watcher.away = false
	if watcher.onReturn != nil {
		watcher.onReturn()
	}
	return true, nil
}

// Run polls until ctx is done or idle detection turns out to be unsupported.
func (watcher *ReturnWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(watcher.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			returned, err := watcher.Check()
			if errors.Is(err, ErrIdleUnsupported) {
				watcher.log.Info("idle detection unsupported, return signal disabled")
				return
			}
			if err != nil {
				watcher.log.WithError(err).Warn("idle check failed")
				continue
			}
			if returned {
				watcher.log.Debug("user returned from idle")
			}
		}
	}
}
