// Package services hosts background loops supporting the stores.
package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TimerSaver is the slice of the timer coordinator the autosave loop
// needs.
type TimerSaver interface {
	Running() (string, bool)
	Save(ctx context.Context, id string) error
}

// Autosave periodically issues the backend's "save" timer action for
// the running task so a crashed client loses at most one interval of
// recorded time. Save failures are logged and retried on the next
// tick; the loop never changes timer state.
type Autosave struct {
	timer    TimerSaver
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewAutosave creates the loop; Start must be called to run it.
func NewAutosave(timer TimerSaver, interval time.Duration, logger *zap.Logger) *Autosave {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Autosave{
		timer:    timer,
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the loop.
func (a *Autosave) Start() {
	go a.loop()
}

// Stop terminates the loop and waits for it to exit.
func (a *Autosave) Stop() {
	close(a.stopCh)
	<-a.doneCh
}

func (a *Autosave) loop() {
	defer close(a.doneCh)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.flush()
		case <-a.stopCh:
			return
		}
	}
}

func (a *Autosave) flush() {
	id, ok := a.timer.Running()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.timer.Save(ctx, id); err != nil {
		a.logger.Warn("timer autosave failed", zap.String("task_id", id), zap.Error(err))
		return
	}
	a.logger.Debug("timer autosaved", zap.String("task_id", id))
}
