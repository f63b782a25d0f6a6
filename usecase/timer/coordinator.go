// Package timer orchestrates the per-task timer state machine,
// idle -> running -> paused -> running -> stopped, where every
// transition is confirmed by the backend before any local state moves.
package timer

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/tracklite/client/domain"
	"github.com/tracklite/client/gateway"
	"github.com/tracklite/client/mapper"
	"github.com/tracklite/client/usecase/tasks"
)

// Coordinator translates start/pause/stop intent into remote timer
// actions and folds the authoritative response back into the task
// store. It tracks which task id currently owns the running timer and
// rejects a start for a different id outright, so a single running
// timer is a property of the coordinator, not of UI discipline.
//
// On rejection by the backend the local running flag is left exactly
// as it was; nothing is retried.
type Coordinator struct {
	activities gateway.ActivityGateway
	mapper     *mapper.Mapper
	store      *tasks.Store
	logger     *zap.Logger

	mu        sync.Mutex
	runningID string
	lastErr   error
}

// New creates a Coordinator bound to the given store.
func New(activities gateway.ActivityGateway, m *mapper.Mapper, store *tasks.Store, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = mapper.New(logger)
	}
	return &Coordinator{
		activities: activities,
		mapper:     m,
		store:      store,
		logger:     logger,
	}
}

// Running reports the task id holding the running timer, if any.
func (c *Coordinator) Running() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runningID, c.runningID != ""
}

// Err returns the last recorded timer error.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ErrorMessage returns the last timer error as a display string.
func (c *Coordinator) ErrorMessage() string {
	return domain.ErrorMessage(c.Err())
}

// ClearError dismisses the last error explicitly.
func (c *Coordinator) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = nil
}

// Start begins (or resumes) the timer for the given task. Starting
// while a different task's timer runs is a conflict; starting the
// already-running task is passed through, the backend answers
// authoritatively either way.
func (c *Coordinator) Start(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.runningID != "" && c.runningID != id {
		c.lastErr = domain.ErrTimerBusy
		c.mu.Unlock()
		return domain.ErrTimerBusy
	}
	c.mu.Unlock()

	if err := c.act(ctx, id, domain.TimerActionStart); err != nil {
		return err
	}

	c.mu.Lock()
	c.runningID = id
	c.mu.Unlock()
	return nil
}

// Pause suspends the running timer, keeping the accumulated recorded
// time from the response.
func (c *Coordinator) Pause(ctx context.Context, id string) error {
	if err := c.act(ctx, id, domain.TimerActionPause); err != nil {
		return err
	}

	c.mu.Lock()
	if c.runningID == id {
		c.runningID = ""
	}
	c.mu.Unlock()
	return nil
}

// Stop ends the timer and then marks the task completed through the
// store's toggle. Stopping always implies completion.
func (c *Coordinator) Stop(ctx context.Context, id string) error {
	if err := c.act(ctx, id, domain.TimerActionStop); err != nil {
		return err
	}

	c.mu.Lock()
	if c.runningID == id {
		c.runningID = ""
	}
	c.mu.Unlock()

	if _, err := c.store.ToggleComplete(ctx, id); err != nil {
		c.logger.Warn("timer stopped but completion toggle failed",
			zap.String("task_id", id), zap.Error(err))
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return err
	}
	return nil
}

// Save flushes the running timer's recorded time to the backend
// without a state transition. Used by the autosave service so a
// crashed client loses at most one interval.
func (c *Coordinator) Save(ctx context.Context, id string) error {
	return c.act(ctx, id, domain.TimerActionSave)
}

// act performs one remote timer action and folds the confirmed
// activity into the store.
func (c *Coordinator) act(ctx context.Context, id string, action domain.TimerActionKind) error {
	activityID, err := parseID(id)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return err
	}

	activity, err := c.activities.TimerAction(ctx, activityID, action)
	if err != nil {
		c.logger.Warn("timer action failed",
			zap.String("task_id", id),
			zap.String("action", string(action)),
			zap.Error(err))
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return err
	}

	c.store.Reconcile(c.mapper.ToTask(*activity))

	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
	return nil
}

func parseID(id string) (int64, error) {
	parsed, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, domain.WrapError(domain.ErrCodeValidation, fmt.Sprintf("invalid task id %q", id), err)
	}
	return parsed, nil
}
