// Package tasks holds the in-memory task collection, the single
// source of truth the presentation layer reads. Every mutation is the
// result of a confirmed backend response; there is no optimistic
// state. When two operations on the same id are in flight the later
// response wins, regardless of issue order.
package tasks

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/tracklite/client/domain"
	"github.com/tracklite/client/gateway"
	"github.com/tracklite/client/mapper"
)

// Store is the ordered task collection. Each operation runs in three
// phases: mark loading, hit the backend, then fold the confirmed
// result in as a single state replacement. Failures leave the prior
// collection untouched and fill the shared last-error slot, which the
// next successful operation clears.
type Store struct {
	activities gateway.ActivityGateway
	mapper     *mapper.Mapper
	logger     *zap.Logger

	mu      sync.Mutex
	tasks   []domain.Task
	loading bool
	lastErr error
}

// New creates an empty Store.
func New(activities gateway.ActivityGateway, m *mapper.Mapper, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = mapper.New(logger)
	}
	return &Store{
		activities: activities,
		mapper:     m,
		logger:     logger,
	}
}

// Tasks returns a snapshot copy of the collection, most recent first.
func (s *Store) Tasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]domain.Task, len(s.tasks))
	copy(snapshot, s.tasks)
	return snapshot
}

// Loading reports whether an operation is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last recorded error, nil after a success.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ErrorMessage returns the last error as a display string.
func (s *Store) ErrorMessage() string {
	return domain.ErrorMessage(s.Err())
}

// ClearError dismisses the last error explicitly.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
}

// Find returns the current projection of a task by id.
func (s *Store) Find(id string) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, task := range s.tasks {
		if task.ID == id {
			return task, true
		}
	}
	return domain.Task{}, false
}

// Fetch replaces the whole collection with the mapped listing result.
// On failure the previous collection stays as-is.
func (s *Store) Fetch(ctx context.Context, skip, limit int, tag string) error {
	s.begin()

	activities, err := s.activities.List(ctx, gateway.ActivityFilter{Skip: skip, Limit: limit, Tag: tag})
	if err != nil {
		s.fail("fetch", err)
		return err
	}

	mapped := make([]domain.Task, 0, len(activities))
	for _, activity := range activities {
		mapped = append(mapped, s.mapper.ToTask(activity))
	}

	s.mu.Lock()
	s.tasks = mapped
	s.loading = false
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// Create sends a mapped create request and, on success, prepends the
// confirmed task. The collection is never touched before confirmation.
func (s *Store) Create(ctx context.Context, draft domain.TaskDraft) (*domain.Task, error) {
	s.begin()

	req, err := s.mapper.ToCreateRequest(draft)
	if err != nil {
		s.fail("create", err)
		return nil, err
	}

	activity, err := s.activities.Create(ctx, req)
	if err != nil {
		s.fail("create", err)
		return nil, err
	}

	task := s.mapper.ToTask(*activity)

	s.mu.Lock()
	s.tasks = append([]domain.Task{task}, s.tasks...)
	s.loading = false
	s.lastErr = nil
	s.mu.Unlock()
	return &task, nil
}

// Update resolves the original task, sends the mapped partial update
// and replaces the matching entry in place. Referencing an unknown id
// is a caller bug and fails fast without a round trip.
func (s *Store) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	activityID, err := parseID(id)
	if err != nil {
		s.record(err)
		return nil, err
	}

	original, ok := s.Find(id)
	if !ok {
		err := domain.WrapError(domain.ErrCodeNotFound, fmt.Sprintf("task %s not found in the collection", id), domain.ErrTaskNotFound)
		s.record(err)
		return nil, err
	}

	s.begin()

	req, err := s.mapper.ToUpdateRequest(patch, original)
	if err != nil {
		s.fail("update", err)
		return nil, err
	}

	activity, err := s.activities.Update(ctx, activityID, req)
	if err != nil {
		s.fail("update", err)
		return nil, err
	}

	updated := s.mapper.ToTask(*activity)
	s.mu.Lock()
	s.replaceLocked(updated)
	s.loading = false
	s.lastErr = nil
	s.mu.Unlock()
	return &updated, nil
}

// Remove deletes a task on the backend, then filters it out locally.
func (s *Store) Remove(ctx context.Context, id string) error {
	activityID, err := parseID(id)
	if err != nil {
		s.record(err)
		return err
	}

	s.begin()

	if err := s.activities.Delete(ctx, activityID); err != nil {
		s.fail("remove", err)
		return err
	}

	s.mu.Lock()
	kept := s.tasks[:0:0]
	for _, task := range s.tasks {
		if task.ID != id {
			kept = append(kept, task)
		}
	}
	s.tasks = kept
	s.loading = false
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// ToggleComplete flips the completion flag through a full mapped
// update round trip. The backend's end_time is the sole source of
// truth for completion, so there is no lighter-weight path.
func (s *Store) ToggleComplete(ctx context.Context, id string) (*domain.Task, error) {
	current, ok := s.Find(id)
	if !ok {
		err := domain.WrapError(domain.ErrCodeNotFound, fmt.Sprintf("task %s not found in the collection", id), domain.ErrTaskNotFound)
		s.record(err)
		return nil, err
	}

	completed := !current.Completed
	return s.Update(ctx, id, domain.TaskPatch{Completed: &completed})
}

// Refresh re-fetches a single activity and reconciles it in place.
// An id not yet held in the collection is appended, so Refresh also
// serves as the single-task loader for a fresh process.
func (s *Store) Refresh(ctx context.Context, id string) (*domain.Task, error) {
	activityID, err := parseID(id)
	if err != nil {
		s.record(err)
		return nil, err
	}

	s.begin()

	activity, err := s.activities.Get(ctx, activityID)
	if err != nil {
		s.fail("refresh", err)
		return nil, err
	}

	task := s.mapper.ToTask(*activity)
	s.mu.Lock()
	if !s.replaceLocked(task) {
		s.tasks = append(s.tasks, task)
	}
	s.loading = false
	s.lastErr = nil
	s.mu.Unlock()
	return &task, nil
}

// Reconcile folds a server-confirmed task into the collection,
// preserving its position. Used by the timer coordinator after timer
// actions. Unknown ids are ignored; the entry may have been removed
// while the action was in flight.
func (s *Store) Reconcile(task domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(task)
}

func (s *Store) replaceLocked(task domain.Task) bool {
	for i := range s.tasks {
		if s.tasks[i].ID == task.ID {
			s.tasks[i] = task
			return true
		}
	}
	return false
}

func (s *Store) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()
}

func (s *Store) fail(op string, err error) {
	s.logger.Warn("task operation failed", zap.String("operation", op), zap.Error(err))
	s.mu.Lock()
	s.loading = false
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Store) record(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// parseID converts the string task id back to the backend's numeric
// id. A task id that does not parse never belonged in the store.
func parseID(id string) (int64, error) {
	parsed, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, domain.WrapError(domain.ErrCodeValidation, fmt.Sprintf("invalid task id %q", id), err)
	}
	return parsed, nil
}
