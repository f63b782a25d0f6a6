// Package mapper implements the bidirectional transform between the
// backend's Activity wire shape and the client's Task shape. The
// legacy wire quirk of carrying the due date inside the free-text
// description field as "DUE_DATE:<value>" is confined entirely to this
// package; everything above it only ever sees a typed due date.
package mapper

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tracklite/client/domain"
)

const (
	// dueDatePrefix marks a description that smuggles a due date.
	dueDatePrefix = "DUE_DATE:"

	// localDateTime is the due-date form used across the client,
	// minute precision, no zone designator.
	localDateTime = "2006-01-02T15:04"
)

// dueDateLayouts are the accepted encodings of the value behind the
// prefix, in order of likelihood.
var dueDateLayouts = []string{
	localDateTime,
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Mapper converts between Activity and Task. It is stateless apart
// from the injected clock, which exists so the "missing due date means
// now" fallbacks stay deterministic under test.
type Mapper struct {
	now    func() time.Time
	logger *zap.Logger
}

// New returns a Mapper on the real clock.
func New(logger *zap.Logger) *Mapper {
	return NewWithClock(logger, time.Now)
}

// NewWithClock returns a Mapper with an explicit clock.
func NewWithClock(logger *zap.Logger, now func() time.Time) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Mapper{now: now, logger: logger}
}

// ToTask projects an Activity into the client Task shape.
//
// The due date comes from the DUE_DATE: side channel when present. An
// Activity whose description was never written by this client (or
// whose encoded value does not parse) gets "now" as its due date; the
// fallback is a documented consequence of using a free-text field as a
// side channel, not an error condition. Completion is purely the
// presence of end_time.
func (m *Mapper) ToTask(activity domain.Activity) domain.Task {
	tags := make([]string, 0, len(activity.Tags))
	for _, tag := range activity.Tags {
		tags = append(tags, tag.Name)
	}

	return domain.Task{
		ID:           strconv.FormatInt(activity.ID, 10),
		Title:        activity.Title,
		Completed:    activity.EndTime != nil && *activity.EndTime != "",
		DueDate:      m.extractDueDate(activity),
		Tags:         tags,
		RecordedTime: activity.RecordedTime,
		TimerStatus:  domain.TimerStatus(activity.TimerStatus),
	}
}

// ToCreateRequest encodes a draft for POST /activities/. A missing
// due date is synthesized from the current moment so the description
// side channel always carries a value. scheduled_time is emitted only
// when the caller actually supplied a due date, and must stay in sync
// with the description encoding.
func (m *Mapper) ToCreateRequest(draft domain.TaskDraft) (domain.ActivityCreateRequest, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return domain.ActivityCreateRequest{}, domain.ErrTitleRequired
	}

	due := draft.DueDate
	if due == "" {
		due = m.now().Format(localDateTime)
	}

	req := domain.ActivityCreateRequest{
		Title:       draft.Title,
		Description: dueDatePrefix + due,
		Tags:        draft.Tags,
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}

	if draft.DueDate != "" {
		scheduled, err := localToUTC(draft.DueDate)
		if err != nil {
			return domain.ActivityCreateRequest{}, domain.WrapError(domain.ErrCodeValidation, "invalid due date", err)
		}
		req.ScheduledTime = scheduled
	}

	return req, nil
}

// ToUpdateRequest encodes a partial task for PUT /activities/{id}.
// The backend requires a non-empty title on every update, so a patch
// without one resolves the title from the original task. Only fields
// present on the patch are translated; completed=false becomes an
// explicit end_time null, never an omission.
func (m *Mapper) ToUpdateRequest(patch domain.TaskPatch, original domain.Task) (domain.ActivityUpdateRequest, error) {
	title := original.Title
	if patch.Title != nil {
		title = *patch.Title
	}
	if strings.TrimSpace(title) == "" {
		return domain.ActivityUpdateRequest{}, domain.ErrTitleRequired
	}

	req := domain.ActivityUpdateRequest{Title: title}

	if patch.Tags != nil {
		req.Tags = patch.Tags
	}

	if patch.DueDate != nil {
		description := dueDatePrefix + *patch.DueDate
		req.Description = &description
		if *patch.DueDate != "" {
			scheduled, err := localToUTC(*patch.DueDate)
			if err != nil {
				return domain.ActivityUpdateRequest{}, domain.WrapError(domain.ErrCodeValidation, "invalid due date", err)
			}
			req.ScheduledTime = &scheduled
		}
	}

	if patch.Completed != nil {
		if *patch.Completed {
			req.EndTime.SetValue(m.now().UTC().Format(time.RFC3339))
		} else {
			req.EndTime.SetNull()
		}
	}

	if patch.RecordedTime != nil {
		req.RecordedTime = patch.RecordedTime
	}
	if patch.TimerStatus != nil {
		status := string(*patch.TimerStatus)
		req.TimerStatus = &status
	}

	return req, nil
}

func (m *Mapper) extractDueDate(activity domain.Activity) string {
	if activity.Description != nil && strings.HasPrefix(*activity.Description, dueDatePrefix) {
		raw := strings.TrimSpace(strings.TrimPrefix(*activity.Description, dueDatePrefix))
		if parsed, ok := parseDueDate(raw); ok {
			return parsed.Format(localDateTime)
		}
		m.logger.Debug("unparseable due date in description, falling back to now",
			zap.Int64("activity_id", activity.ID),
			zap.String("raw", raw))
	}
	return m.now().Format(localDateTime)
}

func parseDueDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dueDateLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return parsed.Local(), true
		}
	}
	return time.Time{}, false
}

// localToUTC renders a local-datetime due date as a full ISO-8601 UTC
// instant for the scheduled_time field.
func localToUTC(local string) (string, error) {
	parsed, err := time.ParseInLocation(localDateTime, local, time.Local)
	if err != nil {
		return "", err
	}
	return parsed.UTC().Format(time.RFC3339), nil
}
