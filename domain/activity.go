package domain

import "encoding/json"

// Tag is the backend's tag record.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Activity is the backend's wire representation of a trackable unit of
// work, immutable as received.
type Activity struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Description    *string `json:"description"`
	StartTime      string  `json:"start_time"`
	EndTime        *string `json:"end_time"`
	DueDate        *string `json:"due_date"`
	Duration       *int    `json:"duration"`
	RecordedTime   int     `json:"recorded_time"`
	TimerStatus    string  `json:"timer_status"`
	LastTimerStart *string `json:"last_timer_start"`
	UserID         int64   `json:"user_id"`
	Tags           []Tag   `json:"tags"`
}

// ActivityCreateRequest is the POST /activities/ body.
type ActivityCreateRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	DueDate       string   `json:"due_date,omitempty"`
	Tags          []string `json:"tags"`
	ScheduledTime string   `json:"scheduled_time,omitempty"`
}

// NullableString distinguishes an omitted JSON field from an explicit
// null. The backend clears end_time only on an explicit null, so
// omission and null must not collapse into each other.
type NullableString struct {
	Set   bool
	Value *string
}

// SetValue marks the field present with the given value.
func (n *NullableString) SetValue(v string) {
	n.Set = true
	n.Value = &v
}

// SetNull marks the field present as an explicit null.
func (n *NullableString) SetNull() {
	n.Set = true
	n.Value = nil
}

// ActivityUpdateRequest is the PUT /activities/{id} body. Title is
// mandatory on every update, even partial ones; all other fields are
// emitted only when present. Serialized by hand because EndTime is
// tri-state.
type ActivityUpdateRequest struct {
	Title         string
	Description   *string
	Tags          []string
	DueDate       *string
	EndTime       NullableString
	Duration      *int
	RecordedTime  *int
	TimerStatus   *string
	ScheduledTime *string
}

func (r ActivityUpdateRequest) MarshalJSON() ([]byte, error) {
	body := map[string]any{
		"title": r.Title,
	}
	if r.Description != nil {
		body["description"] = *r.Description
	}
	if r.Tags != nil {
		body["tags"] = r.Tags
	}
	if r.DueDate != nil {
		body["due_date"] = *r.DueDate
	}
	if r.EndTime.Set {
		body["end_time"] = r.EndTime.Value
	}
	if r.Duration != nil {
		body["duration"] = *r.Duration
	}
	if r.RecordedTime != nil {
		body["recorded_time"] = *r.RecordedTime
	}
	if r.TimerStatus != nil {
		body["timer_status"] = *r.TimerStatus
	}
	if r.ScheduledTime != nil {
		body["scheduled_time"] = *r.ScheduledTime
	}
	return json.Marshal(body)
}

// TimerActionKind enumerates the backend timer verbs.
type TimerActionKind string

const (
	TimerActionStart TimerActionKind = "start"
	TimerActionPause TimerActionKind = "pause"
	TimerActionStop  TimerActionKind = "stop"
	TimerActionSave  TimerActionKind = "save"
)

// TimerActionRequest is the POST /activities/{id}/timer body.
type TimerActionRequest struct {
	Action TimerActionKind `json:"action"`
}
