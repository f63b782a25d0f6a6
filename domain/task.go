package domain

// TimerStatus is the backend-reported timer state of a task.
type TimerStatus string

const (
	TimerIdle    TimerStatus = "idle"
	TimerRunning TimerStatus = "running"
	TimerPaused  TimerStatus = "paused"
)

// Task is the client-side projection of a backend Activity. The id is
// the string form of the Activity's numeric id and must always parse
// back; RecordedTime and TimerStatus are authoritative from the
// backend and never advanced locally.
type Task struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Completed    bool        `json:"completed"`
	DueDate      string      `json:"due_date,omitempty"`
	Tags         []string    `json:"tags"`
	RecordedTime int         `json:"recorded_time"`
	TimerStatus  TimerStatus `json:"timer_status"`
}

// TaskDraft carries the user-supplied fields for a new task. A missing
// DueDate is synthesized at mapping time so the wire encoding always
// has a value to write.
type TaskDraft struct {
	Title   string
	DueDate string
	Tags    []string
}

// TaskPatch is a partial task for updates. Nil pointer fields (and a
// nil Tags slice) are absent and left untouched on the backend; a
// non-nil empty Tags slice clears the tags explicitly.
type TaskPatch struct {
	Title        *string
	DueDate      *string
	Tags         []string
	Completed    *bool
	RecordedTime *int
	TimerStatus  *TimerStatus
}
