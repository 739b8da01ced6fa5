package schedule

import "time"

// Entry is a scheduled IVR call. Entries are data only: nothing in this
// service dispatches them, a separate dialer process is expected to poll
// pending entries and mark them completed or failed.
type Entry struct {
	ID       string `json:"id" db:"id"`
	MotherID string `json:"mother_id" db:"mother_id"`

	ScheduledTime time.Time `json:"scheduled_time" db:"scheduled_time"`
	CallType      string    `json:"call_type" db:"call_type"`
	Status        Status    `json:"status" db:"status"`

	ProviderCallID string `json:"call_sid,omitempty" db:"call_sid"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)
