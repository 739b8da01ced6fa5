package appointments

import "time"

type Appointment struct {
	ID       string `json:"id" db:"id"`
	MotherID string `json:"mother_id" db:"mother_id"`

	Date   time.Time `json:"appointment_date" db:"appointment_date"`
	Type   string    `json:"appointment_type" db:"appointment_type"`
	Status Status    `json:"status" db:"status"`

	ReminderSent bool   `json:"reminder_sent" db:"reminder_sent"`
	Notes        string `json:"notes,omitempty" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusMissed    Status = "missed"
	StatusCancelled Status = "cancelled"
)

// Types: anc, vaccination, checkup, ultrasound. Kept as a free string since
// the dashboard adds categories without a server deploy.
