package patients

import "time"

// Mother is a maternal-health patient under the care of exactly one ASHA worker.
//
// Phone is the join key between inbound IVR webhooks and patient identity.
// Legacy rows store it in any of several encodings (bare 10-digit, 12-digit,
// +91-prefixed), so phone lookups must go through the format-tolerant
// resolution in internal/ivr rather than assuming the canonical form.
//
// Flagged is mutated by two actors: the dashboard CRUD API and the IVR call
// outcome resolver (needs-help and not-answered paths). The resolver side is
// applied atomically with its call log insert; see internal/calllog.
type Mother struct {
	ID       string `json:"id" db:"id"`
	WorkerID string `json:"asha_id" db:"asha_id"`

	Name    string `json:"name" db:"name"`
	Age     int    `json:"age" db:"age"`
	Phone   string `json:"phone" db:"phone"`
	Address string `json:"address" db:"address"`

	LastANCDate    time.Time `json:"last_anc_date" db:"last_anc_date"`
	GestationWeeks int       `json:"gestation_weeks" db:"gestation_weeks"`

	Flagged bool   `json:"flagged" db:"flagged"`
	Visited bool   `json:"visited" db:"visited"`
	Notes   string `json:"notes" db:"notes"`

	HealthStatus        HealthStatus `json:"health_status" db:"health_status"`
	NextAppointmentDate *time.Time   `json:"next_appointment_date" db:"next_appointment_date"`
	MedicationReminders bool         `json:"medication_reminders" db:"medication_reminders"`
	LastPeriodDate      *time.Time   `json:"last_period_date" db:"last_period_date"`
	CycleLength         int          `json:"cycle_length" db:"cycle_length"`
	PostPregnancy       bool         `json:"post_pregnancy" db:"post_pregnancy"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type HealthStatus string

const (
	HealthStatusNormal   HealthStatus = "normal"
	HealthStatusPCOS     HealthStatus = "pcos"
	HealthStatusHighRisk HealthStatus = "high_risk"
)

// Stats aggregates per-worker patient counts for the dashboard.
type Stats struct {
	TotalMothers         int `json:"total_mothers"`
	FlaggedMothers       int `json:"flagged_mothers"`
	VisitedMothers       int `json:"visited_mothers"`
	PCOSMothers          int `json:"pcos_mothers"`
	PostPregnancyMothers int `json:"post_pregnancy_mothers"`
}
