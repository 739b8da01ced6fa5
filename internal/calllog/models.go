package calllog

import "time"

// Attempt is one persisted record of a call-related outcome.
//
// Rows are immutable once written. No Update/Delete methods exist by design.
// A single real call can legitimately produce two rows: one for the in-call
// DTMF response and one for the terminal summary. That duplication mirrors
// how the dashboard consumes the data; do not collapse it.
type Attempt struct {
	ID       string `json:"id" db:"id"`
	WorkerID string `json:"asha_id" db:"asha_id"`
	MotherID string `json:"mother_id" db:"mother_id"`
	Phone    string `json:"phone" db:"phone"`

	Outcome Outcome `json:"result" db:"result"`

	// DurationSeconds is set only on terminal-phase rows.
	DurationSeconds *int `json:"call_duration" db:"call_duration"`

	// ProviderCallID is the Twilio/Exotel call identifier, when known.
	ProviderCallID string `json:"call_sid,omitempty" db:"call_sid"`

	// RawPayload is an opaque snapshot of the provider webhook body for audit.
	RawPayload string `json:"response_data,omitempty" db:"response_data"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Outcome string

const (
	OutcomeAnswered    Outcome = "answered"
	OutcomeNotAnswered Outcome = "not_answered"
	// OutcomePressed2 always coincides with the mother being flagged for
	// follow-up; the two writes happen in one transaction.
	OutcomePressed2  Outcome = "pressed_2"
	OutcomeBusy      Outcome = "busy"
	OutcomeFailed    Outcome = "failed"
	OutcomeInitiated Outcome = "initiated"
)

// Summary aggregates per-worker call counts for the dashboard.
type Summary struct {
	RecentCalls      int `json:"recent_calls"`
	AnsweredCalls    int `json:"answered_calls"`
	NotAnsweredCalls int `json:"not_answered_calls"`
}
