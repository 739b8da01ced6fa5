package workers

import "time"

// Worker is an ASHA community health worker. LoginID is the human-facing
// identifier used to sign in; ID is the internal key other tables reference.
type Worker struct {
	ID      string `json:"id" db:"id"`
	LoginID string `json:"asha_id" db:"asha_id"`

	// PasswordHash is a bcrypt hash; never serialized.
	PasswordHash string `json:"-" db:"password"`

	Name    string `json:"name" db:"name"`
	PHCName string `json:"phc_name" db:"phc_name"`
	Phone   string `json:"phone,omitempty" db:"phone"`
	Email   string `json:"email,omitempty" db:"email"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
