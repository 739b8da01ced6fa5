package patients

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("patients: not found")

// Store is the persistence contract for mothers.
//
// GetByPhone matches the stored phone column exactly; format tolerance is the
// caller's responsibility (internal/ivr tries multiple encodings in order).
// Webhook traffic must never create rows: lookup only, never create-on-miss.
type Store interface {
	Create(ctx context.Context, m Mother) error
	GetByID(ctx context.Context, id string) (Mother, error)
	GetByPhone(ctx context.Context, phone string) (Mother, error)
	ListByWorker(ctx context.Context, workerID string, flagged *bool) ([]Mother, error)
	Update(ctx context.Context, m Mother) error
	Delete(ctx context.Context, id string) error
	SetFlagged(ctx context.Context, id string, flagged bool) error
	StatsByWorker(ctx context.Context, workerID string) (Stats, error)
	CountNextAppointmentsBetween(ctx context.Context, workerID string, from, to time.Time) (int, error)
}

// NOTE: PostgresStore assumes a `mothers` table matching the columns below,
// with indexes on (asha_id), (phone) and (flagged).

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const motherColumns = `
id, asha_id, name, age, phone, address, last_anc_date, gestation_weeks,
flagged, visited, notes, health_status, next_appointment_date,
medication_reminders, last_period_date, cycle_length, post_pregnancy, created_at`

func scanMother(row interface{ Scan(...any) error }) (Mother, error) {
	var m Mother
	err := row.Scan(
		&m.ID,
		&m.WorkerID,
		&m.Name,
		&m.Age,
		&m.Phone,
		&m.Address,
		&m.LastANCDate,
		&m.GestationWeeks,
		&m.Flagged,
		&m.Visited,
		&m.Notes,
		&m.HealthStatus,
		&m.NextAppointmentDate,
		&m.MedicationReminders,
		&m.LastPeriodDate,
		&m.CycleLength,
		&m.PostPregnancy,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Mother{}, ErrNotFound
		}
		return Mother{}, err
	}
	return m, nil
}

func (s *PostgresStore) Create(ctx context.Context, m Mother) error {
	const q = `
INSERT INTO mothers (` + motherColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
`
	_, err := s.db.ExecContext(ctx, q,
		m.ID, m.WorkerID, m.Name, m.Age, m.Phone, m.Address,
		m.LastANCDate, m.GestationWeeks, m.Flagged, m.Visited, m.Notes,
		m.HealthStatus, m.NextAppointmentDate, m.MedicationReminders,
		m.LastPeriodDate, m.CycleLength, m.PostPregnancy, m.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Mother, error) {
	const q = `SELECT ` + motherColumns + ` FROM mothers WHERE id = $1`
	return scanMother(s.db.QueryRowContext(ctx, q, id))
}

func (s *PostgresStore) GetByPhone(ctx context.Context, phone string) (Mother, error) {
	const q = `SELECT ` + motherColumns + ` FROM mothers WHERE phone = $1 LIMIT 1`
	return scanMother(s.db.QueryRowContext(ctx, q, phone))
}

func (s *PostgresStore) ListByWorker(ctx context.Context, workerID string, flagged *bool) ([]Mother, error) {
	q := `SELECT ` + motherColumns + ` FROM mothers WHERE asha_id = $1`
	args := []any{workerID}
	if flagged != nil {
		q += ` AND flagged = $2`
		args = append(args, *flagged)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Mother, 0)
	for rows.Next() {
		m, err := scanMother(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, m Mother) error {
	const q = `
UPDATE mothers SET
  name = $2, age = $3, phone = $4, address = $5, last_anc_date = $6,
  gestation_weeks = $7, flagged = $8, visited = $9, notes = $10,
  health_status = $11, next_appointment_date = $12, medication_reminders = $13,
  last_period_date = $14, cycle_length = $15, post_pregnancy = $16
WHERE id = $1
`
	res, err := s.db.ExecContext(ctx, q,
		m.ID, m.Name, m.Age, m.Phone, m.Address, m.LastANCDate,
		m.GestationWeeks, m.Flagged, m.Visited, m.Notes,
		m.HealthStatus, m.NextAppointmentDate, m.MedicationReminders,
		m.LastPeriodDate, m.CycleLength, m.PostPregnancy,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mothers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PostgresStore) SetFlagged(ctx context.Context, id string, flagged bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE mothers SET flagged = $2 WHERE id = $1`, id, flagged)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PostgresStore) StatsByWorker(ctx context.Context, workerID string) (Stats, error) {
	const q = `
SELECT
  COUNT(*),
  COUNT(*) FILTER (WHERE flagged),
  COUNT(*) FILTER (WHERE visited),
  COUNT(*) FILTER (WHERE health_status = 'pcos'),
  COUNT(*) FILTER (WHERE post_pregnancy)
FROM mothers
WHERE asha_id = $1
`
	var st Stats
	err := s.db.QueryRowContext(ctx, q, workerID).Scan(
		&st.TotalMothers,
		&st.FlaggedMothers,
		&st.VisitedMothers,
		&st.PCOSMothers,
		&st.PostPregnancyMothers,
	)
	return st, err
}

func (s *PostgresStore) CountNextAppointmentsBetween(ctx context.Context, workerID string, from, to time.Time) (int, error) {
	const q = `
SELECT COUNT(*) FROM mothers
WHERE asha_id = $1 AND next_appointment_date >= $2 AND next_appointment_date <= $3
`
	var n int
	err := s.db.QueryRowContext(ctx, q, workerID, from, to).Scan(&n)
	return n, err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
