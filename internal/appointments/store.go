package appointments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var ErrNotFound = errors.New("appointments: not found")

// Filter narrows appointment listings. All listings are scoped to one
// worker's mothers via a join; appointments have no asha_id column.
type Filter struct {
	Status Status
	From   *time.Time
	To     *time.Time
}

type Store interface {
	Create(ctx context.Context, a Appointment) error
	GetByID(ctx context.Context, id string) (Appointment, error)
	Update(ctx context.Context, a Appointment) error
	ListByWorker(ctx context.Context, workerID string, f Filter) ([]Appointment, error)
}

// NOTE: PostgresStore assumes an `appointments` table with indexes on
// (mother_id) and (appointment_date).

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const appointmentColumns = `id, mother_id, appointment_date, appointment_type, status, reminder_sent, notes, created_at`

func (s *PostgresStore) Create(ctx context.Context, a Appointment) error {
	const q = `
INSERT INTO appointments (` + appointmentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := s.db.ExecContext(ctx, q,
		a.ID, a.MotherID, a.Date, a.Type, a.Status, a.ReminderSent, a.Notes, a.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Appointment, error) {
	const q = `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	var a Appointment
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&a.ID, &a.MotherID, &a.Date, &a.Type, &a.Status, &a.ReminderSent, &a.Notes, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Appointment{}, ErrNotFound
		}
		return Appointment{}, err
	}
	return a, nil
}

func (s *PostgresStore) Update(ctx context.Context, a Appointment) error {
	const q = `
UPDATE appointments SET
  appointment_date = $2, appointment_type = $3, status = $4, reminder_sent = $5, notes = $6
WHERE id = $1
`
	res, err := s.db.ExecContext(ctx, q, a.ID, a.Date, a.Type, a.Status, a.ReminderSent, a.Notes)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByWorker(ctx context.Context, workerID string, f Filter) ([]Appointment, error) {
	q := `
SELECT a.id, a.mother_id, a.appointment_date, a.appointment_type, a.status, a.reminder_sent, a.notes, a.created_at
FROM appointments a
JOIN mothers m ON m.id = a.mother_id
WHERE m.asha_id = $1`
	args := []any{workerID}
	if f.Status != "" {
		args = append(args, f.Status)
		q += fmt.Sprintf(` AND a.status = $%d`, len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		q += fmt.Sprintf(` AND a.appointment_date >= $%d`, len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		q += fmt.Sprintf(` AND a.appointment_date <= $%d`, len(args))
	}
	q += ` ORDER BY a.appointment_date ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Appointment, 0)
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.MotherID, &a.Date, &a.Type, &a.Status, &a.ReminderSent, &a.Notes, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MemoryStore is an in-memory Store for tests. Ownership scoping needs the
// mother → worker mapping, supplied by OwnerOf.

type MemoryStore struct {
	mu           sync.Mutex
	Appointments map[string]Appointment
	OwnerOf      map[string]string // mother_id -> worker_id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Appointments: map[string]Appointment{}, OwnerOf: map[string]string{}}
}

func (s *MemoryStore) Create(ctx context.Context, a Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Appointments[a.ID] = a
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.Appointments[id]
	if !ok {
		return Appointment{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) Update(ctx context.Context, a Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Appointments[a.ID]; !ok {
		return ErrNotFound
	}
	s.Appointments[a.ID] = a
	return nil
}

func (s *MemoryStore) ListByWorker(ctx context.Context, workerID string, f Filter) ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Appointment, 0)
	for _, a := range s.Appointments {
		if s.OwnerOf[a.MotherID] != workerID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.From != nil && a.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && a.Date.After(*f.To) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
