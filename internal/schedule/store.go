package schedule

import (
	"context"
	"database/sql"
	"sync"
)

// Store persists scheduled calls.
//
// NOTE: PostgresStore assumes an `ivr_schedules` table with indexes on
// (mother_id) and (scheduled_time).

type Store interface {
	Create(ctx context.Context, e Entry) error
	ListByMother(ctx context.Context, motherID string) ([]Entry, error)
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) Create(ctx context.Context, e Entry) error {
	const q = `
INSERT INTO ivr_schedules (id, mother_id, scheduled_time, call_type, status, call_sid, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := s.db.ExecContext(ctx, q,
		e.ID, e.MotherID, e.ScheduledTime, e.CallType, e.Status, e.ProviderCallID, e.CreatedAt,
	)
	return err
}

func (s *PostgresStore) ListByMother(ctx context.Context, motherID string) ([]Entry, error) {
	const q = `
SELECT id, mother_id, scheduled_time, call_type, status, call_sid, created_at
FROM ivr_schedules
WHERE mother_id = $1
ORDER BY scheduled_time ASC
`
	rows, err := s.db.QueryContext(ctx, q, motherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.MotherID, &e.ScheduledTime, &e.CallType, &e.Status, &e.ProviderCallID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MemoryStore is an in-memory Store for tests.

type MemoryStore struct {
	mu      sync.Mutex
	Entries []Entry
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Create(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entries = append(s.Entries, e)
	return nil
}

func (s *MemoryStore) ListByMother(ctx context.Context, motherID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0)
	for _, e := range s.Entries {
		if e.MotherID == motherID {
			out = append(out, e)
		}
	}
	return out, nil
}
