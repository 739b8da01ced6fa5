package workers

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("workers: not found")

type Store interface {
	Create(ctx context.Context, w Worker) error
	GetByID(ctx context.Context, id string) (Worker, error)
	GetByLoginID(ctx context.Context, loginID string) (Worker, error)
}

// NOTE: PostgresStore assumes an `ashas` table with a unique index on asha_id.

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const workerColumns = `id, asha_id, password, name, phc_name, phone, email, created_at`

func (s *PostgresStore) Create(ctx context.Context, w Worker) error {
	const q = `
INSERT INTO ashas (` + workerColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := s.db.ExecContext(ctx, q,
		w.ID, w.LoginID, w.PasswordHash, w.Name, w.PHCName, w.Phone, w.Email, w.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Worker, error) {
	const q = `SELECT ` + workerColumns + ` FROM ashas WHERE id = $1`
	return scanWorker(s.db.QueryRowContext(ctx, q, id))
}

func (s *PostgresStore) GetByLoginID(ctx context.Context, loginID string) (Worker, error) {
	const q = `SELECT ` + workerColumns + ` FROM ashas WHERE asha_id = $1`
	return scanWorker(s.db.QueryRowContext(ctx, q, loginID))
}

func scanWorker(row *sql.Row) (Worker, error) {
	var w Worker
	err := row.Scan(&w.ID, &w.LoginID, &w.PasswordHash, &w.Name, &w.PHCName, &w.Phone, &w.Email, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Worker{}, ErrNotFound
		}
		return Worker{}, err
	}
	return w, nil
}

// MemoryStore is an in-memory Store for tests.

type MemoryStore struct {
	mu      sync.Mutex
	Workers map[string]Worker
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{Workers: map[string]Worker{}} }

func (s *MemoryStore) Create(ctx context.Context, w Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Workers[w.ID] = w
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.Workers[id]
	if !ok {
		return Worker{}, ErrNotFound
	}
	return w, nil
}

func (s *MemoryStore) GetByLoginID(ctx context.Context, loginID string) (Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.Workers {
		if w.LoginID == loginID {
			return w, nil
		}
	}
	return Worker{}, ErrNotFound
}
