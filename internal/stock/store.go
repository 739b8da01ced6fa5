package stock

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	// GetOrCreate returns the worker's stock row, creating an all-zero one
	// if none exists yet.
	GetOrCreate(ctx context.Context, workerID string) (Stock, error)
	// Apply merges the non-nil fields of u into the worker's stock row,
	// creating it first when missing, and returns the result.
	Apply(ctx context.Context, workerID string, u Update) (Stock, error)
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const stockColumns = `id, asha_id, iron_tablets, tt_vaccine, folic_acid, calcium_tablets, updated_at`

func (s *PostgresStore) GetOrCreate(ctx context.Context, workerID string) (Stock, error) {
	st, err := s.get(ctx, workerID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Stock{}, err
	}
	return s.create(ctx, workerID)
}

func (s *PostgresStore) Apply(ctx context.Context, workerID string, u Update) (Stock, error) {
	st, err := s.GetOrCreate(ctx, workerID)
	if err != nil {
		return Stock{}, err
	}
	merge(&st, u)
	st.UpdatedAt = time.Now().UTC()

	const q = `
UPDATE phc_stock SET
  iron_tablets = $2, tt_vaccine = $3, folic_acid = $4, calcium_tablets = $5, updated_at = $6
WHERE asha_id = $1
`
	_, err = s.db.ExecContext(ctx, q,
		workerID, st.IronTablets, st.TTVaccine, st.FolicAcid, st.CalciumTablets, st.UpdatedAt,
	)
	if err != nil {
		return Stock{}, err
	}
	return st, nil
}

func (s *PostgresStore) get(ctx context.Context, workerID string) (Stock, error) {
	const q = `SELECT ` + stockColumns + ` FROM phc_stock WHERE asha_id = $1`
	var st Stock
	err := s.db.QueryRowContext(ctx, q, workerID).Scan(
		&st.ID, &st.WorkerID, &st.IronTablets, &st.TTVaccine, &st.FolicAcid, &st.CalciumTablets, &st.UpdatedAt,
	)
	return st, err
}

func (s *PostgresStore) create(ctx context.Context, workerID string) (Stock, error) {
	st := Stock{
		ID:        uuid.NewString(),
		WorkerID:  workerID,
		UpdatedAt: time.Now().UTC(),
	}
	// Concurrent first reads race on the unique asha_id index; the loser
	// re-reads the winner's row.
	const q = `
INSERT INTO phc_stock (` + stockColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (asha_id) DO NOTHING
`
	res, err := s.db.ExecContext(ctx, q,
		st.ID, st.WorkerID, st.IronTablets, st.TTVaccine, st.FolicAcid, st.CalciumTablets, st.UpdatedAt,
	)
	if err != nil {
		return Stock{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return s.get(ctx, workerID)
	}
	return st, nil
}

func merge(st *Stock, u Update) {
	if u.IronTablets != nil {
		st.IronTablets = *u.IronTablets
	}
	if u.TTVaccine != nil {
		st.TTVaccine = *u.TTVaccine
	}
	if u.FolicAcid != nil {
		st.FolicAcid = *u.FolicAcid
	}
	if u.CalciumTablets != nil {
		st.CalciumTablets = *u.CalciumTablets
	}
}

// MemoryStore is an in-memory Store for tests.

type MemoryStore struct {
	mu     sync.Mutex
	Stocks map[string]Stock // worker_id -> stock
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{Stocks: map[string]Stock{}} }

func (s *MemoryStore) GetOrCreate(ctx context.Context, workerID string) (Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(workerID), nil
}

func (s *MemoryStore) Apply(ctx context.Context, workerID string, u Update) (Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getOrCreateLocked(workerID)
	merge(&st, u)
	st.UpdatedAt = time.Now().UTC()
	s.Stocks[workerID] = st
	return st, nil
}

func (s *MemoryStore) getOrCreateLocked(workerID string) Stock {
	st, ok := s.Stocks[workerID]
	if !ok {
		st = Stock{ID: uuid.NewString(), WorkerID: workerID, UpdatedAt: time.Now().UTC()}
		s.Stocks[workerID] = st
	}
	return st
}
