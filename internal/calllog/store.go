package calllog

import (
	"context"
	"database/sql"
	"time"

	"kannamma-platform/pkg/utils"
)

// Store is the append-only ledger of call attempts.
//
// Record applies the attempt insert and the optional mother flag update as a
// single atomic unit: a dashboard read must never observe a not_answered or
// pressed_2 row while the mother is still unflagged, or the reverse. The flag
// write is set-to-true and therefore idempotent under provider retries;
// duplicate rows from retried terminal webhooks are an accepted risk.
type Store interface {
	Record(ctx context.Context, a Attempt, flagMother bool) error
	ListByWorker(ctx context.Context, workerID string, limit int) ([]Attempt, error)
	SummaryByWorker(ctx context.Context, workerID string, since time.Time) (Summary, error)
}

// NOTE: PostgresStore assumes a `call_logs` table matching the columns below
// (indexes on asha_id, mother_id, created_at) and writes the flag side effect
// to `mothers` in the same transaction.

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const attemptColumns = `id, asha_id, mother_id, phone, result, call_duration, call_sid, response_data, created_at`

func (s *PostgresStore) Record(ctx context.Context, a Attempt, flagMother bool) error {
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const q = `
INSERT INTO call_logs (` + attemptColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
		if _, err := tx.ExecContext(ctx, q,
			a.ID, a.WorkerID, a.MotherID, a.Phone, a.Outcome,
			a.DurationSeconds, a.ProviderCallID, a.RawPayload, a.CreatedAt,
		); err != nil {
			return err
		}
		if flagMother {
			if _, err := tx.ExecContext(ctx,
				`UPDATE mothers SET flagged = TRUE WHERE id = $1`, a.MotherID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) ListByWorker(ctx context.Context, workerID string, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT ` + attemptColumns + `
FROM call_logs
WHERE asha_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := s.db.QueryContext(ctx, q, workerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Attempt, 0)
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(
			&a.ID, &a.WorkerID, &a.MotherID, &a.Phone, &a.Outcome,
			&a.DurationSeconds, &a.ProviderCallID, &a.RawPayload, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SummaryByWorker(ctx context.Context, workerID string, since time.Time) (Summary, error) {
	const q = `
SELECT
  COUNT(*) FILTER (WHERE created_at >= $2),
  COUNT(*) FILTER (WHERE result = 'answered'),
  COUNT(*) FILTER (WHERE result = 'not_answered')
FROM call_logs
WHERE asha_id = $1
`
	var sum Summary
	err := s.db.QueryRowContext(ctx, q, workerID, since).Scan(
		&sum.RecentCalls, &sum.AnsweredCalls, &sum.NotAnsweredCalls,
	)
	return sum, err
}
