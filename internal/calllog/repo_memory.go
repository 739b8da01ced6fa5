package calllog

import (
	"context"
	"sort"
	"sync"
	"time"

	"kannamma-platform/internal/patients"
)

// MemoryStore is an in-memory Store for tests. When Mothers is set, Record
// applies the flag side effect to it under the same lock, matching the
// all-or-nothing semantics of the Postgres implementation.

type MemoryStore struct {
	mu       sync.Mutex
	Attempts []Attempt
	Mothers  *patients.MemoryStore
}

func NewMemoryStore(mothers *patients.MemoryStore) *MemoryStore {
	return &MemoryStore{Mothers: mothers}
}

func (s *MemoryStore) Record(ctx context.Context, a Attempt, flagMother bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if flagMother && s.Mothers != nil {
		if err := s.Mothers.SetFlagged(ctx, a.MotherID, true); err != nil {
			return err
		}
	}
	s.Attempts = append(s.Attempts, a)
	return nil
}

func (s *MemoryStore) ListByWorker(ctx context.Context, workerID string, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Attempt, 0)
	for _, a := range s.Attempts {
		if a.WorkerID == workerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SummaryByWorker(ctx context.Context, workerID string, since time.Time) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum Summary
	for _, a := range s.Attempts {
		if a.WorkerID != workerID {
			continue
		}
		if !a.CreatedAt.Before(since) {
			sum.RecentCalls++
		}
		switch a.Outcome {
		case OutcomeAnswered:
			sum.AnsweredCalls++
		case OutcomeNotAnswered:
			sum.NotAnsweredCalls++
		}
	}
	return sum, nil
}
