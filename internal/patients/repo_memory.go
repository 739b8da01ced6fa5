package patients

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and early development.

type MemoryStore struct {
	mu      sync.Mutex
	Mothers map[string]Mother
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Mothers: map[string]Mother{}}
}

func (s *MemoryStore) Create(ctx context.Context, m Mother) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Mothers[m.ID] = m
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (Mother, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.Mothers[id]
	if !ok {
		return Mother{}, ErrNotFound
	}
	return m, nil
}

func (s *MemoryStore) GetByPhone(ctx context.Context, phone string) (Mother, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.Mothers {
		if m.Phone == phone {
			return m, nil
		}
	}
	return Mother{}, ErrNotFound
}

func (s *MemoryStore) ListByWorker(ctx context.Context, workerID string, flagged *bool) ([]Mother, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Mother, 0)
	for _, m := range s.Mothers {
		if m.WorkerID != workerID {
			continue
		}
		if flagged != nil && m.Flagged != *flagged {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, m Mother) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Mothers[m.ID]; !ok {
		return ErrNotFound
	}
	s.Mothers[m.ID] = m
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Mothers[id]; !ok {
		return ErrNotFound
	}
	delete(s.Mothers, id)
	return nil
}

func (s *MemoryStore) SetFlagged(ctx context.Context, id string, flagged bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.Mothers[id]
	if !ok {
		return ErrNotFound
	}
	m.Flagged = flagged
	s.Mothers[id] = m
	return nil
}

func (s *MemoryStore) StatsByWorker(ctx context.Context, workerID string) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st Stats
	for _, m := range s.Mothers {
		if m.WorkerID != workerID {
			continue
		}
		st.TotalMothers++
		if m.Flagged {
			st.FlaggedMothers++
		}
		if m.Visited {
			st.VisitedMothers++
		}
		if m.HealthStatus == HealthStatusPCOS {
			st.PCOSMothers++
		}
		if m.PostPregnancy {
			st.PostPregnancyMothers++
		}
	}
	return st, nil
}

func (s *MemoryStore) CountNextAppointmentsBetween(ctx context.Context, workerID string, from, to time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.Mothers {
		if m.WorkerID != workerID || m.NextAppointmentDate == nil {
			continue
		}
		d := *m.NextAppointmentDate
		if !d.Before(from) && !d.After(to) {
			n++
		}
	}
	return n, nil
}
