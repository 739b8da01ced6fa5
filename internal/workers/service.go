package workers

import (
	"context"
	"errors"
	"time"

	"kannamma-platform/internal/calllog"
	"kannamma-platform/internal/patients"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidArgument    = errors.New("workers: invalid argument")
	ErrInvalidCredentials = errors.New("workers: invalid credentials")
	ErrLoginIDTaken       = errors.New("workers: asha_id already exists")
)

type Service struct {
	store    Store
	mothers  patients.Store
	attempts calllog.Store
	clock    func() time.Time
}

func NewService(store Store, mothers patients.Store, attempts calllog.Store) *Service {
	return &Service{store: store, mothers: mothers, attempts: attempts, clock: time.Now}
}

type RegisterRequest struct {
	LoginID  string
	Password string
	Name     string
	PHCName  string
	Phone    string
	Email    string
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (Worker, error) {
	if req.LoginID == "" || req.Password == "" || req.Name == "" || req.PHCName == "" {
		return Worker{}, ErrInvalidArgument
	}
	if _, err := s.store.GetByLoginID(ctx, req.LoginID); err == nil {
		return Worker{}, ErrLoginIDTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Worker{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Worker{}, err
	}

	w := Worker{
		ID:           uuid.NewString(),
		LoginID:      req.LoginID,
		PasswordHash: string(hash),
		Name:         req.Name,
		PHCName:      req.PHCName,
		Phone:        req.Phone,
		Email:        req.Email,
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.store.Create(ctx, w); err != nil {
		return Worker{}, err
	}
	return w, nil
}

// Login checks credentials and returns the worker. Lookup misses and hash
// mismatches are indistinguishable to the caller on purpose.
func (s *Service) Login(ctx context.Context, loginID, password string) (Worker, error) {
	if loginID == "" || password == "" {
		return Worker{}, ErrInvalidArgument
	}
	w, err := s.store.GetByLoginID(ctx, loginID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Worker{}, ErrInvalidCredentials
		}
		return Worker{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(w.PasswordHash), []byte(password)); err != nil {
		return Worker{}, ErrInvalidCredentials
	}
	return w, nil
}

func (s *Service) Get(ctx context.Context, id string) (Worker, error) {
	return s.store.GetByID(ctx, id)
}

// Dashboard aggregates the landing-page numbers for one worker.
type Dashboard struct {
	TotalMothers         int `json:"total_mothers"`
	FlaggedMothers       int `json:"flagged_mothers"`
	RecentCalls          int `json:"recent_calls"`
	AnsweredCalls        int `json:"answered_calls"`
	NotAnsweredCalls     int `json:"not_answered_calls"`
	UpcomingAppointments int `json:"upcoming_appointments"`
}

func (s *Service) Dashboard(ctx context.Context, workerID string) (Dashboard, error) {
	if workerID == "" {
		return Dashboard{}, ErrInvalidArgument
	}
	if _, err := s.store.GetByID(ctx, workerID); err != nil {
		return Dashboard{}, err
	}

	stats, err := s.mothers.StatsByWorker(ctx, workerID)
	if err != nil {
		return Dashboard{}, err
	}

	now := s.clock().UTC()
	calls, err := s.attempts.SummaryByWorker(ctx, workerID, now.AddDate(0, 0, -7))
	if err != nil {
		return Dashboard{}, err
	}

	upcoming, err := s.mothers.CountNextAppointmentsBetween(ctx, workerID, now, now.AddDate(0, 0, 7))
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		TotalMothers:         stats.TotalMothers,
		FlaggedMothers:       stats.FlaggedMothers,
		RecentCalls:          calls.RecentCalls,
		AnsweredCalls:        calls.AnsweredCalls,
		NotAnsweredCalls:     calls.NotAnsweredCalls,
		UpcomingAppointments: upcoming,
	}, nil
}

// Stats returns the detailed per-worker patient counts.
func (s *Service) Stats(ctx context.Context, workerID string) (patients.Stats, error) {
	if workerID == "" {
		return patients.Stats{}, ErrInvalidArgument
	}
	return s.mothers.StatsByWorker(ctx, workerID)
}
