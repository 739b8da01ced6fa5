package patients

import (
	"context"
	"errors"
	"time"

	"kannamma-platform/internal/phone"

	"github.com/google/uuid"
)

var (
	ErrInvalidArgument = errors.New("patients: invalid argument")
	ErrForbidden       = errors.New("patients: worker does not own this patient")
)

// Service enforces ownership on every patient operation: an ASHA worker can
// only read or mutate mothers assigned to them. The IVR resolver bypasses
// this service on purpose (webhooks carry no worker identity) and goes
// straight to the Store phone lookup.
type Service struct {
	store Store
	clock func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, clock: time.Now}
}

type CreateRequest struct {
	Name    string
	Age     int
	Phone   string
	Address string

	LastANCDate    time.Time
	GestationWeeks int

	HealthStatus        HealthStatus
	NextAppointmentDate *time.Time
	LastPeriodDate      *time.Time
	CycleLength         int
	PostPregnancy       bool
}

func (s *Service) Create(ctx context.Context, workerID string, req CreateRequest) (Mother, error) {
	if workerID == "" || req.Name == "" || req.Address == "" || req.Age <= 0 {
		return Mother{}, ErrInvalidArgument
	}
	if req.LastANCDate.IsZero() || req.GestationWeeks < 0 {
		return Mother{}, ErrInvalidArgument
	}
	if !phone.Valid(req.Phone) {
		return Mother{}, ErrInvalidArgument
	}

	m := Mother{
		ID:                  uuid.NewString(),
		WorkerID:            workerID,
		Name:                req.Name,
		Age:                 req.Age,
		Phone:               req.Phone,
		Address:             req.Address,
		LastANCDate:         req.LastANCDate,
		GestationWeeks:      req.GestationWeeks,
		HealthStatus:        req.HealthStatus,
		NextAppointmentDate: req.NextAppointmentDate,
		MedicationReminders: true,
		LastPeriodDate:      req.LastPeriodDate,
		CycleLength:         req.CycleLength,
		PostPregnancy:       req.PostPregnancy,
		CreatedAt:           s.clock().UTC(),
	}
	if m.HealthStatus == "" {
		m.HealthStatus = HealthStatusNormal
	}
	if m.CycleLength == 0 {
		m.CycleLength = 28
	}
	if err := s.store.Create(ctx, m); err != nil {
		return Mother{}, err
	}
	return m, nil
}

// Get returns the mother only if the worker owns her.
func (s *Service) Get(ctx context.Context, workerID, motherID string) (Mother, error) {
	m, err := s.store.GetByID(ctx, motherID)
	if err != nil {
		return Mother{}, err
	}
	if m.WorkerID != workerID {
		return Mother{}, ErrForbidden
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, workerID string, flagged *bool) ([]Mother, error) {
	if workerID == "" {
		return nil, ErrInvalidArgument
	}
	return s.store.ListByWorker(ctx, workerID, flagged)
}

// UpdateRequest carries optional field updates; nil pointers leave the
// current value untouched.
type UpdateRequest struct {
	Name                *string
	Age                 *int
	Phone               *string
	Address             *string
	LastANCDate         *time.Time
	GestationWeeks      *int
	Flagged             *bool
	Visited             *bool
	Notes               *string
	HealthStatus        *HealthStatus
	NextAppointmentDate *time.Time
	MedicationReminders *bool
	LastPeriodDate      *time.Time
	CycleLength         *int
	PostPregnancy       *bool
}

func (s *Service) Update(ctx context.Context, workerID, motherID string, req UpdateRequest) (Mother, error) {
	m, err := s.Get(ctx, workerID, motherID)
	if err != nil {
		return Mother{}, err
	}
	if req.Name != nil {
		m.Name = *req.Name
	}
	if req.Age != nil {
		m.Age = *req.Age
	}
	if req.Phone != nil {
		if !phone.Valid(*req.Phone) {
			return Mother{}, ErrInvalidArgument
		}
		m.Phone = *req.Phone
	}
	if req.Address != nil {
		m.Address = *req.Address
	}
	if req.LastANCDate != nil {
		m.LastANCDate = *req.LastANCDate
	}
	if req.GestationWeeks != nil {
		m.GestationWeeks = *req.GestationWeeks
	}
	if req.Flagged != nil {
		m.Flagged = *req.Flagged
	}
	if req.Visited != nil {
		m.Visited = *req.Visited
	}
	if req.Notes != nil {
		m.Notes = *req.Notes
	}
	if req.HealthStatus != nil {
		m.HealthStatus = *req.HealthStatus
	}
	if req.NextAppointmentDate != nil {
		m.NextAppointmentDate = req.NextAppointmentDate
	}
	if req.MedicationReminders != nil {
		m.MedicationReminders = *req.MedicationReminders
	}
	if req.LastPeriodDate != nil {
		m.LastPeriodDate = req.LastPeriodDate
	}
	if req.CycleLength != nil {
		m.CycleLength = *req.CycleLength
	}
	if req.PostPregnancy != nil {
		m.PostPregnancy = *req.PostPregnancy
	}
	if err := s.store.Update(ctx, m); err != nil {
		return Mother{}, err
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, workerID, motherID string) error {
	if _, err := s.Get(ctx, workerID, motherID); err != nil {
		return err
	}
	return s.store.Delete(ctx, motherID)
}

// PeriodSummary is the period-tracker view for one mother.
type PeriodSummary struct {
	MotherID       string     `json:"mother_id"`
	LastPeriodDate *time.Time `json:"last_period_date"`
	CycleLength    int        `json:"cycle_length"`
	NextPeriodDate *time.Time `json:"next_period_date"`
	DaysUntilNext  *int       `json:"days_until_next"`
	GestationWeeks int        `json:"gestation_weeks"`
}

func (s *Service) PeriodTracker(ctx context.Context, workerID, motherID string) (PeriodSummary, error) {
	m, err := s.Get(ctx, workerID, motherID)
	if err != nil {
		return PeriodSummary{}, err
	}
	now := s.clock().UTC()
	out := PeriodSummary{
		MotherID:       m.ID,
		LastPeriodDate: m.LastPeriodDate,
		CycleLength:    m.CycleLength,
		GestationWeeks: gestationWeeks(m.LastANCDate, now),
	}
	if m.LastPeriodDate != nil {
		next := nextPeriodDate(*m.LastPeriodDate, m.CycleLength)
		out.NextPeriodDate = &next
		days := int(next.Sub(now).Hours() / 24)
		out.DaysUntilNext = &days
	}
	return out, nil
}
