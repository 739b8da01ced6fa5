package patients

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService() (*Service, *MemoryStore) {
	store := NewMemoryStore()
	svc := NewService(store)
	return svc, store
}

func validCreateRequest() CreateRequest {
	return CreateRequest{
		Name:           "Lakshmi",
		Age:            24,
		Phone:          "9876543210",
		Address:        "12 Gandhi Street, Madurai",
		LastANCDate:    time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		GestationWeeks: 20,
	}
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _ := newTestService()

	m, err := svc.Create(context.Background(), "asha-1", validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.ID == "" {
		t.Error("expected generated id")
	}
	if m.HealthStatus != HealthStatusNormal {
		t.Errorf("health status = %s, want normal", m.HealthStatus)
	}
	if m.CycleLength != 28 {
		t.Errorf("cycle length = %d, want 28", m.CycleLength)
	}
	if !m.MedicationReminders {
		t.Error("medication reminders should default on")
	}
	if m.Flagged || m.Visited {
		t.Error("new records must start unflagged and unvisited")
	}
}

func TestCreateRejectsInvalidPhone(t *testing.T) {
	svc, _ := newTestService()

	for _, p := range []string{"", "12345", "98765432101", "+15551234567"} {
		req := validCreateRequest()
		req.Phone = p
		if _, err := svc.Create(context.Background(), "asha-1", req); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("phone %q: err = %v, want ErrInvalidArgument", p, err)
		}
	}
}

func TestOwnershipEnforced(t *testing.T) {
	svc, _ := newTestService()
	m, err := svc.Create(context.Background(), "asha-1", validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(context.Background(), "asha-2", m.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("cross-worker get: err = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(context.Background(), "asha-2", m.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("cross-worker delete: err = %v, want ErrForbidden", err)
	}
	if _, err := svc.Get(context.Background(), "asha-1", m.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
}

func TestGetUnknownMother(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Get(context.Background(), "asha-1", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateTouchesOnlyProvidedFields(t *testing.T) {
	svc, _ := newTestService()
	m, err := svc.Create(context.Background(), "asha-1", validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	flagged := true
	notes := "needs follow-up"
	got, err := svc.Update(context.Background(), "asha-1", m.ID, UpdateRequest{
		Flagged: &flagged,
		Notes:   &notes,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !got.Flagged || got.Notes != notes {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.Name != m.Name || got.Phone != m.Phone || got.CycleLength != m.CycleLength {
		t.Fatalf("untouched fields changed: %+v", got)
	}
}

func TestUpdateRejectsInvalidPhone(t *testing.T) {
	svc, _ := newTestService()
	m, _ := svc.Create(context.Background(), "asha-1", validCreateRequest())

	bad := "123"
	if _, err := svc.Update(context.Background(), "asha-1", m.ID, UpdateRequest{Phone: &bad}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestListFlaggedFilter(t *testing.T) {
	svc, store := newTestService()
	m1, _ := svc.Create(context.Background(), "asha-1", validCreateRequest())
	req2 := validCreateRequest()
	req2.Phone = "9876500000"
	m2, _ := svc.Create(context.Background(), "asha-1", req2)
	_ = store.SetFlagged(context.Background(), m2.ID, true)

	flagged := true
	out, err := svc.List(context.Background(), "asha-1", &flagged)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || out[0].ID != m2.ID {
		t.Fatalf("flagged filter broken: %+v", out)
	}

	out, err = svc.List(context.Background(), "asha-1", nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected both mothers, got %d", len(out))
	}
	_ = m1
}

func TestPeriodTracker(t *testing.T) {
	svc, _ := newTestService()
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }

	req := validCreateRequest()
	last := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	req.LastPeriodDate = &last
	req.CycleLength = 30
	m, err := svc.Create(context.Background(), "asha-1", req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sum, err := svc.PeriodTracker(context.Background(), "asha-1", m.ID)
	if err != nil {
		t.Fatalf("tracker: %v", err)
	}
	if sum.NextPeriodDate == nil || !sum.NextPeriodDate.Equal(last.AddDate(0, 0, 30)) {
		t.Fatalf("next period = %v", sum.NextPeriodDate)
	}
	if sum.DaysUntilNext == nil || *sum.DaysUntilNext != 19 {
		t.Fatalf("days until next = %v, want 19", sum.DaysUntilNext)
	}
}

func TestPeriodTrackerWithoutPeriodDate(t *testing.T) {
	svc, _ := newTestService()
	m, _ := svc.Create(context.Background(), "asha-1", validCreateRequest())

	sum, err := svc.PeriodTracker(context.Background(), "asha-1", m.ID)
	if err != nil {
		t.Fatalf("tracker: %v", err)
	}
	if sum.NextPeriodDate != nil || sum.DaysUntilNext != nil {
		t.Fatalf("expected empty projection, got %+v", sum)
	}
}
