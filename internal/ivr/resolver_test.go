package ivr

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"kannamma-platform/internal/calllog"
	"kannamma-platform/internal/patients"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestResolver(t *testing.T) (*Resolver, *patients.MemoryStore, *calllog.MemoryStore) {
	t.Helper()
	mothers := patients.NewMemoryStore()
	attempts := calllog.NewMemoryStore(mothers)
	return NewResolver(mothers, attempts, nil), mothers, attempts
}

func seedMother(t *testing.T, store *patients.MemoryStore, id, phone string) patients.Mother {
	t.Helper()
	m := patients.Mother{
		ID:       id,
		WorkerID: "asha-1",
		Name:     "Lakshmi",
		Phone:    phone,
	}
	if err := store.Create(context.Background(), m); err != nil {
		t.Fatalf("seed mother: %v", err)
	}
	return m
}

func TestLookupMatchesAnyStoredEncoding(t *testing.T) {
	storedForms := []string{"9876543210", "+919876543210"}
	callerForms := []string{"+919876543210", "9876543210", "919876543210", "+91 98765 43210"}

	for _, stored := range storedForms {
		for _, caller := range callerForms {
			r, mothers, _ := newTestResolver(t)
			seedMother(t, mothers, "m1", stored)

			res, err := r.HandleEvent(context.Background(), testLogger(), WebhookEvent{
				ProviderCallID: "CA1",
				CallerNumber:   caller,
				Status:         "ringing",
			})
			if err != nil {
				t.Errorf("stored %q caller %q: unexpected error %v", stored, caller, err)
				continue
			}
			if res.TwiML == "" {
				t.Errorf("stored %q caller %q: expected prompt", stored, caller)
			}
		}
	}
}

func TestLookupPrefersLeastTransformedForm(t *testing.T) {
	r, mothers, _ := newTestResolver(t)
	seedMother(t, mothers, "bare", "9876543210")
	seedMother(t, mothers, "canonical", "+919876543210")

	m, strategy, err := r.resolveMother(context.Background(), "+919876543210")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m.ID != "bare" {
		t.Fatalf("expected bare-digits row to win, got %s", m.ID)
	}
	if strategy != "bare_digits" {
		t.Fatalf("strategy = %s, want bare_digits", strategy)
	}
}

func TestMissingCallerNumberRejected(t *testing.T) {
	r, _, attempts := newTestResolver(t)
	_, err := r.HandleEvent(context.Background(), testLogger(), WebhookEvent{Status: "ringing"})
	if err != ErrMissingCaller {
		t.Fatalf("err = %v, want ErrMissingCaller", err)
	}
	if len(attempts.Attempts) != 0 {
		t.Fatalf("expected no attempts, got %d", len(attempts.Attempts))
	}
}

func TestUnmatchedCallerNothingLogged(t *testing.T) {
	r, _, attempts := newTestResolver(t)
	_, err := r.HandleEvent(context.Background(), testLogger(), WebhookEvent{
		CallerNumber: "+919999999999",
		Status:       "completed",
	})
	if err != ErrMotherNotFound {
		t.Fatalf("err = %v, want ErrMotherNotFound", err)
	}
	if len(attempts.Attempts) != 0 {
		t.Fatalf("expected no attempts for unmatched caller, got %d", len(attempts.Attempts))
	}
}

func TestRingingReturnsInitialPrompt(t *testing.T) {
	r, mothers, attempts := newTestResolver(t)
	seedMother(t, mothers, "m1", "9876543210")

	res, err := r.HandleEvent(context.Background(), testLogger(), WebhookEvent{
		CallerNumber: "9876543210",
		Status:       "ringing",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(res.TwiML, "Gather") || !strings.Contains(res.TwiML, "Lakshmi") {
		t.Fatalf("unexpected prompt: %s", res.TwiML)
	}
	if len(attempts.Attempts) != 0 {
		t.Fatalf("ringing must not log, got %d attempts", len(attempts.Attempts))
	}
}

func TestActiveWithoutDigitsReplaysMenu(t *testing.T) {
	r, mothers, attempts := newTestResolver(t)
	seedMother(t, mothers, "m1", "9876543210")

	res, err := r.HandleEvent(context.Background(), testLogger(), WebhookEvent{
		CallerNumber: "9876543210",
		Status:       "in-progress",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(res.TwiML, "Gather") {
		t.Fatalf("expected menu replay, got: %s", res.TwiML)
	}
	if len(attempts.Attempts) != 0 {
		t.Fatalf("digitless active event must not log, got %d attempts", len(attempts.Attempts))
	}
}

func TestDigitOneLogsAnswered(t *testing.T) {
	r, mothers, attempts := newTestResolver(t)
	seedMother(t, mothers, "m1", "9876543210")

	res, err := r.HandleEvent(context.Background(), testLogger(), WebhookEvent{
		ProviderCallID: "CA1",
		CallerNumber:   "9876543210",
		Status:         "in-progress",
		Digits:         "1",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(res.TwiML, "Thank you for confirming") {
		t.Fatalf("unexpected prompt: %s", res.TwiML)
	}
	if len(attempts.Attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(attempts.Attempts))
	}
	a := attempts.Attempts[0]
	if a.Outcome != calllog.OutcomeAnswered {
		t.Fatalf("outcome = %s, want answered", a.Outcome)
	}
	if a.Phone != "9876543210" || a.MotherID != "m1" || a.WorkerID != "asha-1" {
		t.Fatalf("attempt misattributed: %+v", a)
	}
	m, _ := mothers.GetByID(context.Background(), "m1")
	if m.Flagged {
		t.Fatal("digit 1 must not flag the mother")
	}
}

func TestDigitTwoLogsAndFlags(t *testing.T) {
	r, mothers, attempts := newTestResolver(t)
	seedMother(t, mothers, "m1", "9876543210")

	_, err := r.HandleEvent(context.Background(), testLogger(), WebhookEvent{
		CallerNumber: "9876543210",
		Status:       "in-progress",
		Digits:       "2",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(attempts.Attempts) != 1 || attempts.Attempts[0].Outcome != calllog.OutcomePressed2 {
		t.Fatalf("expected one pressed_2 attempt, got %+v", attempts.Attempts)
	}
	m, _ := mothers.GetByID(context.Background(), "m1")
	if !m.Flagged {
		t.Fatal("digit 2 must flag the mother")
	}
}

func TestDigitTwoRepeatedKeepsFlagAndAppendsRows(t *testing.T) {
	r, mothers, attempts := newTestResolver(t)
	seedMother(t, mothers, "m1", "9876543210")

	ev := WebhookEvent{CallerNumber: "9876543210", Status: "in-progress", Digits: "2"}
	for i := 0; i < 2; i++ {
		if _, err := r.HandleEvent(context.Background(), testLogger(), ev); err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
	}
	// Redelivery appends a second row; the flag write is set-to-true and
	// repeat-safe.
	if len(attempts.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(attempts.Attempts))
	}
	m, _ := mothers.GetByID(context.Background(), "m1")
	if !m.Flagged {
		t.Fatal("flag must survive redelivery")
	}
}

func TestInvalidDigitPromptsWithoutLogging(t *testing.T) {
	r, mothers, attempts := newTestResolver(t)
	seedMother(t, mothers, "m1", "9876543210")

	res, err := r.HandleEvent(context.Background(), testLogger(), WebhookEvent{
		CallerNumber: "9876543210",
		Status:       "in-progress",
		Digits:       "9",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(res.TwiML, "Invalid option") {
		t.Fatalf("unexpected prompt: %s", res.TwiML)
	}
	if len(attempts.Attempts) != 0 {
		t.Fatalf("invalid digit must not log, got %d attempts", len(attempts.Attempts))
	}
}

func TestCompletedZeroDurationFlagsNotAnswered(t *testing.T) {
	r, mothers, attempts := newTestResolver(t)
	seedMother(t, mothers, "m1", "9876543210")

	res, err := r.HandleEvent(context.Background(), testLogger(), WebhookEvent{
		ProviderCallID: "CA1",
		CallerNumber:   "+919876543210",
		Status:         "completed",
		Raw:            map[string]string{"CallStatus": "completed", "CallDuration": "0"},
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !res.Logged || res.TwiML != "" {
		t.Fatalf("terminal event should log without markup: %+v", res)
	}
	if len(attempts.Attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(attempts.Attempts))
	}
	a := attempts.Attempts[0]
	if a.Outcome != calllog.OutcomeNotAnswered {
		t.Fatalf("outcome = %s, want not_answered", a.Outcome)
	}
	if a.DurationSeconds == nil || *a.DurationSeconds != 0 {
		t.Fatalf("duration = %v, want 0", a.DurationSeconds)
	}
	// Terminal rows keep the raw caller form, not the stored one.
	if a.Phone != "+919876543210" {
		t.Fatalf("phone = %s, want raw caller number", a.Phone)
	}
	if !strings.Contains(a.RawPayload, "CallDuration") {
		t.Fatalf("raw payload snapshot missing: %s", a.RawPayload)
	}
	m, _ := mothers.GetByID(context.Background(), "m1")
	if !m.Flagged {
		t.Fatal("unanswered call must flag the mother for follow-up")
	}
}

func TestCompletedWithDurationLogsAnswered(t *testing.T) {
	r, mothers, attempts := newTestResolver(t)
	seedMother(t, mothers, "m1", "9876543210")

	_, err := r.HandleEvent(context.Background(), testLogger(), WebhookEvent{
		CallerNumber:    "9876543210",
		Status:          "completed",
		DurationSeconds: 45,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	a := attempts.Attempts[0]
	if a.Outcome != calllog.OutcomeAnswered {
		t.Fatalf("outcome = %s, want answered", a.Outcome)
	}
	if a.DurationSeconds == nil || *a.DurationSeconds != 45 {
		t.Fatalf("duration = %v, want 45", a.DurationSeconds)
	}
	m, _ := mothers.GetByID(context.Background(), "m1")
	if m.Flagged {
		t.Fatal("answered call must not flag the mother")
	}
}

func TestUnknownStatusAcknowledgedWithoutAction(t *testing.T) {
	r, mothers, attempts := newTestResolver(t)
	seedMother(t, mothers, "m1", "9876543210")

	res, err := r.HandleEvent(context.Background(), testLogger(), WebhookEvent{
		CallerNumber: "9876543210",
		Status:       "queued",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.TwiML != "" || res.Logged {
		t.Fatalf("unknown status must be a silent ack, got %+v", res)
	}
	if len(attempts.Attempts) != 0 {
		t.Fatalf("expected no attempts, got %d", len(attempts.Attempts))
	}
}

// Full happy path: ringing, key press, hangup. The in-call response row and
// the terminal summary row are both kept.
func TestFullCallProducesResponseAndSummaryRows(t *testing.T) {
	r, mothers, attempts := newTestResolver(t)
	seedMother(t, mothers, "m1", "9876543210")

	events := []WebhookEvent{
		{ProviderCallID: "CA1", CallerNumber: "9876543210", Status: "ringing"},
		{ProviderCallID: "CA1", CallerNumber: "9876543210", Status: "in-progress", Digits: "1"},
		{ProviderCallID: "CA1", CallerNumber: "9876543210", Status: "completed", DurationSeconds: 45},
	}
	for i, ev := range events {
		if _, err := r.HandleEvent(context.Background(), testLogger(), ev); err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
	}

	if len(attempts.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(attempts.Attempts))
	}
	if attempts.Attempts[0].Outcome != calllog.OutcomeAnswered ||
		attempts.Attempts[1].Outcome != calllog.OutcomeAnswered {
		t.Fatalf("unexpected outcomes: %+v", attempts.Attempts)
	}
	if attempts.Attempts[0].DurationSeconds != nil {
		t.Fatal("in-call row must not carry a duration")
	}
	if attempts.Attempts[1].DurationSeconds == nil {
		t.Fatal("terminal row must carry the duration")
	}
}
