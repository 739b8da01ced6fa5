package ivr

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"kannamma-platform/internal/calllog"
	"kannamma-platform/internal/patients"
	"kannamma-platform/internal/phone"

	"github.com/google/uuid"
)

var (
	ErrMissingCaller  = errors.New("ivr: caller number not provided")
	ErrMotherNotFound = errors.New("ivr: mother not found")
)

// MotherDirectory is the patient lookup the resolver needs. Webhooks carry no
// worker identity, so this deliberately sidesteps the ownership-checked
// patients.Service.
type MotherDirectory interface {
	GetByPhone(ctx context.Context, p string) (patients.Mother, error)
}

// AttemptRecorder persists one call attempt, atomically flagging the mother
// when asked.
type AttemptRecorder interface {
	Record(ctx context.Context, a calllog.Attempt, flagMother bool) error
}

// Resolver reconciles inbound provider webhooks against known mothers and
// applies the per-phase outcome: prompt, response log, or terminal summary.
type Resolver struct {
	directory MotherDirectory
	attempts  AttemptRecorder
	prompts   *PromptBuilder
	clock     func() time.Time
}

func NewResolver(directory MotherDirectory, attempts AttemptRecorder, prompts *PromptBuilder) *Resolver {
	if prompts == nil {
		prompts = NewPromptBuilder()
	}
	return &Resolver{
		directory: directory,
		attempts:  attempts,
		prompts:   prompts,
		clock:     time.Now,
	}
}

// EventResult tells the HTTP layer how to answer the provider.
// TwiML set: respond with the markup. Logged set: a terminal row was written.
// Neither set: plain acknowledgment (unrecognized status, silent ignore).
type EventResult struct {
	TwiML  string
	Logged bool
}

// lookupStrategy derives one candidate phone key from the raw caller number.
// An empty key means the strategy does not apply.
type lookupStrategy struct {
	name string
	key  func(raw string) string
}

// Strategies run in strict order, first store hit wins. The least-transformed
// forms go first because legacy rows may hold any encoding; this order is
// format tolerance, not a business rule, and reordering it breaks matching
// against old records.
var lookupStrategies = []lookupStrategy{
	{name: "bare_digits", key: phone.BareDigits},
	{name: "canonical", key: phone.Normalize},
	{name: "raw", key: func(raw string) string { return raw }},
	{name: "bare_with_country", key: func(raw string) string {
		d := phone.BareDigits(raw)
		// The +91 guard can never fire on digits-only input. Kept anyway:
		// it documents the intended skip condition, and dropping it would
		// change nothing.
		if d == "" || strings.HasPrefix(d, "+91") {
			return ""
		}
		return "+91" + d
	}},
}

func (r *Resolver) resolveMother(ctx context.Context, raw string) (patients.Mother, string, error) {
	for _, s := range lookupStrategies {
		key := s.key(raw)
		if key == "" {
			continue
		}
		m, err := r.directory.GetByPhone(ctx, key)
		if err == nil {
			return m, s.name, nil
		}
		if !errors.Is(err, patients.ErrNotFound) {
			return patients.Mother{}, "", err
		}
	}
	return patients.Mother{}, "", ErrMotherNotFound
}

// HandleEvent runs the per-phase state machine for one webhook event.
//
// The provider network delivers at-least-once: a terminal event may arrive
// twice. The flag write is set-to-true and safe to repeat; a duplicate
// terminal row is accepted rather than deduplicated.
func (r *Resolver) HandleEvent(ctx context.Context, log *slog.Logger, ev WebhookEvent) (EventResult, error) {
	if ev.CallerNumber == "" {
		return EventResult{}, ErrMissingCaller
	}

	mother, strategy, err := r.resolveMother(ctx, ev.CallerNumber)
	if err != nil {
		return EventResult{}, err
	}

	phase := PhaseOf(ev.Status)
	log.Debug("ivr event",
		"call_sid", ev.ProviderCallID,
		"phase", phase.String(),
		"lookup", strategy,
		"mother_id", mother.ID,
	)

	switch phase {
	case PhaseStarted:
		twiml, err := r.prompts.InitialPrompt(mother)
		if err != nil {
			return EventResult{}, err
		}
		return EventResult{TwiML: twiml}, nil

	case PhaseActive:
		if ev.Digits == "" {
			// No input yet: replay the menu. Idempotent, nothing logged.
			twiml, err := r.prompts.InitialPrompt(mother)
			if err != nil {
				return EventResult{}, err
			}
			return EventResult{TwiML: twiml}, nil
		}
		return r.handleDigits(ctx, ev, mother)

	case PhaseTerminated:
		return r.handleTerminated(ctx, ev, mother)
	}

	// Unrecognized status token: acknowledge without action.
	return EventResult{}, nil
}

func (r *Resolver) handleDigits(ctx context.Context, ev WebhookEvent, m patients.Mother) (EventResult, error) {
	var (
		outcome calllog.Outcome
		flag    bool
	)
	switch ev.Digits {
	case "1", "3":
		outcome = calllog.OutcomeAnswered
	case "2":
		outcome = calllog.OutcomePressed2
		flag = true
	default:
		// Invalid menu choice: prompt only, no row.
		twiml, err := r.prompts.DigitPrompt(ev.Digits, m)
		if err != nil {
			return EventResult{}, err
		}
		return EventResult{TwiML: twiml}, nil
	}

	a := calllog.Attempt{
		ID:             uuid.NewString(),
		WorkerID:       m.WorkerID,
		MotherID:       m.ID,
		Phone:          m.Phone,
		Outcome:        outcome,
		ProviderCallID: ev.ProviderCallID,
		CreatedAt:      r.clock().UTC(),
	}
	if err := r.attempts.Record(ctx, a, flag); err != nil {
		return EventResult{}, err
	}

	twiml, err := r.prompts.DigitPrompt(ev.Digits, m)
	if err != nil {
		return EventResult{}, err
	}
	return EventResult{TwiML: twiml}, nil
}

func (r *Resolver) handleTerminated(ctx context.Context, ev WebhookEvent, m patients.Mother) (EventResult, error) {
	outcome := calllog.OutcomeNotAnswered
	if ev.DurationSeconds > 0 {
		outcome = calllog.OutcomeAnswered
	}

	duration := ev.DurationSeconds
	a := calllog.Attempt{
		ID:              uuid.NewString(),
		WorkerID:        m.WorkerID,
		MotherID:        m.ID,
		Phone:           ev.CallerNumber,
		Outcome:         outcome,
		DurationSeconds: &duration,
		ProviderCallID:  ev.ProviderCallID,
		RawPayload:      ev.RawJSON(),
		CreatedAt:       r.clock().UTC(),
	}
	if err := r.attempts.Record(ctx, a, outcome == calllog.OutcomeNotAnswered); err != nil {
		return EventResult{}, err
	}
	return EventResult{Logged: true}, nil
}
