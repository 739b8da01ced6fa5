package ivr

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// WebhookEvent is the single internal shape for inbound provider callbacks.
//
// Twilio and Exotel name the same fields differently (CallSid vs CallId,
// From vs CallerNumber, and so on). All aliasing happens here at the
// boundary; nothing downstream branches on provider identity.
type WebhookEvent struct {
	ProviderCallID  string
	CallerNumber    string
	Status          string
	Digits          string
	DurationSeconds int

	// Raw preserves the full payload for the audit snapshot on terminal rows.
	Raw map[string]string
}

// RawJSON renders the payload snapshot stored on terminal call log rows.
func (e WebhookEvent) RawJSON() string {
	b, err := json.Marshal(e.Raw)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ParseWebhookEvent accepts either form-encoded (Twilio default) or JSON
// (Exotel) webhook bodies.
func ParseWebhookEvent(r *http.Request) (WebhookEvent, error) {
	raw, err := payloadFields(r)
	if err != nil {
		return WebhookEvent{}, err
	}

	ev := WebhookEvent{
		ProviderCallID: firstOf(raw, "CallSid", "CallId"),
		CallerNumber:   firstOf(raw, "From", "CallerNumber"),
		Status:         firstOf(raw, "CallStatus", "Status"),
		Digits:         firstOf(raw, "Digits", "DtmfDigits"),
		Raw:            raw,
	}
	if v := firstOf(raw, "CallDuration"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			ev.DurationSeconds = n
		}
	}
	return ev, nil
}

func payloadFields(r *http.Request) (map[string]string, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("ivr: invalid json body: %w", err)
		}
		out := make(map[string]string, len(body))
		for k, v := range body {
			out[k] = fmt.Sprint(v)
		}
		return out, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("ivr: invalid form body: %w", err)
	}
	out := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		out[k] = r.PostFormValue(k)
	}
	return out, nil
}

func firstOf(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return ""
}

// CallPhase is the lifecycle position a webhook event represents. Providers
// disagree on status vocabulary, so each phase owns an unordered token set.
type CallPhase int

const (
	PhaseUnknown CallPhase = iota
	PhaseStarted
	PhaseActive
	PhaseTerminated
)

func (p CallPhase) String() string {
	switch p {
	case PhaseStarted:
		return "started"
	case PhaseActive:
		return "active"
	case PhaseTerminated:
		return "terminated"
	}
	return "unknown"
}

// PhaseOf maps a provider status token to a CallPhase. Unrecognized tokens
// map to PhaseUnknown, which the resolver acknowledges without action.
// Matching is case-insensitive and trims whitespace, so "Completed" counts
// as terminated rather than falling through to the silent ack.
func PhaseOf(status string) CallPhase {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "ringing", "initiated":
		return PhaseStarted
	case "in-progress":
		return PhaseActive
	case "completed", "ended":
		return PhaseTerminated
	}
	return PhaseUnknown
}
