package ivr

import (
	"strings"
	"testing"
	"time"

	"kannamma-platform/internal/patients"
)

func TestInitialPromptStructure(t *testing.T) {
	b := NewPromptBuilder()
	out, err := b.InitialPrompt(patients.Mother{Name: "Lakshmi"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`language="ta-IN"`,
		`language="en-IN"`,
		"Lakshmi",
		`numDigits="1"`,
		`action="/api/ivr/webhook"`,
		`method="POST"`,
		"<Hangup>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("prompt missing %q:\n%s", want, out)
		}
	}
}

func TestDigitPromptAppointmentDate(t *testing.T) {
	b := NewPromptBuilder()
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	out, err := b.DigitPrompt("3", patients.Mother{NextAppointmentDate: &date})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "September 14") {
		t.Fatalf("expected spoken appointment date, got:\n%s", out)
	}
}

func TestDigitPromptWithoutAppointment(t *testing.T) {
	b := NewPromptBuilder()
	out, err := b.DigitPrompt("3", patients.Mother{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "No upcoming appointment") {
		t.Fatalf("unexpected prompt:\n%s", out)
	}
}

func TestDigitPromptBranches(t *testing.T) {
	b := NewPromptBuilder()
	cases := []struct {
		digit string
		want  string
	}{
		{"1", "Thank you for confirming"},
		{"2", "ASHA worker will contact you"},
		{"7", "Invalid option"},
	}
	for _, tc := range cases {
		out, err := b.DigitPrompt(tc.digit, patients.Mother{})
		if err != nil {
			t.Fatalf("digit %s: %v", tc.digit, err)
		}
		if !strings.Contains(out, tc.want) {
			t.Errorf("digit %s: missing %q in:\n%s", tc.digit, tc.want, out)
		}
	}
}
