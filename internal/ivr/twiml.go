package ivr

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"kannamma-platform/internal/patients"
)

// Minimal TwiML builder for the voice prompts. It intentionally avoids any
// provider SDK dependency; only the verbs this service speaks are modeled.
//
// Prompt text is content, not logic: the Tamil greeting lines stand in for
// pre-recorded audio in production.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName  xml.Name `xml:"Say"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName   xml.Name `xml:"Gather"`
	NumDigits int      `xml:"numDigits,attr"`
	Action    string   `xml:"action,attr"`
	Method    string   `xml:"method,attr"`
	Timeout   int      `xml:"timeout,attr"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

const (
	langTamil   = "ta-IN"
	langEnglish = "en-IN"
)

// PromptBuilder renders the telephony control documents for each call phase.
type PromptBuilder struct {
	// GatherAction is the webhook path DTMF input is posted back to.
	GatherAction string
}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{GatherAction: "/api/ivr/webhook"}
}

// InitialPrompt greets the mother and gathers one menu digit.
func (b *PromptBuilder) InitialPrompt(m patients.Mother) (string, error) {
	r := twimlResponse{Verbs: []any{
		twimlSay{
			Language: langTamil,
			Text:     fmt.Sprintf("வணக்கம் %s. இது கண்ணம்மா அமைப்பிலிருந்து அழைப்பு.", m.Name),
		},
		twimlSay{
			Language: langEnglish,
			Text: "This is a reminder call from Kannamma. Press 1 if you have taken your iron tablets today. " +
				"Press 2 if you need help. Press 3 to confirm your appointment.",
		},
		twimlGather{NumDigits: 1, Action: b.GatherAction, Method: "POST", Timeout: 10},
		twimlSay{
			Language: langEnglish,
			Text:     "We didn't receive your response. Please call back if you need assistance.",
		},
		twimlHangup{},
	}}
	return renderTwiML(r)
}

// DigitPrompt acknowledges a menu choice and hangs up.
func (b *PromptBuilder) DigitPrompt(digit string, m patients.Mother) (string, error) {
	var text string
	switch digit {
	case "1":
		text = "Thank you for confirming. Have a healthy day!"
	case "2":
		text = "We understand you need help. An ASHA worker will contact you soon. Thank you."
	case "3":
		if m.NextAppointmentDate != nil {
			text = fmt.Sprintf("Your next appointment is on %s. Please don't miss it. Thank you!",
				m.NextAppointmentDate.Format("January 2"))
		} else {
			text = "No upcoming appointment scheduled. Thank you!"
		}
	default:
		text = "Invalid option. Please call back if you need assistance."
	}
	r := twimlResponse{Verbs: []any{
		twimlSay{Language: langEnglish, Text: text},
		twimlHangup{},
	}}
	return renderTwiML(r)
}

func renderTwiML(r twimlResponse) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
