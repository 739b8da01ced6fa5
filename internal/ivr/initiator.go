package ivr

import (
	"context"

	"kannamma-platform/internal/patients"
)

// InitiateResult is the outbound-call outcome returned to the dashboard.
type InitiateResult struct {
	Success  bool   `json:"success"`
	CallSID  string `json:"call_sid,omitempty"`
	Status   string `json:"status,omitempty"`
	Provider string `json:"provider,omitempty"`
	Error    string `json:"error,omitempty"`
	Details  string `json:"details,omitempty"`
}

// Initiator originates outbound IVR calls.
//
// Provider selection happens once, from configuration: when Exotel
// credentials are present it is used exclusively, otherwise Twilio. There is
// no failover from one provider to the other within a call attempt; a failed
// attempt is surfaced as-is. (Failover on error would be a behavior change
// and needs its own decision.)
type Initiator struct {
	Twilio *TwilioClient
	Exotel *ExotelClient
}

func NewInitiator(twilio *TwilioClient, exotel *ExotelClient) *Initiator {
	return &Initiator{Twilio: twilio, Exotel: exotel}
}

func (i *Initiator) Initiate(ctx context.Context, m patients.Mother, callType string) InitiateResult {
	if callType == "" {
		callType = "reminder"
	}

	if i.Exotel.Configured() {
		sid, details, err := i.Exotel.ConnectCall(ctx, m.Phone, callType)
		if err != nil {
			return InitiateResult{
				Success:  false,
				Provider: "exotel",
				Error:    err.Error(),
				Details:  details,
			}
		}
		return InitiateResult{
			Success:  true,
			CallSID:  sid,
			Status:   "initiated",
			Provider: "exotel",
		}
	}

	if !i.Twilio.Configured() {
		return InitiateResult{Success: false, Error: "twilio credentials not configured"}
	}

	sid, status, err := i.Twilio.CreateCall(ctx, m.Phone)
	if err != nil {
		return InitiateResult{Success: false, Provider: "twilio", Error: err.Error()}
	}
	return InitiateResult{
		Success:  true,
		CallSID:  sid,
		Status:   status,
		Provider: "twilio",
	}
}
