package ivr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TwilioClient originates calls through the Twilio REST API. Kept SDK-free:
// one authenticated POST is all this service needs from the provider.
type TwilioClient struct {
	AccountSID string
	AuthToken  string
	FromNumber string

	// CallbackBaseURL must be reachable from the provider network.
	CallbackBaseURL string

	BaseURL    string
	HTTPClient *http.Client
}

const providerCallTimeout = 10 * time.Second

func NewTwilioClient(accountSID, authToken, fromNumber, callbackBaseURL string) *TwilioClient {
	return &TwilioClient{
		AccountSID:      accountSID,
		AuthToken:       authToken,
		FromNumber:      fromNumber,
		CallbackBaseURL: callbackBaseURL,
		BaseURL:         "https://api.twilio.com",
		HTTPClient:      &http.Client{Timeout: providerCallTimeout},
	}
}

func (c *TwilioClient) Configured() bool {
	return c != nil && c.AccountSID != "" && c.AuthToken != ""
}

type twilioCallResponse struct {
	Sid    string `json:"sid"`
	Status string `json:"status"`
}

// CreateCall asks Twilio to originate a call to `to`, pointing the call flow
// at this service's webhook. A transport error or timeout is returned raw;
// the caller surfaces it, never retries silently.
func (c *TwilioClient) CreateCall(ctx context.Context, to string) (callSID, status string, err error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.BaseURL, c.AccountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.FromNumber)
	form.Set("Url", c.CallbackBaseURL+"/api/ivr/webhook")
	form.Set("Method", "POST")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", err
	}
	req.SetBasicAuth(c.AccountSID, c.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", fmt.Errorf("twilio api error: %d: %s", resp.StatusCode, string(body))
	}

	var out twilioCallResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", "", fmt.Errorf("twilio response parse failed: %w", err)
	}
	return out.Sid, out.Status, nil
}
