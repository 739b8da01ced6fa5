package ivr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ExotelClient originates calls through the Exotel connect API.
// Docs: https://exotel.com/api/#initiate-call
type ExotelClient struct {
	APIKey    string
	APIToken  string
	Subdomain string

	// FromNumber is the Exotel virtual number used as both leg-A and caller id.
	FromNumber      string
	CallbackBaseURL string

	// BaseURL overrides the https://<subdomain>.exotel.com default in tests.
	BaseURL    string
	HTTPClient *http.Client
}

func NewExotelClient(apiKey, apiToken, subdomain, fromNumber, callbackBaseURL string) *ExotelClient {
	return &ExotelClient{
		APIKey:          apiKey,
		APIToken:        apiToken,
		Subdomain:       subdomain,
		FromNumber:      fromNumber,
		CallbackBaseURL: callbackBaseURL,
		HTTPClient:      &http.Client{Timeout: providerCallTimeout},
	}
}

func (c *ExotelClient) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fmt.Sprintf("https://%s.exotel.com", c.Subdomain)
}

func (c *ExotelClient) Configured() bool {
	return c != nil && c.APIKey != "" && c.APIToken != ""
}

// pendingCallSID is reported when Exotel accepts the call but omits the Sid.
const pendingCallSID = "pending"

type exotelConnectResponse struct {
	Call struct {
		Sid string `json:"Sid"`
	} `json:"Call"`
}

// ConnectCall asks Exotel to originate a call. Any 200/201 is success; the
// call identifier defaults to "pending" when the response omits it. Other
// statuses return the code and body for diagnostics.
func (c *ExotelClient) ConnectCall(ctx context.Context, to, callType string) (callSID string, details string, err error) {
	endpoint := c.baseURL() + fmt.Sprintf("/v1/Accounts/%s/Calls/connect.json", c.APIKey)

	form := url.Values{}
	form.Set("from", c.FromNumber)
	form.Set("to", to)
	form.Set("caller_id", c.FromNumber)
	form.Set("url", c.CallbackBaseURL+"/api/ivr/webhook")
	form.Set("call_type", callType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", err
	}
	req.SetBasicAuth(c.APIKey, c.APIToken)
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
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", string(body), fmt.Errorf("exotel api error: %d", resp.StatusCode)
	}

	var out exotelConnectResponse
	if err := json.Unmarshal(body, &out); err != nil || out.Call.Sid == "" {
		return pendingCallSID, "", nil
	}
	return out.Call.Sid, "", nil
}
