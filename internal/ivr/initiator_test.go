package ivr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"kannamma-platform/internal/patients"
)

func TestTwilioCreateCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Calls.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "token" {
			t.Error("missing or wrong basic auth")
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("form: %v", err)
		}
		if got := r.PostFormValue("To"); got != "+919876543210" {
			t.Errorf("To = %s", got)
		}
		if got := r.PostFormValue("Url"); got != "https://api.example.com/api/ivr/webhook" {
			t.Errorf("Url = %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"CA999","status":"queued"}`))
	}))
	defer srv.Close()

	c := NewTwilioClient("AC123", "token", "+1555000", "https://api.example.com")
	c.BaseURL = srv.URL

	sid, status, err := c.CreateCall(context.Background(), "+919876543210")
	if err != nil {
		t.Fatalf("create call: %v", err)
	}
	if sid != "CA999" || status != "queued" {
		t.Fatalf("sid=%s status=%s", sid, status)
	}
}

func TestTwilioCreateCallAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"authenticate"}`))
	}))
	defer srv.Close()

	c := NewTwilioClient("AC123", "bad", "+1555000", "https://api.example.com")
	c.BaseURL = srv.URL

	if _, _, err := c.CreateCall(context.Background(), "+919876543210"); err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestExotelConnectCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/Accounts/key1/Calls/connect.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("form: %v", err)
		}
		if got := r.PostFormValue("caller_id"); got != "04446313131" {
			t.Errorf("caller_id = %s", got)
		}
		if got := r.PostFormValue("call_type"); got != "reminder" {
			t.Errorf("call_type = %s", got)
		}
		w.Write([]byte(`{"Call":{"Sid":"EX42"}}`))
	}))
	defer srv.Close()

	c := NewExotelClient("key1", "tok1", "acme", "04446313131", "https://api.example.com")
	c.BaseURL = srv.URL

	sid, details, err := c.ConnectCall(context.Background(), "+919876543210", "reminder")
	if err != nil {
		t.Fatalf("connect: %v (details %s)", err, details)
	}
	if sid != "EX42" {
		t.Fatalf("sid = %s, want EX42", sid)
	}
}

func TestExotelConnectCallPendingSid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewExotelClient("key1", "tok1", "acme", "04446313131", "https://api.example.com")
	c.BaseURL = srv.URL

	sid, _, err := c.ConnectCall(context.Background(), "+919876543210", "reminder")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if sid != "pending" {
		t.Fatalf("sid = %s, want pending placeholder", sid)
	}
}

func TestExotelConnectCallAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"RestException":{"Message":"denied"}}`))
	}))
	defer srv.Close()

	c := NewExotelClient("key1", "tok1", "acme", "04446313131", "https://api.example.com")
	c.BaseURL = srv.URL

	_, details, err := c.ConnectCall(context.Background(), "+919876543210", "reminder")
	if err == nil {
		t.Fatal("expected error on 403")
	}
	if details == "" {
		t.Fatal("expected response body in details")
	}
}

// Exotel credentials make Exotel the exclusive provider; Twilio must not be
// contacted even when fully configured.
func TestInitiatorExotelExclusive(t *testing.T) {
	twilioSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("twilio must not be called when exotel is configured")
	}))
	defer twilioSrv.Close()
	exotelSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Call":{"Sid":"EX1"}}`))
	}))
	defer exotelSrv.Close()

	twilio := NewTwilioClient("AC123", "token", "+1555000", "https://api.example.com")
	twilio.BaseURL = twilioSrv.URL
	exotel := NewExotelClient("key1", "tok1", "acme", "04446313131", "https://api.example.com")
	exotel.BaseURL = exotelSrv.URL

	res := NewInitiator(twilio, exotel).Initiate(context.Background(), patients.Mother{Phone: "+919876543210"}, "")
	if !res.Success || res.Provider != "exotel" || res.CallSID != "EX1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Status != "initiated" {
		t.Fatalf("status = %s, want initiated", res.Status)
	}
}

// Exotel failure is surfaced as-is; there is no silent retry via Twilio.
func TestInitiatorNoFailover(t *testing.T) {
	twilioSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("failover to twilio is not a thing")
	}))
	defer twilioSrv.Close()
	exotelSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer exotelSrv.Close()

	twilio := NewTwilioClient("AC123", "token", "+1555000", "https://api.example.com")
	twilio.BaseURL = twilioSrv.URL
	exotel := NewExotelClient("key1", "tok1", "acme", "04446313131", "https://api.example.com")
	exotel.BaseURL = exotelSrv.URL

	res := NewInitiator(twilio, exotel).Initiate(context.Background(), patients.Mother{Phone: "+919876543210"}, "")
	if res.Success {
		t.Fatalf("expected failure, got %+v", res)
	}
	if res.Provider != "exotel" {
		t.Fatalf("provider = %s, want exotel", res.Provider)
	}
}

func TestInitiatorFallsBackToTwilioWhenExotelUnconfigured(t *testing.T) {
	twilioSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sid":"CA1","status":"queued"}`))
	}))
	defer twilioSrv.Close()

	twilio := NewTwilioClient("AC123", "token", "+1555000", "https://api.example.com")
	twilio.BaseURL = twilioSrv.URL
	exotel := NewExotelClient("", "", "", "", "")

	res := NewInitiator(twilio, exotel).Initiate(context.Background(), patients.Mother{Phone: "+919876543210"}, "checkup")
	if !res.Success || res.Provider != "twilio" || res.CallSID != "CA1" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestInitiatorNoProviderConfigured(t *testing.T) {
	res := NewInitiator(NewTwilioClient("", "", "", ""), NewExotelClient("", "", "", "", "")).
		Initiate(context.Background(), patients.Mother{Phone: "+919876543210"}, "")
	if res.Success || res.Error == "" {
		t.Fatalf("expected configuration error, got %+v", res)
	}
}
