package ivr

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"kannamma-platform/internal/calllog"
	"kannamma-platform/internal/patients"

	"github.com/gin-gonic/gin"
)

func newWebhookRouter(t *testing.T) (*gin.Engine, *patients.MemoryStore, *calllog.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mothers := patients.NewMemoryStore()
	attempts := calllog.NewMemoryStore(mothers)
	h := &Handler{
		Resolver: NewResolver(mothers, attempts, nil),
		Mothers:  patients.NewService(mothers),
		Attempts: attempts,
	}

	r := gin.New()
	r.POST("/api/ivr/webhook", h.HandleWebhook)
	return r, mothers, attempts
}

func postWebhookForm(r *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/ivr/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookEndpointPromptFlow(t *testing.T) {
	r, mothers, _ := newWebhookRouter(t)
	seedMother(t, mothers, "m1", "9876543210")

	w := postWebhookForm(r, url.Values{
		"CallSid":    {"CA1"},
		"From":       {"+919876543210"},
		"CallStatus": {"ringing"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Fatalf("content type = %s, want application/xml", ct)
	}
	if !strings.Contains(w.Body.String(), "Gather") {
		t.Fatalf("expected prompt markup, got %s", w.Body.String())
	}
}

func TestWebhookEndpointTerminalLogs(t *testing.T) {
	r, mothers, attempts := newWebhookRouter(t)
	seedMother(t, mothers, "m1", "9876543210")

	w := postWebhookForm(r, url.Values{
		"CallSid":      {"CA1"},
		"From":         {"9876543210"},
		"CallStatus":   {"completed"},
		"CallDuration": {"30"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"status":"logged"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
	if len(attempts.Attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(attempts.Attempts))
	}
}

func TestWebhookEndpointUnknownCaller(t *testing.T) {
	r, _, attempts := newWebhookRouter(t)

	w := postWebhookForm(r, url.Values{
		"From":       {"+919999999999"},
		"CallStatus": {"completed"},
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if len(attempts.Attempts) != 0 {
		t.Fatalf("unmatched caller must not log, got %d", len(attempts.Attempts))
	}
}

func TestWebhookEndpointMissingCaller(t *testing.T) {
	r, _, _ := newWebhookRouter(t)

	w := postWebhookForm(r, url.Values{"CallStatus": {"ringing"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "phone number not provided") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestWebhookEndpointUnknownStatusAck(t *testing.T) {
	r, mothers, _ := newWebhookRouter(t)
	seedMother(t, mothers, "m1", "9876543210")

	w := postWebhookForm(r, url.Values{
		"From":       {"9876543210"},
		"CallStatus": {"queued"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}
