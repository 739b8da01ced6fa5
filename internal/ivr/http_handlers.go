package ivr

import (
	"errors"
	"net/http"
	"time"

	"kannamma-platform/internal/auth"
	"kannamma-platform/internal/calllog"
	"kannamma-platform/internal/patients"
	"kannamma-platform/internal/schedule"
	"kannamma-platform/pkg/logger"
	"kannamma-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Handler wires the IVR flows to HTTP. Thin by design: parse input, delegate
// to the resolver/initiator, map errors to status codes.
type Handler struct {
	Resolver  *Resolver
	Initiator *Initiator

	Mothers   *patients.Service
	Attempts  calllog.Store
	Schedules schedule.Store

	// Redis caps concurrent outbound calls per worker. Optional: nil disables
	// the cap (tests, local runs without redis).
	Redis              *redis.Client
	MaxConcurrentCalls int

	Now func() time.Time
}

// HandleWebhook processes inbound provider callbacks. Public endpoint: the
// provider network cannot present a worker bearer token.
func (h *Handler) HandleWebhook(c *gin.Context) {
	log := logger.FromGin(c)

	ev, err := ParseWebhookEvent(c.Request)
	if err != nil {
		log.Warn("ivr webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	res, err := h.Resolver.HandleEvent(c.Request.Context(), log, ev)
	switch {
	case errors.Is(err, ErrMissingCaller):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "phone number not provided"})
		return
	case errors.Is(err, ErrMotherNotFound):
		// Terminal dead end: the event is dropped, nothing logged.
		log.Warn("ivr webhook unmatched caller", "call_sid", ev.ProviderCallID)
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "mother not found"})
		return
	case err != nil:
		log.Error("ivr event handling failed", "call_sid", ev.ProviderCallID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "event handling failed"})
		return
	}

	if res.TwiML != "" {
		c.Header("Content-Type", "application/xml")
		c.String(http.StatusOK, res.TwiML)
		return
	}
	if res.Logged {
		c.JSON(http.StatusOK, gin.H{"status": "logged"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type initiateCallRequest struct {
	MotherID string `json:"mother_id"`
	CallType string `json:"call_type"`
}

// InitiateCall originates an outbound IVR call to one of the worker's
// mothers and records an `initiated` attempt on success.
func (h *Handler) InitiateCall(c *gin.Context) {
	log := logger.FromGin(c)
	workerID, err := auth.WorkerID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "worker identity required"})
		return
	}

	var req initiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MotherID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "mother_id required"})
		return
	}

	m, err := h.Mothers.Get(c.Request.Context(), workerID, req.MotherID)
	if err != nil {
		abortMotherErr(c, err)
		return
	}

	if h.Redis != nil && h.MaxConcurrentCalls > 0 {
		key := "ivr:active_calls:" + workerID
		ok, err := utils.AcquireConcurrencyCap(c.Request.Context(), h.Redis, key, h.MaxConcurrentCalls, 2*time.Minute)
		if err != nil {
			log.Error("call cap check failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call cap check failed"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false, "error": "too many concurrent calls",
			})
			return
		}
		defer func() {
			if err := utils.ReleaseConcurrencyCap(c.Request.Context(), h.Redis, key); err != nil {
				log.Warn("call cap release failed", "err", err)
			}
		}()
	}

	result := h.Initiator.Initiate(c.Request.Context(), m, req.CallType)
	if !result.Success {
		log.Warn("call initiation failed", "mother_id", m.ID, "provider", result.Provider, "err", result.Error)
		c.JSON(http.StatusBadRequest, result)
		return
	}

	a := calllog.Attempt{
		ID:             uuid.NewString(),
		WorkerID:       m.WorkerID,
		MotherID:       m.ID,
		Phone:          m.Phone,
		Outcome:        calllog.OutcomeInitiated,
		ProviderCallID: result.CallSID,
		CreatedAt:      h.now().UTC(),
	}
	if err := h.Attempts.Record(c.Request.Context(), a, false); err != nil {
		// The provider call is already in flight; log and still report success.
		log.Error("initiated attempt record failed", "mother_id", m.ID, "err", err)
	}
	c.JSON(http.StatusOK, result)
}

type scheduleCallRequest struct {
	MotherID      string `json:"mother_id"`
	ScheduledTime string `json:"scheduled_time"`
	CallType      string `json:"call_type"`
}

// ScheduleCall stores a future call request; nothing here dispatches it.
func (h *Handler) ScheduleCall(c *gin.Context) {
	workerID, err := auth.WorkerID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "worker identity required"})
		return
	}

	var req scheduleCallRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MotherID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "mother_id required"})
		return
	}
	when, err := time.Parse(time.RFC3339, req.ScheduledTime)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid date format"})
		return
	}
	if _, err := h.Mothers.Get(c.Request.Context(), workerID, req.MotherID); err != nil {
		abortMotherErr(c, err)
		return
	}

	callType := req.CallType
	if callType == "" {
		callType = "reminder"
	}
	e := schedule.Entry{
		ID:            uuid.NewString(),
		MotherID:      req.MotherID,
		ScheduledTime: when,
		CallType:      callType,
		Status:        schedule.StatusPending,
		CreatedAt:     h.now().UTC(),
	}
	if err := h.Schedules.Create(c.Request.Context(), e); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "schedule create failed"})
		return
	}
	c.JSON(http.StatusCreated, e)
}

// CallLogs returns the worker's call attempts, most recent first.
func (h *Handler) CallLogs(c *gin.Context) {
	workerID, err := auth.WorkerID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "worker identity required"})
		return
	}
	logs, err := h.Attempts.ListByWorker(c.Request.Context(), workerID, 100)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call log query failed"})
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func abortMotherErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, patients.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "mother not found"})
	case errors.Is(err, patients.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "mother lookup failed"})
	}
}
