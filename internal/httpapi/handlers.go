package httpapi

import (
	"errors"
	"net/http"
	"time"

	"kannamma-platform/internal/appointments"
	"kannamma-platform/internal/auth"
	"kannamma-platform/internal/patients"
	"kannamma-platform/internal/stock"
	"kannamma-platform/internal/workers"
	"kannamma-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers groups the dashboard-facing HTTP handlers for dependency
// injection. Keep these thin: parse/validate input, call internal services,
// return JSON. The IVR endpoints live in internal/ivr.
type Handlers struct {
	Auth         *auth.Manager
	Workers      *workers.Service
	Mothers      *patients.Service
	Appointments appointments.Store
	Stock        stock.Store

	Now func() time.Time
}

const dateLayout = "2006-01-02"

// --- Auth ---

type loginRequest struct {
	LoginID  string `json:"asha_id"`
	Password string `json:"password"`
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	w, err := h.Workers.Login(c.Request.Context(), req.LoginID, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, workers.ErrInvalidArgument):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "asha_id and password required"})
		case errors.Is(err, workers.ErrInvalidCredentials):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}
	pair, err := h.Auth.IssuePair(h.now(), w.ID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"asha":          w,
	})
}

type registerRequest struct {
	LoginID  string `json:"asha_id"`
	Password string `json:"password"`
	Name     string `json:"name"`
	PHCName  string `json:"phc_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

func (h Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	w, err := h.Workers.Register(c.Request.Context(), workers.RegisterRequest{
		LoginID:  req.LoginID,
		Password: req.Password,
		Name:     req.Name,
		PHCName:  req.PHCName,
		Phone:    req.Phone,
		Email:    req.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, workers.ErrInvalidArgument):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "asha_id, password, name, phc_name required"})
		case errors.Is(err, workers.ErrLoginIDTaken):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "asha_id already exists"})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		}
		return
	}
	pair, err := h.Auth.IssuePair(h.now(), w.ID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"asha":          w,
	})
}

func (h Handlers) Me(c *gin.Context) {
	workerID, ok := requireWorker(c)
	if !ok {
		return
	}
	w, err := h.Workers.Get(c.Request.Context(), workerID)
	if err != nil {
		if errors.Is(err, workers.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
		return
	}
	c.JSON(http.StatusOK, w)
}

// --- Mothers ---

type motherCreateRequest struct {
	Name                string                `json:"name"`
	Age                 int                   `json:"age"`
	Phone               string                `json:"phone"`
	Address             string                `json:"address"`
	LastANCDate         string                `json:"last_anc_date"`
	GestationWeeks      int                   `json:"gestation_weeks"`
	HealthStatus        patients.HealthStatus `json:"health_status"`
	NextAppointmentDate string                `json:"next_appointment_date"`
	LastPeriodDate      string                `json:"last_period_date"`
	CycleLength         int                   `json:"cycle_length"`
	PostPregnancy       bool                  `json:"post_pregnancy"`
}

func (h Handlers) CreateMother(c *gin.Context) {
	workerID, ok := requireWorker(c)
	if !ok {
		return
	}
	var req motherCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	lastANC, err := time.Parse(dateLayout, req.LastANCDate)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}
	nextAppt, err := parseOptionalDate(req.NextAppointmentDate)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}
	lastPeriod, err := parseOptionalDate(req.LastPeriodDate)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}

	m, err := h.Mothers.Create(c.Request.Context(), workerID, patients.CreateRequest{
		Name:                req.Name,
		Age:                 req.Age,
		Phone:               req.Phone,
		Address:             req.Address,
		LastANCDate:         lastANC,
		GestationWeeks:      req.GestationWeeks,
		HealthStatus:        req.HealthStatus,
		NextAppointmentDate: nextAppt,
		LastPeriodDate:      lastPeriod,
		CycleLength:         req.CycleLength,
		PostPregnancy:       req.PostPregnancy,
	})
	if err != nil {
		if errors.Is(err, patients.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "name, age, phone, address, last_anc_date required"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h Handlers) ListMothers(c *gin.Context) {
	workerID, ok := requireWorker(c)
	if !ok {
		return
	}
	var flagged *bool
	switch c.Query("flagged") {
	case "true":
		t := true
		flagged = &t
	case "false":
		f := false
		flagged = &f
	}
	ms, err := h.Mothers.List(c.Request.Context(), workerID, flagged)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, ms)
}

func (h Handlers) GetMother(c *gin.Context) {
	workerID, ok := requireWorker(c)
	if !ok {
		return
	}
	m, err := h.Mothers.Get(c.Request.Context(), workerID, c.Param("mother_id"))
	if err != nil {
		abortMotherErr(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type motherUpdateRequest struct {
	Name                *string                `json:"name"`
	Age                 *int                   `json:"age"`
	Phone               *string                `json:"phone"`
	Address             *string                `json:"address"`
	LastANCDate         *string                `json:"last_anc_date"`
	GestationWeeks      *int                   `json:"gestation_weeks"`
	Flagged             *bool                  `json:"flagged"`
	Visited             *bool                  `json:"visited"`
	Notes               *string                `json:"notes"`
	HealthStatus        *patients.HealthStatus `json:"health_status"`
	NextAppointmentDate *string                `json:"next_appointment_date"`
	MedicationReminders *bool                  `json:"medication_reminders"`
	LastPeriodDate      *string                `json:"last_period_date"`
	CycleLength         *int                   `json:"cycle_length"`
	PostPregnancy       *bool                  `json:"post_pregnancy"`
}

func (h Handlers) UpdateMother(c *gin.Context) {
	workerID, ok := requireWorker(c)
	if !ok {
		return
	}
	var req motherUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	upd := patients.UpdateRequest{
		Name:                req.Name,
		Age:                 req.Age,
		Phone:               req.Phone,
		Address:             req.Address,
		GestationWeeks:      req.GestationWeeks,
		Flagged:             req.Flagged,
		Visited:             req.Visited,
		Notes:               req.Notes,
		HealthStatus:        req.HealthStatus,
		MedicationReminders: req.MedicationReminders,
		CycleLength:         req.CycleLength,
		PostPregnancy:       req.PostPregnancy,
	}
	var err error
	if upd.LastANCDate, err = parseOptionalDatePtr(req.LastANCDate); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}
	if upd.NextAppointmentDate, err = parseOptionalDatePtr(req.NextAppointmentDate); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}
	if upd.LastPeriodDate, err = parseOptionalDatePtr(req.LastPeriodDate); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}

	m, err := h.Mothers.Update(c.Request.Context(), workerID, c.Param("mother_id"), upd)
	if err != nil {
		if errors.Is(err, patients.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
			return
		}
		abortMotherErr(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h Handlers) DeleteMother(c *gin.Context) {
	workerID, ok := requireWorker(c)
	if !ok {
		return
	}
	if err := h.Mothers.Delete(c.Request.Context(), workerID, c.Param("mother_id")); err != nil {
		abortMotherErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// --- Appointments ---

// appointmentView embeds the owning mother the way the dashboard expects.
type appointmentView struct {
	appointments.Appointment
	Mother patients.Mother `json:"mother"`
}

func (h Handlers) ListAppointments(c *gin.Context) {
	workerID, ok := requireWorker(c)
	if !ok {
		return
	}
	f := appointments.Filter{Status: appointments.Status(c.Query("status"))}
	if c.Query("upcoming") == "true" {
		today := dateOnly(h.now())
		f.From = &today
	}
	h.listAppointments(c, workerID, f)
}

// UpcomingAppointments returns scheduled appointments in the next 7 days.
func (h Handlers) UpcomingAppointments(c *gin.Context) {
	workerID, ok := requireWorker(c)
	if !ok {
		return
	}
	today := dateOnly(h.now())
	nextWeek := today.AddDate(0, 0, 7)
	h.listAppointments(c, workerID, appointments.Filter{
		Status: appointments.StatusScheduled,
		From:   &today,
		To:     &nextWeek,
	})
}

func (h Handlers) listAppointments(c *gin.Context, workerID string, f appointments.Filter) {
	log := logger.FromGin(c)
	apts, err := h.Appointments.ListByWorker(c.Request.Context(), workerID, f)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	out := make([]appointmentView, 0, len(apts))
	for _, a := range apts {
		v := appointmentView{Appointment: a}
		m, err := h.Mothers.Get(c.Request.Context(), workerID, a.MotherID)
		if err != nil {
			log.Warn("appointment mother lookup failed", "appointment_id", a.ID, "err", err)
		} else {
			v.Mother = m
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, out)
}

type appointmentCreateRequest struct {
	MotherID string              `json:"mother_id"`
	Date     string              `json:"appointment_date"`
	Type     string              `json:"appointment_type"`
	Status   appointments.Status `json:"status"`
	Notes    string              `json:"notes"`
}

func (h Handlers) CreateAppointment(c *gin.Context) {
	log := logger.FromGin(c)
	workerID, ok := requireWorker(c)
	if !ok {
		return
	}
	var req appointmentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MotherID == "" || req.Type == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "mother_id, appointment_date, appointment_type required"})
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}
	if _, err := h.Mothers.Get(c.Request.Context(), workerID, req.MotherID); err != nil {
		abortMotherErr(c, err)
		return
	}

	status := req.Status
	if status == "" {
		status = appointments.StatusScheduled
	}
	a := appointments.Appointment{
		ID:        uuid.NewString(),
		MotherID:  req.MotherID,
		Date:      date,
		Type:      req.Type,
		Status:    status,
		Notes:     req.Notes,
		CreatedAt: h.now().UTC(),
	}
	if err := h.Appointments.Create(c.Request.Context(), a); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	// Mirror the new date onto the mother's record so call prompts and
	// reminders pick it up.
	if _, err := h.Mothers.Update(c.Request.Context(), workerID, req.MotherID, patients.UpdateRequest{
		NextAppointmentDate: &date,
	}); err != nil {
		log.Warn("next appointment mirror failed", "mother_id", req.MotherID, "err", err)
	}

	c.JSON(http.StatusCreated, a)
}

type appointmentUpdateRequest struct {
	Date         *string              `json:"appointment_date"`
	Type         *string              `json:"appointment_type"`
	Status       *appointments.Status `json:"status"`
	ReminderSent *bool                `json:"reminder_sent"`
	Notes        *string              `json:"notes"`
}

func (h Handlers) UpdateAppointment(c *gin.Context) {
	workerID, ok := requireWorker(c)
	if !ok {
		return
	}
	a, err := h.Appointments.GetByID(c.Request.Context(), c.Param("appointment_id"))
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if _, err := h.Mothers.Get(c.Request.Context(), workerID, a.MotherID); err != nil {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
		return
	}

	var req appointmentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid date format, use YYYY-MM-DD"})
			return
		}
		a.Date = date
	}
	if req.Type != nil {
		a.Type = *req.Type
	}
	if req.Status != nil {
		a.Status = *req.Status
	}
	if req.ReminderSent != nil {
		a.ReminderSent = *req.ReminderSent
	}
	if req.Notes != nil {
		a.Notes = *req.Notes
	}
	if err := h.Appointments.Update(c.Request.Context(), a); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, a)
}

// --- PHC stock ---

func (h Handlers) GetStock(c *gin.Context) {
	workerID, ok := requireWorker(c)
	if !ok {
		return
	}
	st, err := h.Stock.GetOrCreate(c.Request.Context(), workerID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "stock lookup failed"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h Handlers) UpdateStock(c *gin.Context) {
	workerID, ok := requireWorker(c)
	if !ok {
		return
	}
	var u stock.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	st, err := h.Stock.Apply(c.Request.Context(), workerID, u)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "stock update failed"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// --- Dashboard and health tracking ---

func (h Handlers) Dashboard(c *gin.Context) {
	workerID, ok := requireWorker(c)
	if !ok {
		return
	}
	d, err := h.Workers.Dashboard(c.Request.Context(), workerID)
	if err != nil {
		if errors.Is(err, workers.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dashboard query failed"})
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h Handlers) PeriodTracker(c *gin.Context) {
	workerID, ok := requireWorker(c)
	if !ok {
		return
	}
	summary, err := h.Mothers.PeriodTracker(c.Request.Context(), workerID, c.Param("mother_id"))
	if err != nil {
		abortMotherErr(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --- helpers ---

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func requireWorker(c *gin.Context) (string, bool) {
	workerID, err := auth.WorkerID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "worker identity required"})
		return "", false
	}
	return workerID, true
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

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseOptionalDatePtr(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	return parseOptionalDate(*s)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
