package main

import (
	"kannamma-platform/internal/httpapi"
	"kannamma-platform/internal/ivr"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, ivrH *ivr.Handler, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Provider webhook (public): telephony networks cannot present a worker
	// bearer token.
	// NOTE: This endpoint should be protected by provider signature validation in production.
	api.POST("/ivr/webhook", ivrH.HandleWebhook)

	// AUTH routes (credential exchange is unauthenticated by nature).
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/register", h.Register)
		authGroup.GET("/me", authMW, h.Me)
	}

	// protected API group
	protected := api.Group("")
	protected.Use(authMW)
	{
		// IVR dashboard-side routes
		ivrGroup := protected.Group("/ivr")
		{
			ivrGroup.POST("/initiate-call", ivrH.InitiateCall)
			ivrGroup.POST("/schedule-call", ivrH.ScheduleCall)
			ivrGroup.GET("/call-logs", ivrH.CallLogs)
		}

		// MOTHERS routes
		mothers := protected.Group("/mothers")
		{
			mothers.GET("", h.ListMothers)
			mothers.POST("", h.CreateMother)
			mothers.GET("/:mother_id", h.GetMother)
			mothers.PUT("/:mother_id", h.UpdateMother)
			mothers.DELETE("/:mother_id", h.DeleteMother)
		}

		// APPOINTMENTS routes
		appts := protected.Group("/appointments")
		{
			appts.GET("", h.ListAppointments)
			appts.POST("", h.CreateAppointment)
			appts.GET("/upcoming", h.UpcomingAppointments)
			appts.PUT("/:appointment_id", h.UpdateAppointment)
		}

		// PHC stock routes
		phc := protected.Group("/phc")
		{
			phc.GET("/stock", h.GetStock)
			phc.PUT("/stock", h.UpdateStock)
		}

		protected.GET("/dashboard", h.Dashboard)
		protected.GET("/health/period-tracker/:mother_id", h.PeriodTracker)
	}
}
