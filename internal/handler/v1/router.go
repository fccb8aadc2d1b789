package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medpoint/scheduling/internal/config"
	"github.com/medpoint/scheduling/internal/domain"
	"github.com/medpoint/scheduling/pkg/auth"
	"github.com/medpoint/scheduling/pkg/metrics"
)

type Handlers struct {
	Availability *AvailabilityHandler
	Schedule     *ScheduleHandler
	Appointment  *AppointmentHandler
}

// RegisterRoutes mounts the v1 API surface plus the unauthenticated
// health and metrics endpoints.
func RegisterRoutes(r *gin.Engine, h Handlers, cfg *config.Config, verifier *auth.JWTVerifier, collector *metrics.Collector, log *zap.Logger) {
	r.Use(LoggingMiddleware(log))
	r.Use(MetricsMiddleware(collector))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api/v1")
	api.Use(AuthMiddleware(verifier))

	rules := api.Group("/availability")
	rules.Use(RequireStaff())
	{
		rules.POST("", h.Availability.Create)
		rules.GET("", h.Availability.List)
		rules.GET("/:id", h.Availability.Get)
		rules.PATCH("/:id", h.Availability.Update)
		rules.DELETE("/:id", h.Availability.Deactivate)
	}

	schedules := api.Group("/schedules")
	{
		schedules.POST("/generate", RequireRole(domain.RoleAdmin, domain.RoleReceptionist), h.Schedule.Generate)
		schedules.GET("", h.Schedule.List)
		schedules.GET("/available", h.Schedule.AvailableSlots)
		schedules.GET("/:id/appointment", RequireStaff(), h.Appointment.GetForSchedule)
	}

	appointments := api.Group("/appointments")
	{
		appointments.POST("", h.Appointment.Book)
		appointments.GET("", h.Appointment.List)
		appointments.GET("/:id", h.Appointment.Get)
		appointments.PATCH("/:id/confirm", RequireStaff(), h.Appointment.Confirm)
		appointments.PATCH("/:id/check-in", RequireStaff(), h.Appointment.CheckIn)
		appointments.PATCH("/:id/cancel", h.Appointment.Cancel)
		appointments.PATCH("/:id/reschedule", h.Appointment.Reschedule)
		appointments.PATCH("/:id/no-show", RequireStaff(), h.Appointment.MarkNoShow)
		appointments.PATCH("/:id/complete", RequireRole(domain.RoleDoctor, domain.RoleAdmin), h.Appointment.Complete)
		appointments.GET("/:id/prescription", h.Appointment.GetPrescription)
	}
}
