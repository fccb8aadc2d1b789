package v1

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medpoint/scheduling/internal/domain"
	"github.com/medpoint/scheduling/internal/domain/appointment"
	"github.com/medpoint/scheduling/internal/domain/availability"
	"github.com/medpoint/scheduling/internal/domain/directory"
	"github.com/medpoint/scheduling/internal/domain/prescription"
	"github.com/medpoint/scheduling/internal/domain/schedule"
	"github.com/medpoint/scheduling/internal/service"
	"github.com/medpoint/scheduling/internal/timeslot"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, availability.ErrRuleNotFound),
		errors.Is(err, schedule.ErrScheduleNotFound),
		errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, prescription.ErrPrescriptionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, availability.ErrRuleOverlap),
		errors.Is(err, appointment.ErrSlotAlreadyBooked):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, availability.ErrInvalidTimeWindow),
		errors.Is(err, availability.ErrInvalidDateWindow),
		errors.Is(err, availability.ErrInvalidDayOfWeek),
		errors.Is(err, availability.ErrInvalidRuleType),
		errors.Is(err, schedule.ErrInvalidMonth),
		errors.Is(err, schedule.ErrInvalidYear),
		errors.Is(err, appointment.ErrCancelReasonRequired),
		errors.Is(err, prescription.ErrDiagnosisRequired),
		errors.Is(err, timeslot.ErrInvalidDuration),
		errors.Is(err, timeslot.ErrInvalidWindow),
		// Unknown doctors/specialties/patients on write paths are malformed
		// input, not missing resources.
		errors.Is(err, directory.ErrDoctorNotFound),
		errors.Is(err, directory.ErrSpecialtyNotFound),
		errors.Is(err, directory.ErrPatientNotFound):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_STATUS_TRANSITION",
		})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

func parseQueryUUID(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + key + ": must be a valid UUID"})
		return nil, false
	}
	return &id, true
}

func parseQueryDate(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := domain.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + key + ": must be YYYY-MM-DD"})
		return nil, false
	}
	return &t, true
}

func callerClaims(c *gin.Context) *domain.Claims {
	if v, ok := c.Get(claimsContextKey); ok {
		if claims, ok := v.(*domain.Claims); ok {
			return claims
		}
	}
	return &domain.Claims{}
}
