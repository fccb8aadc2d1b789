package v1

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medpoint/scheduling/internal/domain"
	"github.com/medpoint/scheduling/internal/domain/schedule"
	"github.com/medpoint/scheduling/internal/service"
)

type ScheduleHandler struct {
	svc *service.ScheduleService
}

func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{svc: svc}
}

type generateRequest struct {
	DoctorID *uuid.UUID `json:"doctor_id"`
	Month    int        `json:"month" binding:"required"`
	Year     int        `json:"year" binding:"required"`
}

type scheduleResponse struct {
	ID           uuid.UUID `json:"id"`
	DoctorID     uuid.UUID `json:"doctor_id"`
	SpecialtyID  uuid.UUID `json:"specialty_id"`
	ScheduleDate string    `json:"schedule_date"`
	TimeFrom     string    `json:"time_from"`
	TimeTo       string    `json:"time_to"`
}

func toScheduleResponse(s *schedule.Schedule) scheduleResponse {
	return scheduleResponse{
		ID:           s.ID,
		DoctorID:     s.DoctorID,
		SpecialtyID:  s.SpecialtyID,
		ScheduleDate: domain.FormatDate(s.ScheduleDate),
		TimeFrom:     domain.FormatClock(s.TimeFrom),
		TimeTo:       domain.FormatClock(s.TimeTo),
	}
}

func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req generateRequest
	if !bindJSON(c, &req) {
		return
	}

	caller := callerClaims(c)
	result, err := h.svc.Generate(c.Request.Context(), &schedule.GenerateCommand{
		DoctorID:    req.DoctorID,
		Month:       req.Month,
		Year:        req.Year,
		RequestedBy: caller.UserID,
	}, caller.UserID, string(caller.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, gin.H{
		"generated": result.Generated,
		"skipped":   result.Skipped,
		"message": fmt.Sprintf("generated %d slots, skipped %d existing slots",
			result.Generated, result.Skipped),
	})
}

func (h *ScheduleHandler) List(c *gin.Context) {
	q := &schedule.ListSchedulesQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}

	var ok bool
	if q.DoctorID, ok = parseQueryUUID(c, "doctor_id"); !ok {
		return
	}
	if q.SpecialtyID, ok = parseQueryUUID(c, "specialty_id"); !ok {
		return
	}
	if q.DateFrom, ok = parseQueryDate(c, "date_from"); !ok {
		return
	}
	if q.DateTo, ok = parseQueryDate(c, "date_to"); !ok {
		return
	}

	paged, err := h.svc.ListSchedules(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	slots := make([]scheduleResponse, 0, len(paged.Schedules))
	for _, s := range paged.Schedules {
		slots = append(slots, toScheduleResponse(s))
	}
	respondOK(c, gin.H{
		"schedules":   slots,
		"total_count": paged.TotalCount,
		"page":        paged.Page,
		"page_size":   paged.PageSize,
		"total_pages": paged.TotalPages,
	})
}

// AvailableSlots answers the theoretical slot lookup for one doctor, date and
// time window.
func (h *ScheduleHandler) AvailableSlots(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Query("doctor_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid doctor_id: must be a valid UUID")
		return
	}

	date, err := domain.ParseDate(c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid date: must be YYYY-MM-DD")
		return
	}
	timeFrom, err := domain.ParseClock(c.Query("time_from"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid time_from: must be HH:mm")
		return
	}
	timeTo, err := domain.ParseClock(c.Query("time_to"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid time_to: must be HH:mm")
		return
	}

	specialtyID, ok := parseQueryUUID(c, "specialty_id")
	if !ok {
		return
	}

	slots, err := h.svc.AvailableSlots(c.Request.Context(), &schedule.AvailableSlotsQuery{
		DoctorID:     doctorID,
		SpecialtyID:  specialtyID,
		Date:         date,
		TimeFrom:     timeFrom,
		TimeTo:       timeTo,
		DurationMins: parseQueryInt(c, "duration_mins", 0),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	type slotResponse struct {
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
		Available bool   `json:"available"`
	}
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResponse{
			StartTime: domain.FormatClock(s.StartTime),
			EndTime:   domain.FormatClock(s.EndTime),
			Available: s.Available,
		})
	}
	respondOK(c, out)
}
