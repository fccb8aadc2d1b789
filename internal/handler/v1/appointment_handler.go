package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medpoint/scheduling/internal/domain"
	"github.com/medpoint/scheduling/internal/domain/appointment"
	"github.com/medpoint/scheduling/internal/domain/prescription"
	"github.com/medpoint/scheduling/internal/service"
)

type AppointmentHandler struct {
	svc *service.AppointmentService
}

func NewAppointmentHandler(svc *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{svc: svc}
}

type bookRequest struct {
	PatientID  uuid.UUID `json:"patient_id" binding:"required"`
	ScheduleID uuid.UUID `json:"schedule_id" binding:"required"`
	Reason     string    `json:"reason"`
	Notes      string    `json:"notes"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type rescheduleRequest struct {
	NewScheduleID uuid.UUID `json:"new_schedule_id" binding:"required"`
}

type completeRequest struct {
	Diagnosis    string                    `json:"diagnosis"`
	Instructions string                    `json:"instructions"`
	Medications  []prescription.Medication `json:"medications"`
}

type appointmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	PatientID    uuid.UUID  `json:"patient_id"`
	ScheduleID   uuid.UUID  `json:"schedule_id"`
	Status       string     `json:"status"`
	Reason       string     `json:"reason,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toAppointmentResponse(a *appointment.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:           a.ID,
		PatientID:    a.PatientID,
		ScheduleID:   a.ScheduleID,
		Status:       string(a.Status),
		Reason:       a.Reason,
		Notes:        a.Notes,
		CancelReason: a.CancelReason,
		CheckedInAt:  a.CheckedInAt,
		CompletedAt:  a.CompletedAt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (h *AppointmentHandler) Book(c *gin.Context) {
	var req bookRequest
	if !bindJSON(c, &req) {
		return
	}

	caller := callerClaims(c)
	a, err := h.svc.Book(c.Request.Context(), &appointment.CreateAppointmentCommand{
		PatientID:  req.PatientID,
		ScheduleID: req.ScheduleID,
		Reason:     req.Reason,
		Notes:      req.Notes,
		CreatedBy:  caller.UserID,
	}, caller.UserID, string(caller.Role), caller.PatientID, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, toAppointmentResponse(a))
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	caller := callerClaims(c)
	a, err := h.svc.Get(c.Request.Context(), id, caller.UserID, string(caller.Role), caller.PatientID, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toAppointmentResponse(a))
}

// GetForSchedule answers "who holds this slot" for the front desk. The :id is
// a schedule slot, not an appointment.
func (h *AppointmentHandler) GetForSchedule(c *gin.Context) {
	scheduleID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	caller := callerClaims(c)
	a, err := h.svc.GetActiveForSchedule(c.Request.Context(), scheduleID, caller.UserID, string(caller.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toAppointmentResponse(a))
}

func (h *AppointmentHandler) Confirm(c *gin.Context) {
	h.transition(c, func(id uuid.UUID, caller *domain.Claims) (*appointment.Appointment, error) {
		return h.svc.Confirm(c.Request.Context(), id, caller.UserID, string(caller.Role), c.ClientIP())
	})
}

func (h *AppointmentHandler) CheckIn(c *gin.Context) {
	h.transition(c, func(id uuid.UUID, caller *domain.Claims) (*appointment.Appointment, error) {
		return h.svc.CheckIn(c.Request.Context(), id, caller.UserID, string(caller.Role), c.ClientIP())
	})
}

func (h *AppointmentHandler) MarkNoShow(c *gin.Context) {
	h.transition(c, func(id uuid.UUID, caller *domain.Claims) (*appointment.Appointment, error) {
		return h.svc.MarkNoShow(c.Request.Context(), id, caller.UserID, string(caller.Role), c.ClientIP())
	})
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req cancelRequest
	if !bindJSON(c, &req) {
		return
	}

	caller := callerClaims(c)
	a, err := h.svc.Cancel(c.Request.Context(), id, &appointment.CancelAppointmentCommand{
		Reason:      req.Reason,
		CancelledBy: caller.UserID,
	}, caller.UserID, string(caller.Role), caller.PatientID, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toAppointmentResponse(a))
}

func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req rescheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	caller := callerClaims(c)
	a, err := h.svc.Reschedule(c.Request.Context(), id, &appointment.RescheduleAppointmentCommand{
		NewScheduleID: req.NewScheduleID,
		RequestedBy:   caller.UserID,
	}, caller.UserID, string(caller.Role), caller.PatientID, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toAppointmentResponse(a))
}

func (h *AppointmentHandler) Complete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req completeRequest
	if !bindJSON(c, &req) {
		return
	}

	caller := callerClaims(c)
	a, err := h.svc.Complete(c.Request.Context(), id, &prescription.CreatePrescriptionCommand{
		Diagnosis:    req.Diagnosis,
		Instructions: req.Instructions,
		Medications:  req.Medications,
		CreatedBy:    caller.UserID,
	}, caller.UserID, string(caller.Role), caller.StaffID, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toAppointmentResponse(a))
}

func (h *AppointmentHandler) GetPrescription(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	caller := callerClaims(c)
	p, err := h.svc.GetPrescription(c.Request.Context(), id, caller.UserID, string(caller.Role), caller.PatientID, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, p)
}

func (h *AppointmentHandler) List(c *gin.Context) {
	q := &appointment.ListAppointmentsQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}

	var ok bool
	if q.PatientID, ok = parseQueryUUID(c, "patient_id"); !ok {
		return
	}
	if q.DoctorID, ok = parseQueryUUID(c, "doctor_id"); !ok {
		return
	}
	if q.DateFrom, ok = parseQueryDate(c, "date_from"); !ok {
		return
	}
	if q.DateTo, ok = parseQueryDate(c, "date_to"); !ok {
		return
	}
	if raw := c.Query("status"); raw != "" {
		st := appointment.Status(raw)
		if !st.IsValid() {
			respondError(c, http.StatusBadRequest, "invalid status")
			return
		}
		q.Status = &st
	}

	caller := callerClaims(c)
	paged, err := h.svc.List(c.Request.Context(), q, string(caller.Role), caller.PatientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	appts := make([]appointmentResponse, 0, len(paged.Appointments))
	for _, a := range paged.Appointments {
		appts = append(appts, toAppointmentResponse(a))
	}
	respondOK(c, gin.H{
		"appointments": appts,
		"total_count":  paged.TotalCount,
		"page":         paged.Page,
		"page_size":    paged.PageSize,
		"total_pages":  paged.TotalPages,
	})
}

func (h *AppointmentHandler) transition(c *gin.Context, fn func(uuid.UUID, *domain.Claims) (*appointment.Appointment, error)) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	a, err := fn(id, callerClaims(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toAppointmentResponse(a))
}
