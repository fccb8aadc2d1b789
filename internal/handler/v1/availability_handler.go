package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medpoint/scheduling/internal/domain"
	"github.com/medpoint/scheduling/internal/domain/availability"
	"github.com/medpoint/scheduling/internal/service"
)

type AvailabilityHandler struct {
	svc *service.AvailabilityService
}

func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc}
}

type createRuleRequest struct {
	DoctorID    uuid.UUID `json:"doctor_id" binding:"required"`
	SpecialtyID uuid.UUID `json:"specialty_id" binding:"required"`
	StartDate   string    `json:"start_date" binding:"required"`
	EndDate     string    `json:"end_date" binding:"required"`
	DayOfWeek   string    `json:"day_of_week" binding:"required"`
	TimeFrom    string    `json:"time_from" binding:"required"`
	TimeTo      string    `json:"time_to" binding:"required"`
	Type        string    `json:"type"`
	Reason      string    `json:"reason"`
}

type updateRuleRequest struct {
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	TimeFrom    *string `json:"time_from"`
	TimeTo      *string `json:"time_to"`
	IsAvailable *bool   `json:"is_available"`
	Type        *string `json:"type"`
	Reason      *string `json:"reason"`
}

type ruleResponse struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	SpecialtyID uuid.UUID `json:"specialty_id"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	DayOfWeek   string    `json:"day_of_week"`
	TimeFrom    string    `json:"time_from"`
	TimeTo      string    `json:"time_to"`
	IsAvailable bool      `json:"is_available"`
	Type        string    `json:"type"`
	Reason      string    `json:"reason,omitempty"`
}

func toRuleResponse(r *availability.Rule) ruleResponse {
	return ruleResponse{
		ID:          r.ID,
		DoctorID:    r.DoctorID,
		SpecialtyID: r.SpecialtyID,
		StartDate:   domain.FormatDate(r.StartDate),
		EndDate:     domain.FormatDate(r.EndDate),
		DayOfWeek:   string(r.DayOfWeek),
		TimeFrom:    domain.FormatClock(r.TimeFrom),
		TimeTo:      domain.FormatClock(r.TimeTo),
		IsAvailable: r.IsAvailable,
		Type:        string(r.Type),
		Reason:      r.Reason,
	}
}

func (h *AvailabilityHandler) Create(c *gin.Context) {
	var req createRuleRequest
	if !bindJSON(c, &req) {
		return
	}

	startDate, err := domain.ParseDate(req.StartDate)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid start_date: must be YYYY-MM-DD")
		return
	}
	endDate, err := domain.ParseDate(req.EndDate)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid end_date: must be YYYY-MM-DD")
		return
	}
	timeFrom, err := domain.ParseClock(req.TimeFrom)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid time_from: must be HH:mm")
		return
	}
	timeTo, err := domain.ParseClock(req.TimeTo)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid time_to: must be HH:mm")
		return
	}

	caller := callerClaims(c)
	rule, err := h.svc.CreateRule(c.Request.Context(), &availability.CreateRuleCommand{
		DoctorID:    req.DoctorID,
		SpecialtyID: req.SpecialtyID,
		StartDate:   startDate,
		EndDate:     endDate,
		DayOfWeek:   domain.Weekday(req.DayOfWeek),
		TimeFrom:    timeFrom,
		TimeTo:      timeTo,
		Type:        availability.RuleType(req.Type),
		Reason:      req.Reason,
		CreatedBy:   caller.UserID,
	}, caller.UserID, string(caller.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, toRuleResponse(rule))
}

func (h *AvailabilityHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req updateRuleRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &availability.UpdateRuleCommand{
		IsAvailable: req.IsAvailable,
		Reason:      req.Reason,
	}
	if req.StartDate != nil {
		d, err := domain.ParseDate(*req.StartDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid start_date: must be YYYY-MM-DD")
			return
		}
		cmd.StartDate = &d
	}
	if req.EndDate != nil {
		d, err := domain.ParseDate(*req.EndDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid end_date: must be YYYY-MM-DD")
			return
		}
		cmd.EndDate = &d
	}
	if req.TimeFrom != nil {
		tt, err := domain.ParseClock(*req.TimeFrom)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid time_from: must be HH:mm")
			return
		}
		cmd.TimeFrom = &tt
	}
	if req.TimeTo != nil {
		tt, err := domain.ParseClock(*req.TimeTo)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid time_to: must be HH:mm")
			return
		}
		cmd.TimeTo = &tt
	}
	if req.Type != nil {
		rt := availability.RuleType(*req.Type)
		cmd.Type = &rt
	}

	caller := callerClaims(c)
	cmd.UpdatedBy = caller.UserID
	rule, err := h.svc.UpdateRule(c.Request.Context(), id, cmd, caller.UserID, string(caller.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toRuleResponse(rule))
}

func (h *AvailabilityHandler) Deactivate(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	caller := callerClaims(c)
	if err := h.svc.DeactivateRule(c.Request.Context(), id, caller.UserID, string(caller.Role), c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AvailabilityHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	rule, err := h.svc.GetRule(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toRuleResponse(rule))
}

func (h *AvailabilityHandler) List(c *gin.Context) {
	q := &availability.ListRulesQuery{
		ActiveOnly: c.Query("active") == "true",
		Page:       parseQueryInt(c, "page", 1),
		PageSize:   parseQueryInt(c, "page_size", 20),
	}

	var ok bool
	if q.DoctorID, ok = parseQueryUUID(c, "doctor_id"); !ok {
		return
	}
	if q.SpecialtyID, ok = parseQueryUUID(c, "specialty_id"); !ok {
		return
	}
	if day := c.Query("day_of_week"); day != "" {
		w := domain.Weekday(day)
		if !w.IsValid() {
			respondError(c, http.StatusBadRequest, "invalid day_of_week")
			return
		}
		q.DayOfWeek = &w
	}

	paged, err := h.svc.ListRules(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	rules := make([]ruleResponse, 0, len(paged.Rules))
	for _, r := range paged.Rules {
		rules = append(rules, toRuleResponse(r))
	}
	respondOK(c, gin.H{
		"rules":       rules,
		"total_count": paged.TotalCount,
		"page":        paged.Page,
		"page_size":   paged.PageSize,
		"total_pages": paged.TotalPages,
	})
}
