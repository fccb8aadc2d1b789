package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medpoint/scheduling/internal/domain/availability"
	"github.com/medpoint/scheduling/internal/domain/directory"
)

// AvailabilityService authors recurring weekly availability rules. Successful
// create/update is the only way new rule state becomes visible to schedule
// generation.
type AvailabilityService struct {
	repo      availability.Repository
	directory directory.Repository
	auditSvc  *AuditService
	log       *zap.Logger
}

func NewAvailabilityService(
	repo availability.Repository,
	dir directory.Repository,
	auditSvc *AuditService,
	log *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{repo: repo, directory: dir, auditSvc: auditSvc, log: log}
}

func (s *AvailabilityService) CreateRule(ctx context.Context, cmd *availability.CreateRuleCommand, callerID uuid.UUID, callerRole string, ip string) (*availability.Rule, error) {
	rule := &availability.Rule{
		DoctorID:    cmd.DoctorID,
		SpecialtyID: cmd.SpecialtyID,
		StartDate:   cmd.StartDate,
		EndDate:     cmd.EndDate,
		DayOfWeek:   cmd.DayOfWeek,
		TimeFrom:    cmd.TimeFrom,
		TimeTo:      cmd.TimeTo,
		IsAvailable: true,
		Type:        cmd.Type,
		Reason:      cmd.Reason,
		CreatedBy:   cmd.CreatedBy,
	}
	if rule.Type == "" {
		rule.Type = availability.TypeRegular
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.directory.GetDoctor(ctx, cmd.DoctorID); err != nil {
		return nil, fmt.Errorf("verifying doctor: %w", err)
	}
	if _, err := s.directory.GetSpecialty(ctx, cmd.SpecialtyID); err != nil {
		return nil, fmt.Errorf("verifying specialty: %w", err)
	}

	conflicts, err := s.repo.FindOverlapping(ctx, cmd.DoctorID, cmd.DayOfWeek, cmd.TimeFrom, cmd.TimeTo, nil)
	if err != nil {
		return nil, fmt.Errorf("checking overlap: %w", err)
	}
	if len(conflicts) > 0 {
		return nil, availability.ErrRuleOverlap
	}

	if err := s.repo.Create(ctx, rule); err != nil {
		s.log.Error("failed to create availability rule", zap.Error(err))
		return nil, fmt.Errorf("creating availability rule: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "availability_rule",
		ResourceID:   rule.ID.String(),
		IPAddress:    ip,
	})

	return rule, nil
}

func (s *AvailabilityService) UpdateRule(ctx context.Context, id uuid.UUID, cmd *availability.UpdateRuleCommand, callerID uuid.UUID, callerRole string, ip string) (*availability.Rule, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Project the patch onto a copy so invariants are checked against the
	// post-update state before anything is written.
	next := *current
	if cmd.StartDate != nil {
		next.StartDate = *cmd.StartDate
	}
	if cmd.EndDate != nil {
		next.EndDate = *cmd.EndDate
	}
	if cmd.TimeFrom != nil {
		next.TimeFrom = *cmd.TimeFrom
	}
	if cmd.TimeTo != nil {
		next.TimeTo = *cmd.TimeTo
	}
	if cmd.IsAvailable != nil {
		next.IsAvailable = *cmd.IsAvailable
	}
	if cmd.Type != nil {
		next.Type = *cmd.Type
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}

	windowChanged := cmd.TimeFrom != nil || cmd.TimeTo != nil
	reactivated := cmd.IsAvailable != nil && *cmd.IsAvailable && !current.IsAvailable
	if (windowChanged || reactivated) && next.IsAvailable {
		conflicts, err := s.repo.FindOverlapping(ctx, next.DoctorID, next.DayOfWeek, next.TimeFrom, next.TimeTo, &id)
		if err != nil {
			return nil, fmt.Errorf("checking overlap: %w", err)
		}
		if len(conflicts) > 0 {
			return nil, availability.ErrRuleOverlap
		}
	}

	updated, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, fmt.Errorf("updating availability rule: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "update",
		ResourceType: "availability_rule",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return updated, nil
}

// DeactivateRule soft-deactivates a rule so already generated schedule rows
// stay explainable.
func (s *AvailabilityService) DeactivateRule(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole string, ip string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivating availability rule: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "delete",
		ResourceType: "availability_rule",
		ResourceID:   id.String(),
		IPAddress:    ip,
		Changes:      `{"is_available":false}`,
	})

	return nil
}

func (s *AvailabilityService) GetRule(ctx context.Context, id uuid.UUID) (*availability.Rule, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AvailabilityService) ListRules(ctx context.Context, q *availability.ListRulesQuery) (*availability.PagedRules, error) {
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.repo.List(ctx, q)
}
