// Package postgres holds the GORM-backed repository implementations.
package postgres

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medpoint/scheduling/internal/domain"
	"github.com/medpoint/scheduling/internal/domain/availability"
)

type AvailabilityRepository struct {
	db *gorm.DB
}

func NewAvailabilityRepository(db *gorm.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

func (r *AvailabilityRepository) Create(ctx context.Context, rule *availability.Rule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *AvailabilityRepository) GetByID(ctx context.Context, id uuid.UUID) (*availability.Rule, error) {
	var rule availability.Rule
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, availability.ErrRuleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *AvailabilityRepository) Update(ctx context.Context, id uuid.UUID, cmd *availability.UpdateRuleCommand) (*availability.Rule, error) {
	updates := map[string]any{}
	if cmd.StartDate != nil {
		updates["start_date"] = *cmd.StartDate
	}
	if cmd.EndDate != nil {
		updates["end_date"] = *cmd.EndDate
	}
	if cmd.TimeFrom != nil {
		updates["time_from"] = *cmd.TimeFrom
	}
	if cmd.TimeTo != nil {
		updates["time_to"] = *cmd.TimeTo
	}
	if cmd.IsAvailable != nil {
		updates["is_available"] = *cmd.IsAvailable
	}
	if cmd.Type != nil {
		updates["type"] = *cmd.Type
	}
	if cmd.Reason != nil {
		updates["reason"] = *cmd.Reason
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).
			Model(&availability.Rule{}).
			Where("id = ? AND deleted_at IS NULL", id).
			Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, availability.ErrRuleNotFound
		}
	}

	return r.GetByID(ctx, id)
}

func (r *AvailabilityRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&availability.Rule{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("is_available", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return availability.ErrRuleNotFound
	}
	return nil
}

func (r *AvailabilityRepository) FindOverlapping(ctx context.Context, doctorID uuid.UUID, day domain.Weekday, timeFrom, timeTo time.Time, excludeID *uuid.UUID) ([]*availability.Rule, error) {
	q := r.db.WithContext(ctx).
		Where("doctor_id = ? AND day_of_week = ? AND is_available AND deleted_at IS NULL", doctorID, day).
		// Half-open window intersection.
		Where("time_from < ? AND time_to > ?", timeTo, timeFrom)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}

	var rules []*availability.Rule
	if err := q.Order("time_from").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *AvailabilityRepository) FindActiveByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*availability.Rule, error) {
	var rules []*availability.Rule
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND is_available AND deleted_at IS NULL", doctorID).
		Order("day_of_week, time_from").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *AvailabilityRepository) DoctorIDsWithActiveRules(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&availability.Rule{}).
		Where("is_available AND deleted_at IS NULL").
		Distinct("doctor_id").
		Order("doctor_id").
		Pluck("doctor_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *AvailabilityRepository) List(ctx context.Context, q *availability.ListRulesQuery) (*availability.PagedRules, error) {
	query := r.db.WithContext(ctx).
		Model(&availability.Rule{}).
		Where("deleted_at IS NULL")
	if q.DoctorID != nil {
		query = query.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.SpecialtyID != nil {
		query = query.Where("specialty_id = ?", *q.SpecialtyID)
	}
	if q.DayOfWeek != nil {
		query = query.Where("day_of_week = ?", *q.DayOfWeek)
	}
	if q.ActiveOnly {
		query = query.Where("is_available")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var rules []*availability.Rule
	err := query.
		Order("day_of_week, time_from").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}

	return &availability.PagedRules{
		Rules:      rules,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(q.PageSize))),
	}, nil
}
