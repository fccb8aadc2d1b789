package postgres

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medpoint/scheduling/internal/domain"
	"github.com/medpoint/scheduling/internal/domain/schedule"
)

type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// CreateBatch inserts slots, ignoring rows whose slot key already exists.
// Concurrent generation runs for the same month interleave safely: at worst
// both pay for the insert attempt, never for a duplicate row.
func (r *ScheduleRepository) CreateBatch(ctx context.Context, slots []*schedule.Schedule) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(slots, 500)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*schedule.Schedule, error) {
	var s schedule.Schedule
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, schedule.ErrScheduleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ScheduleRepository) ListByDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*schedule.Schedule, error) {
	var slots []*schedule.Schedule
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND schedule_date BETWEEN ? AND ?",
			doctorID, domain.DateOnly(from), domain.DateOnly(to)).
		Order("schedule_date, time_from").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *ScheduleRepository) ListForDay(ctx context.Context, doctorID uuid.UUID, specialtyID *uuid.UUID, date time.Time) ([]*schedule.WithBooking, error) {
	q := `
		SELECT s.*,
		       EXISTS (
		           SELECT 1 FROM scheduling.appointments a
		           WHERE a.schedule_id = s.id
		             AND a.deleted_at IS NULL
		             AND a.status NOT IN ('cancelled', 'no_show')
		       ) AS booked
		FROM scheduling.schedules s
		WHERE s.doctor_id = ? AND s.schedule_date = ?`
	args := []any{doctorID, domain.DateOnly(date)}
	if specialtyID != nil {
		q += " AND s.specialty_id = ?"
		args = append(args, *specialtyID)
	}
	q += " ORDER BY s.time_from"

	var rows []*schedule.WithBooking
	if err := r.db.WithContext(ctx).Raw(q, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepository) List(ctx context.Context, q *schedule.ListSchedulesQuery) (*schedule.PagedSchedules, error) {
	query := r.db.WithContext(ctx).Model(&schedule.Schedule{})
	if q.DoctorID != nil {
		query = query.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.SpecialtyID != nil {
		query = query.Where("specialty_id = ?", *q.SpecialtyID)
	}
	if q.DateFrom != nil {
		query = query.Where("schedule_date >= ?", domain.DateOnly(*q.DateFrom))
	}
	if q.DateTo != nil {
		query = query.Where("schedule_date <= ?", domain.DateOnly(*q.DateTo))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var slots []*schedule.Schedule
	err := query.
		Order("schedule_date, time_from").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&slots).Error
	if err != nil {
		return nil, err
	}

	return &schedule.PagedSchedules{
		Schedules:  slots,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(q.PageSize))),
	}, nil
}
