package postgres

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medpoint/scheduling/internal/domain"
	"github.com/medpoint/scheduling/internal/domain/appointment"
	"github.com/medpoint/scheduling/internal/domain/prescription"
	"github.com/medpoint/scheduling/internal/domain/schedule"
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create books an appointment against a schedule slot. The occupancy check
// and the insert run in one transaction holding a row lock on the slot, so
// two concurrent bookings serialize and the loser sees the winner's row. The
// partial unique index on (schedule_id) backstops the same invariant; its
// duplicate-key error is translated to ErrSlotAlreadyBooked as well.
func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockSchedule(tx, a.ScheduleID); err != nil {
			return err
		}
		if err := ensureSlotFree(tx, a.ScheduleID, nil); err != nil {
			return err
		}
		if err := tx.Create(a).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return appointment.ErrSlotAlreadyBooked
			}
			return err
		}
		return nil
	})
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, a *appointment.Appointment) error {
	res := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("id = ? AND deleted_at IS NULL", a.ID).
		Updates(map[string]any{
			"status":        a.Status,
			"cancelled_at":  a.CancelledAt,
			"cancel_reason": a.CancelReason,
			"checked_in_at": a.CheckedInAt,
			"completed_at":  a.CompletedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

// Reschedule rebinds the appointment to its new slot under the same guard as
// Create, excluding the appointment's own row from the occupancy check.
func (r *AppointmentRepository) Reschedule(ctx context.Context, a *appointment.Appointment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockSchedule(tx, a.ScheduleID); err != nil {
			return err
		}
		if err := ensureSlotFree(tx, a.ScheduleID, &a.ID); err != nil {
			return err
		}
		err := tx.Model(&appointment.Appointment{}).
			Where("id = ? AND deleted_at IS NULL", a.ID).
			Updates(map[string]any{
				"schedule_id":   a.ScheduleID,
				"status":        a.Status,
				"checked_in_at": a.CheckedInAt,
			}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return appointment.ErrSlotAlreadyBooked
		}
		return err
	})
}

// CompleteWithPrescription commits the status flip and the prescription write
// together; a failure of either leaves both unwritten.
func (r *AppointmentRepository) CompleteWithPrescription(ctx context.Context, a *appointment.Appointment, p *prescription.Prescription) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&appointment.Appointment{}).
			Where("id = ? AND deleted_at IS NULL", a.ID).
			Updates(map[string]any{
				"status":       a.Status,
				"completed_at": a.CompletedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return appointment.ErrAppointmentNotFound
		}
		return tx.Create(p).Error
	})
}

func (r *AppointmentRepository) GetActiveBySchedule(ctx context.Context, scheduleID uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := r.db.WithContext(ctx).
		Where("schedule_id = ? AND deleted_at IS NULL AND status NOT IN ?",
			scheduleID, []appointment.Status{appointment.StatusCancelled, appointment.StatusNoShow}).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AppointmentRepository) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	query := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("scheduling.appointments.deleted_at IS NULL")
	if q.PatientID != nil {
		query = query.Where("patient_id = ?", *q.PatientID)
	}
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.DoctorID != nil || q.DateFrom != nil || q.DateTo != nil {
		query = query.Joins("JOIN scheduling.schedules s ON s.id = scheduling.appointments.schedule_id")
		if q.DoctorID != nil {
			query = query.Where("s.doctor_id = ?", *q.DoctorID)
		}
		if q.DateFrom != nil {
			query = query.Where("s.schedule_date >= ?", domain.DateOnly(*q.DateFrom))
		}
		if q.DateTo != nil {
			query = query.Where("s.schedule_date <= ?", domain.DateOnly(*q.DateTo))
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var appts []*appointment.Appointment
	err := query.
		Order("scheduling.appointments.created_at DESC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&appts).Error
	if err != nil {
		return nil, err
	}

	return &appointment.PagedAppointments{
		Appointments: appts,
		TotalCount:   total,
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   int(math.Ceil(float64(total) / float64(q.PageSize))),
	}, nil
}

func lockSchedule(tx *gorm.DB, scheduleID uuid.UUID) error {
	var s schedule.Schedule
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, "id = ?", scheduleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return schedule.ErrScheduleNotFound
	}
	return err
}

func ensureSlotFree(tx *gorm.DB, scheduleID uuid.UUID, excludeID *uuid.UUID) error {
	q := tx.Model(&appointment.Appointment{}).
		Where("schedule_id = ? AND deleted_at IS NULL AND status NOT IN ?",
			scheduleID, []appointment.Status{appointment.StatusCancelled, appointment.StatusNoShow})
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return appointment.ErrSlotAlreadyBooked
	}
	return nil
}
