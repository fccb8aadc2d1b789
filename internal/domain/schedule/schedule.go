package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medpoint/scheduling/internal/domain"
)

// Schedule is one concrete bookable slot, materialized from an availability
// rule for a specific calendar date. Rows are created only by generation,
// never mutated and never deleted; occupancy is derived from the appointments
// referencing them.
type Schedule struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	DoctorID    uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index:idx_schedules_slot_key,unique"`
	SpecialtyID uuid.UUID `gorm:"column:specialty_id;type:uuid;not null;index"`

	ScheduleDate time.Time `gorm:"column:schedule_date;not null;index:idx_schedules_slot_key,unique"`

	// Slot window, wall-clock values anchored to domain.ReferenceDate.
	TimeFrom time.Time `gorm:"column:time_from;not null;index:idx_schedules_slot_key,unique"`
	TimeTo   time.Time `gorm:"column:time_to;not null;index:idx_schedules_slot_key,unique"`
}

func (Schedule) TableName() string {
	return "scheduling.schedules"
}

// SlotKey is the dedup identity of a slot within one doctor's calendar.
func (s *Schedule) SlotKey() string {
	return Key(s.ScheduleDate, s.TimeFrom, s.TimeTo)
}

// Key builds the (date, start, end) dedup key used by generation.
func Key(date, timeFrom, timeTo time.Time) string {
	return fmt.Sprintf("%s|%s|%s",
		domain.FormatDate(date), domain.FormatClock(timeFrom), domain.FormatClock(timeTo))
}

// WithBooking annotates a slot with whether a live appointment occupies it.
type WithBooking struct {
	Schedule
	Booked bool `gorm:"column:booked"`
}

// AvailableSlot is one entry of the theoretical slot lookup.
type AvailableSlot struct {
	StartTime time.Time
	EndTime   time.Time
	Available bool
}

type GenerateCommand struct {
	// DoctorID nil means every doctor with at least one active rule.
	DoctorID    *uuid.UUID
	Month       int
	Year        int
	RequestedBy uuid.UUID
}

// GenerationResult counts one run's outcome. Skipped covers slots whose key
// already existed, whether pre-loaded or hit as a duplicate at insert time.
type GenerationResult struct {
	Generated int
	Skipped   int
}

func (r *GenerationResult) Add(other GenerationResult) {
	r.Generated += other.Generated
	r.Skipped += other.Skipped
}

type AvailableSlotsQuery struct {
	DoctorID     uuid.UUID
	SpecialtyID  *uuid.UUID
	Date         time.Time
	TimeFrom     time.Time
	TimeTo       time.Time
	DurationMins int
}

type ListSchedulesQuery struct {
	DoctorID    *uuid.UUID
	SpecialtyID *uuid.UUID
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	PageSize    int
}

type PagedSchedules struct {
	Schedules  []*Schedule
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
