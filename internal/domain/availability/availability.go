package availability

import (
	"time"

	"github.com/google/uuid"

	"github.com/medpoint/scheduling/internal/domain"
)

// RuleType tags why the rule exists. All types are subject to the same
// overlap invariant; an exception does not subtract time from a regular rule.
type RuleType string

const (
	TypeRegular   RuleType = "REGULAR"
	TypeException RuleType = "EXCEPTION"
	TypeExtra     RuleType = "EXTRA"
)

func (t RuleType) IsValid() bool {
	switch t {
	case TypeRegular, TypeException, TypeExtra:
		return true
	}
	return false
}

// Rule is a recurring weekly commitment of a doctor to a specialty: on
// DayOfWeek, between TimeFrom and TimeTo, for every date inside
// [StartDate, EndDate]. Rules are never hard-deleted; deactivation keeps
// historically generated schedule rows explainable.
type Rule struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	DoctorID    uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index"`
	SpecialtyID uuid.UUID `gorm:"column:specialty_id;type:uuid;not null;index"`

	// Validity window, date-only semantics.
	StartDate time.Time `gorm:"column:start_date;not null"`
	EndDate   time.Time `gorm:"column:end_date;not null"`

	DayOfWeek domain.Weekday `gorm:"column:day_of_week;type:varchar(10);not null;index"`

	// Wall-clock window anchored to domain.ReferenceDate.
	TimeFrom time.Time `gorm:"column:time_from;not null"`
	TimeTo   time.Time `gorm:"column:time_to;not null"`

	IsAvailable bool     `gorm:"column:is_available;default:true;index"`
	Type        RuleType `gorm:"column:type;type:varchar(20);not null;default:'REGULAR'"`
	Reason      string   `gorm:"column:reason;type:text"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Rule) TableName() string {
	return "scheduling.availability_rules"
}

// OverlapsWindow reports whether the rule's [TimeFrom, TimeTo) intersects the
// given half-open wall-clock window.
func (r *Rule) OverlapsWindow(timeFrom, timeTo time.Time) bool {
	return r.TimeFrom.Before(timeTo) && timeFrom.Before(r.TimeTo)
}

// CoversDate reports whether the rule's validity window contains the given
// calendar date (date-only comparison, bounds inclusive).
func (r *Rule) CoversDate(date time.Time) bool {
	d := domain.DateOnly(date)
	return !d.Before(domain.DateOnly(r.StartDate)) && !d.After(domain.DateOnly(r.EndDate))
}

// Validate checks the rule's local invariants (window ordering, symbols).
// The cross-rule overlap invariant is the store's responsibility.
func (r *Rule) Validate() error {
	if !r.TimeFrom.Before(r.TimeTo) {
		return ErrInvalidTimeWindow
	}
	if !r.StartDate.Before(r.EndDate) {
		return ErrInvalidDateWindow
	}
	if !r.DayOfWeek.IsValid() {
		return ErrInvalidDayOfWeek
	}
	if !r.Type.IsValid() {
		return ErrInvalidRuleType
	}
	return nil
}

type CreateRuleCommand struct {
	DoctorID    uuid.UUID
	SpecialtyID uuid.UUID
	StartDate   time.Time
	EndDate     time.Time
	DayOfWeek   domain.Weekday
	TimeFrom    time.Time
	TimeTo      time.Time
	Type        RuleType
	Reason      string
	CreatedBy   uuid.UUID
}

// UpdateRuleCommand applies a partial update; nil fields are left unchanged.
type UpdateRuleCommand struct {
	StartDate   *time.Time
	EndDate     *time.Time
	TimeFrom    *time.Time
	TimeTo      *time.Time
	IsAvailable *bool
	Type        *RuleType
	Reason      *string
	UpdatedBy   uuid.UUID
}

type ListRulesQuery struct {
	DoctorID    *uuid.UUID
	SpecialtyID *uuid.UUID
	DayOfWeek   *domain.Weekday
	ActiveOnly  bool
	Page        int
	PageSize    int
}

type PagedRules struct {
	Rules      []*Rule
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
