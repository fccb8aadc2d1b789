package appointment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// State transition possibilities:
//
//	pending → confirmed → in_progress → completed
//	pending/confirmed → in_progress (check-in)
//	pending/confirmed/in_progress → cancelled
//	pending/confirmed/in_progress → pending (reschedule, new schedule row)
//	pending/confirmed → no_show
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition may leave the status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Occupies reports whether an appointment in this status keeps its schedule
// slot booked. Cancelled and no-show appointments free the slot.
func (s Status) Occupies() bool {
	return s != StatusCancelled && s != StatusNoShow
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
	PaymentWaived PaymentStatus = "waived"
)

// Appointment is a patient's reservation bound to exactly one schedule slot.
// Rows are soft-deleted only administratively; cancel and reschedule keep the
// row for audit history.
type Appointment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	PatientID  uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	ScheduleID uuid.UUID `gorm:"column:schedule_id;type:uuid;not null;index"`

	Status Status `gorm:"column:status;type:varchar(30);not null;default:'pending';index"`

	Reason string `gorm:"column:reason;type:text"`
	Notes  string `gorm:"column:notes;type:text"`

	PaymentStatus PaymentStatus `gorm:"column:payment_status;type:varchar(20);not null;default:'unpaid'"`
	Amount        int64         `gorm:"column:amount_cents;default:0"`

	CancelledAt  *time.Time `gorm:"column:cancelled_at"`
	CancelReason string     `gorm:"column:cancel_reason;type:text"`

	CheckedInAt *time.Time `gorm:"column:checked_in_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Appointment) TableName() string {
	return "scheduling.appointments"
}

func (a *Appointment) CanTransitionTo(newStatus Status) bool {
	allowed := map[Status][]Status{
		StatusPending:    {StatusConfirmed, StatusInProgress, StatusCancelled, StatusNoShow, StatusPending},
		StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow, StatusPending},
		StatusInProgress: {StatusCompleted, StatusCancelled, StatusPending},
		StatusCompleted:  {},
		StatusCancelled:  {},
		StatusNoShow:     {},
	}

	for _, s := range allowed[a.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

// transitionErr names the current status so the API error is actionable.
func (a *Appointment) transitionErr(action string) error {
	return fmt.Errorf("%w: cannot %s from status %s", ErrInvalidStatusTransition, action, a.Status)
}

func (a *Appointment) Confirm() error {
	if a.Status != StatusPending {
		return a.transitionErr("confirm")
	}
	a.Status = StatusConfirmed
	return nil
}

// CheckIn moves a pending or confirmed appointment into progress.
func (a *Appointment) CheckIn() error {
	if a.Status != StatusPending && a.Status != StatusConfirmed {
		return a.transitionErr("check in")
	}
	now := time.Now()
	a.Status = StatusInProgress
	a.CheckedInAt = &now
	return nil
}

// Cancel is allowed from any non-terminal state; a non-empty reason is
// required.
func (a *Appointment) Cancel(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrCancelReasonRequired
	}
	if a.Status.IsTerminal() {
		return a.transitionErr("cancel")
	}
	now := time.Now()
	a.Status = StatusCancelled
	a.CancelledAt = &now
	a.CancelReason = reason
	return nil
}

// Reschedule rebinds the appointment to a new schedule slot and re-enters the
// pipeline as pending. The caller is responsible for the double-booking guard
// on the new slot.
func (a *Appointment) Reschedule(newScheduleID uuid.UUID) error {
	if a.Status.IsTerminal() {
		return a.transitionErr("reschedule")
	}
	a.ScheduleID = newScheduleID
	a.Status = StatusPending
	a.CheckedInAt = nil
	return nil
}

// Complete closes an in-progress appointment. Driven by the prescription
// write; both happen in one transaction.
func (a *Appointment) Complete() error {
	if a.Status != StatusInProgress {
		return a.transitionErr("complete")
	}
	now := time.Now()
	a.Status = StatusCompleted
	a.CompletedAt = &now
	return nil
}

func (a *Appointment) MarkNoShow() error {
	if a.Status != StatusPending && a.Status != StatusConfirmed {
		return a.transitionErr("mark no-show")
	}
	a.Status = StatusNoShow
	return nil
}

type CreateAppointmentCommand struct {
	PatientID  uuid.UUID
	ScheduleID uuid.UUID
	Reason     string
	Notes      string
	CreatedBy  uuid.UUID
}

type CancelAppointmentCommand struct {
	Reason      string
	CancelledBy uuid.UUID
}

type RescheduleAppointmentCommand struct {
	NewScheduleID uuid.UUID
	RequestedBy   uuid.UUID
}

type ListAppointmentsQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *Status
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

type PagedAppointments struct {
	Appointments []*Appointment
	TotalCount   int64
	Page         int
	PageSize     int
	TotalPages   int
}
