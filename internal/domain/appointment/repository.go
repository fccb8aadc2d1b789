package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/medpoint/scheduling/internal/domain/prescription"
)

type Repository interface {
	// Create books the appointment. The implementation must make the
	// "no live appointment on this slot" check and the insert atomic: a row
	// lock on the schedule row inside one transaction, backed by a partial
	// unique index on (schedule_id) over live statuses. A lost race surfaces
	// as ErrSlotAlreadyBooked.
	Create(ctx context.Context, a *Appointment) error

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateStatus persists a status transition already applied to a.
	UpdateStatus(ctx context.Context, a *Appointment) error

	// Reschedule rebinds a to its (already updated) ScheduleID under the same
	// atomic double-booking guard as Create, excluding a's own row.
	Reschedule(ctx context.Context, a *Appointment) error

	// CompleteWithPrescription flips the status to completed and writes the
	// prescription in one transaction, so neither a completed-without-
	// prescription nor a prescribed-without-completed state can persist.
	CompleteWithPrescription(ctx context.Context, a *Appointment, p *prescription.Prescription) error

	// GetActiveBySchedule returns the live appointment occupying a slot, or
	// ErrAppointmentNotFound when the slot is free.
	GetActiveBySchedule(ctx context.Context, scheduleID uuid.UUID) (*Appointment, error)

	List(ctx context.Context, q *ListAppointmentsQuery) (*PagedAppointments, error)
}
