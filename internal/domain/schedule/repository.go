package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// CreateBatch inserts slots, silently skipping rows whose
	// (doctor, date, time_from, time_to) key already exists. Returns the
	// number of rows actually inserted.
	CreateBatch(ctx context.Context, slots []*Schedule) (int, error)

	// GetByID returns ErrScheduleNotFound for unknown slots.
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)

	// ListByDoctorBetween returns all of a doctor's slots whose schedule_date
	// falls in [from, to]. Generation pre-loads these once per doctor to
	// avoid a per-slot existence query.
	ListByDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Schedule, error)

	// ListForDay returns a doctor's slots on one date, each annotated with
	// whether a live (non-cancelled, non-no-show) appointment occupies it.
	ListForDay(ctx context.Context, doctorID uuid.UUID, specialtyID *uuid.UUID, date time.Time) ([]*WithBooking, error)

	List(ctx context.Context, q *ListSchedulesQuery) (*PagedSchedules, error)
}
