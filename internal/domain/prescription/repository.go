package prescription

import (
	"context"

	"github.com/google/uuid"
)

// Repository is read-only: prescription creation happens inside the
// appointment completion transaction.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	GetByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*Prescription, error)
}
