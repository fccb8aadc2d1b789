package directory

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// GetDoctor returns ErrDoctorNotFound for unknown or inactive doctors.
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)

	// GetSpecialty returns ErrSpecialtyNotFound for unknown specialties.
	GetSpecialty(ctx context.Context, id uuid.UUID) (*Specialty, error)

	// GetPatient returns ErrPatientNotFound for unknown or inactive patients.
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
}
