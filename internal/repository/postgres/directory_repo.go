package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medpoint/scheduling/internal/domain/directory"
)

// DirectoryRepository reads the practice masters. These tables are owned by
// the profile service; scheduling never writes them.
type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) GetDoctor(ctx context.Context, id uuid.UUID) (*directory.Doctor, error) {
	var d directory.Doctor
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active AND deleted_at IS NULL", id).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, directory.ErrDoctorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DirectoryRepository) GetSpecialty(ctx context.Context, id uuid.UUID) (*directory.Specialty, error) {
	var s directory.Specialty
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, directory.ErrSpecialtyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *DirectoryRepository) GetPatient(ctx context.Context, id uuid.UUID) (*directory.Patient, error) {
	var p directory.Patient
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active AND deleted_at IS NULL", id).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, directory.ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
