// Package directory exposes the narrow read surface of the practice masters
// (doctors, specialties). Profile CRUD lives in another service; scheduling
// only needs existence checks and the specialty's configured slot duration.
package directory

import (
	"time"

	"github.com/google/uuid"
)

type Doctor struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	DeletedAt *time.Time `gorm:"index"`

	FirstName   string    `gorm:"column:first_name;type:varchar(100);not null"`
	LastName    string    `gorm:"column:last_name;type:varchar(100);not null"`
	SpecialtyID uuid.UUID `gorm:"column:specialty_id;type:uuid;not null;index"`
	IsActive    bool      `gorm:"column:is_active;default:true;index"`
}

func (Doctor) TableName() string {
	return "clinical.doctors"
}

type Specialty struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	DeletedAt *time.Time `gorm:"index"`

	Name string `gorm:"column:name;type:varchar(150);not null;uniqueIndex"`

	// AppointmentDurationMins fragments availability windows into slots.
	// Zero means "do not fragment": the whole window becomes one slot.
	AppointmentDurationMins int `gorm:"column:appointment_duration_mins;not null;default:0"`
}

func (Specialty) TableName() string {
	return "clinical.specialties"
}

type Patient struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	DeletedAt *time.Time `gorm:"index"`

	FirstName string `gorm:"column:first_name;type:varchar(100);not null"`
	LastName  string `gorm:"column:last_name;type:varchar(100);not null"`
	IsActive  bool   `gorm:"column:is_active;default:true;index"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}
