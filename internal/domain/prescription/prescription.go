package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Prescription is the clinical record written when an appointment completes.
// The completion status flip and this write share one transaction.
type Prescription struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	PatientID     uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	DoctorID      uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index"`
	AppointmentID uuid.UUID `gorm:"column:appointment_id;type:uuid;not null;uniqueIndex"`

	Diagnosis    string `gorm:"column:diagnosis;type:text;not null"`
	Instructions string `gorm:"column:instructions;type:text"`

	Medications []Medication `gorm:"column:medications;serializer:json"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Prescription) TableName() string {
	return "clinical.prescriptions"
}

type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`    // e.g. "500mg"
	Frequency string `json:"frequency"` // e.g. "twice daily"
	Duration  string `json:"duration"`  // e.g. "7 days"
}

type CreatePrescriptionCommand struct {
	Diagnosis    string
	Instructions string
	Medications  []Medication
	CreatedBy    uuid.UUID
}
