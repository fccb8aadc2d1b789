package prescription

import "errors"

var (
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrDiagnosisRequired    = errors.New("a diagnosis is required to complete an appointment")
)
