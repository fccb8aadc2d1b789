package directory

import "errors"

var (
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrSpecialtyNotFound = errors.New("specialty not found")
	ErrPatientNotFound   = errors.New("patient not found")
)
