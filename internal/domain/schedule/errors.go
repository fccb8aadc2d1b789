package schedule

import "errors"

var (
	ErrScheduleNotFound = errors.New("schedule slot not found")
	ErrInvalidMonth     = errors.New("month must be between 1 and 12")
	ErrInvalidYear      = errors.New("year is out of the supported range")
)
