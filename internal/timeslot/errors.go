package timeslot

import "errors"

var (
	ErrInvalidDuration = errors.New("slot duration must be positive")
	ErrInvalidWindow   = errors.New("time window start must be before its end")
)
