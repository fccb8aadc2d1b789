package appointment

import "errors"

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrSlotAlreadyBooked       = errors.New("schedule slot already has an active appointment")
	ErrInvalidStatusTransition = errors.New("invalid appointment status transition")
	ErrCancelReasonRequired    = errors.New("a cancellation reason is required")
)
