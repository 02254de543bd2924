package booking

import (
	"errors"
	"fmt"
)

var (
	ErrPastTime            = errors.New("scheduled time must be in the future")
	ErrMisalignedTime      = errors.New("scheduled time does not align with the booking granularity")
	ErrSlotFull            = errors.New("slot has no remaining capacity")
	ErrInvalidPriority     = errors.New("priority must be between 1 and 3")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidTransition   = errors.New("invalid appointment status transition")

	// ErrContention means the per-slot lock could not be acquired within the
	// configured retry budget. The request is safe to retry.
	ErrContention = errors.New("slot is currently being booked, please retry")
)

// RescheduleError reports a reschedule whose second step failed. ReleasedOld
// tells the caller whether the old appointment was already terminated and its
// reservation given back, so the failure is never silent.
type RescheduleError struct {
	ReleasedOld bool
	Err         error
}

func (e *RescheduleError) Error() string {
	if e.ReleasedOld {
		return fmt.Sprintf("reschedule failed after releasing the old appointment: %v", e.Err)
	}
	return fmt.Sprintf("reschedule failed: %v", e.Err)
}

func (e *RescheduleError) Unwrap() error { return e.Err }
