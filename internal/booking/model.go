package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending     Status = "PENDING"
	StatusConfirmed   Status = "CONFIRMED"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
	StatusRescheduled Status = "RESCHEDULED"
)

// releasable reports whether an appointment in this status still holds a
// slot reservation that cancel/reschedule may give back.
func (s Status) releasable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Priority levels carried through from the booking request.
const (
	PriorityRoutine = 1
	PriorityHigh    = 2
	PriorityUrgent  = 3
)

// Appointment is one patient's claim on a slot. Exactly one live
// (non-cancelled, non-rescheduled) appointment accounts for one unit of its
// slot's booked count.
type Appointment struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	SlotID        uuid.UUID
	ScheduledTime time.Time
	EndTime       time.Time
	Status        Status
	Priority      int
	Reason        string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Event rows record every lifecycle change, in the style of an append-only
// audit feed. Failures to write one never fail the operation it describes.
type Event struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

const (
	EventBooked      = "APPOINTMENT_BOOKED"
	EventConfirmed   = "APPOINTMENT_CONFIRMED"
	EventCompleted   = "APPOINTMENT_COMPLETED"
	EventCancelled   = "APPOINTMENT_CANCELLED"
	EventRescheduled = "APPOINTMENT_RESCHEDULED"
)
