package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows List results. Nil fields are ignored.
type ListFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *Status
	Date      *time.Time
}

// Repository contains all DB interactions needed by the ledger. The two
// mutating entry points each run a single transaction so a slot's booked
// count and its appointments can never drift apart.
type Repository interface {
	// CreateWithReservation atomically increments the slot's booked count,
	// guarded by booked_count < capacity, and inserts the appointment.
	// Returns ErrSlotFull when the guard fails; any later failure rolls the
	// reservation back.
	CreateWithReservation(ctx context.Context, a *Appointment) error

	// FinishWithRelease moves a PENDING or CONFIRMED appointment to the given
	// terminal status and decrements its slot's booked count, floored at zero.
	FinishWithRelease(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error)

	// UpdateStatus is a compare-and-set transition with no slot effect.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, f ListFilter) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev Event) error
}
