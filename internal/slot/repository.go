package slot

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/internal/schedule"
)

var ErrSlotNotFound = errors.New("slot not found")

// Repository contains the read and creation paths for slots. Occupancy
// mutation lives with the booking repository so the reserve and the
// appointment insert share one transaction.
type Repository interface {
	// InsertIfAbsent persists the slot unless the (doctor, date, start) row
	// already exists. Concurrent creators converge on a single row.
	InsertIfAbsent(ctx context.Context, s *Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	GetByKey(ctx context.Context, doctorID uuid.UUID, date time.Time, start schedule.TimeOfDay) (*Slot, error)
	ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error)
	ListByDoctorDateRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Slot, error)
}
