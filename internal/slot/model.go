package slot

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/internal/schedule"
)

// AvailabilityStatus classifies how full a single slot is.
type AvailabilityStatus string

const (
	StatusAvailable AvailabilityStatus = "AVAILABLE"
	StatusLimited   AvailabilityStatus = "LIMITED"
	StatusFull      AvailabilityStatus = "FULL"
)

// Slot is a concrete, date-specific bookable unit derived from a work
// template. Rows are created lazily on first access and accumulate forever;
// only the booking ledger mutates BookedCount, and only through conditional
// updates so that 0 <= BookedCount <= Capacity holds under concurrency.
type Slot struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	Date        time.Time // calendar day, clock fields zero
	Start       schedule.TimeOfDay
	End         schedule.TimeOfDay
	Capacity    int
	BookedCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (s Slot) IsAvailable() bool {
	return s.BookedCount < s.Capacity
}

func (s Slot) AvailabilityStatus() AvailabilityStatus {
	if s.Capacity <= 0 {
		return StatusFull
	}
	ratio := float64(s.BookedCount) / float64(s.Capacity)
	switch {
	case ratio >= 1:
		return StatusFull
	case ratio >= 0.7:
		return StatusLimited
	default:
		return StatusAvailable
	}
}

// VisitDuration is the slot length; appointments booked into the slot end
// this long after they start.
func (s Slot) VisitDuration() time.Duration {
	return time.Duration(s.End-s.Start) * time.Minute
}

// Key identifies the slot by its natural uniqueness triple. The booking
// ledger uses it as the lock key, which must be computable before the row
// exists.
func Key(doctorID uuid.UUID, date time.Time, start schedule.TimeOfDay) string {
	return fmt.Sprintf("lock:slot:%s:%s:%s", doctorID, date.Format("2006-01-02"), start)
}

// DateOnly truncates a timestamp to its calendar day in loc.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
