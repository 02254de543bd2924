package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/internal/slot"
)

// Validator checks a candidate booking time without reserving anything.
// Time may pass between validation and commit, so the ledger runs the same
// checks again inside its critical section.
type Validator struct {
	alloc          *slot.Allocator
	granularityMin int
	loc            *time.Location
	now            func() time.Time
}

func NewValidator(alloc *slot.Allocator, granularityMin int, loc *time.Location) *Validator {
	return &Validator{
		alloc:          alloc,
		granularityMin: granularityMin,
		loc:            loc,
		now:            time.Now,
	}
}

// Validate runs the checks in order, first failure wins:
// future-dated, aligned to the granularity, covered by a work template,
// slot has room. On success the matching slot is returned for reservation.
func (v *Validator) Validate(ctx context.Context, doctorID uuid.UUID, requested time.Time) (*slot.Slot, error) {
	t := requested.In(v.loc)

	if !t.After(v.now().In(v.loc)) {
		return nil, ErrPastTime
	}
	if t.Minute()%v.granularityMin != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
		return nil, ErrMisalignedTime
	}

	date := slot.DateOnly(t, v.loc)
	start := schedule.TimeOfDayFrom(t)

	// GetOrCreate resolves the covering template first, so a doctor who does
	// not work at this time surfaces as schedule.ErrNoSchedule before any
	// slot is created.
	s, err := v.alloc.GetOrCreate(ctx, doctorID, date, start)
	if err != nil {
		return nil, err
	}

	if !s.IsAvailable() {
		return nil, ErrSlotFull
	}
	return s, nil
}
