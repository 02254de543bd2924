package slot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/internal/schedule"
)

// Allocator derives concrete slots from the schedule catalog, lazily and
// idempotently. An existing slot is returned unchanged; capacity is never
// recomputed, so live bookings cannot be stranded by a shrunk template.
type Allocator struct {
	catalog *schedule.Catalog
	repo    Repository
	loc     *time.Location
}

func NewAllocator(catalog *schedule.Catalog, repo Repository, loc *time.Location) *Allocator {
	return &Allocator{catalog: catalog, repo: repo, loc: loc}
}

// GetOrCreate returns the slot for (doctor, date, start), creating it from
// the covering work template on first access. Returns schedule.ErrNoSchedule
// when the doctor does not work at that time.
func (a *Allocator) GetOrCreate(ctx context.Context, doctorID uuid.UUID, date time.Time, start schedule.TimeOfDay) (*Slot, error) {
	date = DateOnly(date, a.loc)

	existing, err := a.repo.GetByKey(ctx, doctorID, date, start)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrSlotNotFound) {
		return nil, fmt.Errorf("load slot: %w", err)
	}

	tpl, err := a.catalog.TemplateCovering(ctx, doctorID, date.Weekday(), start)
	if err != nil {
		return nil, err
	}

	s := &Slot{
		ID:       uuid.New(),
		DoctorID: doctorID,
		Date:     date,
		Start:    start,
		End:      start + schedule.TimeOfDay(tpl.VisitDurationMin),
		Capacity: tpl.SlotCapacity(),
	}

	if err := a.repo.InsertIfAbsent(ctx, s); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}

	// Re-read by key: a concurrent creator may have won the insert, and the
	// caller must see the one true row either way.
	created, err := a.repo.GetByKey(ctx, doctorID, date, start)
	if err != nil {
		return nil, fmt.Errorf("load slot after create: %w", err)
	}
	return created, nil
}

// ListDay enumerates every slot implied by the date's templates, creating
// missing ones along the way. The walk is a pure function of the templates
// plus idempotent creation, so it is restartable.
func (a *Allocator) ListDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	date = DateOnly(date, a.loc)

	templates, err := a.catalog.TemplatesFor(ctx, doctorID, date.Weekday())
	if err != nil {
		return nil, err
	}

	var slots []Slot
	for _, tpl := range templates {
		for _, start := range tpl.SlotStarts() {
			s, err := a.GetOrCreate(ctx, doctorID, date, start)
			if err != nil {
				return nil, err
			}
			slots = append(slots, *s)
		}
	}
	return slots, nil
}
