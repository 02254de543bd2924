package schedule

import (
	"time"

	"github.com/google/uuid"
)

// WorkTemplate is a doctor's recurring weekly availability rule. Templates are
// the source of truth that concrete slots are derived from; this engine reads
// them when validating bookings and only writes them through CreateTemplate.
type WorkTemplate struct {
	ID                 uuid.UUID
	DoctorID           uuid.UUID
	Weekday            time.Weekday
	Start              TimeOfDay
	End                TimeOfDay
	VisitDurationMin   int
	MaxPatientsPerHour int
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Covers reports whether the clock time falls in the half-open [Start, End).
func (t WorkTemplate) Covers(at TimeOfDay) bool {
	return at >= t.Start && at < t.End
}

// Overlaps reports whether two templates share any part of their time range.
func (t WorkTemplate) Overlaps(other WorkTemplate) bool {
	return t.Start < other.End && other.Start < t.End
}

// SlotCapacity derives how many patients one slot of this template can hold.
// A template that allows 4 patients per hour with 30 minute visits yields
// 2 per slot; the result is never below 1.
func (t WorkTemplate) SlotCapacity() int {
	if t.VisitDurationMin <= 0 {
		return 1
	}
	slotsPerHour := 60 / t.VisitDurationMin
	if slotsPerHour <= 0 {
		slotsPerHour = 1
	}
	capacity := t.MaxPatientsPerHour / slotsPerHour
	if capacity < 1 {
		capacity = 1
	}
	return capacity
}

// SlotStarts walks the template range in visit-duration steps. The last slot
// must fit entirely inside the range.
func (t WorkTemplate) SlotStarts() []TimeOfDay {
	if t.VisitDurationMin <= 0 {
		return nil
	}
	step := TimeOfDay(t.VisitDurationMin)
	var starts []TimeOfDay
	for at := t.Start; at+step <= t.End; at += step {
		starts = append(starts, at)
	}
	return starts
}
