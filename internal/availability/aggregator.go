// Package availability computes read-only occupancy views over schedules and
// slots, for calendars and density displays. It never mutates the store and
// runs fully in parallel with bookings.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/internal/slot"
)

var ErrRangeTooLarge = errors.New("availability range exceeds the allowed span")

type DensityStatus string

const (
	StatusVacant   DensityStatus = "VACANT"
	StatusModerate DensityStatus = "MODERATE"
	StatusBusy     DensityStatus = "BUSY"
)

const (
	busyThreshold     = 70.0
	moderateThreshold = 30.0
)

// DayDensity is one day's occupancy summary. TotalSlots counts distinct
// bookable slots; AvailableSlots and PercentBooked are measured against the
// day's maximum occupancy (slots times per-slot capacity).
type DayDensity struct {
	Date            time.Time
	Status          DensityStatus
	TotalSlots      int
	AvailableSlots  int
	MorningStatus   DensityStatus
	AfternoonStatus DensityStatus
	PercentBooked   float64
}

type Aggregator struct {
	catalog      *schedule.Catalog
	slots        slot.Repository
	loc          *time.Location
	rangeCapDays int
}

func NewAggregator(catalog *schedule.Catalog, slots slot.Repository, loc *time.Location, rangeCapDays int) *Aggregator {
	if rangeCapDays <= 0 {
		rangeCapDays = 60
	}
	return &Aggregator{catalog: catalog, slots: slots, loc: loc, rangeCapDays: rangeCapDays}
}

// DailyDensity classifies one day. A day without any active template comes
// back VACANT with zero totals.
func (a *Aggregator) DailyDensity(ctx context.Context, doctorID uuid.UUID, date time.Time) (*DayDensity, error) {
	date = slot.DateOnly(date, a.loc)

	templates, err := a.catalog.TemplatesFor(ctx, doctorID, date.Weekday())
	if err != nil {
		return nil, err
	}

	booked, err := a.slots.ListByDoctorDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	d := computeDay(date, templates, booked)
	return &d, nil
}

// RangeDensity produces a day-by-day sequence over [from, to]. Days the
// doctor does not work are omitted. The span is capped to bound cost.
func (a *Aggregator) RangeDensity(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]DayDensity, error) {
	from = slot.DateOnly(from, a.loc)
	to = slot.DateOnly(to, a.loc)

	if to.Before(from) {
		return nil, fmt.Errorf("%w: end date before start date", ErrRangeTooLarge)
	}
	if int(to.Sub(from).Hours()/24) > a.rangeCapDays {
		return nil, ErrRangeTooLarge
	}

	// One query for the whole span, then group in memory.
	allSlots, err := a.slots.ListByDoctorDateRange(ctx, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	slotsByDay := make(map[string][]slot.Slot)
	for _, s := range allSlots {
		key := s.Date.Format("2006-01-02")
		slotsByDay[key] = append(slotsByDay[key], s)
	}

	templatesByWeekday := make(map[time.Weekday][]schedule.WorkTemplate)

	var result []DayDensity
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		templates, ok := templatesByWeekday[day.Weekday()]
		if !ok {
			templates, err = a.catalog.TemplatesFor(ctx, doctorID, day.Weekday())
			if err != nil {
				return nil, err
			}
			templatesByWeekday[day.Weekday()] = templates
		}
		if len(templates) == 0 {
			continue
		}

		d := computeDay(day, templates, slotsByDay[day.Format("2006-01-02")])
		result = append(result, d)
	}
	return result, nil
}

func computeDay(date time.Time, templates []schedule.WorkTemplate, daySlots []slot.Slot) DayDensity {
	var totalSlots, maxOccupancy int
	var morningMax, afternoonMax int

	for _, tpl := range templates {
		count := len(tpl.SlotStarts())
		capacity := tpl.SlotCapacity()

		totalSlots += count
		maxOccupancy += count * capacity
		if tpl.Start.Hour() < 12 {
			morningMax += count * capacity
		} else {
			afternoonMax += count * capacity
		}
	}

	var booked, morningBooked, afternoonBooked int
	for _, s := range daySlots {
		booked += s.BookedCount
		if s.Start.Hour() < 12 {
			morningBooked += s.BookedCount
		} else {
			afternoonBooked += s.BookedCount
		}
	}

	percent := 0.0
	if maxOccupancy > 0 {
		percent = float64(booked) / float64(maxOccupancy) * 100
	}

	available := maxOccupancy - booked
	if available < 0 {
		available = 0
	}

	return DayDensity{
		Date:            date,
		Status:          classify(booked, maxOccupancy),
		TotalSlots:      totalSlots,
		AvailableSlots:  available,
		MorningStatus:   classify(morningBooked, morningMax),
		AfternoonStatus: classify(afternoonBooked, afternoonMax),
		PercentBooked:   roundTenth(percent),
	}
}

func classify(booked, max int) DensityStatus {
	if max <= 0 {
		return StatusVacant
	}
	percent := float64(booked) / float64(max) * 100
	switch {
	case percent >= busyThreshold:
		return StatusBusy
	case percent >= moderateThreshold:
		return StatusModerate
	default:
		return StatusVacant
	}
}

func roundTenth(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
