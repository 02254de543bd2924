package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/internal/slot"
)

// memStore backs both the slot repository and the booking repository with one
// mutex, so the conditional reserve/release semantics of the real SQL hold
// under the concurrency the ledger tests exercise.
type memStore struct {
	mu           sync.Mutex
	slots        map[string]*slot.Slot
	appointments map[uuid.UUID]*Appointment
	events       []Event
}

func newMemStore() *memStore {
	return &memStore{
		slots:        make(map[string]*slot.Slot),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

// memSlotRepo exposes the store's slot side as a slot.Repository. It is a
// separate type because both repositories name a GetByID method.
type memSlotRepo struct {
	store *memStore
}

func (r *memSlotRepo) InsertIfAbsent(_ context.Context, s *slot.Slot) error {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	k := slot.Key(s.DoctorID, s.Date, s.Start)
	if _, ok := m.slots[k]; ok {
		return nil
	}
	cp := *s
	m.slots[k] = &cp
	return nil
}

func (r *memSlotRepo) GetByID(_ context.Context, id uuid.UUID) (*slot.Slot, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slotByIDLocked(id)
	if s == nil {
		return nil, slot.ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSlotRepo) GetByKey(_ context.Context, doctorID uuid.UUID, date time.Time, start schedule.TimeOfDay) (*slot.Slot, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slot.Key(doctorID, date, start)]
	if !ok {
		return nil, slot.ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSlotRepo) ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]slot.Slot, error) {
	return r.ListByDoctorDateRange(ctx, doctorID, date, date)
}

func (r *memSlotRepo) ListByDoctorDateRange(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]slot.Slot, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []slot.Slot
	for _, s := range m.slots {
		if s.DoctorID == doctorID && !s.Date.Before(from) && !s.Date.After(to) {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Start < result[j].Start
	})
	return result, nil
}

// -- Repository --

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) slotByIDLocked(id uuid.UUID) *slot.Slot {
	for _, s := range m.slots {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (m *memStore) CreateWithReservation(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.slotByIDLocked(a.SlotID)
	if s == nil {
		return slot.ErrSlotNotFound
	}
	if s.BookedCount >= s.Capacity {
		return ErrSlotFull
	}
	s.BookedCount++

	cp := *a
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.appointments[cp.ID] = &cp
	return nil
}

func (m *memStore) FinishWithRelease(_ context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if !a.Status.releasable() {
		return nil, fmt.Errorf("appointment is %s: %w", a.Status, ErrInvalidTransition)
	}
	a.Status = to
	a.UpdatedAt = time.Now()

	if s := m.slotByIDLocked(a.SlotID); s != nil && s.BookedCount > 0 {
		s.BookedCount--
	}

	cp := *a
	return &cp, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if a.Status != from {
		return nil, fmt.Errorf("appointment is %s, expected %s: %w", a.Status, from, ErrInvalidTransition)
	}
	a.Status = to
	a.UpdatedAt = time.Now()

	cp := *a
	return &cp, nil
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Appointment
	for _, a := range m.appointments {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.Date != nil {
			y1, m1, d1 := a.ScheduledTime.Date()
			y2, m2, d2 := f.Date.Date()
			if y1 != y2 || m1 != m2 || d1 != d2 {
				continue
			}
		}
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ScheduledTime.Before(result[j].ScheduledTime)
	})
	return result, nil
}

func (m *memStore) InsertEvent(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return nil
}

func (m *memStore) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.events))
	for i, ev := range m.events {
		types[i] = ev.EventType
	}
	return types
}

// memScheduleRepo is the minimal schedule.Repository the allocator needs.
type memScheduleRepo struct {
	mu        sync.Mutex
	templates []schedule.WorkTemplate
}

func (m *memScheduleRepo) Insert(_ context.Context, t *schedule.WorkTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append(m.templates, *t)
	return nil
}

func (m *memScheduleRepo) ListByDoctorWeekday(_ context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]schedule.WorkTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []schedule.WorkTemplate
	for _, t := range m.templates {
		if t.DoctorID == doctorID && t.Weekday == weekday && t.Active {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start < result[j].Start })
	return result, nil
}

func (m *memScheduleRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]schedule.WorkTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []schedule.WorkTemplate
	for _, t := range m.templates {
		if t.DoctorID == doctorID && t.Active {
			result = append(result, t)
		}
	}
	return result, nil
}

// memLocker serializes callers per key the way the Redis lock does, but by
// blocking instead of failing, which keeps concurrency tests deterministic.
type memLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMemLocker() *memLocker {
	return &memLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *memLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	km, ok := l.locks[key]
	if !ok {
		km = &sync.Mutex{}
		l.locks[key] = km
	}
	l.mu.Unlock()

	km.Lock()
	defer km.Unlock()
	return fn(ctx)
}
