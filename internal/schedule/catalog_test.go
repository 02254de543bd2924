package schedule

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Mock repository --

type mockRepo struct {
	mu        sync.Mutex
	templates []WorkTemplate
}

func newMockRepo() *mockRepo {
	return &mockRepo{}
}

func (m *mockRepo) Insert(_ context.Context, t *WorkTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.templates {
		if other.DoctorID == t.DoctorID && other.Weekday == t.Weekday && other.Start == t.Start {
			return ErrTemplateExists
		}
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()
	m.templates = append(m.templates, *t)
	return nil
}

func (m *mockRepo) ListByDoctorWeekday(_ context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]WorkTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []WorkTemplate
	for _, t := range m.templates {
		if t.DoctorID == doctorID && t.Weekday == weekday && t.Active {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start < result[j].Start })
	return result, nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]WorkTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []WorkTemplate
	for _, t := range m.templates {
		if t.DoctorID == doctorID && t.Active {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Weekday != result[j].Weekday {
			return result[i].Weekday < result[j].Weekday
		}
		return result[i].Start < result[j].Start
	})
	return result, nil
}

func mustParse(t *testing.T, s string) TimeOfDay {
	t.Helper()
	at, err := ParseTimeOfDay(s)
	require.NoError(t, err)
	return at
}

func newTemplate(t *testing.T, doctorID uuid.UUID, weekday time.Weekday, start, end string, duration, perHour int) *WorkTemplate {
	t.Helper()
	return &WorkTemplate{
		DoctorID:           doctorID,
		Weekday:            weekday,
		Start:              mustParse(t, start),
		End:                mustParse(t, end),
		VisitDurationMin:   duration,
		MaxPatientsPerHour: perHour,
	}
}

// -- Tests --

func TestCreateTemplateValidation(t *testing.T) {
	catalog := NewCatalog(newMockRepo())
	ctx := context.Background()
	doctor := uuid.New()

	err := catalog.CreateTemplate(ctx, newTemplate(t, doctor, time.Monday, "12:00", "08:00", 30, 4))
	assert.ErrorIs(t, err, ErrTemplateInvalid)

	err = catalog.CreateTemplate(ctx, newTemplate(t, doctor, time.Monday, "08:00", "08:00", 30, 4))
	assert.ErrorIs(t, err, ErrTemplateInvalid)

	err = catalog.CreateTemplate(ctx, newTemplate(t, doctor, time.Monday, "08:00", "12:00", 0, 4))
	assert.ErrorIs(t, err, ErrTemplateInvalid)

	err = catalog.CreateTemplate(ctx, newTemplate(t, doctor, time.Monday, "08:00", "12:00", 30, 0))
	assert.ErrorIs(t, err, ErrTemplateInvalid)

	err = catalog.CreateTemplate(ctx, newTemplate(t, uuid.Nil, time.Monday, "08:00", "12:00", 30, 4))
	assert.ErrorIs(t, err, ErrTemplateInvalid)

	err = catalog.CreateTemplate(ctx, newTemplate(t, doctor, time.Weekday(9), "08:00", "12:00", 30, 4))
	assert.ErrorIs(t, err, ErrTemplateInvalid)
}

func TestCreateTemplateRejectsOverlap(t *testing.T) {
	catalog := NewCatalog(newMockRepo())
	ctx := context.Background()
	doctor := uuid.New()

	require.NoError(t, catalog.CreateTemplate(ctx, newTemplate(t, doctor, time.Monday, "08:00", "12:00", 30, 4)))

	// Overlapping range, same weekday.
	err := catalog.CreateTemplate(ctx, newTemplate(t, doctor, time.Monday, "11:00", "14:00", 30, 4))
	assert.ErrorIs(t, err, ErrTemplateInvalid)

	// Adjacent is fine: ranges are half-open.
	assert.NoError(t, catalog.CreateTemplate(ctx, newTemplate(t, doctor, time.Monday, "12:00", "16:00", 30, 4)))

	// Same range on another weekday is fine.
	assert.NoError(t, catalog.CreateTemplate(ctx, newTemplate(t, doctor, time.Tuesday, "08:00", "12:00", 30, 4)))

	// Another doctor may overlap freely.
	assert.NoError(t, catalog.CreateTemplate(ctx, newTemplate(t, uuid.New(), time.Monday, "08:00", "12:00", 30, 4)))
}

func TestTemplatesForOrderedByStart(t *testing.T) {
	catalog := NewCatalog(newMockRepo())
	ctx := context.Background()
	doctor := uuid.New()

	require.NoError(t, catalog.CreateTemplate(ctx, newTemplate(t, doctor, time.Monday, "13:30", "17:00", 30, 4)))
	require.NoError(t, catalog.CreateTemplate(ctx, newTemplate(t, doctor, time.Monday, "08:00", "12:00", 30, 4)))

	templates, err := catalog.TemplatesFor(ctx, doctor, time.Monday)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, mustParse(t, "08:00"), templates[0].Start)
	assert.Equal(t, mustParse(t, "13:30"), templates[1].Start)

	empty, err := catalog.TemplatesFor(ctx, doctor, time.Sunday)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTemplateCoveringBoundaries(t *testing.T) {
	catalog := NewCatalog(newMockRepo())
	ctx := context.Background()
	doctor := uuid.New()

	require.NoError(t, catalog.CreateTemplate(ctx, newTemplate(t, doctor, time.Monday, "08:00", "12:00", 30, 4)))

	// Start is inclusive.
	tpl, err := catalog.TemplateCovering(ctx, doctor, time.Monday, mustParse(t, "08:00"))
	require.NoError(t, err)
	assert.Equal(t, mustParse(t, "08:00"), tpl.Start)

	// End is exclusive.
	_, err = catalog.TemplateCovering(ctx, doctor, time.Monday, mustParse(t, "12:00"))
	assert.ErrorIs(t, err, ErrNoSchedule)

	_, err = catalog.TemplateCovering(ctx, doctor, time.Monday, mustParse(t, "07:45"))
	assert.ErrorIs(t, err, ErrNoSchedule)

	_, err = catalog.TemplateCovering(ctx, doctor, time.Tuesday, mustParse(t, "09:00"))
	assert.ErrorIs(t, err, ErrNoSchedule)
}

func TestSlotCapacity(t *testing.T) {
	cases := []struct {
		duration, perHour, want int
	}{
		{30, 4, 2},  // two 30-minute slots per hour, 4 patients per hour
		{15, 4, 1},  // four slots per hour, one patient each
		{60, 3, 3},  // one slot per hour holds the full hourly quota
		{20, 2, 1},  // floors at 1 when quota is below slots-per-hour
		{45, 4, 4},  // 60/45 floors to one slot per hour
	}

	for _, tc := range cases {
		tpl := WorkTemplate{VisitDurationMin: tc.duration, MaxPatientsPerHour: tc.perHour}
		assert.Equal(t, tc.want, tpl.SlotCapacity(), "duration=%d perHour=%d", tc.duration, tc.perHour)
	}
}

func TestSlotStarts(t *testing.T) {
	tpl := WorkTemplate{
		Start:            TimeOfDay(8 * 60),
		End:              TimeOfDay(12 * 60),
		VisitDurationMin: 30,
	}

	starts := tpl.SlotStarts()
	require.Len(t, starts, 8)
	assert.Equal(t, TimeOfDay(8*60), starts[0])
	assert.Equal(t, TimeOfDay(11*60+30), starts[7])

	// A slot that would spill past the end is not emitted.
	tpl.End = TimeOfDay(11*60 + 45)
	assert.Len(t, tpl.SlotStarts(), 7)
}
