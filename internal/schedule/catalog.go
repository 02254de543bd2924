package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Catalog is the lookup surface over work templates. Reads have no side
// effects; the single write path rejects malformed and overlapping templates
// so that TemplateCovering can assume at most one match.
type Catalog struct {
	repo Repository
}

func NewCatalog(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

// TemplatesFor returns the doctor's active templates for a weekday, ordered
// by start time. Empty when the doctor does not work that day.
func (c *Catalog) TemplatesFor(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]WorkTemplate, error) {
	templates, err := c.repo.ListByDoctorWeekday(ctx, doctorID, weekday)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// TemplateCovering finds the template whose [start, end) contains the given
// clock time, or ErrNoSchedule.
func (c *Catalog) TemplateCovering(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday, at TimeOfDay) (*WorkTemplate, error) {
	templates, err := c.repo.ListByDoctorWeekday(ctx, doctorID, weekday)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	for i := range templates {
		if templates[i].Covers(at) {
			return &templates[i], nil
		}
	}
	return nil, ErrNoSchedule
}

// CreateTemplate persists a new weekly rule. Overlap with an existing active
// template for the same doctor and weekday is a configuration error and is
// rejected here, at write time.
func (c *Catalog) CreateTemplate(ctx context.Context, t *WorkTemplate) error {
	if t.DoctorID == uuid.Nil {
		return fmt.Errorf("%w: doctor_id is required", ErrTemplateInvalid)
	}
	if t.Weekday < time.Sunday || t.Weekday > time.Saturday {
		return fmt.Errorf("%w: weekday out of range", ErrTemplateInvalid)
	}
	if t.Start >= t.End {
		return fmt.Errorf("%w: start_time must be before end_time", ErrTemplateInvalid)
	}
	if t.VisitDurationMin <= 0 || t.VisitDurationMin > int(t.End-t.Start) {
		return fmt.Errorf("%w: visit duration must fit the time range", ErrTemplateInvalid)
	}
	if t.MaxPatientsPerHour <= 0 {
		return fmt.Errorf("%w: max_patients_per_hour must be positive", ErrTemplateInvalid)
	}

	existing, err := c.repo.ListByDoctorWeekday(ctx, t.DoctorID, t.Weekday)
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}
	for _, other := range existing {
		if t.Overlaps(other) {
			return fmt.Errorf("%w: overlaps template %s-%s", ErrTemplateInvalid, other.Start, other.End)
		}
	}

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.Active = true

	if err := c.repo.Insert(ctx, t); err != nil {
		return err
	}
	return nil
}

// ListTemplates returns every active template for a doctor across the week.
func (c *Catalog) ListTemplates(ctx context.Context, doctorID uuid.UUID) ([]WorkTemplate, error) {
	templates, err := c.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}
