package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoSchedule      = errors.New("doctor has no schedule covering this time")
	ErrTemplateExists  = errors.New("work template already exists for this doctor, weekday and start time")
	ErrTemplateInvalid = errors.New("invalid work template")
)

// Repository contains all DB interactions needed by the catalog.
type Repository interface {
	Insert(ctx context.Context, t *WorkTemplate) error
	ListByDoctorWeekday(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]WorkTemplate, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]WorkTemplate, error)
}
