package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/scheduling-engine/internal/identity"
	"github.com/clinicore/scheduling-engine/internal/notify"
	redisclient "github.com/clinicore/scheduling-engine/internal/redis"
	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/internal/slot"
)

// Ledger owns the appointment lifecycle and is the only component that
// mutates slot occupancy. Every capacity change is a conditional update
// inside a single transaction; the per-slot Redis lock serializes the
// validate-reserve-insert section on top of that.
type Ledger struct {
	repo       Repository
	validator  *Validator
	locker     redisclient.Locker
	notifier   notify.Notifier
	resolver   identity.Resolver
	loc        *time.Location
	retries    int
	retryDelay time.Duration
	log        zerolog.Logger
}

type LedgerOptions struct {
	LockRetries    int
	LockRetryDelay time.Duration
}

func NewLedger(
	repo Repository,
	validator *Validator,
	locker redisclient.Locker,
	notifier notify.Notifier,
	resolver identity.Resolver,
	loc *time.Location,
	opts LedgerOptions,
	log zerolog.Logger,
) *Ledger {
	if opts.LockRetries < 0 {
		opts.LockRetries = 0
	}
	if opts.LockRetryDelay <= 0 {
		opts.LockRetryDelay = 50 * time.Millisecond
	}
	return &Ledger{
		repo:       repo,
		validator:  validator,
		locker:     locker,
		notifier:   notifier,
		resolver:   resolver,
		loc:        loc,
		retries:    opts.LockRetries,
		retryDelay: opts.LockRetryDelay,
		log:        log,
	}
}

type BookRequest struct {
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	ScheduledTime time.Time
	Reason        string
	Notes         string
	Priority      int
}

// Book reserves capacity for the patient and creates the appointment.
// The validator runs inside the per-slot lock, so a stale caller who checked
// availability earlier cannot overshoot the capacity.
func (l *Ledger) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if req.Priority == 0 {
		req.Priority = PriorityRoutine
	}
	if req.Priority < PriorityRoutine || req.Priority > PriorityUrgent {
		return nil, ErrInvalidPriority
	}

	if err := l.resolver.CheckUser(ctx, req.PatientID); err != nil {
		return nil, fmt.Errorf("patient %s: %w", req.PatientID, err)
	}
	if err := l.resolver.CheckUser(ctx, req.DoctorID); err != nil {
		return nil, fmt.Errorf("doctor %s: %w", req.DoctorID, err)
	}

	scheduled := req.ScheduledTime.In(l.loc)
	lockKey := slot.Key(req.DoctorID, slot.DateOnly(scheduled, l.loc), schedule.TimeOfDayFrom(scheduled))

	var created *Appointment

	err := l.withLock(ctx, lockKey, func(lockCtx context.Context) error {
		s, err := l.validator.Validate(lockCtx, req.DoctorID, scheduled)
		if err != nil {
			return err
		}

		appt := &Appointment{
			ID:            uuid.New(),
			PatientID:     req.PatientID,
			DoctorID:      req.DoctorID,
			SlotID:        s.ID,
			ScheduledTime: scheduled,
			EndTime:       scheduled.Add(s.VisitDuration()),
			Status:        StatusPending,
			Priority:      req.Priority,
			Reason:        req.Reason,
			Notes:         req.Notes,
		}

		if err := l.repo.CreateWithReservation(lockCtx, appt); err != nil {
			return err
		}

		created = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logEvent(ctx, created.ID, EventBooked, map[string]any{
		"slot_id":        created.SlotID.String(),
		"patient_id":     created.PatientID.String(),
		"scheduled_time": created.ScheduledTime,
	})
	l.notifier.Notify(ctx, created.PatientID, fmt.Sprintf(
		"Your appointment with doctor %s is booked for %s",
		created.DoctorID, created.ScheduledTime.Format("02/01/2006 15:04"),
	))

	return created, nil
}

// Cancel terminates a PENDING or CONFIRMED appointment and gives its
// reservation back to the slot.
func (l *Ledger) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := l.repo.FinishWithRelease(ctx, id, StatusCancelled)
	if err != nil {
		return nil, err
	}

	l.logEvent(ctx, appt.ID, EventCancelled, map[string]any{
		"slot_id": appt.SlotID.String(),
	})
	l.notifier.Notify(ctx, appt.PatientID, fmt.Sprintf(
		"Your appointment on %s has been cancelled",
		appt.ScheduledTime.Format("02/01/2006 15:04"),
	))

	return appt, nil
}

// Confirm moves PENDING to CONFIRMED.
func (l *Ledger) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := l.repo.UpdateStatus(ctx, id, StatusPending, StatusConfirmed)
	if err != nil {
		return nil, err
	}
	l.logEvent(ctx, appt.ID, EventConfirmed, map[string]any{})
	return appt, nil
}

// Complete moves CONFIRMED to COMPLETED.
func (l *Ledger) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := l.repo.UpdateStatus(ctx, id, StatusConfirmed, StatusCompleted)
	if err != nil {
		return nil, err
	}
	l.logEvent(ctx, appt.ID, EventCompleted, map[string]any{})
	return appt, nil
}

// Reschedule terminates the old appointment and books a new one as two
// steps, never as an in-place slot swap. When the second step fails the old
// reservation has already been released; the caller learns that explicitly
// through RescheduleError rather than by noticing a missing appointment.
func (l *Ledger) Reschedule(ctx context.Context, id uuid.UUID, newTime time.Time) (*Appointment, error) {
	old, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := l.repo.FinishWithRelease(ctx, id, StatusRescheduled); err != nil {
		return nil, &RescheduleError{ReleasedOld: false, Err: err}
	}

	replacement, err := l.Book(ctx, BookRequest{
		PatientID:     old.PatientID,
		DoctorID:      old.DoctorID,
		ScheduledTime: newTime,
		Reason:        old.Reason,
		Notes:         old.Notes,
		Priority:      old.Priority,
	})
	if err != nil {
		return nil, &RescheduleError{ReleasedOld: true, Err: err}
	}

	l.logEvent(ctx, replacement.ID, EventRescheduled, map[string]any{
		"previous_appointment_id": old.ID.String(),
		"previous_time":           old.ScheduledTime,
		"new_time":                replacement.ScheduledTime,
	})
	l.notifier.Notify(ctx, replacement.PatientID, fmt.Sprintf(
		"Your appointment has been moved to %s",
		replacement.ScheduledTime.Format("02/01/2006 15:04"),
	))

	return replacement, nil
}

// Get retrieves one appointment by id.
func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return l.repo.GetByID(ctx, id)
}

// List retrieves appointments by patient, doctor, status or day, ordered by
// scheduled time.
func (l *Ledger) List(ctx context.Context, f ListFilter) ([]Appointment, error) {
	return l.repo.List(ctx, f)
}

// withLock acquires the per-slot lock, retrying a bounded number of times
// before surfacing retryable contention.
func (l *Ledger) withLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= l.retries; attempt++ {
		err = l.locker.WithLock(ctx, key, fn)
		if !errors.Is(err, redisclient.ErrLockNotAcquired) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
	return ErrContention
}

func (l *Ledger) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		l.log.Error().Err(err).Str("event", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID
	ev := Event{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := l.repo.InsertEvent(ctx, ev); err != nil {
		l.log.Error().Err(err).Str("event", eventType).Stringer("appointment_id", appointmentID).Msg("insert event log")
	}
}
