package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanTemplate(row pgx.Row) (*WorkTemplate, error) {
	var t WorkTemplate
	var weekday, start, end int

	err := row.Scan(
		&t.ID,
		&t.DoctorID,
		&weekday,
		&start,
		&end,
		&t.VisitDurationMin,
		&t.MaxPatientsPerHour,
		&t.Active,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Weekday = time.Weekday(weekday)
	t.Start = TimeOfDay(start)
	t.End = TimeOfDay(end)
	return &t, nil
}

func (r *PgRepository) Insert(ctx context.Context, t *WorkTemplate) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO work_templates
			(id, doctor_id, weekday, start_minute, end_minute, visit_duration_min, max_patients_per_hour, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
	`, t.ID, t.DoctorID, int(t.Weekday), int(t.Start), int(t.End), t.VisitDurationMin, t.MaxPatientsPerHour, t.Active)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrTemplateExists
		}
		return err
	}
	return nil
}

func (r *PgRepository) ListByDoctorWeekday(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]WorkTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, weekday, start_minute, end_minute, visit_duration_min, max_patients_per_hour, active, created_at, updated_at
		FROM work_templates
		WHERE doctor_id = $1 AND weekday = $2 AND active
		ORDER BY start_minute
	`, doctorID, int(weekday))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTemplates(rows)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]WorkTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, weekday, start_minute, end_minute, visit_duration_min, max_patients_per_hour, active, created_at, updated_at
		FROM work_templates
		WHERE doctor_id = $1 AND active
		ORDER BY weekday, start_minute
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTemplates(rows)
}

func collectTemplates(rows pgx.Rows) ([]WorkTemplate, error) {
	var result []WorkTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
