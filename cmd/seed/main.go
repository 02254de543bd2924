package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/scheduling-engine/internal/db"
)

// Seeds weekly work templates for a batch of doctor ids. Doctor and patient
// profiles live in the user service; this engine only needs their ids, so the
// seed prints the generated doctor ids for use with cmd/simulate.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedWorkTemplates(context.Background(), pool, 50); err != nil {
		log.Fatalf("seed work templates: %v", err)
	}

	log.Println("seed complete")
}

func seedWorkTemplates(ctx context.Context, pool *pgxpool.Pool, doctors int) error {
	log.Printf("seeding templates for %d doctors", doctors)

	durations := []int{15, 20, 30, 60}

	for i := 0; i < doctors; i++ {
		doctorID := uuid.New()
		duration := durations[gofakeit.Number(0, len(durations)-1)]
		maxPerHour := gofakeit.Number(2, 6)

		// Monday through Friday, a morning block and usually an afternoon one.
		for weekday := 1; weekday <= 5; weekday++ {
			if err := insertTemplate(ctx, pool, doctorID, weekday, 8*60, 12*60, duration, maxPerHour); err != nil {
				return err
			}
			if gofakeit.Bool() {
				if err := insertTemplate(ctx, pool, doctorID, weekday, 13*60+30, 17*60, duration, maxPerHour); err != nil {
					return err
				}
			}
		}

		log.Printf("doctor %s visit_duration=%dm max_per_hour=%d", doctorID, duration, maxPerHour)
	}

	return nil
}

func insertTemplate(ctx context.Context, pool *pgxpool.Pool, doctorID uuid.UUID, weekday, start, end, duration, maxPerHour int) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO work_templates
			(id, doctor_id, weekday, start_minute, end_minute, visit_duration_min, max_patients_per_hour, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true, now(), now())
		ON CONFLICT (doctor_id, weekday, start_minute) DO NOTHING
	`, uuid.New(), doctorID, weekday, start, end, duration, maxPerHour)
	return err
}
