package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicore/scheduling-engine/internal/availability"
	"github.com/clinicore/scheduling-engine/internal/booking"
	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/internal/slot"
)

type RouterConfig struct {
	Ledger     *booking.Ledger
	Allocator  *slot.Allocator
	Aggregator *availability.Aggregator
	Catalog    *schedule.Catalog
	Location   *time.Location
	PgPool     *pgxpool.Pool
	Redis      *redis.Client
	Env        string
	Version    string
	Logger     zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/appointments", bookAppointmentHandler(cfg.Ledger, cfg.Location))
	r.Get("/appointments", listAppointmentsHandler(cfg.Ledger, cfg.Location))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Ledger))
	r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Ledger))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Ledger))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Ledger))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Ledger, cfg.Location))

	r.Get("/doctors/{id}/slots", availableSlotsHandler(cfg.Allocator, cfg.Location))
	r.Get("/doctors/{id}/availability", dailyAvailabilityHandler(cfg.Aggregator, cfg.Location))

	r.Post("/schedules", createScheduleHandler(cfg.Catalog))
	r.Get("/schedules", listSchedulesHandler(cfg.Catalog))

	return r
}
