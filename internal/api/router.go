package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/equilibra/burnout-scheduling/internal/scheduling"
	"github.com/equilibra/burnout-scheduling/internal/survey"
)

type RouterConfig struct {
	Scheduling *scheduling.Service
	Surveys    *survey.Service
	Directory  UserDirectory
	PgPool     *pgxpool.Pool
	Redis      *redis.Client
	Env        string
	Version    string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health and metrics endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Doctor directory and availability
	r.Get("/doctors", listDoctorsHandler(cfg.Scheduling))
	r.Get("/doctors/{id}/slots", getDoctorSlotsHandler(cfg.Scheduling))

	// Authenticated endpoints
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Directory))

		r.Post("/appointments", createAppointmentHandler(cfg.Scheduling))
		r.Get("/appointments", listAppointmentsHandler(cfg.Scheduling))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Scheduling))
		r.Patch("/appointments/{id}", updateAppointmentHandler(cfg.Scheduling))

		r.Post("/surveys", submitSurveyHandler(cfg.Surveys))
		r.Get("/surveys", listSurveysHandler(cfg.Surveys))
	})

	return r
}
