package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/account"
	"github.com/medbook/medbook/internal/appointment"
	"github.com/medbook/medbook/internal/reporting"
	"github.com/medbook/medbook/internal/scheduling"
)

// RouterConfig carries everything the HTTP layer needs. Pool, Redis and
// Metrics are optional so tests can run the router on in-memory stores.
type RouterConfig struct {
	Accounts     *account.Service
	Scheduling   *scheduling.Service
	Appointments *appointment.Service
	Reports      reporting.Store
	JWTSecret    string
	Logger       zerolog.Logger
	Metrics      *Metrics
	Pool         *pgxpool.Pool
	Redis        *redis.Client
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(MetricsMiddleware(cfg.Metrics))

	r.Get("/health/live", LivenessHandler)
	r.Get("/health/ready", ReadinessHandler(cfg.Pool, cfg.Redis))
	if cfg.Metrics != nil {
		r.Handle("/metrics", MetricsHandler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", registerHandler(cfg.Accounts))
		r.Post("/auth/login", loginHandler(cfg.Accounts))

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.JWTSecret))

			r.Get("/doctors", listDoctorsHandler(cfg.Accounts))
			r.Get("/doctors/{id}/slots", doctorSlotsHandler(cfg.Scheduling))
			r.Get("/dashboard", dashboardHandler(cfg.Reports))

			// Planning and slot administration.
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(account.RoleManager, account.RoleAdmin))

				r.Post("/staff", createStaffHandler(cfg.Accounts))
				r.Get("/plannings", listPlanningsHandler(cfg.Scheduling))
				r.Get("/plannings/{id}", getPlanningHandler(cfg.Scheduling))
				r.Post("/plannings/generate", generatePlanningsHandler(cfg.Scheduling))
				r.Post("/slots/{id}/block", blockSlotHandler(cfg.Scheduling))
				r.Post("/slots/{id}/unblock", unblockSlotHandler(cfg.Scheduling))
			})

			// Unavailability declarations.
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(account.RoleDoctor, account.RoleManager, account.RoleAdmin))

				r.Post("/unavailabilities", createUnavailabilityHandler(cfg.Scheduling))
				r.Post("/unavailabilities/{id}/apply", applyUnavailabilityHandler(cfg.Scheduling))
				r.Get("/doctors/{id}/unavailabilities", listUnavailabilitiesHandler(cfg.Scheduling))
			})

			// Booking is a patient action.
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(account.RolePatient))

				r.Post("/appointments", bookAppointmentHandler(cfg.Appointments, cfg.Metrics))
			})

			// Cancel and complete are doctor actions on owned appointments.
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(account.RoleDoctor))

				r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
				r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Appointments))
			})

			r.Get("/appointments", listAppointmentsHandler(cfg.Appointments))
			r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
		})
	})

	return r
}
