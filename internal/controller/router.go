package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/staffdesk/hradmin/internal/infrastructure/config"
	"github.com/staffdesk/hradmin/internal/infrastructure/observability"
	customMW "github.com/staffdesk/hradmin/internal/middleware"
	"github.com/staffdesk/hradmin/internal/service"
)

type RouterDeps struct {
	DB                 Pinger
	Redis              Pinger
	AuthService        *service.AuthService
	EmployeeService    *service.EmployeeService
	PayoutService      *service.PayoutService
	IdempotencyStore   customMW.IdempotencyStore
	IdempotencyTTL     time.Duration
	Metrics            *observability.Metrics
	CORSConfig         config.CORSConfig
	JWTSecret          string
	LoginRatePerMinute int
	MaxUploadBytes     int64
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	if deps.Metrics != nil {
		r.Use(customMW.Metrics(deps.Metrics))
	}

	healthH := NewHealthController(deps.DB, deps.Redis)
	authH := NewAuthController(deps.AuthService)
	employeeH := NewEmployeeController(deps.EmployeeService)
	payoutH := NewPayoutController(deps.PayoutService, deps.MaxUploadBytes)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/mobile/health", healthH.MobileHealth)

		r.With(customMW.LoginRateLimit(deps.LoginRatePerMinute)).Post("/admin/auth/login", authH.Login)

		// Everything below requires a bearer token.
		r.Group(func(r chi.Router) {
			r.Use(customMW.RequireAuth(deps.JWTSecret))

			r.Get("/admin/auth/me", authH.Me)
			r.Post("/admin/auth/logout", authH.Logout)
			r.Put("/admin/profile", authH.UpdateProfile)

			r.Get("/admin/employees", employeeH.List)
			r.Post("/admin/employees", employeeH.Create)
			r.Get("/admin/employees/{id}", employeeH.Get)
			r.Put("/admin/employees/{id}", employeeH.Update)
			r.Delete("/admin/employees/{id}", employeeH.Delete)

			r.With(customMW.Idempotency(deps.IdempotencyStore, deps.IdempotencyTTL)).Post("/payouts", payoutH.ManualPayout)
			r.Get("/payouts/template", payoutH.Template)
			r.Post("/payouts/batches", payoutH.SubmitBatch)
			r.Get("/payouts/batches", payoutH.ListBatches)
			r.Get("/payouts/batches/{id}", payoutH.GetBatch)
			r.Get("/payouts/batches/{id}/rows", payoutH.GetBatchRows)
		})
	})

	return r
}
