/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the web frontend

SECURITY NOTE:
  No authentication middleware here; auth/session management is owned by
  the surrounding platform and terminated before requests reach this
  service.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Student routes
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Get("/{id}", h.GetStudent)
			r.Get("/{id}/cycles", h.ListCycles)
			r.Post("/{id}/cycles", h.CreateCycle)
			r.Post("/{id}/schedule", h.GenerateSchedule)
			r.Get("/{id}/periods/pending", h.GetPendingPeriods)
			r.Get("/{id}/periods/overdue", h.GetOverduePeriods)
			r.Get("/{id}/dues", h.GetDues)
		})

		// Billing routes
		r.Route("/bills", func(r chi.Router) {
			r.Post("/", h.IssueBill)
			r.Post("/{id}/payments", h.RecordPayment)
		})

		r.Route("/periods", func(r chi.Router) {
			r.Post("/{id}/waive", h.WaivePeriod)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/mark-overdue", h.TriggerMarkOverdue)
			r.Get("/overdue-runs", h.ListOverdueRuns)
		})
	})

	return r
}
