/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/entries/*    Work-log entry commands
  /api/absences/*   Absence commands
  /api/members/*    Monthly submission
  /api/approvals/*  Review workflow
  /api/calendar/*   Period resolution

SEE ALSO:
  - handlers.go: handler implementations
  - cmd/server/main.go: server startup
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
		// Work-log entry routes
		r.Route("/entries", func(r chi.Router) {
			r.Post("/", h.CreateEntry)
			r.Get("/{id}", h.GetEntry)
			r.Put("/{id}", h.UpdateEntry)
			r.Delete("/{id}", h.DeleteEntry)
			r.Post("/{id}/status", h.ChangeEntryStatus)
		})

		// Absence routes
		r.Route("/absences", func(r chi.Router) {
			r.Post("/", h.CreateAbsence)
			r.Get("/{id}", h.GetAbsence)
			r.Put("/{id}", h.UpdateAbsence)
			r.Delete("/{id}", h.DeleteAbsence)
			r.Post("/{id}/status", h.ChangeAbsenceStatus)
		})

		// Monthly submission
		r.Route("/members", func(r chi.Router) {
			r.Post("/{id}/submissions", h.SubmitMonth)
		})

		// Review workflow
		r.Route("/approvals", func(r chi.Router) {
			r.Get("/{id}", h.GetApproval)
			r.Post("/{id}/approve", h.ApproveMonth)
			r.Post("/{id}/reject", h.RejectMonth)
		})

		// Calendar resolution
		r.Route("/calendar", func(r chi.Router) {
			r.Get("/periods", h.GetClosingPeriod)
			r.Get("/fiscal-year", h.GetFiscalYear)
		})
	})

	return r
}
