/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/teammates/*      Teammate directory, breakdowns, remaining capacity
  /api/teams/*          Team directory, metrics, risks, calendars
  /api/allocations/*    Ledger mutations (assign / update / remove / bulk)
  /api/leave            Leave collaborator feed
  /api/holidays         Holiday calendar feed
  /api/adjustments      Ad-hoc capacity adjustments
  /health               Liveness probe

SECURITY NOTE:
  No authentication middleware. The engine sits behind the workspace
  gateway which owns authn/authz.

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

// RouterConfig holds the router's deployment-specific knobs.
type RouterConfig struct {
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Teammate routes
		r.Route("/teammates", func(r chi.Router) {
			r.Get("/", h.ListTeammates)
			r.Post("/", h.CreateTeammate)
			r.Get("/{id}", h.GetTeammate)
			r.Delete("/{id}", h.DeactivateTeammate)
			r.Post("/{id}/deactivate", h.DeactivateTeammate)
			r.Get("/{id}/breakdown", h.GetBreakdown)
			r.Get("/{id}/remaining", h.GetRemaining)
			r.Get("/{id}/allocations", h.ListTeammateAllocations)
		})

		// Team routes
		r.Route("/teams", func(r chi.Router) {
			r.Get("/", h.ListTeams)
			r.Post("/", h.CreateTeam)
			r.Get("/{id}", h.GetTeam)
			r.Get("/{id}/allocations", h.ListTeamAllocations)
			r.Get("/{id}/metrics", h.GetTeamMetrics)
			r.Get("/{id}/risks", h.GetTeamRisks)
			r.Post("/{id}/calendars", h.LinkTeamCalendar)
		})

		// Ledger routes
		r.Route("/allocations", func(r chi.Router) {
			r.Post("/", h.Assign)
			r.Put("/", h.UpdateAllocation)
			r.Delete("/", h.RemoveAllocation)
			r.Post("/bulk", h.BulkAssign)
		})

		// Collaborator feed routes
		r.Get("/leave", h.ListLeave)
		r.Post("/leave", h.CreateLeave)
		r.Post("/holidays", h.CreateHoliday)
		r.Post("/adjustments", h.CreateAdjustment)

		r.Get("/health", h.Health)
	})

	return r
}
