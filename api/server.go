/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/users/*       Workspace, lost days, user management
  /api/readings      Measurement commits and history
  /api/responses     Checklist submissions
  /api/reports/*     Presence ranking
  /api/alerts/*      Violation inbox
  /api/...           Master data collections
  /api/scenarios/*   Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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

	r.Route("/api", func(r chi.Router) {
		// Workspace and user routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.SaveUser)
			r.Delete("/{id}", h.DeleteUser)
			r.Get("/{id}/workspace", h.GetWorkspace)
			r.Get("/{id}/lost-days", h.GetLostDays)
		})

		// Audit records
		r.Route("/readings", func(r chi.Router) {
			r.Get("/", h.ListReadings)
			r.Post("/", h.SubmitReading)
		})
		r.Route("/responses", func(r chi.Router) {
			r.Get("/", h.ListFormResponses)
			r.Post("/", h.SubmitFormResponse)
		})

		// Reports
		r.Get("/reports/presence", h.GetPresenceReport)

		// Alerts
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.ListAlerts)
			r.Post("/{id}/resolve", h.ResolveAlert)
		})

		// Master data
		r.Route("/facilities", func(r chi.Router) {
			r.Get("/", h.ListFacilities)
			r.Post("/", h.SaveFacility)
			r.Delete("/{id}", h.DeleteFacility)
		})
		r.Route("/facility-types", func(r chi.Router) {
			r.Get("/", h.ListFacilityTypes)
			r.Post("/", h.SaveFacilityType)
			r.Delete("/{id}", h.DeleteFacilityType)
		})
		r.Route("/refrigerators", func(r chi.Router) {
			r.Get("/", h.ListRefrigerators)
			r.Post("/", h.SaveRefrigerator)
			r.Delete("/{id}", h.DeleteRefrigerator)
		})
		r.Route("/refrigerator-types", func(r chi.Router) {
			r.Get("/", h.ListRefrigeratorTypes)
			r.Post("/", h.SaveRefrigeratorType)
			r.Delete("/{id}", h.DeleteRefrigeratorType)
		})
		r.Route("/cooking-methods", func(r chi.Router) {
			r.Get("/", h.ListCookingMethods)
			r.Post("/", h.SaveCookingMethod)
			r.Delete("/{id}", h.DeleteCookingMethod)
		})
		r.Route("/menus", func(r chi.Router) {
			r.Get("/", h.ListMenus)
			r.Post("/", h.SaveMenu)
			r.Delete("/{id}", h.DeleteMenu)
		})
		r.Route("/forms", func(r chi.Router) {
			r.Get("/", h.ListFormTemplates)
			r.Post("/", h.SaveFormTemplate)
			r.Delete("/{id}", h.DeleteFormTemplate)
		})
		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", h.ListAssignments)
			r.Post("/", h.SaveAssignment)
			r.Delete("/{id}", h.DeleteAssignment)
		})
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.SaveHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})
		r.Route("/exceptions", func(r chi.Router) {
			r.Get("/", h.ListExceptions)
			r.Post("/", h.SaveException)
			r.Delete("/{id}", h.DeleteException)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetScenario)
		})
	})

	return r
}
