/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the ERP frontend

ROUTE GROUPS:
  /api/shipments/*    Landed-cost computation, confirmation, export
  /api/lots/*         Bulk price-change lots
  /api/rules/*        Markup and discount rules
  /api/quotes         Customer price resolution
  /api/simulations    What-if scenarios
  /api/catalog        Catalog reads
  /api/scenarios/*    Demo scenarios (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.
  Authorization is handled by the host ERP in front of this service.

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
		// Landed-cost routes
		r.Route("/shipments", func(r chi.Router) {
			r.Post("/{id}/landed-cost", h.ComputeLandedCost)
			r.Post("/{id}/landed-cost/confirm", h.ConfirmLandedCost)
			r.Post("/{id}/landed-cost/export", h.ExportLandedCost)
		})

		// Price-change lot routes
		r.Route("/lots", func(r chi.Router) {
			r.Get("/", h.ListLots)
			r.Post("/preview", h.PreviewLot)
			r.Post("/apply", h.ApplyLot)
			r.Get("/{id}", h.GetLot)
			r.Post("/{id}/rollback", h.RollbackLot)
			r.Get("/{id}/export", h.ExportLot)
		})

		// Rule routes
		r.Route("/rules", func(r chi.Router) {
			r.Get("/markup", h.ListMarkupRules)
			r.Post("/markup", h.CreateMarkupRule)
			r.Post("/markup/{id}/activate", h.SetMarkupRuleActive)
			r.Get("/discount", h.ListDiscountRules)
			r.Post("/discount", h.CreateDiscountRule)
			r.Post("/discount/{id}/activate", h.SetDiscountRuleActive)
		})

		// Quote routes
		r.Post("/quotes", h.Quote)

		// Simulation routes
		r.Post("/simulations", h.Simulate)

		// Catalog routes
		r.Get("/catalog", h.ListCatalog)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
