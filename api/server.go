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
  1. CORS:          Cross-origin requests for frontend
  2. RequestLogger: Structured request logging (httplog over slog, ECS schema)
  3. CleanPath:     Normalizes request paths
  4. Recoverer:     Panic recovery (500 instead of crash)
  5. RequestID:     Unique ID per request for tracing
  6. Heartbeat:     Liveness probe on /healthz

ROUTE GROUPS:
  /api/sessions/*    Submission, edits, audit trails
  /api/actions       Approval pipeline actions
  /api/queues/*      Stage work lists
  /api/employees/*   Claim group views
  /api/formulas/*    Rate formula configuration
  /api/rules         Threshold rule configuration
  /api/thresholds/*  Threshold preview
  /api/holidays      Holiday calendar

SECURITY NOTE:
  No authentication middleware. Identity and role gating are the
  embedding application's concern; see handlers.go.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "overtime-engine"),
	)

	// Middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.CleanPath)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Heartbeat("/healthz"))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Session routes
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.SubmitSession)
			r.Post("/{id}/edit", h.EditSession)
			r.Get("/{id}/audit", h.GetSessionAudit)
		})

		// Approval routes
		r.Post("/actions", h.ApplyAction)
		r.Get("/queues/{status}", h.ListQueue)

		// Claim group views
		r.Route("/employees", func(r chi.Router) {
			r.Get("/{id}/groups/{date}", h.GetGroup)
		})

		// Formula routes
		r.Route("/formulas", func(r chi.Router) {
			r.Get("/", h.ListFormulas)
			r.Post("/", h.CreateFormula)
			r.Post("/validate", h.ValidateExpression)
		})

		// Threshold routes
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.ListRules)
			r.Post("/", h.CreateRule)
		})
		r.Post("/thresholds/preview", h.PreviewThresholds)

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/", h.DeleteHoliday)
		})
	})

	return r
}
