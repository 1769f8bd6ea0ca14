package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transferdesk/internal/auth"
)

// NewRouter wires the public endpoints. Validation and auth endpoints are
// open; everything touching records or learning requires a session.
func NewRouter(h *Handler, authService *auth.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/api/health", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/auth/register", h.handleRegister)
	r.Post("/api/auth/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(authService))

		r.Post("/api/validate", h.handleValidate)
		r.Get("/api/contra-firms", h.handleContraFirms)

		r.Post("/api/acats", h.handleCreateRecord)
		r.Get("/api/acats", h.handleListRecords)
		r.Get("/api/acats/{id}", h.handleGetRecord)
		r.Post("/api/acats/{id}/status", h.handleStatusUpdate)

		r.Get("/api/learning/insights", h.handleLearningInsights)

		r.Post("/api/users/{id}/approve", h.handleApproveUser)
		r.Post("/api/users/{id}/reject", h.handleRejectUser)
	})

	return r
}
