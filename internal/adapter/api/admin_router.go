package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/adapter/api/handler"
	"github.com/V4T54L/tabletop/internal/usecase"
)

// NewAdminRouter creates the router of the admin and metrics listener.
func NewAdminRouter(adminUseCase *usecase.AdminUseCase, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	adminHandler := handler.NewAdminHandler(adminUseCase, logger)

	r.Get("/health", adminHandler.HealthCheck)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Tenants
	r.Get("/admin/tenants/{apiKey}", adminHandler.GetTenant)
	r.Put("/admin/tenants/{apiKey}/status", adminHandler.SetTenantStatus)

	// Audit stream
	r.Get("/admin/audit/stream", adminHandler.AuditStats)
	r.Post("/admin/audit/stream/trim", adminHandler.TrimAudit)

	return r
}
