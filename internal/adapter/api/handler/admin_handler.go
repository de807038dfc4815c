package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
	"github.com/V4T54L/tabletop/internal/usecase"
)

// AdminHandler handles operator requests on the admin listener.
type AdminHandler struct {
	uc     *usecase.AdminUseCase
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(uc *usecase.AdminUseCase, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{uc: uc, logger: logger}
}

// HealthCheck reports whether the store is reachable.
// GET /health
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, h.logger, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetTenant returns a tenant record.
// GET /admin/tenants/{apiKey}
func (h *AdminHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.uc.Tenant(r.Context(), chi.URLParam(r, "apiKey"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, tenant)
}

// SetTenantStatus suspends or reactivates a tenant.
// PUT /admin/tenants/{apiKey}/status
func (h *AdminHandler) SetTenantStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status domain.TenantStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	tenant, err := h.uc.SetTenantStatus(r.Context(), chi.URLParam(r, "apiKey"), payload.Status)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, tenant)
}

// AuditStats summarises the audit stream.
// GET /admin/audit/stream
func (h *AdminHandler) AuditStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.uc.AuditStats(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, stats)
}

// TrimAudit caps the audit stream length.
// POST /admin/audit/stream/trim
func (h *AdminHandler) TrimAudit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MaxLen int64 `json:"maxlen"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	trimmed, err := h.uc.TrimAudit(r.Context(), payload.MaxLen)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]int64{"trimmed": trimmed})
}
