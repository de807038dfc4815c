package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/adapter/api/middleware"
	"github.com/V4T54L/tabletop/internal/usecase"
)

// SettingsHandler serves tenant settings and item code generation.
type SettingsHandler struct {
	settings *usecase.SettingsService
	menu     *usecase.MenuService
	logger   *zap.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settings *usecase.SettingsService, menu *usecase.MenuService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, menu: menu, logger: logger}
}

// Get returns the effective settings document of a type.
// GET /settings/{type}
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.settings.Get(r.Context(), middleware.ScopeFromContext(r.Context()), chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, doc)
}

// Upsert merges the body into the tenant's settings document.
// PUT /settings/{type}
func (h *SettingsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decodeJSON(w, r, &fields); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	doc, err := h.settings.Upsert(r.Context(), middleware.ScopeFromContext(r.Context()), chi.URLParam(r, "type"), fields)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, doc)
}

// GenerateCode returns the next sequential item code.
// GET /settings/generate-code
func (h *SettingsHandler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.menu.NextCode(r.Context(), middleware.ScopeFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"code": code})
}
