package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/adapter/api/middleware"
	"github.com/V4T54L/tabletop/internal/usecase"
)

type existsResponse struct {
	Exists bool `json:"exists"`
}

// MenuHandler serves the tenant menu.
type MenuHandler struct {
	svc    *usecase.MenuService
	logger *zap.Logger
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(svc *usecase.MenuService, logger *zap.Logger) *MenuHandler {
	return &MenuHandler{svc: svc, logger: logger}
}

// List returns every item.
// GET /menu
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "")
}

// ListByCategory returns the items of one category.
// GET /menu/category/{category}
func (h *MenuHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, chi.URLParam(r, "category"))
}

func (h *MenuHandler) list(w http.ResponseWriter, r *http.Request, category string) {
	items, err := h.svc.List(r.Context(), middleware.ScopeFromContext(r.Context()), category)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, items)
}

// CheckName reports whether an item name is taken.
// GET /menu/check-name?name={name}&excludeId={id}
func (h *MenuHandler) CheckName(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	exists, err := h.svc.NameExists(r.Context(), middleware.ScopeFromContext(r.Context()), q.Get("name"), q.Get("excludeId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, existsResponse{Exists: exists})
}

// CheckCode reports whether an item code is taken.
// GET /menu/check-code?code={code}&excludeId={id}
func (h *MenuHandler) CheckCode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	exists, err := h.svc.CodeExists(r.Context(), middleware.ScopeFromContext(r.Context()), q.Get("code"), q.Get("excludeId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, existsResponse{Exists: exists})
}

// Create adds an item.
// POST /menu
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in usecase.MenuItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	item, err := h.svc.Create(r.Context(), middleware.ScopeFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, item)
}

// Update merges the supplied fields into an item.
// PUT /menu/{id}
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in usecase.MenuItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	item, err := h.svc.Update(r.Context(), middleware.ScopeFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, item)
}

// Delete removes an item.
// DELETE /menu/{id}
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), middleware.ScopeFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, messageResponse{Message: "item deleted"})
}
