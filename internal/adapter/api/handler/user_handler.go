package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/adapter/api/middleware"
	"github.com/V4T54L/tabletop/internal/domain"
	"github.com/V4T54L/tabletop/internal/usecase"
)

// UserHandler serves tenant staff accounts.
type UserHandler struct {
	svc    *usecase.UserService
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *usecase.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// List returns users. With status, page or pageSize set it returns a page,
// otherwise every user optionally narrowed by role.
// GET /users?role={role}
// GET /users?status={status}&page={page}&pageSize={pageSize}
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromContext(r.Context())
	q := r.URL.Query()

	if q.Has("status") || q.Has("page") || q.Has("pageSize") {
		page, err := parseInt(q.Get("page"), "page")
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		pageSize, err := parseInt(q.Get("pageSize"), "pageSize")
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		result, err := h.svc.ListPage(r.Context(), scope, domain.ParseUserStatus(q.Get("status")), page, pageSize)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, result)
		return
	}

	users, err := h.svc.List(r.Context(), scope, q.Get("role"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, users)
}

// ExportCSV streams users as a CSV attachment.
// GET /users/export/csv?status={status}
func (h *UserHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	status := domain.UserStatusAll
	if s := r.URL.Query().Get("status"); s != "" {
		status = domain.ParseUserStatus(s)
	}

	// Buffered so a store failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := h.svc.ExportCSV(r.Context(), middleware.ScopeFromContext(r.Context()), status, &buf); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="users.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Get returns one user.
// GET /users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Get(r.Context(), middleware.ScopeFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, user)
}

// Create adds a user.
// POST /users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in usecase.UserInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	user, err := h.svc.Create(r.Context(), middleware.ScopeFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, user)
}

// Update merges the supplied fields into a user.
// PUT /users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in usecase.UserInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	user, err := h.svc.Update(r.Context(), middleware.ScopeFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, user)
}

// Delete soft deletes a user.
// DELETE /users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.SoftDelete(r.Context(), middleware.ScopeFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, user)
}

// ReEnable restores a soft deleted user, applying optional overrides.
// POST /users/{id}/re-enable
func (h *UserHandler) ReEnable(w http.ResponseWriter, r *http.Request) {
	var in usecase.UserInput
	if err := decodeOptionalJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	user, err := h.svc.ReEnable(r.Context(), middleware.ScopeFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, user)
}

// Purge permanently removes a user and its directory entry.
// DELETE /users/{id}/permanent
func (h *UserHandler) Purge(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Purge(r.Context(), middleware.ScopeFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, messageResponse{Message: "user permanently deleted"})
}

func parseInt(s, field string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, domain.NewValidationError(field, "must be an integer")
	}
	return n, nil
}
