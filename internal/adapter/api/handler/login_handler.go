package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
	"github.com/V4T54L/tabletop/internal/usecase"
)

type loginRequest struct {
	UserPhone string `json:"userPhone"`
	CompanyID string `json:"companyId"`
	Password  string `json:"password"`
}

// LoginHandler serves the two login phases.
type LoginHandler struct {
	svc    *usecase.LoginService
	logger *zap.Logger
}

// NewLoginHandler creates a new LoginHandler.
func NewLoginHandler(svc *usecase.LoginService, logger *zap.Logger) *LoginHandler {
	return &LoginHandler{svc: svc, logger: logger}
}

// Check identifies the tenant of a phone number.
// POST /login/check
func (h *LoginHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	identity, err := h.svc.Check(r.Context(), req.UserPhone, req.CompanyID)
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, h.logger, http.StatusUnauthorized, errorResponse{Error: "user not found"})
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, identity)
}

// Complete verifies the password digest and issues a session token.
// POST /login/complete
func (h *LoginHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	session, err := h.svc.Complete(r.Context(), req.UserPhone, req.CompanyID, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, session)
}
