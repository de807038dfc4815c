package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/usecase"
)

// InstanceHandler provisions new tenants.
type InstanceHandler struct {
	provisioner *usecase.Provisioner
	logger      *zap.Logger
}

// NewInstanceHandler creates a new InstanceHandler.
func NewInstanceHandler(provisioner *usecase.Provisioner, logger *zap.Logger) *InstanceHandler {
	return &InstanceHandler{provisioner: provisioner, logger: logger}
}

// Create provisions a tenant.
// POST /instances/create
func (h *InstanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req usecase.ProvisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.provisioner.Provision(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, result)
}
