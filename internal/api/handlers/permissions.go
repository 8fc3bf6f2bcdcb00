package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/api/dto"
	"github.com/hugh/prompthub/internal/api/middleware"
	"github.com/hugh/prompthub/internal/permission"
)

type PermissionHandler struct {
	engine *permission.Engine
	logger *slog.Logger
}

func NewPermissionHandler(engine *permission.Engine, logger *slog.Logger) *PermissionHandler {
	return &PermissionHandler{engine: engine, logger: logger}
}

type roleChange func(ctx context.Context, callerID, targetID uuid.UUID, roles []string) ([]string, error)

func (h *PermissionHandler) Show(w http.ResponseWriter, r *http.Request) {
	targetID, ok := pathUUID(w, r, h.logger, "id")
	if !ok {
		return
	}

	roles, err := h.engine.Show(r.Context(), middleware.GetAccountID(r.Context()), targetID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RolesResponse{AccountID: targetID.String(), Roles: roles})
}

func (h *PermissionHandler) Grant(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.engine.Grant)
}

// Replace reconciles the target's roles to exactly the requested set.
func (h *PermissionHandler) Replace(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.engine.ReplaceRoleSet)
}

func (h *PermissionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.engine.Revoke)
}

func (h *PermissionHandler) change(w http.ResponseWriter, r *http.Request, apply roleChange) {
	targetID, ok := pathUUID(w, r, h.logger, "id")
	if !ok {
		return
	}
	var req dto.RolesRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	roles, err := apply(r.Context(), middleware.GetAccountID(r.Context()), targetID, req.Roles)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RolesResponse{AccountID: targetID.String(), Roles: roles})
}
