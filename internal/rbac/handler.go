package rbac

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/profixcrm/profixcrm/internal/auth"
	"github.com/profixcrm/profixcrm/internal/transport"
	"github.com/profixcrm/profixcrm/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		Service:     svc,
	}
}

// ListRoles handles GET /roles
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.ListRoles(r.Context())
	if err != nil {
		h.Logger.Error("ListRoles: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, roles)
}

// ListPermissions handles GET /permissions, serving the static catalog.
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.Service.ListPermissions(r.Context()))
}

// AssignRole handles POST /users/{id}/roles
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	userID, err := h.pathID(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var dto AssignRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Service.AssignRole(r.Context(), userID, dto.Role, h.actorID(r)); err != nil {
		h.Logger.Error("AssignRole: service error", "error", err, "user_id", userID, "role", dto.Role)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GrantPermission handles POST /roles/{id}/permissions
func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	roleID, err := h.pathID(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid role id")
		return
	}

	var dto GrantPermissionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	permission, err := ParsePermission(dto.Permission)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.GrantPermission(r.Context(), roleID, permission, h.actorID(r)); err != nil {
		h.Logger.Error("GrantPermission: service error", "error", err, "role_id", roleID, "permission", dto.Permission)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AssignDesk handles POST /desks/{id}/users
func (h *Handler) AssignDesk(w http.ResponseWriter, r *http.Request) {
	deskID, err := h.pathID(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid desk id")
		return
	}

	var dto AssignDeskDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Service.AssignDesk(r.Context(), deskID, dto.UserID, h.actorID(r)); err != nil {
		h.Logger.Error("AssignDesk: service error", "error", err, "desk_id", deskID, "user_id", dto.UserID)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetUserAccess handles GET /users/{id}/access, the diagnostic report.
func (h *Handler) GetUserAccess(w http.ResponseWriter, r *http.Request) {
	userID, err := h.pathID(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	report, err := h.Service.DescribeUserAccess(r.Context(), userID)
	if err != nil {
		h.Logger.Error("GetUserAccess: service error", "error", err, "user_id", userID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (h *Handler) actorID(r *http.Request) *int64 {
	if user, ok := auth.UserFromContext(r.Context()); ok && user != nil {
		id := user.ID
		return &id
	}
	return nil
}
