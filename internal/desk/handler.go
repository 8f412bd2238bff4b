package desk

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

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

// CreateDesk handles POST /desks
func (h *Handler) CreateDesk(w http.ResponseWriter, r *http.Request) {
	var dto CreateDeskDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.Service.CreateDesk(r.Context(), dto)
	if err != nil {
		h.Logger.Error("CreateDesk: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, d)
}

// GetDesk handles GET /desks/{id}
func (h *Handler) GetDesk(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid desk id")
		return
	}

	d, err := h.Service.GetDesk(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, d)
}

// ListDesks handles GET /desks
func (h *Handler) ListDesks(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	desks, err := h.Service.ListDesks(r.Context(), includeInactive)
	if err != nil {
		h.Logger.Error("ListDesks: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, desks)
}

// UpdateDesk handles PATCH /desks/{id}
func (h *Handler) UpdateDesk(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid desk id")
		return
	}

	var dto UpdateDeskDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.Service.UpdateDesk(r.Context(), id, dto)
	if err != nil {
		h.Logger.Error("UpdateDesk: service error", "error", err, "desk_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, d)
}

// DeactivateDesk handles DELETE /desks/{id}
func (h *Handler) DeactivateDesk(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid desk id")
		return
	}

	if err := h.Service.DeactivateDesk(r.Context(), id); err != nil {
		h.Logger.Error("DeactivateDesk: service error", "error", err, "desk_id", id)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMembers handles GET /desks/{id}/users
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid desk id")
		return
	}

	members, err := h.Service.ListMembers(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, members)
}

// SetPrimary handles PUT /desks/{id}/primary
func (h *Handler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid desk id")
		return
	}

	var dto SetPrimaryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Service.SetPrimaryDesk(r.Context(), id, dto.UserID); err != nil {
		h.Logger.Error("SetPrimary: service error", "error", err, "desk_id", id, "user_id", dto.UserID)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
