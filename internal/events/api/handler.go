package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventless/internal/auth"
	"eventless/internal/events"
	"eventless/internal/logger"
	"eventless/internal/utils"
)

type Handler struct {
	Service *events.Service
	Logger  *logger.Logger
}

// RegisterPublicRoutes mounts event discovery for unauthenticated
// browsing. Everything else requires a verified user.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/events", h.ListApproved)
}

// RegisterRoutes mounts the event routes on an authenticated router.
// Paths are registered flat so the public listing can share the /events
// prefix without a submux claiming the whole subtree.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/events", h.Create)
	r.Get("/events/mine", h.ListMine)
	r.Get("/events/{eventId}", h.Get)
	r.Post("/events/{eventId}/approve", h.Approve)
	r.Post("/events/{eventId}/reject", h.Reject)
	r.Post("/events/{eventId}/takedown", h.Takedown)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("authentication required"))
		return
	}

	var req events.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body"))
		return
	}

	created, err := h.Service.CreateEvent(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("event submitted for approval", created))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.Service.GetEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("event", event))
}

func (h *Handler) ListApproved(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListApproved(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("events", list))
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListMine(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("events", list))
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Service.Approve, "event approved")
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Service.Reject, "event rejected")
}

func (h *Handler) Takedown(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Service.Takedown, "event taken down")
}

func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, adminID, eventID string) error, message string) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("authentication required"))
		return
	}
	if err := action(r.Context(), userID, chi.URLParam(r, "eventId")); err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(message, nil))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, events.ErrValidation):
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse(err.Error()))
	case errors.Is(err, events.ErrUnauthorized):
		utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("you are not allowed to do that"))
	case errors.Is(err, events.ErrNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("event not found"))
	case errors.Is(err, events.ErrQuotaExceeded):
		utils.WriteJSON(w, http.StatusPaymentRequired, utils.ErrorResponse("monthly free event quota exhausted"))
	case errors.Is(err, events.ErrInvalidTransition):
		utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("event cannot change state right now"))
	default:
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("something went wrong"))
	}
}
