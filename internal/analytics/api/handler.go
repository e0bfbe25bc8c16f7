package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventless/internal/analytics"
	"eventless/internal/auth"
	"eventless/internal/logger"
	"eventless/internal/utils"
)

type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/analytics/events/{eventId}", h.EventSummary)
	r.Get("/analytics/payout", h.Payout)
}

func (h *Handler) EventSummary(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("authentication required"))
		return
	}

	summary, err := h.Service.GetEventSummary(r.Context(), userID, chi.URLParam(r, "eventId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("event sales summary", summary))
}

func (h *Handler) Payout(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("authentication required"))
		return
	}

	payout, err := h.Service.GetPayout(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("payout balance", payout))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analytics.ErrNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("event not found"))
	case errors.Is(err, analytics.ErrUnauthorized):
		utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("you are not allowed to view that"))
	default:
		h.Logger.Error("ANALYTICS", err.Error())
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("something went wrong"))
	}
}
