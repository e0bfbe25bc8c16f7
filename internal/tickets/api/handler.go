package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventless/internal/auth"
	"eventless/internal/logger"
	"eventless/internal/tickets"
	"eventless/internal/utils"
)

type Handler struct {
	Service *tickets.Service
	Logger  *logger.Logger
}

// RegisterRoutes adds the ticket routes flat so the purchase endpoint
// can live under the same /tickets prefix.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/tickets", h.ListMine)
	r.Get("/tickets/{ticketId}", h.View)
	r.Get("/tickets/{ticketId}/qr", h.QR)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("authentication required"))
		return
	}

	list, err := h.Service.ListMine(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("tickets", list))
}

func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("authentication required"))
		return
	}

	ticket, err := h.Service.GetTicket(r.Context(), userID, chi.URLParam(r, "ticketId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ticket", ticket))
}

func (h *Handler) QR(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("authentication required"))
		return
	}

	png, err := h.Service.RedemptionQR(r.Context(), userID, chi.URLParam(r, "ticketId"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tickets.ErrNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("ticket not found"))
	case errors.Is(err, tickets.ErrUnauthorized):
		utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("you are not allowed to view that ticket"))
	default:
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("something went wrong"))
	}
}
