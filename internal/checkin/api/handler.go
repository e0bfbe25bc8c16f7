package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"eventless/internal/auth"
	"eventless/internal/checkin"
	"eventless/internal/logger"
	"eventless/internal/models"
	"eventless/internal/sse"
	"eventless/internal/utils"
)

type Handler struct {
	Service *checkin.Service
	Feed    *sse.CheckinFeed
	Logger  *logger.Logger
}

type checkinRequest struct {
	// Code is either a scanned redemption code or a bare ticket id.
	Code string `json:"code"`
}

// CheckinTicket handles POST /api/checkin from scanning clients.
func (h *Handler) CheckinTicket(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("authentication required"))
		return
	}

	var body checkinRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("a redemption code is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := h.Service.CheckIn(ctx, models.TicketIDFromCode(body.Code), userID)
	if err != nil {
		switch {
		case errors.Is(err, checkin.ErrUnauthorized):
			utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("you are not authorized to check in this ticket"))
		default:
			utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("check-in could not be completed"))
		}
		return
	}

	message := "ticket checked in"
	switch result.Status {
	case checkin.StatusUsed:
		message = "ticket was already used"
	case checkin.StatusInvalid:
		message = "no such ticket"
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(message, result))
}

// StreamCheckins serves an event's live check-in feed over SSE.
// Organizer only. EventSource clients cannot set request headers, so
// the stream authenticates itself from either the Authorization
// header or a token query parameter instead of the shared middleware.
func (h *Handler) StreamCheckins(w http.ResponseWriter, r *http.Request) {
	rawToken := r.URL.Query().Get("token")
	if rawToken == "" {
		var err error
		rawToken, err = auth.ExtractTokenFromRequest(r)
		if err != nil {
			utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("authentication required"))
			return
		}
	}

	userID, err := auth.SubjectFromToken(rawToken)
	if err != nil {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("invalid token"))
		return
	}
	if h.Feed == nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("live feed is not enabled"))
		return
	}

	eventID := chi.URLParam(r, "eventId")
	if err := h.Service.AuthorizeFeed(r.Context(), eventID, userID); err != nil {
		if errors.Is(err, checkin.ErrUnauthorized) {
			utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("you are not allowed to watch this feed"))
		} else {
			utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("feed could not be opened"))
		}
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	updates := h.Feed.Subscribe(r.Context(), eventID)
	// Heartbeats keep intermediaries from closing idle streams.
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case update, open := <-updates:
			if !open {
				return
			}
			payload, err := json.Marshal(update)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
