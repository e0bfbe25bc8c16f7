package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"eventless/internal/auth"
	"eventless/internal/gateway"
	"eventless/internal/issuance"
	"eventless/internal/logger"
	"eventless/internal/utils"
)

type Handler struct {
	Service *issuance.Service
	Logger  *logger.Logger
}

type purchaseRequest struct {
	PaymentReference string        `json:"payment_reference"`
	EventID          string        `json:"event_id"`
	Tier             issuance.Tier `json:"tier"`
	Quantity         int           `json:"quantity"`
}

// PurchaseTickets handles POST /api/tickets/purchase.
func (h *Handler) PurchaseTickets(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("authentication required"))
		return
	}

	var body purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	result, err := h.Service.IssueTickets(ctx, issuance.IssueRequest{
		PaymentReference: body.PaymentReference,
		EventID:          body.EventID,
		UserID:           userID,
		Tier:             body.Tier,
		Quantity:         body.Quantity,
	})
	if err != nil {
		utils.WriteJSON(w, statusFor(err), utils.ErrorResponse(result.Message))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(result.Message, result))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, issuance.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, issuance.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, issuance.ErrAmountMismatch),
		errors.Is(err, gateway.ErrVerificationFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, gateway.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
