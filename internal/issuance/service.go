package issuance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"eventless/internal/gateway"
	"eventless/internal/kafka"
	"eventless/internal/logger"
	"eventless/internal/models"
	"eventless/internal/notification"
)

type DBLayer interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	TransactionExists(ctx context.Context, reference string) (bool, error)
	// IssueAtomic writes the whole batch in one store transaction. It
	// reports false when a transaction with the batch's reference was
	// already committed, in which case nothing is written.
	IssueAtomic(ctx context.Context, batch Batch) (bool, error)
}

// ReferenceLock is a best-effort guard against concurrent submissions
// of the same payment reference. Correctness does not depend on it; the
// conditional insert inside IssueAtomic is authoritative.
type ReferenceLock interface {
	Acquire(ctx context.Context, reference string) (bool, error)
	Release(ctx context.Context, reference string) error
}

type Verifier interface {
	VerifyTransaction(ctx context.Context, reference string) (*gateway.VerifyResult, error)
}

type Publisher interface {
	Publish(topic string, key string, value []byte) error
}

// Batch is everything one purchase writes atomically.
type Batch struct {
	Tickets     []models.Ticket
	Transaction models.Transaction
	OrganizerID string
	// Revenue credited to the organizer's payout balance; excludes the
	// platform service fee.
	Revenue float64
}

type Tier struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type IssueRequest struct {
	PaymentReference string
	EventID          string
	UserID           string
	Tier             Tier
	Quantity         int
}

// Result is returned for every purchase attempt; Message is written
// for end-user display.
type Result struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	TicketID string `json:"ticket_id,omitempty"`
}

type Service struct {
	DB         DBLayer
	Lock       ReferenceLock
	Gateway    Verifier
	Kafka      Publisher
	Notifier   notification.Notifier
	ServiceFee float64
	Logger     *logger.Logger
}

func NewService(db DBLayer, lock ReferenceLock, gw Verifier, producer Publisher, notifier notification.Notifier, serviceFee float64, log *logger.Logger) *Service {
	return &Service{
		DB:         db,
		Lock:       lock,
		Gateway:    gw,
		Kafka:      producer,
		Notifier:   notifier,
		ServiceFee: serviceFee,
		Logger:     log,
	}
}

// IssueTickets verifies a payment reference and mints tickets for it.
// On success exactly Quantity tickets, one transaction and one payout
// credit exist, all written in a single store transaction. Duplicate
// references report success without issuing anything again.
func (s *Service) IssueTickets(ctx context.Context, req IssueRequest) (*Result, error) {
	if req.Quantity < 1 {
		return fail("quantity must be at least 1"), ErrValidation
	}
	if req.Tier.Price < 0 {
		return fail("tier price cannot be negative"), ErrValidation
	}
	if req.EventID == "" || req.UserID == "" {
		return fail("event and user are required"), ErrValidation
	}

	free := req.Tier.Price == 0
	reference := req.PaymentReference
	amount := 0.0

	if free {
		// Free references are synthesized per request and never collide,
		// so no verification and no idempotency handling applies.
		reference = "free_" + uuid.NewString()
	} else {
		if reference == "" {
			return fail("payment reference is required"), ErrValidation
		}

		if s.Lock != nil {
			ok, err := s.Lock.Acquire(ctx, reference)
			if err != nil {
				s.Logger.Warn("PAYMENT", fmt.Sprintf("Reference lock unavailable for %s: %v", reference, err))
			} else if !ok {
				s.Logger.LogPayment("DUPLICATE", reference, "Concurrent submission, reference lock held")
				return &Result{Success: true, Message: "payment already processed"}, nil
			} else {
				defer func() {
					if err := s.Lock.Release(context.Background(), reference); err != nil {
						s.Logger.Warn("PAYMENT", fmt.Sprintf("Failed to release reference lock %s: %v", reference, err))
					}
				}()
			}
		}

		verified, err := s.Gateway.VerifyTransaction(ctx, reference)
		if err != nil {
			return fail(verificationMessage(err)), err
		}

		expected := req.Tier.Price*float64(req.Quantity) + s.ServiceFee
		if verified.Amount < expected {
			s.Logger.LogPayment("MISMATCH", reference,
				fmt.Sprintf("Confirmed %.2f, expected %.2f", verified.Amount, expected))
			return fail("paid amount does not cover the ticket total"), ErrAmountMismatch
		}
		// Overpayment is accepted as-is.
		amount = verified.Amount

		exists, err := s.DB.TransactionExists(ctx, reference)
		if err != nil {
			return fail("could not complete your purchase, please try again"), fmt.Errorf("%w: %v", ErrInternal, err)
		}
		if exists {
			s.Logger.LogPayment("DUPLICATE", reference, "Transaction already recorded")
			return &Result{Success: true, Message: "payment already processed"}, nil
		}
	}

	event, err := s.DB.GetEventByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail("event not found"), ErrNotFound
		}
		return fail("could not complete your purchase, please try again"), fmt.Errorf("%w: %v", ErrInternal, err)
	}

	user, err := s.DB.GetUserByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail("user not found"), ErrNotFound
		}
		return fail("could not complete your purchase, please try again"), fmt.Errorf("%w: %v", ErrInternal, err)
	}

	batch := s.buildBatch(req, reference, amount, event)
	inserted, err := s.DB.IssueAtomic(ctx, batch)
	if err != nil {
		s.Logger.Error("PAYMENT", fmt.Sprintf("Issue transaction failed for %s: %v", reference, err))
		return fail("could not complete your purchase, please try again"), fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !inserted {
		s.Logger.LogPayment("DUPLICATE", reference, "Lost conditional insert race, nothing written")
		return &Result{Success: true, Message: "payment already processed"}, nil
	}

	s.Logger.LogPayment("ISSUED", reference,
		fmt.Sprintf("%d ticket(s) for event %s, user %s", req.Quantity, event.ID, user.ID))

	// Post-commit side effects are best-effort and never fail the purchase.
	s.notify(user, event, batch)
	s.publishIssued(batch)

	first := batch.Tickets[0]
	return &Result{
		Success:  true,
		Message:  fmt.Sprintf("%d ticket(s) issued", req.Quantity),
		TicketID: first.TicketID,
	}, nil
}

func (s *Service) buildBatch(req IssueRequest, reference string, amount float64, event *models.Event) Batch {
	now := time.Now()
	provider := "paystack"
	if req.Tier.Price == 0 {
		provider = "free"
	}

	tickets := make([]models.Ticket, req.Quantity)
	ticketIDs := make([]string, req.Quantity)
	for i := range tickets {
		id := uuid.NewString()
		ticketIDs[i] = id
		tickets[i] = models.Ticket{
			TicketID:         id,
			EventID:          event.ID,
			UserID:           req.UserID,
			TierName:         req.Tier.Name,
			TierPrice:        req.Tier.Price,
			RedemptionCode:   models.RedemptionCode(id),
			Status:           models.TicketValid,
			EventTitle:       event.Title,
			EventStart:       event.StartTime,
			EventLocation:    event.Location,
			EventOrganizerID: event.OrganizerID,
			IssuedAt:         now,
		}
	}

	return Batch{
		Tickets: tickets,
		Transaction: models.Transaction{
			ID:        uuid.NewString(),
			UserID:    req.UserID,
			TicketIDs: models.JoinTicketIDs(ticketIDs),
			Amount:    amount,
			Status:    models.TransactionSucceeded,
			Provider:  provider,
			Reference: reference,
			CreatedAt: now,
		},
		OrganizerID: event.OrganizerID,
		Revenue:     req.Tier.Price * float64(req.Quantity),
	}
}

func (s *Service) notify(user *models.User, event *models.Event, batch Batch) {
	if s.Notifier == nil {
		return
	}
	err := s.Notifier.SendTicketConfirmation(context.Background(), notification.TicketConfirmation{
		Recipient:      user.Email,
		AttendeeName:   user.FullName,
		EventTitle:     event.Title,
		Quantity:       len(batch.Tickets),
		RedemptionCode: batch.Tickets[0].RedemptionCode,
	})
	if err != nil {
		s.Logger.Warn("EMAIL", fmt.Sprintf("Confirmation for %s not delivered: %v", batch.Transaction.Reference, err))
	}
}

func (s *Service) publishIssued(batch Batch) {
	if s.Kafka == nil {
		return
	}
	value, err := json.Marshal(batch.Transaction)
	if err != nil {
		return
	}
	if err := s.Kafka.Publish(kafka.TopicTicketIssued, batch.Transaction.ID, value); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish issued event for %s: %v", batch.Transaction.Reference, err))
	}
}

func fail(message string) *Result {
	return &Result{Success: false, Message: message}
}

func verificationMessage(err error) string {
	switch {
	case errors.Is(err, gateway.ErrMisconfigured):
		return "payment processing is not configured, contact support"
	case errors.Is(err, gateway.ErrTimeout):
		return "payment provider did not respond, please retry"
	default:
		return "we could not verify your payment"
	}
}
