package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventless/internal/logger"
	"eventless/internal/models"
	"eventless/internal/tickets/qr"
)

var (
	ErrNotFound     = errors.New("ticket not found")
	ErrUnauthorized = errors.New("not allowed to view this ticket")
	ErrInternal     = errors.New("internal error")
)

type DBLayer interface {
	GetTicketByID(ctx context.Context, ticketID string) (*models.Ticket, error)
	GetTicketsByUser(ctx context.Context, userID string) ([]models.Ticket, error)
}

type Service struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewService(db DBLayer, log *logger.Logger) *Service {
	return &Service{DB: db, Logger: log}
}

// ListMine returns every ticket owned by the user, newest first.
func (s *Service) ListMine(ctx context.Context, userID string) ([]models.Ticket, error) {
	list, err := s.DB.GetTicketsByUser(ctx, userID)
	if err != nil {
		s.Logger.Error("TICKETS", fmt.Sprintf("list tickets for %s: %v", userID, err))
		return nil, ErrInternal
	}
	return list, nil
}

// GetTicket returns a single ticket. Only the ticket owner and the
// organizer of the event it belongs to may view it.
func (s *Service) GetTicket(ctx context.Context, requestingUserID, ticketID string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		s.Logger.Error("TICKETS", fmt.Sprintf("load ticket %s: %v", ticketID, err))
		return nil, ErrInternal
	}
	if ticket.UserID != requestingUserID && ticket.EventOrganizerID != requestingUserID {
		return nil, ErrUnauthorized
	}
	return ticket, nil
}

// RedemptionQR renders the ticket's redemption code as a PNG. Owner only:
// the QR is the thing that gets scanned at the door, so organizers have
// no business fetching someone else's.
func (s *Service) RedemptionQR(ctx context.Context, requestingUserID, ticketID string) ([]byte, error) {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		s.Logger.Error("TICKETS", fmt.Sprintf("load ticket %s: %v", ticketID, err))
		return nil, ErrInternal
	}
	if ticket.UserID != requestingUserID {
		return nil, ErrUnauthorized
	}

	png, err := qr.PNG(ticket.RedemptionCode)
	if err != nil {
		s.Logger.Error("TICKETS", fmt.Sprintf("render qr for %s: %v", ticketID, err))
		return nil, ErrInternal
	}
	return png, nil
}
