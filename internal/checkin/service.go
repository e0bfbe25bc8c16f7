package checkin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eventless/internal/kafka"
	"eventless/internal/logger"
	"eventless/internal/models"
	"eventless/internal/sse"
)

var (
	// ErrUnauthorized is returned when the requester is not the
	// organizer of the ticket's event. The caller learns nothing about
	// the ticket itself.
	ErrUnauthorized = errors.New("not authorized to check in this ticket")
	// ErrDataIntegrity means a ticket points at an event that no longer
	// exists; the issuance snapshot should make this impossible.
	ErrDataIntegrity = errors.New("ticket references a missing event")
	ErrInternal      = errors.New("check-in could not be completed")
)

type Status string

const (
	// StatusValid means the ticket was valid and this scan consumed it.
	StatusValid Status = "valid"
	// StatusUsed means the ticket had already been redeemed.
	StatusUsed Status = "used"
	// StatusInvalid means no such ticket exists.
	StatusInvalid Status = "invalid"
)

type Result struct {
	Status       Status `json:"status"`
	TicketID     string `json:"ticket_id"`
	EventName    string `json:"event_name,omitempty"`
	AttendeeName string `json:"attendee_name,omitempty"`
}

type DBLayer interface {
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// RedeemTicket flips a ticket from valid to used in one
	// compare-and-set; it reports whether this call made the transition.
	RedeemTicket(ctx context.Context, ticketID string) (bool, error)
}

type Publisher interface {
	Publish(topic string, key string, value []byte) error
}

// Feed receives successful scans for live organizer dashboards.
type Feed interface {
	Emit(update sse.CheckinUpdate)
}

type Service struct {
	DB     DBLayer
	Kafka  Publisher
	Feed   Feed
	Logger *logger.Logger
}

func NewService(db DBLayer, producer Publisher, log *logger.Logger) *Service {
	return &Service{DB: db, Kafka: producer, Logger: log}
}

// CheckIn redeems a ticket exactly once. Re-scanning a redeemed ticket
// reports "used" without error; concurrent scans of a valid ticket see
// exactly one "valid" and the rest "used".
func (s *Service) CheckIn(ctx context.Context, ticketID, requestingUserID string) (*Result, error) {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.Logger.LogCheckin(ticketID, "Unknown ticket scanned")
			return &Result{Status: StatusInvalid, TicketID: ticketID}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	event, err := s.DB.GetEventByID(ctx, ticket.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.Logger.Error("CHECKIN", fmt.Sprintf("Ticket %s references missing event %s", ticketID, ticket.EventID))
			return nil, ErrDataIntegrity
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	// Authorization comes before any ticket detail leaves the service.
	if event.OrganizerID != requestingUserID {
		s.Logger.Warn("CHECKIN", fmt.Sprintf("User %s denied check-in for event %s", requestingUserID, event.ID))
		return nil, ErrUnauthorized
	}

	// Attendee name is resolved live so renamed profiles show current data.
	attendee := ""
	purchaser, err := s.DB.GetUserByID(ctx, ticket.UserID)
	if err == nil {
		attendee = purchaser.FullName
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if ticket.Status == models.TicketUsed {
		s.Logger.LogCheckin(ticketID, "Already redeemed, re-scan reported")
		return &Result{
			Status:       StatusUsed,
			TicketID:     ticketID,
			EventName:    event.Title,
			AttendeeName: attendee,
		}, nil
	}

	redeemed, err := s.DB.RedeemTicket(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	status := StatusValid
	if !redeemed {
		// A concurrent scan won the compare-and-set.
		status = StatusUsed
	} else {
		s.Logger.LogCheckin(ticketID, "Redeemed")
		s.publishRedeemed(ticket)
		if s.Feed != nil {
			s.Feed.Emit(sse.CheckinUpdate{
				TicketID:     ticketID,
				EventID:      event.ID,
				AttendeeName: attendee,
				Status:       string(StatusValid),
				ScannedAt:    time.Now(),
			})
		}
	}

	return &Result{
		Status:       status,
		TicketID:     ticketID,
		EventName:    event.Title,
		AttendeeName: attendee,
	}, nil
}

// AuthorizeFeed checks that the user may watch an event's live
// check-in feed. Missing events report unauthorized so the endpoint
// cannot be used to probe event ids.
func (s *Service) AuthorizeFeed(ctx context.Context, eventID, requestingUserID string) error {
	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUnauthorized
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if event.OrganizerID != requestingUserID {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) publishRedeemed(ticket *models.Ticket) {
	if s.Kafka == nil {
		return
	}
	value, err := json.Marshal(ticket)
	if err != nil {
		return
	}
	if err := s.Kafka.Publish(kafka.TopicTicketRedeemed, ticket.TicketID, value); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish redeemed event for %s: %v", ticket.TicketID, err))
	}
}
