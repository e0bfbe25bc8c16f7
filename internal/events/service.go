package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"eventless/internal/kafka"
	"eventless/internal/logger"
	"eventless/internal/models"
)

var (
	ErrValidation        = errors.New("invalid event request")
	ErrUnauthorized      = errors.New("not allowed to perform this action")
	ErrNotFound          = errors.New("event not found")
	ErrQuotaExceeded     = errors.New("monthly free event quota exhausted")
	ErrInvalidTransition = errors.New("event is not in a state that allows this transition")
	ErrInternal          = errors.New("event operation could not be completed")
)

type DBLayer interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	GetTiersByEvent(ctx context.Context, eventID string) ([]models.TicketTier, error)
	ListApprovedEvents(ctx context.Context) ([]models.Event, error)
	ListEventsByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error)
	// CreateEventWithTiers writes the event, its tiers and an optional
	// free-quota charge in one store transaction.
	CreateEventWithTiers(ctx context.Context, event models.Event, tiers []models.TicketTier, quota *QuotaCharge) error
	// TransitionStatus is a compare-and-set on the event lifecycle
	// status; it reports whether the transition happened.
	TransitionStatus(ctx context.Context, eventID string, from, to models.EventStatus) (bool, error)
}

// QuotaCharge updates an organizer's monthly free-event counter
// alongside the event insert.
type QuotaCharge struct {
	UserID   string
	Month    string
	NewCount int
}

type Publisher interface {
	Publish(topic string, key string, value []byte) error
}

type TierInput struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Description string  `json:"description,omitempty"`
}

type CreateRequest struct {
	Title     string      `json:"title"`
	Category  string      `json:"category"`
	StartTime time.Time   `json:"start_time"`
	Location  string      `json:"location"`
	Tiers     []TierInput `json:"tiers"`
}

type EventWithTiers struct {
	models.Event
	Tiers []models.TicketTier `json:"tiers"`
}

type Service struct {
	DB                DBLayer
	Kafka             Publisher
	Logger            *logger.Logger
	MonthlyFreeEvents int
}

func NewService(db DBLayer, producer Publisher, monthlyFreeEvents int, log *logger.Logger) *Service {
	return &Service{DB: db, Kafka: producer, MonthlyFreeEvents: monthlyFreeEvents, Logger: log}
}

// CreateEvent registers a new event in the pending state. A fully free
// event consumes one unit of the organizer's monthly quota unless the
// organizer has an active subscription.
func (s *Service) CreateEvent(ctx context.Context, organizerID string, req CreateRequest) (*EventWithTiers, error) {
	user, err := s.DB.GetUserByID(ctx, organizerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if user.Status != models.UserActive {
		return nil, ErrUnauthorized
	}
	if user.Role != models.RoleOrganizer && !user.IsAdmin() {
		return nil, ErrUnauthorized
	}

	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len(req.Tiers) == 0 {
		return nil, fmt.Errorf("%w: at least one ticket tier is required", ErrValidation)
	}
	for _, tier := range req.Tiers {
		if tier.Name == "" || tier.Price < 0 || tier.Quantity < 1 {
			return nil, fmt.Errorf("%w: tier %q is malformed", ErrValidation, tier.Name)
		}
	}

	event := models.Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Category:    req.Category,
		StartTime:   req.StartTime,
		Location:    req.Location,
		OrganizerID: organizerID,
		Status:      models.EventPending,
		CreatedAt:   time.Now(),
	}
	tiers := make([]models.TicketTier, len(req.Tiers))
	for i, tier := range req.Tiers {
		tiers[i] = models.TicketTier{
			ID:          uuid.NewString(),
			EventID:     event.ID,
			Name:        tier.Name,
			Price:       tier.Price,
			Quantity:    tier.Quantity,
			Description: tier.Description,
		}
	}

	quota, err := s.freeQuotaCharge(user, tiers)
	if err != nil {
		return nil, err
	}

	if err := s.DB.CreateEventWithTiers(ctx, event, tiers, quota); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	s.Logger.Info("EVENT", fmt.Sprintf("Created event %s (%s) for organizer %s", event.ID, event.Title, organizerID))
	return &EventWithTiers{Event: event, Tiers: tiers}, nil
}

// freeQuotaCharge decides whether this event consumes the organizer's
// monthly free allowance. The counter resets lazily when the stored
// month differs from the current one.
func (s *Service) freeQuotaCharge(user *models.User, tiers []models.TicketTier) (*QuotaCharge, error) {
	if !models.IsFree(tiers) || user.Subscribed {
		return nil, nil
	}

	month := time.Now().Format("2006-01")
	used := user.FreeEventsUsed
	if user.FreeEventMonth != month {
		used = 0
	}
	if used >= s.MonthlyFreeEvents {
		return nil, ErrQuotaExceeded
	}
	return &QuotaCharge{UserID: user.ID, Month: month, NewCount: used + 1}, nil
}

// Approve moves a pending event to approved. Admin only.
func (s *Service) Approve(ctx context.Context, adminID, eventID string) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	event, err := s.transition(ctx, eventID, models.EventPending, models.EventApproved)
	if err != nil {
		return err
	}

	if s.Kafka != nil {
		if value, err := json.Marshal(event); err == nil {
			if err := s.Kafka.Publish(kafka.TopicEventApproved, event.ID, value); err != nil {
				s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish approval for %s: %v", event.ID, err))
			}
		}
	}
	return nil
}

// Reject moves a pending event to rejected. Admin only.
func (s *Service) Reject(ctx context.Context, adminID, eventID string) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	_, err := s.transition(ctx, eventID, models.EventPending, models.EventRejected)
	return err
}

// Takedown pulls an approved event back to rejected. Admin only.
func (s *Service) Takedown(ctx context.Context, adminID, eventID string) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	_, err := s.transition(ctx, eventID, models.EventApproved, models.EventRejected)
	return err
}

func (s *Service) GetEvent(ctx context.Context, eventID string) (*EventWithTiers, error) {
	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	tiers, err := s.DB.GetTiersByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &EventWithTiers{Event: *event, Tiers: tiers}, nil
}

func (s *Service) ListApproved(ctx context.Context) ([]models.Event, error) {
	events, err := s.DB.ListApprovedEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return events, nil
}

func (s *Service) ListMine(ctx context.Context, organizerID string) ([]models.Event, error) {
	events, err := s.DB.ListEventsByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return events, nil
}

func (s *Service) requireAdmin(ctx context.Context, userID string) error {
	user, err := s.DB.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUnauthorized
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !user.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) transition(ctx context.Context, eventID string, from, to models.EventStatus) (*models.Event, error) {
	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	moved, err := s.DB.TransitionStatus(ctx, eventID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !moved {
		return nil, ErrInvalidTransition
	}

	event.Status = to
	s.Logger.Info("EVENT", fmt.Sprintf("Event %s moved %s -> %s", eventID, from, to))
	return event, nil
}
