package analytics

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"eventless/internal/models"
)

var (
	ErrNotFound     = errors.New("event not found")
	ErrUnauthorized = errors.New("not allowed to view these analytics")
)

// Service aggregates sales figures straight off the tickets table. It
// reads bun directly rather than going through a per-domain db layer:
// everything here is a one-shot aggregate query.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// EventSummary is the organizer-facing sales report for one event.
type EventSummary struct {
	EventID     string      `json:"event_id"`
	EventTitle  string      `json:"event_title"`
	TicketsSold int         `json:"tickets_sold"`
	CheckedIn   int         `json:"checked_in"`
	Revenue     float64     `json:"revenue"`
	SalesByTier []TierSales `json:"sales_by_tier"`
}

type TierSales struct {
	TierName    string  `json:"tier_name"`
	TicketsSold int     `json:"tickets_sold"`
	Revenue     float64 `json:"revenue"`
}

// PayoutSummary reports an organizer's accumulated, unsettled revenue.
type PayoutSummary struct {
	UserID  string              `json:"user_id"`
	Balance float64             `json:"balance"`
	Status  models.PayoutStatus `json:"status"`
}

// GetEventSummary returns the sales report for an event. Only the
// event's organizer and admins may read it.
func (s *Service) GetEventSummary(ctx context.Context, requestingUserID, eventID string) (*EventSummary, error) {
	var event models.Event
	err := s.db.NewSelect().
		Model(&event).
		Where("id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if event.OrganizerID != requestingUserID {
		var user models.User
		err := s.db.NewSelect().
			Model(&user).
			Where("id = ?", requestingUserID).
			Limit(1).
			Scan(ctx)
		if err != nil || !user.IsAdmin() {
			return nil, ErrUnauthorized
		}
	}

	summary := &EventSummary{
		EventID:     event.ID,
		EventTitle:  event.Title,
		SalesByTier: make([]TierSales, 0),
	}

	sold, err := s.db.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("event_id = ?", eventID).
		Count(ctx)
	if err != nil {
		return nil, err
	}
	summary.TicketsSold = sold

	checkedIn, err := s.db.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("event_id = ?", eventID).
		Where("status = ?", models.TicketUsed).
		Count(ctx)
	if err != nil {
		return nil, err
	}
	summary.CheckedIn = checkedIn

	// Revenue is the sum of per-ticket prices captured at purchase. The
	// service fee rides on the transaction, not the ticket, so it never
	// shows up in organizer revenue.
	type tierRow struct {
		TierName string  `bun:"tier_name"`
		Sold     int     `bun:"sold"`
		Revenue  float64 `bun:"revenue"`
	}
	var tiers []tierRow
	err = s.db.NewRaw(`
		SELECT tier_name,
		       COUNT(*) AS sold,
		       COALESCE(SUM(tier_price), 0) AS revenue
		FROM tickets
		WHERE event_id = ?
		GROUP BY tier_name
		ORDER BY tier_name`, eventID).
		Scan(ctx, &tiers)
	if err != nil {
		return nil, err
	}

	for _, t := range tiers {
		summary.Revenue += t.Revenue
		summary.SalesByTier = append(summary.SalesByTier, TierSales{
			TierName:    t.TierName,
			TicketsSold: t.Sold,
			Revenue:     t.Revenue,
		})
	}
	return summary, nil
}

// GetPayout returns the caller's own payout balance.
func (s *Service) GetPayout(ctx context.Context, userID string) (*PayoutSummary, error) {
	var user models.User
	err := s.db.NewSelect().
		Model(&user).
		Where("id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &PayoutSummary{
		UserID:  user.ID,
		Balance: user.PayoutBalance,
		Status:  user.PayoutStatus,
	}, nil
}
