package models

import (
	"time"

	"github.com/uptrace/bun"
)

type EventStatus string

const (
	EventPending  EventStatus = "pending"
	EventApproved EventStatus = "approved"
	EventRejected EventStatus = "rejected"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string      `bun:"id,pk" json:"id"`
	Title       string      `bun:"title,notnull" json:"title"`
	Category    string      `bun:"category" json:"category"`
	StartTime   time.Time   `bun:"start_time,notnull" json:"start_time"`
	Location    string      `bun:"location" json:"location"`
	OrganizerID string      `bun:"organizer_id,notnull" json:"organizer_id"`
	Status      EventStatus `bun:"status,notnull" json:"status"`
	CreatedAt   time.Time   `bun:"created_at,notnull" json:"created_at"`
}

// TicketTier is an admission class for an event. Tiers are written once
// at event creation and are read-only afterwards.
type TicketTier struct {
	bun.BaseModel `bun:"table:ticket_tiers"`

	ID          string  `bun:"id,pk" json:"id"`
	EventID     string  `bun:"event_id,notnull" json:"event_id"`
	Name        string  `bun:"name,notnull" json:"name"`
	Price       float64 `bun:"price,notnull" json:"price"`
	Quantity    int     `bun:"quantity,notnull" json:"quantity"`
	Description string  `bun:"description" json:"description,omitempty"`
}

// IsFree reports whether every tier of the event is priced at zero.
func IsFree(tiers []TicketTier) bool {
	for _, t := range tiers {
		if t.Price > 0 {
			return false
		}
	}
	return true
}
