package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type TicketStatus string

const (
	TicketValid TicketStatus = "valid"
	TicketUsed  TicketStatus = "used"
)

// redemptionPrefix namespaces redemption codes so a scanned code and a
// raw ticket id are always distinguishable and mutually derivable.
const redemptionPrefix = "evl:tix:"

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	TicketID       string       `bun:"id,pk" json:"ticket_id"`
	EventID        string       `bun:"event_id,notnull" json:"event_id"`
	UserID         string       `bun:"user_id,notnull" json:"user_id"`
	TierName       string       `bun:"tier_name,notnull" json:"tier_name"`
	TierPrice      float64      `bun:"tier_price,notnull" json:"tier_price"`
	RedemptionCode string       `bun:"redemption_code,unique,notnull" json:"redemption_code"`
	Status         TicketStatus `bun:"status,notnull" json:"status"`

	// Event snapshot captured at issuance so the ticket renders the
	// event as sold even if the event record changes later.
	EventTitle       string    `bun:"event_title" json:"event_title"`
	EventStart       time.Time `bun:"event_start" json:"event_start"`
	EventLocation    string    `bun:"event_location" json:"event_location"`
	EventOrganizerID string    `bun:"event_organizer_id,notnull" json:"event_organizer_id"`

	IssuedAt    time.Time `bun:"issued_at,notnull" json:"issued_at"`
	CheckedInAt time.Time `bun:"checked_in_at,nullzero" json:"checked_in_at,omitempty"`
}

// RedemptionCode derives the scannable code for a ticket id. The
// derivation is deterministic in both directions: no random material,
// so code and ticket id can always be recovered from each other.
func RedemptionCode(ticketID string) string {
	return redemptionPrefix + ticketID
}

// TicketIDFromCode recovers a ticket id from a scanned redemption code.
// A bare ticket id passes through unchanged so scanners may submit
// either form.
func TicketIDFromCode(code string) string {
	return strings.TrimPrefix(code, redemptionPrefix)
}
