package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type TransactionStatus string

const (
	TransactionSucceeded TransactionStatus = "succeeded"
	TransactionFailed    TransactionStatus = "failed"
	TransactionPending   TransactionStatus = "pending"
)

// Transaction records one completed purchase. Exactly one row exists
// per payment reference; rows are never mutated after creation.
type Transaction struct {
	bun.BaseModel `bun:"table:transactions"`

	ID     string `bun:"id,pk" json:"id"`
	UserID string `bun:"user_id,notnull" json:"user_id"`
	// Comma-joined ticket ids. A joined column keeps the row portable
	// across the Postgres and SQLite dialects.
	TicketIDs string            `bun:"ticket_ids,notnull" json:"-"`
	Amount    float64           `bun:"amount,notnull" json:"amount"`
	Status    TransactionStatus `bun:"status,notnull" json:"status"`
	Provider  string            `bun:"provider,notnull" json:"provider"`
	Reference string            `bun:"reference,unique,notnull" json:"reference"`
	CreatedAt time.Time         `bun:"created_at,notnull" json:"created_at"`
}

func (t *Transaction) TicketIDList() []string {
	if t.TicketIDs == "" {
		return nil
	}
	return strings.Split(t.TicketIDs, ",")
}

func JoinTicketIDs(ids []string) string {
	return strings.Join(ids, ",")
}
