package models

import (
	"time"

	"github.com/uptrace/bun"
)

type UserRole string

const (
	RoleIndividual UserRole = "individual"
	RoleOrganizer  UserRole = "organizer"
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "super_admin"
)

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
)

type PayoutStatus string

const (
	PayoutNone    PayoutStatus = "none"
	PayoutPending PayoutStatus = "pending"
	PayoutSettled PayoutStatus = "settled"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID       string     `bun:"id,pk" json:"id"`
	Email    string     `bun:"email,unique,notnull" json:"email"`
	FullName string     `bun:"full_name,notnull" json:"full_name"`
	Phone    string     `bun:"phone" json:"phone,omitempty"`
	Status   UserStatus `bun:"status,notnull" json:"status"`
	Role     UserRole   `bun:"role,notnull" json:"role"`

	// Free events created in the current calendar month. Reset lazily
	// when the month rolls over.
	FreeEventsUsed int    `bun:"free_events_used,notnull,default:0" json:"free_events_used"`
	FreeEventMonth string `bun:"free_event_month" json:"-"`
	Subscribed     bool   `bun:"subscribed,notnull,default:false" json:"subscribed"`

	// Accumulated, not-yet-settled sale revenue. Incremented only by
	// ticket issuance; settlement is an external process.
	PayoutBalance float64      `bun:"payout_balance,notnull,default:0" json:"payout_balance"`
	PayoutStatus  PayoutStatus `bun:"payout_status,notnull" json:"payout_status"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}
