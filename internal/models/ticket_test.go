package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"eventless/internal/models"
)

func TestRedemptionCodeRoundTrip(t *testing.T) {
	code := models.RedemptionCode("550e8400-e29b-41d4-a716-446655440000")
	assert.Equal(t, "evl:tix:550e8400-e29b-41d4-a716-446655440000", code)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", models.TicketIDFromCode(code))
}

func TestTicketIDFromCodeBareID(t *testing.T) {
	// Scanners may submit a raw ticket id instead of the full code.
	assert.Equal(t, "abc123", models.TicketIDFromCode("abc123"))
}

func TestTransactionTicketIDs(t *testing.T) {
	txn := models.Transaction{TicketIDs: models.JoinTicketIDs([]string{"a", "b", "c"})}
	assert.Equal(t, []string{"a", "b", "c"}, txn.TicketIDList())

	var empty models.Transaction
	assert.Nil(t, empty.TicketIDList())
}

func TestIsFree(t *testing.T) {
	free := []models.TicketTier{{Name: "Community", Price: 0}, {Name: "Student", Price: 0}}
	assert.True(t, models.IsFree(free))

	mixed := []models.TicketTier{{Name: "Community", Price: 0}, {Name: "VIP", Price: 7500}}
	assert.False(t, models.IsFree(mixed))
}
