package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"eventless/internal/issuance"
	"eventless/internal/issuance/db"
	"eventless/internal/models"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	err = bunDB.ResetModel(context.Background(),
		(*models.User)(nil),
		(*models.Event)(nil),
		(*models.Ticket)(nil),
		(*models.Transaction)(nil),
	)
	require.NoError(t, err)

	return &db.DB{Bun: bunDB}
}

func seedBatch(reference string) issuance.Batch {
	now := time.Now()
	tickets := []models.Ticket{
		{
			TicketID:         "t1-" + reference,
			EventID:          "event1",
			UserID:           "buyer1",
			TierName:         "Regular",
			TierPrice:        2500,
			RedemptionCode:   models.RedemptionCode("t1-" + reference),
			Status:           models.TicketValid,
			EventOrganizerID: "org1",
			IssuedAt:         now,
		},
		{
			TicketID:         "t2-" + reference,
			EventID:          "event1",
			UserID:           "buyer1",
			TierName:         "Regular",
			TierPrice:        2500,
			RedemptionCode:   models.RedemptionCode("t2-" + reference),
			Status:           models.TicketValid,
			EventOrganizerID: "org1",
			IssuedAt:         now,
		},
	}
	return issuance.Batch{
		Tickets: tickets,
		Transaction: models.Transaction{
			ID:        "txn-" + reference,
			UserID:    "buyer1",
			TicketIDs: models.JoinTicketIDs([]string{tickets[0].TicketID, tickets[1].TicketID}),
			Amount:    5150,
			Status:    models.TransactionSucceeded,
			Provider:  "paystack",
			Reference: reference,
			CreatedAt: now,
		},
		OrganizerID: "org1",
		Revenue:     5000,
	}
}

func TestIssueAtomicWritesEverything(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	organizer := models.User{
		ID: "org1", Email: "clubs@university.edu", FullName: "Campus Clubs",
		Status: models.UserActive, Role: models.RoleOrganizer,
		PayoutStatus: models.PayoutNone, CreatedAt: time.Now(),
	}
	_, err := d.Bun.NewInsert().Model(&organizer).Exec(ctx)
	require.NoError(t, err)

	inserted, err := d.IssueAtomic(ctx, seedBatch("ref_1"))
	require.NoError(t, err)
	assert.True(t, inserted)

	exists, err := d.TransactionExists(ctx, "ref_1")
	require.NoError(t, err)
	assert.True(t, exists)

	ticketCount, err := d.Bun.NewSelect().Model((*models.Ticket)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ticketCount)

	var updated models.User
	err = d.Bun.NewSelect().Model(&updated).Where("id = ?", "org1").Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, updated.PayoutBalance)
	assert.Equal(t, models.PayoutPending, updated.PayoutStatus)
}

func TestIssueAtomicDuplicateReferenceWritesNothing(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	organizer := models.User{
		ID: "org1", Email: "clubs@university.edu", FullName: "Campus Clubs",
		Status: models.UserActive, Role: models.RoleOrganizer,
		PayoutStatus: models.PayoutNone, CreatedAt: time.Now(),
	}
	_, err := d.Bun.NewInsert().Model(&organizer).Exec(ctx)
	require.NoError(t, err)

	inserted, err := d.IssueAtomic(ctx, seedBatch("ref_dup"))
	require.NoError(t, err)
	require.True(t, inserted)

	// Same reference, fresh ticket ids: the conditional insert must
	// reject the whole batch.
	second := seedBatch("ref_dup")
	second.Tickets[0].TicketID = "other-1"
	second.Tickets[0].RedemptionCode = models.RedemptionCode("other-1")
	second.Tickets[1].TicketID = "other-2"
	second.Tickets[1].RedemptionCode = models.RedemptionCode("other-2")
	second.Transaction.ID = "txn-other"

	inserted, err = d.IssueAtomic(ctx, second)
	require.NoError(t, err)
	assert.False(t, inserted)

	ticketCount, err := d.Bun.NewSelect().Model((*models.Ticket)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ticketCount, "losing batch must not write tickets")

	txnCount, err := d.Bun.NewSelect().Model((*models.Transaction)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, txnCount)

	var updated models.User
	err = d.Bun.NewSelect().Model(&updated).Where("id = ?", "org1").Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, updated.PayoutBalance, "payout must be credited once")
}

func TestIssueAtomicFreeBatchSkipsPayout(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	organizer := models.User{
		ID: "org1", Email: "clubs@university.edu", FullName: "Campus Clubs",
		Status: models.UserActive, Role: models.RoleOrganizer,
		PayoutStatus: models.PayoutNone, CreatedAt: time.Now(),
	}
	_, err := d.Bun.NewInsert().Model(&organizer).Exec(ctx)
	require.NoError(t, err)

	batch := seedBatch("free_abc")
	batch.Transaction.Amount = 0
	batch.Transaction.Provider = "free"
	batch.Revenue = 0

	inserted, err := d.IssueAtomic(ctx, batch)
	require.NoError(t, err)
	assert.True(t, inserted)

	var updated models.User
	err = d.Bun.NewSelect().Model(&updated).Where("id = ?", "org1").Scan(ctx)
	require.NoError(t, err)
	assert.Zero(t, updated.PayoutBalance)
	assert.Equal(t, models.PayoutNone, updated.PayoutStatus)
}
