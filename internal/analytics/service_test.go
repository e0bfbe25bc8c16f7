package analytics_test

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

	"eventless/internal/analytics"
	"eventless/internal/models"
)

func setupService(t *testing.T) (*analytics.Service, *bun.DB) {
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
	)
	require.NoError(t, err)

	return analytics.NewService(bunDB), bunDB
}

func seed(t *testing.T, bunDB *bun.DB) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	users := []models.User{
		{ID: "org1", Email: "clubs@university.edu", FullName: "Campus Clubs", Status: models.UserActive, Role: models.RoleOrganizer, PayoutBalance: 12500, PayoutStatus: models.PayoutPending, CreatedAt: now},
		{ID: "admin1", Email: "admin@eventless.app", FullName: "Site Admin", Status: models.UserActive, Role: models.RoleAdmin, PayoutStatus: models.PayoutNone, CreatedAt: now},
		{ID: "buyer1", Email: "student@university.edu", FullName: "Sample Student", Status: models.UserActive, Role: models.RoleIndividual, PayoutStatus: models.PayoutNone, CreatedAt: now},
	}
	_, err := bunDB.NewInsert().Model(&users).Exec(ctx)
	require.NoError(t, err)

	event := models.Event{ID: "event1", Title: "Freshers Welcome Concert", StartTime: now, OrganizerID: "org1", Status: models.EventApproved, CreatedAt: now}
	_, err = bunDB.NewInsert().Model(&event).Exec(ctx)
	require.NoError(t, err)

	tickets := []models.Ticket{
		{TicketID: "t1", EventID: "event1", UserID: "buyer1", TierName: "Regular", TierPrice: 2500, RedemptionCode: models.RedemptionCode("t1"), Status: models.TicketUsed, EventOrganizerID: "org1", IssuedAt: now},
		{TicketID: "t2", EventID: "event1", UserID: "buyer1", TierName: "Regular", TierPrice: 2500, RedemptionCode: models.RedemptionCode("t2"), Status: models.TicketValid, EventOrganizerID: "org1", IssuedAt: now},
		{TicketID: "t3", EventID: "event1", UserID: "buyer1", TierName: "VIP", TierPrice: 7500, RedemptionCode: models.RedemptionCode("t3"), Status: models.TicketValid, EventOrganizerID: "org1", IssuedAt: now},
	}
	_, err = bunDB.NewInsert().Model(&tickets).Exec(ctx)
	require.NoError(t, err)
}

func TestGetEventSummary(t *testing.T) {
	service, bunDB := setupService(t)
	seed(t, bunDB)

	summary, err := service.GetEventSummary(context.Background(), "org1", "event1")
	require.NoError(t, err)

	assert.Equal(t, "Freshers Welcome Concert", summary.EventTitle)
	assert.Equal(t, 3, summary.TicketsSold)
	assert.Equal(t, 1, summary.CheckedIn)
	assert.Equal(t, 12500.0, summary.Revenue)

	require.Len(t, summary.SalesByTier, 2)
	byName := map[string]analytics.TierSales{}
	for _, tier := range summary.SalesByTier {
		byName[tier.TierName] = tier
	}
	assert.Equal(t, 2, byName["Regular"].TicketsSold)
	assert.Equal(t, 5000.0, byName["Regular"].Revenue)
	assert.Equal(t, 1, byName["VIP"].TicketsSold)
	assert.Equal(t, 7500.0, byName["VIP"].Revenue)
}

func TestGetEventSummaryAccess(t *testing.T) {
	service, bunDB := setupService(t)
	seed(t, bunDB)
	ctx := context.Background()

	// Admins may read any event's figures.
	_, err := service.GetEventSummary(ctx, "admin1", "event1")
	require.NoError(t, err)

	_, err = service.GetEventSummary(ctx, "buyer1", "event1")
	assert.ErrorIs(t, err, analytics.ErrUnauthorized)

	_, err = service.GetEventSummary(ctx, "org1", "missing")
	assert.ErrorIs(t, err, analytics.ErrNotFound)
}

func TestGetPayout(t *testing.T) {
	service, bunDB := setupService(t)
	seed(t, bunDB)

	payout, err := service.GetPayout(context.Background(), "org1")
	require.NoError(t, err)
	assert.Equal(t, 12500.0, payout.Balance)
	assert.Equal(t, models.PayoutPending, payout.Status)

	_, err = service.GetPayout(context.Background(), "missing")
	assert.ErrorIs(t, err, analytics.ErrNotFound)
}
