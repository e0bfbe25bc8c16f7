package tickets_test

import (
	"bytes"
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventless/internal/logger"
	"eventless/internal/models"
	"eventless/internal/tickets"
)

type fakeDB struct {
	mu      sync.Mutex
	tickets map[string]*models.Ticket
}

func (f *fakeDB) GetTicketByID(_ context.Context, id string) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return ticket, nil
}

func (f *fakeDB) GetTicketsByUser(_ context.Context, userID string) ([]models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := make([]models.Ticket, 0)
	for _, ticket := range f.tickets {
		if ticket.UserID == userID {
			list = append(list, *ticket)
		}
	}
	return list, nil
}

func newService(t *testing.T) (*tickets.Service, *fakeDB) {
	t.Helper()
	t.Chdir(t.TempDir()) // logger writes under ./logs
	log := logger.NewLogger()
	t.Cleanup(log.Close)

	db := &fakeDB{tickets: map[string]*models.Ticket{
		"t1": {
			TicketID:         "t1",
			EventID:          "event1",
			UserID:           "buyer1",
			TierName:         "Regular",
			RedemptionCode:   models.RedemptionCode("t1"),
			Status:           models.TicketValid,
			EventTitle:       "Freshers Welcome Concert",
			EventOrganizerID: "org1",
			IssuedAt:         time.Now(),
		},
	}}
	return tickets.NewService(db, log), db
}

func TestListMine(t *testing.T) {
	service, _ := newService(t)

	mine, err := service.ListMine(context.Background(), "buyer1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "t1", mine[0].TicketID)

	empty, err := service.ListMine(context.Background(), "somebody-else")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetTicketAccess(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	owned, err := service.GetTicket(ctx, "buyer1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", owned.TicketID)

	// The event organizer may inspect tickets for their event.
	viewed, err := service.GetTicket(ctx, "org1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", viewed.TicketID)

	_, err = service.GetTicket(ctx, "stranger", "t1")
	assert.ErrorIs(t, err, tickets.ErrUnauthorized)

	_, err = service.GetTicket(ctx, "buyer1", "missing")
	assert.ErrorIs(t, err, tickets.ErrNotFound)
}

func TestRedemptionQR(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	png, err := service.RedemptionQR(ctx, "buyer1", "t1")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "response should be a PNG image")

	// QR is owner-only; even the organizer cannot pull it.
	_, err = service.RedemptionQR(ctx, "org1", "t1")
	assert.ErrorIs(t, err, tickets.ErrUnauthorized)

	_, err = service.RedemptionQR(ctx, "buyer1", "missing")
	assert.ErrorIs(t, err, tickets.ErrNotFound)
}
