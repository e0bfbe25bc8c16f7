package sse_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventless/internal/sse"
)

func TestCheckinFeedDeliversToEventSubscribers(t *testing.T) {
	feed := sse.NewCheckinFeed()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := feed.Subscribe(ctx, "event1")
	other := feed.Subscribe(ctx, "event2")

	feed.Emit(sse.CheckinUpdate{TicketID: "t1", EventID: "event1", Status: "valid", ScannedAt: time.Now()})

	select {
	case update := <-updates:
		assert.Equal(t, "t1", update.TicketID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the update")
	}

	select {
	case <-other:
		t.Fatal("update leaked to another event's subscriber")
	default:
	}
}

func TestCheckinFeedUnsubscribesOnContextDone(t *testing.T) {
	feed := sse.NewCheckinFeed()
	ctx, cancel := context.WithCancel(context.Background())

	updates := feed.Subscribe(ctx, "event1")
	require.Equal(t, 1, feed.ClientCount("event1"))

	cancel()

	// The channel closes once the removal goroutine runs.
	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-updates:
			if !open {
				assert.Zero(t, feed.ClientCount("event1"))
				return
			}
		case <-deadline:
			t.Fatal("subscription was not torn down")
		}
	}
}

func TestCheckinFeedSkipsSlowSubscriber(t *testing.T) {
	feed := sse.NewCheckinFeed()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Never read from the channel; fill the buffer past capacity.
	feed.Subscribe(ctx, "event1")
	for i := 0; i < 20; i++ {
		feed.Emit(sse.CheckinUpdate{TicketID: "t", EventID: "event1", Status: "valid"})
	}
	// Reaching here without blocking is the assertion.
	assert.Equal(t, 1, feed.ClientCount("event1"))
}
