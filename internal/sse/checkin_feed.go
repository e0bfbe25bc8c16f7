package sse

import (
	"context"
	"sync"
	"time"
)

// CheckinUpdate is one entry on an event's live check-in feed.
type CheckinUpdate struct {
	TicketID     string    `json:"ticket_id"`
	EventID      string    `json:"event_id"`
	AttendeeName string    `json:"attendee_name,omitempty"`
	Status       string    `json:"status"`
	ScannedAt    time.Time `json:"scanned_at"`
}

// CheckinFeed fans successful door scans out to subscribed organizer
// dashboards, keyed by event.
type CheckinFeed struct {
	mu      sync.RWMutex
	clients map[string][]chan CheckinUpdate
}

func NewCheckinFeed() *CheckinFeed {
	return &CheckinFeed{
		clients: make(map[string][]chan CheckinUpdate),
	}
}

// Subscribe registers a client for an event's check-in updates. The
// returned channel closes when ctx is done.
func (f *CheckinFeed) Subscribe(ctx context.Context, eventID string) chan CheckinUpdate {
	clientChan := make(chan CheckinUpdate, 10)

	f.mu.Lock()
	f.clients[eventID] = append(f.clients[eventID], clientChan)
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.remove(eventID, clientChan)
	}()

	return clientChan
}

// Emit broadcasts an update to every subscriber of the event. Sends are
// non-blocking; a subscriber with a full buffer misses the update.
func (f *CheckinFeed) Emit(update CheckinUpdate) {
	f.mu.RLock()
	clients := f.clients[update.EventID]
	f.mu.RUnlock()

	for _, clientChan := range clients {
		select {
		case clientChan <- update:
		default:
		}
	}
}

func (f *CheckinFeed) remove(eventID string, clientChan chan CheckinUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()

	clients := f.clients[eventID]
	for i, ch := range clients {
		if ch == clientChan {
			f.clients[eventID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}
	if len(f.clients[eventID]) == 0 {
		delete(f.clients, eventID)
	}
}

// ClientCount reports how many subscribers an event currently has.
func (f *CheckinFeed) ClientCount(eventID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients[eventID])
}
