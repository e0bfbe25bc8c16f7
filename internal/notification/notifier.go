package notification

import (
	"context"
	"fmt"
	"log"
)

// TicketConfirmation is the content of a purchase confirmation message.
type TicketConfirmation struct {
	Recipient      string
	AttendeeName   string
	EventTitle     string
	Quantity       int
	RedemptionCode string
}

// Notifier delivers best-effort purchase confirmations. Delivery
// failure must never fail a purchase; callers log and move on.
type Notifier interface {
	SendTicketConfirmation(ctx context.Context, msg TicketConfirmation) error
}

// ConsoleNotifier logs confirmations instead of delivering them. Used
// when SMTP credentials are not configured.
type ConsoleNotifier struct{}

func NewConsole() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (c *ConsoleNotifier) SendTicketConfirmation(_ context.Context, msg TicketConfirmation) error {
	log.Printf("[notify] %s :: %d ticket(s) for %s, code %s",
		msg.Recipient, msg.Quantity, msg.EventTitle, msg.RedemptionCode)
	return nil
}

func confirmationBody(msg TicketConfirmation) string {
	return fmt.Sprintf(
		"Hi %s,\r\n\r\nYour %d ticket(s) for %s are confirmed.\r\n"+
			"Present this code at the entrance:\r\n\r\n    %s\r\n\r\n"+
			"See you there!\r\nThe Eventless team\r\n",
		msg.AttendeeName, msg.Quantity, msg.EventTitle, msg.RedemptionCode)
}
