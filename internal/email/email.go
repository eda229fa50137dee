package email

import (
	"context"
	"fmt"

	"github.com/BartoooMuch/irline-ticketing-system/internal/kafka"
)

// Sender is the downstream delivery end of the notification sink. The
// real SMTP integration lives behind this type; the default just prints.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.NotificationEvent) error {
	switch event.Type {
	case kafka.EventBookingConfirmed:
		fmt.Printf("send email to %s: booking %s confirmed\n", event.Recipient, event.BookingReference)
	case kafka.EventBookingCancelled:
		fmt.Printf("send email to %s: ticket on booking %s cancelled\n", event.Recipient, event.BookingReference)
	case kafka.EventMilesChanged:
		fmt.Printf("send email to %s: miles balance changed (%s %s)\n", event.Recipient, event.Payload["type"], event.Payload["miles"])
	default:
		fmt.Printf("send email to %s: %s\n", event.Recipient, event.Type)
	}
	return nil
}
