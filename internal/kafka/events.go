package kafka

// Notification event types carried on the notifications topic.
const (
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCancelled = "booking_cancelled"
	EventMilesChanged     = "miles_changed"
)

// NotificationEvent is the fire-and-forget payload handed to the
// notification sink after a transaction commits. Delivery is at-least-once
// and never affects the outcome of the transaction that produced it.
type NotificationEvent struct {
	Type             string            `json:"type"`
	BookingReference string            `json:"booking_reference,omitempty"`
	Recipient        string            `json:"recipient"`
	Payload          map[string]string `json:"payload,omitempty"`
}
