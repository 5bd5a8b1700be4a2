package model

import "time"

// EventTypeCheckoutCompleted is the only processor event that mutates a profile.
const EventTypeCheckoutCompleted = "checkout.session.completed"

// PaymentEvent is the audit record of an applied processor event.
type PaymentEvent struct {
	ID            string    `json:"id"`
	StripeEventID string    `json:"stripe_event_id"`
	EventType     string    `json:"event_type"`
	UserID        string    `json:"user_id"`
	PlanType      PlanType  `json:"plan_type"`
	ReceivedAt    time.Time `json:"received_at"`
}
