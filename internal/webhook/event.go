package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
)

// Metadata keys set by the checkout initiator.
const (
	MetadataUserID   = "userId"
	MetadataPlanType = "planType"
)

// Event is the part of a verified Stripe event this service reads.
type Event struct {
	ID   string
	Type string
	// Session is set for checkout.session.* events.
	Session *stripe.CheckoutSession
}

// decodeEvent extracts the checkout session from a verified event.
func decodeEvent(evt stripe.Event) (*Event, error) {
	if evt.ID == "" || evt.Type == "" {
		return nil, fmt.Errorf("%w: missing id or type", ErrMalformedEvent)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") {
		return out, nil
	}

	if evt.Data == nil || len(evt.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: %s without data.object", ErrMalformedEvent, out.Type)
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: checkout session: %v", ErrMalformedEvent, err)
	}
	out.Session = &session
	return out, nil
}

// UserID returns the user id stored in the session metadata.
func (e *Event) UserID() string {
	if e.Session == nil {
		return ""
	}
	return e.Session.Metadata[MetadataUserID]
}

// PlanType returns the raw plan stored in the session metadata.
func (e *Event) PlanType() string {
	if e.Session == nil {
		return ""
	}
	return e.Session.Metadata[MetadataPlanType]
}
