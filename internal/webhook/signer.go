// Package webhook verifies and applies payment processor webhook deliveries.
package webhook

import (
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	stripewebhook "github.com/stripe/stripe-go/v76/webhook"
)

const (
	// SignatureHeader is the header carrying the delivery signature.
	SignatureHeader = "Stripe-Signature"
	// DefaultReplayWindow is the default replay protection window.
	DefaultReplayWindow = stripewebhook.DefaultTolerance
)

// verifyEvent checks header against the raw payload and decodes the event.
// The endpoint's API version may differ from the SDK's pinned one; only the
// fields read by decodeEvent matter here.
func verifyEvent(payload []byte, header, secret string, tolerance time.Duration) (stripe.Event, error) {
	evt, err := stripewebhook.ConstructEventWithOptions(payload, header, secret, stripewebhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return evt, verificationError(err)
	}
	return evt, nil
}

// verificationError maps SDK errors onto this package's sentinels.
func verificationError(err error) error {
	switch {
	case errors.Is(err, stripewebhook.ErrNotSigned):
		return ErrMissingSignature
	case errors.Is(err, stripewebhook.ErrInvalidHeader):
		return ErrMalformedSignature
	case errors.Is(err, stripewebhook.ErrTooOld):
		return ErrReplayWindowExceeded
	case errors.Is(err, stripewebhook.ErrNoValidSignature):
		return ErrInvalidSignature
	default:
		// Signature was valid but the body is not an event.
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
}
