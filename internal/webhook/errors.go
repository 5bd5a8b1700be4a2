package webhook

import "errors"

// Sentinel errors for webhook verification and processing.
var (
	// ErrMissingSignature is returned when the Stripe-Signature header is absent.
	ErrMissingSignature = errors.New("missing signature header")
	// ErrMalformedSignature is returned when the header cannot be parsed.
	ErrMalformedSignature = errors.New("malformed signature header")
	// ErrInvalidSignature is returned when no v1 signature matches the payload.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrReplayWindowExceeded is returned when the timestamp is outside the tolerance.
	ErrReplayWindowExceeded = errors.New("timestamp outside replay window")
	// ErrMalformedEvent is returned when a verified payload is not a Stripe event.
	ErrMalformedEvent = errors.New("malformed event payload")
	// ErrProfileUpdate is returned when the profile store rejects the mutation.
	ErrProfileUpdate = errors.New("error updating user profile")
)

// IsVerificationError reports whether err means the delivery itself was rejected.
func IsVerificationError(err error) bool {
	return errors.Is(err, ErrMissingSignature) ||
		errors.Is(err, ErrMalformedSignature) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrReplayWindowExceeded) ||
		errors.Is(err, ErrMalformedEvent)
}
