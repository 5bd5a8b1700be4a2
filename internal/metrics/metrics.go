// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Gate metrics
	IncGateDecision(reason string)
	IncAdminOverride()
	ObserveProfileFetchDuration(duration time.Duration)

	// Checkout metrics
	IncCheckoutCreated(plan string)
	IncCheckoutFailed()

	// Webhook metrics
	IncWebhookReceived(eventType string)
	IncWebhookRejected(reason string) // reason: "signature", "payload"
	IncProfileMarkedPaid()
	IncWebhookDuplicate()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
