package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncGateDecision(reason string)                      {}
func (n *NoopRecorder) IncAdminOverride()                                  {}
func (n *NoopRecorder) ObserveProfileFetchDuration(duration time.Duration) {}
func (n *NoopRecorder) IncCheckoutCreated(plan string)                     {}
func (n *NoopRecorder) IncCheckoutFailed()                                 {}
func (n *NoopRecorder) IncWebhookReceived(eventType string)                {}
func (n *NoopRecorder) IncWebhookRejected(reason string)                   {}
func (n *NoopRecorder) IncProfileMarkedPaid()                              {}
func (n *NoopRecorder) IncWebhookDuplicate()                               {}
