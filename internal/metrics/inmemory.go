package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	GateDecisions            map[string]uint64
	AdminOverrides           uint64
	ProfileFetchCount        uint64
	ProfileFetchTotalNs      int64
	CheckoutsCreated         map[string]uint64
	CheckoutsFailed          uint64
	WebhooksReceived         map[string]uint64
	WebhooksRejected         map[string]uint64
	ProfilesMarkedPaid       uint64
	WebhookDuplicatesSkipped uint64
}

// InMemoryRecorder stores metrics in memory. It backs the /metrics endpoint.
type InMemoryRecorder struct {
	adminOverrides      uint64
	profileFetchCount   uint64
	profileFetchTotalNs int64
	checkoutsFailed     uint64
	profilesMarkedPaid  uint64
	webhookDuplicates   uint64

	mu               sync.Mutex
	gateDecisions    map[string]uint64
	checkoutsCreated map[string]uint64
	webhooksReceived map[string]uint64
	webhooksRejected map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		gateDecisions:    make(map[string]uint64),
		checkoutsCreated: make(map[string]uint64),
		webhooksReceived: make(map[string]uint64),
		webhooksRejected: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		GateDecisions:            copyCounts(m.gateDecisions),
		AdminOverrides:           atomic.LoadUint64(&m.adminOverrides),
		ProfileFetchCount:        atomic.LoadUint64(&m.profileFetchCount),
		ProfileFetchTotalNs:      atomic.LoadInt64(&m.profileFetchTotalNs),
		CheckoutsCreated:         copyCounts(m.checkoutsCreated),
		CheckoutsFailed:          atomic.LoadUint64(&m.checkoutsFailed),
		WebhooksReceived:         copyCounts(m.webhooksReceived),
		WebhooksRejected:         copyCounts(m.webhooksRejected),
		ProfilesMarkedPaid:       atomic.LoadUint64(&m.profilesMarkedPaid),
		WebhookDuplicatesSkipped: atomic.LoadUint64(&m.webhookDuplicates),
	}
}

// IncGateDecision counts a gate decision by reason.
func (m *InMemoryRecorder) IncGateDecision(reason string) {
	m.inc(m.gateDecisions, reason)
}

// IncAdminOverride counts privileged bypasses.
func (m *InMemoryRecorder) IncAdminOverride() {
	atomic.AddUint64(&m.adminOverrides, 1)
}

// ObserveProfileFetchDuration records profile store latency.
func (m *InMemoryRecorder) ObserveProfileFetchDuration(duration time.Duration) {
	atomic.AddUint64(&m.profileFetchCount, 1)
	atomic.AddInt64(&m.profileFetchTotalNs, duration.Nanoseconds())
}

// IncCheckoutCreated counts created checkout sessions by plan.
func (m *InMemoryRecorder) IncCheckoutCreated(plan string) {
	m.inc(m.checkoutsCreated, plan)
}

// IncCheckoutFailed counts failed session creations.
func (m *InMemoryRecorder) IncCheckoutFailed() {
	atomic.AddUint64(&m.checkoutsFailed, 1)
}

// IncWebhookReceived counts verified webhook events by type.
func (m *InMemoryRecorder) IncWebhookReceived(eventType string) {
	m.inc(m.webhooksReceived, eventType)
}

// IncWebhookRejected counts rejected deliveries by reason.
func (m *InMemoryRecorder) IncWebhookRejected(reason string) {
	m.inc(m.webhooksRejected, reason)
}

// IncProfileMarkedPaid counts applied payment completions.
func (m *InMemoryRecorder) IncProfileMarkedPaid() {
	atomic.AddUint64(&m.profilesMarkedPaid, 1)
}

// IncWebhookDuplicate counts redeliveries skipped by the delivered marker.
func (m *InMemoryRecorder) IncWebhookDuplicate() {
	atomic.AddUint64(&m.webhookDuplicates, 1)
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, label string) {
	m.mu.Lock()
	counts[label]++
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// SortedLabels returns the keys of a labelled counter in stable order.
func SortedLabels(counts map[string]uint64) []string {
	labels := make([]string, 0, len(counts))
	for k := range counts {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}
