package handler

import (
	"fmt"
	"net/http"

	"github.com/kidsstudy/kidsstudy/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeLabelled(w, "kidsstudy_gate_decisions_total", "reason", snap.GateDecisions)
	writeMetric(w, "kidsstudy_gate_admin_overrides_total %d\n", snap.AdminOverrides)
	writeMetric(w, "kidsstudy_profile_fetch_duration_seconds_count %d\n", snap.ProfileFetchCount)
	writeMetric(w, "kidsstudy_profile_fetch_duration_seconds_sum %.6f\n", float64(snap.ProfileFetchTotalNs)/1e9)

	writeLabelled(w, "kidsstudy_checkout_sessions_created_total", "plan", snap.CheckoutsCreated)
	writeMetric(w, "kidsstudy_checkout_sessions_failed_total %d\n", snap.CheckoutsFailed)

	writeLabelled(w, "kidsstudy_webhook_events_received_total", "type", snap.WebhooksReceived)
	writeLabelled(w, "kidsstudy_webhook_events_rejected_total", "reason", snap.WebhooksRejected)
	writeMetric(w, "kidsstudy_profiles_marked_paid_total %d\n", snap.ProfilesMarkedPaid)
	writeMetric(w, "kidsstudy_webhook_duplicates_skipped_total %d\n", snap.WebhookDuplicatesSkipped)
}

func writeLabelled(w http.ResponseWriter, name, label string, counts map[string]uint64) {
	for _, value := range metrics.SortedLabels(counts) {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, value, counts[value])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
