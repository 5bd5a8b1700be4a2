package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kidsstudy/kidsstudy/internal/webhook"
)

// WebhookProcessor verifies and applies a raw delivery.
type WebhookProcessor interface {
	Process(ctx context.Context, payload []byte, signatureHeader string) (*webhook.Result, error)
}

// WebhookHandler receives payment processor events.
type WebhookHandler struct {
	processor WebhookProcessor
	timeout   time.Duration
	logger    *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(processor WebhookProcessor, timeout time.Duration, logger *slog.Logger) *WebhookHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookHandler{processor: processor, timeout: timeout, logger: logger}
}

// Receive handles POST /webhook.
// The body is read as raw bytes; the signature is never checked against
// re-encoded JSON.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn("webhook body unreadable", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Webhook Error"})
		return
	}

	// A dropped connection must not abort a mutation halfway.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()

	result, err := h.processor.Process(ctx, payload, r.Header.Get(webhook.SignatureHeader))
	switch {
	case err == nil:
		h.logger.Info("webhook processed",
			"event_id", result.EventID,
			"event_type", result.EventType,
			"outcome", result.Outcome,
		)
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	case webhook.IsVerificationError(err):
		h.logger.Warn("webhook rejected", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Webhook Error"})
	case errors.Is(err, webhook.ErrProfileUpdate):
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error updating user profile"})
	default:
		h.logger.Error("webhook processing failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error updating user profile"})
	}
}
