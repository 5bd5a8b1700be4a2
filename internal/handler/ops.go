package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kidsstudy/kidsstudy/internal/auth"
	"github.com/kidsstudy/kidsstudy/internal/gate"
	"github.com/kidsstudy/kidsstudy/internal/handler/dto"
	"github.com/kidsstudy/kidsstudy/internal/model"
)

// PaymentEventLister reads the applied processor events for a user.
type PaymentEventLister interface {
	ListPaymentEvents(ctx context.Context, userID string) ([]*model.PaymentEvent, error)
}

// OpsHandler serves support lookups.
type OpsHandler struct {
	checker  AccessChecker
	payments PaymentEventLister
	currency string
	logger   *slog.Logger
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(checker AccessChecker, payments PaymentEventLister, currency string, logger *slog.Logger) *OpsHandler {
	return &OpsHandler{checker: checker, payments: payments, currency: currency, logger: logger}
}

// ProfileAccess handles GET /ops/v1/profiles/{userID}/access.
// The subject carries no email, so only id-based admin overrides apply.
// The response includes the user's payment audit trail, newest first.
func (h *OpsHandler) ProfileAccess(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := uuid.Parse(userID); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_USER_ID", "User ID must be a UUID")
		return
	}

	d := h.checker.Check(r.Context(), gate.Subject{UserID: userID})

	keyID := ""
	if ops := auth.OpsFromContext(r.Context()); ops != nil {
		keyID = ops.KeyID
	}
	h.logger.Info("ops access lookup",
		"audit", true,
		"key_id", keyID,
		"user_id", userID,
		"reason", d.Reason,
	)

	if d.Reason == gate.ReasonError {
		writeError(w, http.StatusServiceUnavailable, "ACCESS_UNAVAILABLE", "Access check temporarily unavailable")
		return
	}

	payments, err := h.payments.ListPaymentEvents(r.Context(), userID)
	if err != nil {
		h.logger.Error("list payment events failed", "user_id", userID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "PAYMENTS_UNAVAILABLE", "Payment history temporarily unavailable")
		return
	}
	if payments == nil {
		payments = []*model.PaymentEvent{}
	}

	writeJSON(w, http.StatusOK, dto.OpsAccessResponse{
		UserID:         userID,
		AccessResponse: dto.ToAccessResponse(d, h.currency),
		Payments:       payments,
	})
}
