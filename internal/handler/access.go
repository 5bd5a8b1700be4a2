package handler

import (
	"context"
	"net/http"

	"github.com/kidsstudy/kidsstudy/internal/auth"
	"github.com/kidsstudy/kidsstudy/internal/gate"
	"github.com/kidsstudy/kidsstudy/internal/handler/dto"
	"github.com/kidsstudy/kidsstudy/internal/model"
)

// AccessChecker evaluates the subscription gate.
type AccessChecker interface {
	Check(ctx context.Context, s gate.Subject) gate.Decision
}

// AccessHandler serves access decisions and the gated catalog.
type AccessHandler struct {
	checker  AccessChecker
	currency string
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(checker AccessChecker, currency string) *AccessHandler {
	return &AccessHandler{checker: checker, currency: currency}
}

// Access handles GET /api/v1/access.
func (h *AccessHandler) Access(w http.ResponseWriter, r *http.Request) {
	d, ok := gate.DecisionFromContext(r.Context())
	if !ok {
		d = h.checker.Check(r.Context(), subjectFromRequest(r))
	}

	if d.Reason == gate.ReasonError {
		writeError(w, http.StatusServiceUnavailable, "ACCESS_UNAVAILABLE", "Access check temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, dto.ToAccessResponse(d, h.currency))
}

// Games handles GET /api/v1/games. Runs behind the gate middleware.
func (h *AccessHandler) Games(w http.ResponseWriter, r *http.Request) {
	d, _ := gate.DecisionFromContext(r.Context())
	writeJSON(w, http.StatusOK, dto.GamesResponse{
		Data:        model.Games,
		Reason:      string(d.Reason),
		TrialEndsAt: d.TrialEndsAt,
	})
}

// Deny renders a denied gate decision for gated routes. It never redirects,
// so a denied client cannot loop between pages.
func (h *AccessHandler) Deny(w http.ResponseWriter, r *http.Request, d gate.Decision) {
	switch d.Reason {
	case gate.ReasonNoUser:
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required")
	case gate.ReasonError:
		writeError(w, http.StatusServiceUnavailable, "ACCESS_UNAVAILABLE", "Access check temporarily unavailable")
	default:
		writeJSON(w, http.StatusPaymentRequired, dto.ToAccessResponse(d, h.currency))
	}
}

func subjectFromRequest(r *http.Request) gate.Subject {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		return gate.Subject{}
	}
	return gate.Subject{UserID: user.ID, Email: user.Email}
}
