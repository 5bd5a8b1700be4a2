package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kidsstudy/kidsstudy/internal/auth"
	"github.com/kidsstudy/kidsstudy/internal/billing"
	"github.com/kidsstudy/kidsstudy/internal/model"
)

// CheckoutStarter creates hosted checkout sessions.
type CheckoutStarter interface {
	StartCheckout(ctx context.Context, user *model.User, planRaw string) (*billing.Session, error)
}

// CheckoutHandler sends signed-in users to the payment processor.
type CheckoutHandler struct {
	svc       CheckoutStarter
	loginPath string
	logger    *slog.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(svc CheckoutStarter, loginPath string, logger *slog.Logger) *CheckoutHandler {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &CheckoutHandler{svc: svc, loginPath: loginPath, logger: logger}
}

// Checkout handles GET /checkout?plan=basic|pro.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, h.loginPath, http.StatusFound)
		return
	}

	session, err := h.svc.StartCheckout(r.Context(), user, r.URL.Query().Get("plan"))
	if err != nil {
		// The service already logged the provider error.
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error creating checkout session"})
		return
	}

	http.Redirect(w, r, session.URL, http.StatusFound)
}
