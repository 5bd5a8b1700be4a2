package middleware

import (
	"context"
	"net/http"

	"github.com/kidsstudy/kidsstudy/internal/auth"
	"github.com/kidsstudy/kidsstudy/internal/gate"
)

// AccessChecker evaluates the subscription gate.
type AccessChecker interface {
	Check(ctx context.Context, s gate.Subject) gate.Decision
}

// DenyFunc renders a denied decision.
type DenyFunc func(w http.ResponseWriter, r *http.Request, d gate.Decision)

// RequireAccess lets a request through only when the gate allows the
// signed-in user. The decision is stored in the request context so handlers
// never query the store a second time.
func RequireAccess(checker AccessChecker, deny DenyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var subject gate.Subject
			if user := auth.UserFromContext(r.Context()); user != nil {
				subject = gate.Subject{UserID: user.ID, Email: user.Email}
			}

			d := checker.Check(r.Context(), subject)
			ctx := gate.ContextWithDecision(r.Context(), d)
			if !d.Allowed {
				deny(w, r.WithContext(ctx), d)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
