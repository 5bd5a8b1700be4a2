package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/kidsstudy/kidsstudy/internal/auth"
	"github.com/kidsstudy/kidsstudy/internal/model"
)

// SessionCookieName is the cookie Supabase Auth stores the access token in.
const SessionCookieName = "sb-access-token"

// TokenVerifier validates a session token.
type TokenVerifier interface {
	Verify(token string) (*model.User, error)
}

// Session resolves the signed-in user from the request, if any.
// Invalid or missing tokens leave the request anonymous; routes decide
// how to treat anonymous callers.
func Session(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractSessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := verifier.Verify(token)
			if err != nil {
				logger.Debug("session token rejected",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), user)))
		})
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractSessionToken prefers the Authorization header over the cookie.
// Ops keys are never treated as session tokens.
func extractSessionToken(r *http.Request) string {
	if token := bearerToken(r); token != "" && !strings.HasPrefix(token, "ks_ops_") {
		return token
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
