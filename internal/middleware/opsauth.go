package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/kidsstudy/kidsstudy/internal/auth"
	"github.com/kidsstudy/kidsstudy/internal/model"
)

const (
	// minAuthDuration is the minimum time to spend on auth to prevent timing attacks.
	minAuthDuration = 200 * time.Millisecond
)

// OpsKeyStore looks up and touches ops keys.
type OpsKeyStore interface {
	GetOpsKeysByPrefix(ctx context.Context, prefix string) ([]*model.OpsKey, error)
	TouchOpsKey(ctx context.Context, id string) error
}

// OpsAuthConfig holds configuration for the ops auth middleware.
type OpsAuthConfig struct {
	Logger *slog.Logger
	Store  OpsKeyStore
	// MinDuration overrides minAuthDuration; tests set it to zero.
	MinDuration *time.Duration
}

// OpsAuth authenticates support tooling by ops key and injects the key
// identity into the request. Every outcome receives the same 401 body.
func OpsAuth(cfg OpsAuthConfig) func(http.Handler) http.Handler {
	floor := minAuthDuration
	if cfg.MinDuration != nil {
		floor = *cfg.MinDuration
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ops, reason := authenticateOps(r, cfg.Store, cfg.Logger)

			// Ensure consistent timing regardless of outcome
			if elapsed := time.Since(start); elapsed < floor {
				time.Sleep(floor - elapsed)
			}

			if ops == nil {
				cfg.Logger.Warn("ops authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing ops key")
				return
			}

			cfg.Logger.Info("ops authentication successful",
				slog.Bool("audit", true),
				slog.String("key_id", ops.KeyID),
				slog.String("key_name", ops.Name),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			next.ServeHTTP(w, r.WithContext(auth.ContextWithOps(r.Context(), ops)))
		})
	}
}

func authenticateOps(r *http.Request, store OpsKeyStore, logger *slog.Logger) (*model.OpsContext, string) {
	key := bearerToken(r)
	if key == "" {
		return nil, "missing_key"
	}

	prefix, err := auth.ParseOpsKey(key)
	if err != nil {
		return nil, "invalid_format"
	}

	keys, err := store.GetOpsKeysByPrefix(r.Context(), prefix)
	if err != nil {
		logger.Error("database error during ops auth",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(r.Context())),
		)
		return nil, "store_error"
	}

	// Verify against each candidate key (handles prefix collisions)
	var matched *model.OpsKey
	for _, k := range keys {
		if ok, err := auth.VerifySecret(key, k.KeyHash); err == nil && ok {
			matched = k
			break
		}
	}
	if matched == nil {
		return nil, "invalid_key"
	}

	if err := store.TouchOpsKey(r.Context(), matched.ID); err != nil {
		logger.Warn("failed to update ops key last_used_at",
			slog.String("key_id", matched.ID),
			slog.String("error", err.Error()),
		)
	}

	return &model.OpsContext{
		KeyID:     matched.ID,
		KeyPrefix: matched.KeyPrefix,
		Name:      matched.Name,
	}, ""
}
