// Package auth resolves who is calling: parents through Supabase session
// tokens, support staff through ops keys.
package auth

import (
	"context"

	"github.com/kidsstudy/kidsstudy/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	userContextKey contextKey = "session_user"
	opsContextKey  contextKey = "ops_context"
)

// ContextWithUser adds the authenticated user to the context.
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user.
// Returns nil for anonymous requests.
func UserFromContext(ctx context.Context) *model.User {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok {
		return nil
	}
	return user
}

// ContextWithOps adds the ops key identity to the context.
func ContextWithOps(ctx context.Context, ops *model.OpsContext) context.Context {
	return context.WithValue(ctx, opsContextKey, ops)
}

// OpsFromContext retrieves the ops key identity. Returns nil if not present.
func OpsFromContext(ctx context.Context) *model.OpsContext {
	ops, ok := ctx.Value(opsContextKey).(*model.OpsContext)
	if !ok {
		return nil
	}
	return ops
}
