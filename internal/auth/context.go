// Package auth provides password hashing, session tokens and the
// request-scoped identity of authenticated callers.
package auth

import (
	"context"

	"github.com/taskboard/taskboard/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// authContextKey is the context key for storing AuthContext.
	authContextKey contextKey = "auth_context"
)

// ContextWithAuth adds AuthContext to the context.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext retrieves AuthContext from the context.
// Returns nil if not present.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, ok := ctx.Value(authContextKey).(*model.AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// MustAuthFromContext retrieves AuthContext from the context.
// Panics if not present (use only behind the auth gate).
func MustAuthFromContext(ctx context.Context) *model.AuthContext {
	auth := AuthFromContext(ctx)
	if auth == nil {
		panic("auth context not found - ensure auth middleware is applied")
	}
	return auth
}

// UserIDFromContext returns the authenticated user ID, or "" when the
// request carries no identity.
func UserIDFromContext(ctx context.Context) string {
	auth := AuthFromContext(ctx)
	if auth == nil {
		return ""
	}
	return auth.UserID
}

// ClaimsToAuthContext converts verified token claims into the identity
// attached to a request.
func ClaimsToAuthContext(c *Claims) *model.AuthContext {
	return &model.AuthContext{
		UserID:    c.UserID,
		TokenID:   c.TokenID,
		ExpiresAt: c.ExpiresAt,
	}
}
