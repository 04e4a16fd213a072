package auth

import (
	"context"

	"referral-platform/internal/users"
)

type identityKey struct{}

// WithIdentity attaches the resolved identity (never the password hash) to ctx.
func WithIdentity(ctx context.Context, id users.Public) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity attached by RequireAccessToken.
func IdentityFrom(ctx context.Context) (users.Public, bool) {
	if ctx == nil {
		return users.Public{}, false
	}
	id, ok := ctx.Value(identityKey{}).(users.Public)
	if !ok || id.ID == "" {
		return users.Public{}, false
	}
	return id, true
}
