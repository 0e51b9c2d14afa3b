package auth

import (
	"context"

	"obser.dev/internal/registry"
	"obser.dev/internal/token"
)

type ctxKey int

const (
	principalKey ctxKey = iota
	claimsKey
)

// WithPrincipal stores the resolved principal on the context.
func WithPrincipal(ctx context.Context, u *registry.User) context.Context {
	return context.WithValue(ctx, principalKey, u)
}

// PrincipalFrom returns the principal stored by WithPrincipal, or nil.
func PrincipalFrom(ctx context.Context) *registry.User {
	u, _ := ctx.Value(principalKey).(*registry.User)
	return u
}

// WithClaims stores the validated token claims on the context so handlers
// can inspect impersonation markers.
func WithClaims(ctx context.Context, c token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFrom returns the claims stored by WithClaims.
func ClaimsFrom(ctx context.Context) (token.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(token.Claims)
	return c, ok
}
