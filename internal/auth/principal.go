package auth

import (
	"context"
	"fmt"

	"obser.dev/internal/registry"
	"obser.dev/internal/token"
)

// Resolver turns validated claims into a live principal. Resolution always
// hits the store: account state read now wins over anything snapshotted in
// the token, so deactivation takes effect on the next request even for
// tokens issued minutes ago.
type Resolver struct {
	users registry.UserStore
}

// NewResolver constructs a Resolver over the user store.
func NewResolver(users registry.UserStore) Resolver {
	return Resolver{users: users}
}

// Resolve loads the principal named by the claims. A missing user is
// registry.ErrNotFound, a disabled one ErrInactiveAccount.
func (r Resolver) Resolve(ctx context.Context, claims token.Claims) (registry.User, error) {
	id, err := claims.UserID()
	if err != nil {
		return registry.User{}, err
	}
	u, err := r.users.Find(ctx, id)
	if err != nil {
		return registry.User{}, fmt.Errorf("resolve principal %d: %w", id, err)
	}
	if !u.IsActive {
		return registry.User{}, ErrInactiveAccount
	}
	return u, nil
}
