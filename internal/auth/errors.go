package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike;
	// callers cannot distinguish the two.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInactiveAccount is returned for a principal whose account is
	// disabled, at login and on every later resolution.
	ErrInactiveAccount = errors.New("auth: account disabled")

	// ErrTokenRevoked marks a structurally valid token that was invalidated
	// before its natural expiry.
	ErrTokenRevoked = errors.New("auth: token revoked")
)
