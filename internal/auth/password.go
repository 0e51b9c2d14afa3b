package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

// HashPassword derives a bcrypt hash at the default cost.
func HashPassword(plain string) (string, error) {
	if len(plain) < minPasswordLen {
		return "", fmt.Errorf("%w: password must be at least %d characters", ErrWeakPassword, minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether plain matches the stored hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ErrWeakPassword rejects passwords below the minimum length at
// registration.
var ErrWeakPassword = errors.New("auth: password too weak")
