package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"obser.dev/internal/auth"
)

// Authenticate extracts the bearer token, rejects revoked tokens before
// decoding, validates the access token and resolves the principal. The
// resolved user and claims land on the request context.
func (a *API) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}

		revoked, err := a.auth.Blacklist().IsRevoked(r.Context(), tokenString)
		if err != nil {
			writeError(w, r, http.StatusServiceUnavailable, "authorization unavailable")
			return
		}
		if revoked {
			writeError(w, r, http.StatusUnauthorized, "token revoked")
			return
		}

		claims, err := a.validator.ValidateAccess(tokenString)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		principal, err := a.auth.Resolver().Resolve(r.Context(), claims)
		if err != nil {
			// A deleted principal reads the same as a bad token.
			writeServiceError(w, r, withUnauthorized(err))
			return
		}

		ctx := auth.WithPrincipal(r.Context(), &principal)
		ctx = auth.WithClaims(ctx, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

// withUnauthorized coerces resolution failures into a 401-mapped error.
// Only the inactive-account case keeps its distinct message.
func withUnauthorized(err error) error {
	if errors.Is(err, auth.ErrInactiveAccount) {
		return err
	}
	return auth.ErrInvalidCredentials
}
