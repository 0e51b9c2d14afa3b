package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"obser.dev/internal/auth"
	"obser.dev/internal/registry"
	"obser.dev/internal/token"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// writeServiceError maps domain errors onto HTTP statuses. Token failures
// of any kind are a plain 401; inactive accounts get a distinct message so
// clients can surface "account disabled" instead of prompting re-login.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var tokenErr *token.Error
	switch {
	case errors.As(err, &tokenErr):
		writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, auth.ErrTokenRevoked):
		writeError(w, r, http.StatusUnauthorized, "token revoked")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrInactiveAccount):
		writeError(w, r, http.StatusUnauthorized, "account disabled")
	case errors.Is(err, registry.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, registry.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, registry.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
