package httpapi

import (
	"net/http"

	"obser.dev/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pair, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := a.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *API) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pair, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

type impersonateRequest struct {
	UserID int64 `json:"user_id"`
}

func (a *API) Impersonate(w http.ResponseWriter, r *http.Request) {
	var req impersonateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actor := auth.PrincipalFrom(r.Context())
	pair, sid, err := a.auth.Impersonate(r.Context(), actor, req.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    pair.TokenType,
		"session_id":    sid,
	})
}

// Me returns the resolved principal plus any impersonation markers on the
// presented token.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFrom(r.Context())
	if principal == nil {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}
	resp := map[string]any{
		"user": principal,
	}
	if claims, ok := auth.ClaimsFrom(r.Context()); ok && claims.Imp {
		resp["impersonation"] = map[string]any{
			"impersonated_by": claims.ImpBy,
			"session_id":      claims.ImpSID,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout revokes the presented access token for its remaining lifetime.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	tokenString, ok := bearerToken(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if err := a.auth.Revoke(r.Context(), tokenString); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged out"})
}
