package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"obser.dev/internal/auth"
	"obser.dev/internal/registry"
)

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (a *API) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := a.registry.ListProjects(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (a *API) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "projectID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid project id")
		return
	}
	p, err := a.registry.GetProject(r.Context(), auth.PrincipalFrom(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req registry.ProjectCreate
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := a.registry.CreateProject(r.Context(), auth.PrincipalFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "projectID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid project id")
		return
	}
	var req registry.ProjectUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := a.registry.UpdateProject(r.Context(), auth.PrincipalFrom(r.Context()), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "projectID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid project id")
		return
	}
	if err := a.registry.DeleteProject(r.Context(), auth.PrincipalFrom(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Members ---------------------------------------------------------------------

func (a *API) ListMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "projectID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid project id")
		return
	}
	members, err := a.registry.ListMembers(r.Context(), auth.PrincipalFrom(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

type addMemberRequest struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

func (a *API) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "projectID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid project id")
		return
	}
	var req addMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := a.registry.AddMember(r.Context(), auth.PrincipalFrom(r.Context()), id, req.UserID, req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (a *API) RemoveMember(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid project id")
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := a.registry.RemoveMember(r.Context(), auth.PrincipalFrom(r.Context()), projectID, userID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
