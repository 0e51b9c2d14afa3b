package httpapi

import (
	"net/http"

	"obser.dev/internal/auth"
	"obser.dev/internal/registry"
)

// Environments ----------------------------------------------------------------

func (a *API) ListEnvironments(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid project id")
		return
	}
	envs, err := a.registry.ListEnvironments(r.Context(), auth.PrincipalFrom(r.Context()), projectID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envs)
}

func (a *API) GetEnvironment(w http.ResponseWriter, r *http.Request) {
	projectID, ok1 := pathID(r, "projectID")
	envID, ok2 := pathID(r, "envID")
	if !ok1 || !ok2 {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	env, err := a.registry.GetEnvironment(r.Context(), auth.PrincipalFrom(r.Context()), projectID, envID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (a *API) CreateEnvironment(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid project id")
		return
	}
	var req registry.EnvironmentCreate
	if !decodeJSON(w, r, &req) {
		return
	}
	env, err := a.registry.CreateEnvironment(r.Context(), auth.PrincipalFrom(r.Context()), projectID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, env)
}

func (a *API) UpdateEnvironment(w http.ResponseWriter, r *http.Request) {
	projectID, ok1 := pathID(r, "projectID")
	envID, ok2 := pathID(r, "envID")
	if !ok1 || !ok2 {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req registry.EnvironmentUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	env, err := a.registry.UpdateEnvironment(r.Context(), auth.PrincipalFrom(r.Context()), projectID, envID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (a *API) DeleteEnvironment(w http.ResponseWriter, r *http.Request) {
	projectID, ok1 := pathID(r, "projectID")
	envID, ok2 := pathID(r, "envID")
	if !ok1 || !ok2 {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	if err := a.registry.DeleteEnvironment(r.Context(), auth.PrincipalFrom(r.Context()), projectID, envID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Service instances -----------------------------------------------------------

func (a *API) ListServiceInstances(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid project id")
		return
	}
	instances, err := a.registry.ListServiceInstances(r.Context(), auth.PrincipalFrom(r.Context()), projectID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, instances)
}

func (a *API) GetServiceInstance(w http.ResponseWriter, r *http.Request) {
	projectID, ok1 := pathID(r, "projectID")
	instanceID, ok2 := pathID(r, "instanceID")
	if !ok1 || !ok2 {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	inst, err := a.registry.GetServiceInstance(r.Context(), auth.PrincipalFrom(r.Context()), projectID, instanceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (a *API) CreateServiceInstance(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid project id")
		return
	}
	var req registry.ServiceInstanceCreate
	if !decodeJSON(w, r, &req) {
		return
	}
	inst, err := a.registry.CreateServiceInstance(r.Context(), auth.PrincipalFrom(r.Context()), projectID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

func (a *API) UpdateServiceInstance(w http.ResponseWriter, r *http.Request) {
	projectID, ok1 := pathID(r, "projectID")
	instanceID, ok2 := pathID(r, "instanceID")
	if !ok1 || !ok2 {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req registry.ServiceInstanceUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	inst, err := a.registry.UpdateServiceInstance(r.Context(), auth.PrincipalFrom(r.Context()), projectID, instanceID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (a *API) DeleteServiceInstance(w http.ResponseWriter, r *http.Request) {
	projectID, ok1 := pathID(r, "projectID")
	instanceID, ok2 := pathID(r, "instanceID")
	if !ok1 || !ok2 {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	if err := a.registry.DeleteServiceInstance(r.Context(), auth.PrincipalFrom(r.Context()), projectID, instanceID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Credential links ------------------------------------------------------------

func (a *API) ListCredentialLinks(w http.ResponseWriter, r *http.Request) {
	projectID, ok1 := pathID(r, "projectID")
	instanceID, ok2 := pathID(r, "instanceID")
	if !ok1 || !ok2 {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	links, err := a.registry.ListCredentialLinks(r.Context(), auth.PrincipalFrom(r.Context()), projectID, instanceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

type attachCredentialRequest struct {
	CredentialID int64                    `json:"credential_id"`
	Usage        registry.CredentialUsage `json:"usage"`
}

func (a *API) AttachCredential(w http.ResponseWriter, r *http.Request) {
	projectID, ok1 := pathID(r, "projectID")
	instanceID, ok2 := pathID(r, "instanceID")
	if !ok1 || !ok2 {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req attachCredentialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	link, err := a.registry.AttachCredential(r.Context(), auth.PrincipalFrom(r.Context()), projectID, instanceID, req.CredentialID, req.Usage)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (a *API) DetachCredential(w http.ResponseWriter, r *http.Request) {
	projectID, ok1 := pathID(r, "projectID")
	instanceID, ok2 := pathID(r, "instanceID")
	credentialID, ok3 := pathID(r, "credentialID")
	if !ok1 || !ok2 || !ok3 {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	if err := a.registry.DetachCredential(r.Context(), auth.PrincipalFrom(r.Context()), projectID, instanceID, credentialID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Credentials -----------------------------------------------------------------

func (a *API) ListCredentials(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid project id")
		return
	}
	creds, err := a.registry.ListCredentials(r.Context(), auth.PrincipalFrom(r.Context()), projectID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

func (a *API) GetCredential(w http.ResponseWriter, r *http.Request) {
	projectID, ok1 := pathID(r, "projectID")
	credentialID, ok2 := pathID(r, "credentialID")
	if !ok1 || !ok2 {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	cred, err := a.registry.GetCredential(r.Context(), auth.PrincipalFrom(r.Context()), projectID, credentialID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

func (a *API) CreateCredential(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "projectID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid project id")
		return
	}
	var req registry.CredentialCreate
	if !decodeJSON(w, r, &req) {
		return
	}
	cred, err := a.registry.CreateCredential(r.Context(), auth.PrincipalFrom(r.Context()), projectID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cred)
}

func (a *API) UpdateCredential(w http.ResponseWriter, r *http.Request) {
	projectID, ok1 := pathID(r, "projectID")
	credentialID, ok2 := pathID(r, "credentialID")
	if !ok1 || !ok2 {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req registry.CredentialUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	cred, err := a.registry.UpdateCredential(r.Context(), auth.PrincipalFrom(r.Context()), projectID, credentialID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

func (a *API) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	projectID, ok1 := pathID(r, "projectID")
	credentialID, ok2 := pathID(r, "credentialID")
	if !ok1 || !ok2 {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	if err := a.registry.DeleteCredential(r.Context(), auth.PrincipalFrom(r.Context()), projectID, credentialID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Service types ---------------------------------------------------------------

func (a *API) ListServiceTypes(w http.ResponseWriter, r *http.Request) {
	types, err := a.registry.ListServiceTypes(r.Context(), auth.PrincipalFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (a *API) CreateServiceType(w http.ResponseWriter, r *http.Request) {
	var req registry.ServiceType
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := a.registry.CreateServiceType(r.Context(), auth.PrincipalFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (a *API) DeleteServiceType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "typeID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid service type id")
		return
	}
	if err := a.registry.DeleteServiceType(r.Context(), auth.PrincipalFrom(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
