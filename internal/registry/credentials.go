package registry

import (
	"context"
	"fmt"
	"strings"
)

// ListCredentials lists a project's credential records.
func (s *Service) ListCredentials(ctx context.Context, actor *User, projectID int64) ([]Credential, error) {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.store.Credentials().ListByProject(ctx, projectID)
}

// GetCredential returns one credential of an accessible project.
func (s *Service) GetCredential(ctx context.Context, actor *User, projectID, credentialID int64) (Credential, error) {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return Credential{}, err
	}
	return s.store.Credentials().Find(ctx, projectID, credentialID)
}

// CreateCredential stores a secret locator. The raw secret never enters
// this system.
func (s *Service) CreateCredential(ctx context.Context, actor *User, projectID int64, data CredentialCreate) (Credential, error) {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return Credential{}, err
	}
	data.SecretRef = strings.TrimSpace(data.SecretRef)
	if !data.Kind.Valid() {
		return Credential{}, fmt.Errorf("%w: unsupported credential kind %q", ErrInvalidInput, data.Kind)
	}
	if data.SecretRef == "" {
		return Credential{}, fmt.Errorf("%w: secret_ref is required", ErrInvalidInput)
	}
	return s.store.Credentials().Create(ctx, projectID, data)
}

// UpdateCredential applies a partial update.
func (s *Service) UpdateCredential(ctx context.Context, actor *User, projectID, credentialID int64, upd CredentialUpdate) (Credential, error) {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return Credential{}, err
	}
	if upd.Kind != nil && !upd.Kind.Valid() {
		return Credential{}, fmt.Errorf("%w: unsupported credential kind %q", ErrInvalidInput, *upd.Kind)
	}
	if upd.SecretRef != nil {
		ref := strings.TrimSpace(*upd.SecretRef)
		if ref == "" {
			return Credential{}, fmt.Errorf("%w: secret_ref is required", ErrInvalidInput)
		}
		upd.SecretRef = &ref
	}
	return s.store.Credentials().Update(ctx, projectID, credentialID, upd)
}

// DeleteCredential removes a credential and its service links.
func (s *Service) DeleteCredential(ctx context.Context, actor *User, projectID, credentialID int64) error {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return err
	}
	return s.store.Credentials().Delete(ctx, projectID, credentialID)
}

// Service types -------------------------------------------------------------

// ListServiceTypes returns the global catalog; any authenticated principal
// may read it.
func (s *Service) ListServiceTypes(ctx context.Context, actor *User) ([]ServiceType, error) {
	if actor == nil {
		return nil, ErrNotFound
	}
	return s.store.ServiceTypes().List(ctx)
}

// CreateServiceType adds a catalog entry. Superuser-only.
func (s *Service) CreateServiceType(ctx context.Context, actor *User, st ServiceType) (ServiceType, error) {
	if err := requireSuperuser(actor); err != nil {
		return ServiceType{}, err
	}
	st.Code = strings.TrimSpace(strings.ToLower(st.Code))
	st.Group = strings.TrimSpace(strings.ToLower(st.Group))
	st.DisplayName = strings.TrimSpace(st.DisplayName)
	if st.Code == "" || st.Group == "" || st.DisplayName == "" {
		return ServiceType{}, fmt.Errorf("%w: code, group and display_name are required", ErrInvalidInput)
	}
	return s.store.ServiceTypes().Create(ctx, st)
}

// DeleteServiceType removes a catalog entry. Superuser-only; fails with
// ErrConflict while any instance references the type.
func (s *Service) DeleteServiceType(ctx context.Context, actor *User, id int64) error {
	if err := requireSuperuser(actor); err != nil {
		return err
	}
	if _, err := s.store.ServiceTypes().Find(ctx, id); err != nil {
		return err
	}
	return s.store.ServiceTypes().Delete(ctx, id)
}
