package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ListServiceInstances lists a project's service instances.
func (s *Service) ListServiceInstances(ctx context.Context, actor *User, projectID int64) ([]ServiceInstance, error) {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.store.ServiceInstances().ListByProject(ctx, projectID)
}

// GetServiceInstance returns one instance of an accessible project.
func (s *Service) GetServiceInstance(ctx context.Context, actor *User, projectID, instanceID int64) (ServiceInstance, error) {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return ServiceInstance{}, err
	}
	return s.store.ServiceInstances().Find(ctx, projectID, instanceID)
}

// CreateServiceInstance creates an instance after validating that the
// referenced service type exists, the environment (if any) belongs to the
// same project, and the name is unique within the project.
func (s *Service) CreateServiceInstance(ctx context.Context, actor *User, projectID int64, data ServiceInstanceCreate) (ServiceInstance, error) {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return ServiceInstance{}, err
	}
	data.Name = strings.TrimSpace(data.Name)
	data.Endpoint = strings.TrimSpace(data.Endpoint)
	data.Status = strings.TrimSpace(strings.ToLower(data.Status))
	if data.Name == "" {
		return ServiceInstance{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if data.Endpoint == "" {
		return ServiceInstance{}, fmt.Errorf("%w: endpoint is required", ErrInvalidInput)
	}
	if data.Status == "" {
		data.Status = DefaultInstanceStatus
	}

	if _, err := s.store.ServiceTypes().Find(ctx, data.ServiceTypeID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ServiceInstance{}, fmt.Errorf("%w: service type does not exist", ErrNotFound)
		}
		return ServiceInstance{}, err
	}
	if data.EnvironmentID != nil {
		if _, err := s.store.Environments().Find(ctx, projectID, *data.EnvironmentID); err != nil {
			return ServiceInstance{}, err
		}
	}

	if _, err := s.store.ServiceInstances().FindByName(ctx, projectID, data.Name); err == nil {
		return ServiceInstance{}, fmt.Errorf("%w: service instance name already exists in project", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return ServiceInstance{}, err
	}
	return s.store.ServiceInstances().Create(ctx, projectID, data)
}

// UpdateServiceInstance applies a partial update with the same referential
// checks as creation.
func (s *Service) UpdateServiceInstance(ctx context.Context, actor *User, projectID, instanceID int64, upd ServiceInstanceUpdate) (ServiceInstance, error) {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return ServiceInstance{}, err
	}
	current, err := s.store.ServiceInstances().Find(ctx, projectID, instanceID)
	if err != nil {
		return ServiceInstance{}, err
	}
	if upd.ServiceTypeID != nil {
		if _, err := s.store.ServiceTypes().Find(ctx, *upd.ServiceTypeID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ServiceInstance{}, fmt.Errorf("%w: service type does not exist", ErrNotFound)
			}
			return ServiceInstance{}, err
		}
	}
	if upd.EnvironmentID != nil {
		if _, err := s.store.Environments().Find(ctx, projectID, *upd.EnvironmentID); err != nil {
			return ServiceInstance{}, err
		}
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return ServiceInstance{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		if name != current.Name {
			if existing, err := s.store.ServiceInstances().FindByName(ctx, projectID, name); err == nil && existing.ID != instanceID {
				return ServiceInstance{}, fmt.Errorf("%w: service instance name already exists in project", ErrConflict)
			} else if err != nil && !errors.Is(err, ErrNotFound) {
				return ServiceInstance{}, err
			}
		}
		upd.Name = &name
	}
	if upd.Endpoint != nil {
		endpoint := strings.TrimSpace(*upd.Endpoint)
		if endpoint == "" {
			return ServiceInstance{}, fmt.Errorf("%w: endpoint is required", ErrInvalidInput)
		}
		upd.Endpoint = &endpoint
	}
	if upd.Status != nil {
		status := strings.TrimSpace(strings.ToLower(*upd.Status))
		if status == "" {
			status = DefaultInstanceStatus
		}
		upd.Status = &status
	}
	return s.store.ServiceInstances().Update(ctx, projectID, instanceID, upd)
}

// DeleteServiceInstance removes an instance and its credential links.
func (s *Service) DeleteServiceInstance(ctx context.Context, actor *User, projectID, instanceID int64) error {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return err
	}
	return s.store.ServiceInstances().Delete(ctx, projectID, instanceID)
}

// ListCredentialLinks lists the credentials attached to an instance.
func (s *Service) ListCredentialLinks(ctx context.Context, actor *User, projectID, instanceID int64) ([]ServiceCredential, error) {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	if _, err := s.store.ServiceInstances().Find(ctx, projectID, instanceID); err != nil {
		return nil, err
	}
	return s.store.ServiceInstances().ListCredentialLinks(ctx, instanceID)
}

// AttachCredential links a credential to a service instance. Both must
// belong to the same project; the pair is unique.
func (s *Service) AttachCredential(ctx context.Context, actor *User, projectID, instanceID, credentialID int64, usage CredentialUsage) (ServiceCredential, error) {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return ServiceCredential{}, err
	}
	if _, err := s.store.ServiceInstances().Find(ctx, projectID, instanceID); err != nil {
		return ServiceCredential{}, err
	}
	if _, err := s.store.Credentials().Find(ctx, projectID, credentialID); err != nil {
		return ServiceCredential{}, err
	}
	if usage == "" {
		usage = UsageDefault
	}
	if !usage.Valid() {
		return ServiceCredential{}, fmt.Errorf("%w: unsupported usage %q", ErrInvalidInput, usage)
	}
	return s.store.ServiceInstances().AttachCredential(ctx, instanceID, credentialID, usage)
}

// DetachCredential removes a credential link; a missing link is
// ErrNotFound.
func (s *Service) DetachCredential(ctx context.Context, actor *User, projectID, instanceID, credentialID int64) error {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return err
	}
	if _, err := s.store.ServiceInstances().Find(ctx, projectID, instanceID); err != nil {
		return err
	}
	return s.store.ServiceInstances().DetachCredential(ctx, instanceID, credentialID)
}
