package registry

import (
	"context"
	"fmt"
	"strings"
)

// ListEnvironments lists a project's environments.
func (s *Service) ListEnvironments(ctx context.Context, actor *User, projectID int64) ([]Environment, error) {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.store.Environments().ListByProject(ctx, projectID)
}

// GetEnvironment returns one environment of an accessible project.
func (s *Service) GetEnvironment(ctx context.Context, actor *User, projectID, envID int64) (Environment, error) {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return Environment{}, err
	}
	return s.store.Environments().Find(ctx, projectID, envID)
}

// CreateEnvironment creates an environment, unique per (project, code).
func (s *Service) CreateEnvironment(ctx context.Context, actor *User, projectID int64, data EnvironmentCreate) (Environment, error) {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return Environment{}, err
	}
	data.Code = strings.TrimSpace(strings.ToLower(data.Code))
	data.DisplayName = strings.TrimSpace(data.DisplayName)
	if data.Code == "" {
		return Environment{}, fmt.Errorf("%w: environment code is required", ErrInvalidInput)
	}
	return s.store.Environments().Create(ctx, projectID, data)
}

// UpdateEnvironment applies a partial update.
func (s *Service) UpdateEnvironment(ctx context.Context, actor *User, projectID, envID int64, upd EnvironmentUpdate) (Environment, error) {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return Environment{}, err
	}
	if upd.Code != nil {
		code := strings.TrimSpace(strings.ToLower(*upd.Code))
		if code == "" {
			return Environment{}, fmt.Errorf("%w: environment code is required", ErrInvalidInput)
		}
		upd.Code = &code
	}
	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		upd.DisplayName = &name
	}
	return s.store.Environments().Update(ctx, projectID, envID, upd)
}

// DeleteEnvironment removes an environment. Service instances referencing
// it keep existing with their environment reference nulled.
func (s *Service) DeleteEnvironment(ctx context.Context, actor *User, projectID, envID int64) error {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return err
	}
	return s.store.Environments().Delete(ctx, projectID, envID)
}
