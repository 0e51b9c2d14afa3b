// Package registry implements the multi-tenant project/service registry:
// projects with environments, service instances, credentials and
// memberships, plus the authorization resolution that gates every resource
// operation on them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const maxProjectCodeLen = 64

// Service provides the registry operations. It holds no cross-request
// state; all consistency comes from the store's constraints.
type Service struct {
	store Store
}

// NewService constructs a Service over the given store.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("registry: store is required")
	}
	return &Service{store: store}, nil
}

// GetProject returns the project iff the actor may see it.
func (s *Service) GetProject(ctx context.Context, actor *User, projectID int64) (Project, error) {
	return s.accessProject(ctx, actor, projectID)
}

// CreateProject creates a project. Superuser-only.
func (s *Service) CreateProject(ctx context.Context, actor *User, data ProjectCreate) (Project, error) {
	if err := requireSuperuser(actor); err != nil {
		return Project{}, err
	}
	data.Code = strings.TrimSpace(data.Code)
	data.DisplayName = strings.TrimSpace(data.DisplayName)
	data.Kind = strings.TrimSpace(data.Kind)
	if data.Code == "" {
		return Project{}, fmt.Errorf("%w: project code is required", ErrInvalidInput)
	}
	if len(data.Code) > maxProjectCodeLen {
		return Project{}, fmt.Errorf("%w: project code exceeds %d characters", ErrInvalidInput, maxProjectCodeLen)
	}
	if data.DisplayName == "" {
		return Project{}, fmt.Errorf("%w: display_name is required", ErrInvalidInput)
	}

	// Advisory pre-check; the unique constraint is the source of truth and
	// a violation on the write path maps to the same ErrConflict.
	if _, err := s.store.Projects().FindByCode(ctx, data.Code); err == nil {
		return Project{}, fmt.Errorf("%w: project code already exists", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return Project{}, err
	}
	return s.store.Projects().Create(ctx, data)
}

// UpdateProject applies a partial update. Superuser-only.
func (s *Service) UpdateProject(ctx context.Context, actor *User, projectID int64, upd ProjectUpdate) (Project, error) {
	if err := requireSuperuser(actor); err != nil {
		return Project{}, err
	}
	if _, err := s.store.Projects().Find(ctx, projectID); err != nil {
		return Project{}, err
	}
	if upd.Code != nil {
		code := strings.TrimSpace(*upd.Code)
		if code == "" {
			return Project{}, fmt.Errorf("%w: project code is required", ErrInvalidInput)
		}
		if len(code) > maxProjectCodeLen {
			return Project{}, fmt.Errorf("%w: project code exceeds %d characters", ErrInvalidInput, maxProjectCodeLen)
		}
		existing, err := s.store.Projects().FindByCode(ctx, code)
		if err == nil && existing.ID != projectID {
			return Project{}, fmt.Errorf("%w: project code already exists", ErrConflict)
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return Project{}, err
		}
		upd.Code = &code
	}
	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if name == "" {
			return Project{}, fmt.Errorf("%w: display_name is required", ErrInvalidInput)
		}
		upd.DisplayName = &name
	}
	if upd.Kind != nil {
		kind := strings.TrimSpace(*upd.Kind)
		upd.Kind = &kind
	}
	return s.store.Projects().Update(ctx, projectID, upd)
}

// DeleteProject removes the project and, through the ownership cascade, its
// environments, service instances, credentials and memberships.
// Superuser-only.
func (s *Service) DeleteProject(ctx context.Context, actor *User, projectID int64) error {
	if err := requireSuperuser(actor); err != nil {
		return err
	}
	if _, err := s.store.Projects().Find(ctx, projectID); err != nil {
		return err
	}
	return s.store.Projects().Delete(ctx, projectID)
}
