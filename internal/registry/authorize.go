package registry

import "context"

// Authorize is the project-level access decision: a nil principal is
// denied, a superuser is allowed unconditionally, anyone else is allowed
// iff a membership row exists for the (project, user) pair. It is a pure
// function over its inputs; membership lookup happens at the caller.
func Authorize(actor *User, isMember bool) bool {
	if actor == nil {
		return false
	}
	if actor.IsSuperuser {
		return true
	}
	return isMember
}

// accessProject resolves the project iff the actor may see it. Inaccessible
// and nonexistent projects are indistinguishable: both return ErrNotFound.
// Decisions are never cached; every call re-reads membership.
func (s *Service) accessProject(ctx context.Context, actor *User, projectID int64) (Project, error) {
	if actor == nil {
		return Project{}, ErrNotFound
	}
	project, err := s.store.Projects().Find(ctx, projectID)
	if err != nil {
		return Project{}, err
	}
	if actor.IsSuperuser {
		return project, nil
	}
	isMember, err := s.store.Memberships().Exists(ctx, projectID, actor.ID)
	if err != nil {
		return Project{}, err
	}
	if !Authorize(actor, isMember) {
		return Project{}, ErrNotFound
	}
	return project, nil
}

// ListProjects scopes the listing instead of denying: superusers see all
// projects, regular users see their memberships, an absent principal sees
// an empty result. It never fails on authorization grounds.
func (s *Service) ListProjects(ctx context.Context, actor *User) ([]Project, error) {
	if actor == nil {
		return []Project{}, nil
	}
	if actor.IsSuperuser {
		return s.store.Projects().ListAll(ctx)
	}
	return s.store.Projects().ListForUser(ctx, actor.ID)
}

func requireSuperuser(actor *User) error {
	if actor == nil {
		return ErrNotFound
	}
	if !actor.IsSuperuser {
		return ErrForbidden
	}
	return nil
}
