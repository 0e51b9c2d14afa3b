package registry

import (
	"context"
	"fmt"
	"strings"
)

// ListMembers returns the membership rows of a project the actor can see.
// "Members of project P" is always derived from the membership table, never
// cached or denormalized.
func (s *Service) ListMembers(ctx context.Context, actor *User, projectID int64) ([]Membership, error) {
	if _, err := s.accessProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.store.Memberships().ListByProject(ctx, projectID)
}

// AddMember adds a user to a project. Membership mutation requires elevated
// privilege regardless of the ordinary membership check: superuser-only.
// Adding an existing member fails with ErrConflict, never a silent no-op.
func (s *Service) AddMember(ctx context.Context, actor *User, projectID, userID int64, role string) (Membership, error) {
	if err := requireSuperuser(actor); err != nil {
		return Membership{}, err
	}
	if _, err := s.store.Projects().Find(ctx, projectID); err != nil {
		return Membership{}, err
	}
	if _, err := s.store.Users().Find(ctx, userID); err != nil {
		return Membership{}, err
	}
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		role = DefaultMemberRole
	}

	exists, err := s.store.Memberships().Exists(ctx, projectID, userID)
	if err != nil {
		return Membership{}, err
	}
	if exists {
		return Membership{}, fmt.Errorf("%w: already a member", ErrConflict)
	}
	return s.store.Memberships().Add(ctx, projectID, userID, role)
}

// RemoveMember removes a user from a project. Superuser-only. Removing a
// non-existent member fails with ErrNotFound rather than succeeding
// idempotently; callers must check membership first.
func (s *Service) RemoveMember(ctx context.Context, actor *User, projectID, userID int64) error {
	if err := requireSuperuser(actor); err != nil {
		return err
	}
	if _, err := s.store.Projects().Find(ctx, projectID); err != nil {
		return err
	}
	return s.store.Memberships().Remove(ctx, projectID, userID)
}
