package registry

import (
	"context"
	"time"
)

// Store groups the persistence operations the registry and auth subsystems
// require. Implementations enforce the declared uniqueness, foreign-key and
// cascade rules; services treat constraint violations surfaced as
// ErrConflict the same as their own advisory pre-checks.
type Store interface {
	Users() UserStore
	Projects() ProjectStore
	Memberships() MembershipStore
	Environments() EnvironmentStore
	ServiceTypes() ServiceTypeStore
	ServiceInstances() ServiceInstanceStore
	Credentials() CredentialStore
}

// UserStore manages principals.
type UserStore interface {
	Create(ctx context.Context, email, hashedPassword string) (User, error)
	Find(ctx context.Context, id int64) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// ProjectStore manages projects. Deleting a project removes its
// environments, service instances, credentials and memberships atomically.
type ProjectStore interface {
	Create(ctx context.Context, p ProjectCreate) (Project, error)
	Find(ctx context.Context, id int64) (Project, error)
	FindByCode(ctx context.Context, code string) (Project, error)
	ListAll(ctx context.Context) ([]Project, error)
	ListForUser(ctx context.Context, userID int64) ([]Project, error)
	Update(ctx context.Context, id int64, upd ProjectUpdate) (Project, error)
	Delete(ctx context.Context, id int64) error
}

// MembershipStore manages project membership rows.
type MembershipStore interface {
	Exists(ctx context.Context, projectID, userID int64) (bool, error)
	Add(ctx context.Context, projectID, userID int64, role string) (Membership, error)
	Remove(ctx context.Context, projectID, userID int64) error
	ListByProject(ctx context.Context, projectID int64) ([]Membership, error)
}

// EnvironmentStore manages environments scoped to a project.
type EnvironmentStore interface {
	Create(ctx context.Context, projectID int64, e EnvironmentCreate) (Environment, error)
	Find(ctx context.Context, projectID, id int64) (Environment, error)
	ListByProject(ctx context.Context, projectID int64) ([]Environment, error)
	Update(ctx context.Context, projectID, id int64, upd EnvironmentUpdate) (Environment, error)
	Delete(ctx context.Context, projectID, id int64) error
}

// ServiceTypeStore manages the global service catalog. Delete fails with
// ErrConflict while instances reference the type.
type ServiceTypeStore interface {
	Create(ctx context.Context, st ServiceType) (ServiceType, error)
	Find(ctx context.Context, id int64) (ServiceType, error)
	List(ctx context.Context) ([]ServiceType, error)
	Delete(ctx context.Context, id int64) error
}

// ServiceInstanceStore manages service instances and their credential
// links.
type ServiceInstanceStore interface {
	Create(ctx context.Context, projectID int64, c ServiceInstanceCreate) (ServiceInstance, error)
	Find(ctx context.Context, projectID, id int64) (ServiceInstance, error)
	FindByName(ctx context.Context, projectID int64, name string) (ServiceInstance, error)
	ListByProject(ctx context.Context, projectID int64) ([]ServiceInstance, error)
	Update(ctx context.Context, projectID, id int64, upd ServiceInstanceUpdate) (ServiceInstance, error)
	Delete(ctx context.Context, projectID, id int64) error

	AttachCredential(ctx context.Context, instanceID, credentialID int64, usage CredentialUsage) (ServiceCredential, error)
	DetachCredential(ctx context.Context, instanceID, credentialID int64) error
	ListCredentialLinks(ctx context.Context, instanceID int64) ([]ServiceCredential, error)
}

// CredentialStore manages credential records (secret locators).
type CredentialStore interface {
	Create(ctx context.Context, projectID int64, c CredentialCreate) (Credential, error)
	Find(ctx context.Context, projectID, id int64) (Credential, error)
	ListByProject(ctx context.Context, projectID int64) ([]Credential, error)
	Update(ctx context.Context, projectID, id int64, upd CredentialUpdate) (Credential, error)
	Delete(ctx context.Context, projectID, id int64) error
	ListExpired(ctx context.Context, asOf time.Time) ([]Credential, error)
}
