package registry

import "time"

// User is the authentication principal. Password hashes are opaque here;
// hashing and verification live in the auth package.
type User struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	IsActive       bool       `json:"is_active"`
	IsSuperuser    bool       `json:"is_superuser"`
	DateJoined     time.Time  `json:"date_joined"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
}

// Profile holds per-user 2FA settings. A user owns zero or one profile.
type Profile struct {
	ID               int64  `json:"id"`
	UserID           int64  `json:"user_id"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
	Timezone         string `json:"timezone"`
	TOTPSecret       string `json:"-"`
}

// Project is the tenancy root. Environments, service instances, credentials
// and memberships are owned by it and removed with it.
type Project struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	DisplayName string    `json:"display_name"`
	Kind        string    `json:"kind,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Membership links exactly one project and one user, unique per pair.
// Authorization consults existence, not the role value.
type Membership struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultMemberRole is applied when a membership is added without a role.
// Recommended values are owner|admin|member|viewer; the set is open.
const DefaultMemberRole = "member"

// Environment is a deployment stage within a project, unique per
// (project, code).
type Environment struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	Code        string    `json:"code"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ServiceType is a catalog entry (postgres, redis, ...). Instances
// reference it with restrict-delete semantics.
type ServiceType struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Group       string    `json:"group"`
	DisplayName string    `json:"display_name"`
	DefaultPort *int      `json:"default_port,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ServiceInstance is a concrete service in a project, unique per
// (project, name). EnvironmentID is nulled when its environment goes away.
type ServiceInstance struct {
	ID            int64          `json:"id"`
	ProjectID     int64          `json:"project_id"`
	ServiceTypeID int64          `json:"service_type_id"`
	EnvironmentID *int64         `json:"environment_id,omitempty"`
	Name          string         `json:"name"`
	Endpoint      string         `json:"endpoint"`
	Port          *int           `json:"port,omitempty"`
	Status        string         `json:"status"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// DefaultInstanceStatus is applied when an instance is created without an
// explicit status.
const DefaultInstanceStatus = "unknown"

// CredentialKind enumerates supported credential shapes.
type CredentialKind string

const (
	KindUserPass CredentialKind = "userpass"
	KindAPIKey   CredentialKind = "api_key"
	KindToken    CredentialKind = "token"
	KindOAuth2   CredentialKind = "oauth2"
	KindTLSCert  CredentialKind = "tls_cert"
)

// Valid reports whether k is a known credential kind.
func (k CredentialKind) Valid() bool {
	switch k {
	case KindUserPass, KindAPIKey, KindToken, KindOAuth2, KindTLSCert:
		return true
	}
	return false
}

// Credential holds a locator into an external secret store, never the raw
// secret.
type Credential struct {
	ID        int64          `json:"id"`
	ProjectID int64          `json:"project_id"`
	Kind      CredentialKind `json:"kind"`
	SecretRef string         `json:"secret_ref"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CredentialUsage tags how a service instance uses a credential.
type CredentialUsage string

const (
	UsageDefault CredentialUsage = "default"
	UsageRead    CredentialUsage = "read"
	UsageWrite   CredentialUsage = "write"
	UsageAdmin   CredentialUsage = "admin"
)

// Valid reports whether u is a known usage tag.
func (u CredentialUsage) Valid() bool {
	switch u {
	case UsageDefault, UsageRead, UsageWrite, UsageAdmin:
		return true
	}
	return false
}

// ServiceCredential links a service instance to a credential, unique per
// (service_instance, credential) pair.
type ServiceCredential struct {
	ID                int64           `json:"id"`
	ServiceInstanceID int64           `json:"service_instance_id"`
	CredentialID      int64           `json:"credential_id"`
	Usage             CredentialUsage `json:"usage"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Create payloads -----------------------------------------------------------

type ProjectCreate struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	Kind        string `json:"kind"`
}

type EnvironmentCreate struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

type ServiceInstanceCreate struct {
	ServiceTypeID int64          `json:"service_type_id"`
	EnvironmentID *int64         `json:"environment_id"`
	Name          string         `json:"name"`
	Endpoint      string         `json:"endpoint"`
	Port          *int           `json:"port"`
	Status        string         `json:"status"`
	Metadata      map[string]any `json:"metadata"`
}

type CredentialCreate struct {
	Kind      CredentialKind `json:"kind"`
	SecretRef string         `json:"secret_ref"`
	ExpiresAt *time.Time     `json:"expires_at"`
	Metadata  map[string]any `json:"metadata"`
}

// Update payloads carry PATCH semantics: only non-nil fields overwrite
// existing values.

type ProjectUpdate struct {
	Code        *string `json:"code"`
	DisplayName *string `json:"display_name"`
	Kind        *string `json:"kind"`
}

type EnvironmentUpdate struct {
	Code        *string `json:"code"`
	DisplayName *string `json:"display_name"`
}

type ServiceInstanceUpdate struct {
	ServiceTypeID *int64         `json:"service_type_id"`
	EnvironmentID *int64         `json:"environment_id"`
	Name          *string        `json:"name"`
	Endpoint      *string        `json:"endpoint"`
	Port          *int           `json:"port"`
	Status        *string        `json:"status"`
	Metadata      map[string]any `json:"metadata"`
}

type CredentialUpdate struct {
	Kind      *CredentialKind `json:"kind"`
	SecretRef *string         `json:"secret_ref"`
	ExpiresAt *time.Time      `json:"expires_at"`
	Metadata  map[string]any  `json:"metadata"`
}
