// Package registrytest provides an in-memory registry.Store used by unit
// tests across packages. It mirrors the relational rules the Postgres
// implementation gets from constraints: uniqueness, restrict-delete on
// service types, SET NULL on environment deletion and the project
// ownership cascade.
package registrytest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"obser.dev/internal/registry"
)

// Store is an in-memory registry.Store. Safe for concurrent use.
type Store struct {
	mu sync.Mutex

	nextID int64

	users        map[int64]registry.User
	projects     map[int64]registry.Project
	memberships  map[int64]registry.Membership
	environments map[int64]registry.Environment
	serviceTypes map[int64]registry.ServiceType
	instances    map[int64]registry.ServiceInstance
	credentials  map[int64]registry.Credential
	links        map[int64]registry.ServiceCredential
}

var _ registry.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:        make(map[int64]registry.User),
		projects:     make(map[int64]registry.Project),
		memberships:  make(map[int64]registry.Membership),
		environments: make(map[int64]registry.Environment),
		serviceTypes: make(map[int64]registry.ServiceType),
		instances:    make(map[int64]registry.ServiceInstance),
		credentials:  make(map[int64]registry.Credential),
		links:        make(map[int64]registry.ServiceCredential),
	}
}

func (s *Store) Users() registry.UserStore                       { return (*userStore)(s) }
func (s *Store) Projects() registry.ProjectStore                 { return (*projectStore)(s) }
func (s *Store) Memberships() registry.MembershipStore           { return (*membershipStore)(s) }
func (s *Store) Environments() registry.EnvironmentStore         { return (*environmentStore)(s) }
func (s *Store) ServiceTypes() registry.ServiceTypeStore         { return (*serviceTypeStore)(s) }
func (s *Store) ServiceInstances() registry.ServiceInstanceStore { return (*instanceStore)(s) }
func (s *Store) Credentials() registry.CredentialStore           { return (*credentialStore)(s) }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Seed helpers ---------------------------------------------------------------

// SeedUser inserts a user and returns it with an assigned id.
func (s *Store) SeedUser(u registry.User) registry.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.id()
	} else if u.ID > s.nextID {
		s.nextID = u.ID
	}
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now().UTC()
	}
	s.users[u.ID] = u
	return u
}

// SeedProject inserts a project and returns it with an assigned id.
func (s *Store) SeedProject(p registry.Project) registry.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	} else if p.ID > s.nextID {
		s.nextID = p.ID
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.projects[p.ID] = p
	return p
}

// SeedMembership links a user to a project directly.
func (s *Store) SeedMembership(projectID, userID int64, role string) registry.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := registry.Membership{
		ID:        s.id(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	s.memberships[m.ID] = m
	return m
}

// SeedServiceType inserts a service type.
func (s *Store) SeedServiceType(st registry.ServiceType) registry.ServiceType {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == 0 {
		st.ID = s.id()
	} else if st.ID > s.nextID {
		s.nextID = st.ID
	}
	st.CreatedAt = time.Now().UTC()
	s.serviceTypes[st.ID] = st
	return st
}

// MembershipCount reports the number of membership rows (conflict tests
// assert the store is left unmodified).
func (s *Store) MembershipCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memberships)
}

// Users -----------------------------------------------------------------------

type userStore Store

func (s *userStore) Create(_ context.Context, email, hashedPassword string) (registry.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return registry.User{}, registry.ErrConflict
		}
	}
	u := registry.User{
		ID:             (*Store)(s).id(),
		Email:          email,
		HashedPassword: hashedPassword,
		IsActive:       true,
		DateJoined:     time.Now().UTC(),
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *userStore) Find(_ context.Context, id int64) (registry.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return registry.User{}, registry.ErrNotFound
	}
	return u, nil
}

func (s *userStore) FindByEmail(_ context.Context, email string) (registry.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return registry.User{}, registry.ErrNotFound
}

func (s *userStore) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return registry.ErrNotFound
	}
	u.LastLogin = &at
	s.users[id] = u
	return nil
}

// SetActive flips a user's active flag (deactivation tests).
func (s *Store) SetActive(id int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.IsActive = active
	s.users[id] = u
}

// Projects --------------------------------------------------------------------

type projectStore Store

func (s *projectStore) Create(_ context.Context, p registry.ProjectCreate) (registry.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.projects {
		if existing.Code == p.Code {
			return registry.Project{}, registry.ErrConflict
		}
	}
	now := time.Now().UTC()
	project := registry.Project{
		ID:          (*Store)(s).id(),
		Code:        p.Code,
		DisplayName: p.DisplayName,
		Kind:        p.Kind,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.projects[project.ID] = project
	return project, nil
}

func (s *projectStore) Find(_ context.Context, id int64) (registry.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return registry.Project{}, registry.ErrNotFound
	}
	return p, nil
}

func (s *projectStore) FindByCode(_ context.Context, code string) (registry.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.Code == code {
			return p, nil
		}
	}
	return registry.Project{}, registry.ErrNotFound
}

func (s *projectStore) ListAll(_ context.Context) ([]registry.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]registry.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sortProjects(out)
	return out, nil
}

func (s *projectStore) ListForUser(_ context.Context, userID int64) ([]registry.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []registry.Project{}
	for _, m := range s.memberships {
		if m.UserID != userID {
			continue
		}
		if p, ok := s.projects[m.ProjectID]; ok {
			out = append(out, p)
		}
	}
	sortProjects(out)
	return out, nil
}

func (s *projectStore) Update(_ context.Context, id int64, upd registry.ProjectUpdate) (registry.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return registry.Project{}, registry.ErrNotFound
	}
	if upd.Code != nil {
		for _, other := range s.projects {
			if other.ID != id && other.Code == *upd.Code {
				return registry.Project{}, registry.ErrConflict
			}
		}
		p.Code = *upd.Code
	}
	if upd.DisplayName != nil {
		p.DisplayName = *upd.DisplayName
	}
	if upd.Kind != nil {
		p.Kind = *upd.Kind
	}
	p.UpdatedAt = time.Now().UTC()
	s.projects[id] = p
	return p, nil
}

func (s *projectStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return registry.ErrNotFound
	}
	delete(s.projects, id)
	// Ownership cascade: memberships, environments, instances (and their
	// links), credentials all go with the project.
	for mid, m := range s.memberships {
		if m.ProjectID == id {
			delete(s.memberships, mid)
		}
	}
	for eid, e := range s.environments {
		if e.ProjectID == id {
			delete(s.environments, eid)
		}
	}
	for iid, inst := range s.instances {
		if inst.ProjectID == id {
			for lid, l := range s.links {
				if l.ServiceInstanceID == iid {
					delete(s.links, lid)
				}
			}
			delete(s.instances, iid)
		}
	}
	for cid, c := range s.credentials {
		if c.ProjectID == id {
			for lid, l := range s.links {
				if l.CredentialID == cid {
					delete(s.links, lid)
				}
			}
			delete(s.credentials, cid)
		}
	}
	return nil
}

func sortProjects(ps []registry.Project) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
}

// Memberships -----------------------------------------------------------------

type membershipStore Store

func (s *membershipStore) Exists(_ context.Context, projectID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.memberships {
		if m.ProjectID == projectID && m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *membershipStore) Add(_ context.Context, projectID, userID int64, role string) (registry.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.memberships {
		if m.ProjectID == projectID && m.UserID == userID {
			return registry.Membership{}, registry.ErrConflict
		}
	}
	m := registry.Membership{
		ID:        (*Store)(s).id(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	s.memberships[m.ID] = m
	return m, nil
}

func (s *membershipStore) Remove(_ context.Context, projectID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.memberships {
		if m.ProjectID == projectID && m.UserID == userID {
			delete(s.memberships, id)
			return nil
		}
	}
	return registry.ErrNotFound
}

func (s *membershipStore) ListByProject(_ context.Context, projectID int64) ([]registry.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []registry.Membership{}
	for _, m := range s.memberships {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Environments ----------------------------------------------------------------

type environmentStore Store

func (s *environmentStore) Create(_ context.Context, projectID int64, e registry.EnvironmentCreate) (registry.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.environments {
		if existing.ProjectID == projectID && existing.Code == e.Code {
			return registry.Environment{}, registry.ErrConflict
		}
	}
	now := time.Now().UTC()
	env := registry.Environment{
		ID:          (*Store)(s).id(),
		ProjectID:   projectID,
		Code:        e.Code,
		DisplayName: e.DisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.environments[env.ID] = env
	return env, nil
}

func (s *environmentStore) Find(_ context.Context, projectID, id int64) (registry.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	env, ok := s.environments[id]
	if !ok || env.ProjectID != projectID {
		return registry.Environment{}, registry.ErrNotFound
	}
	return env, nil
}

func (s *environmentStore) ListByProject(_ context.Context, projectID int64) ([]registry.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []registry.Environment{}
	for _, e := range s.environments {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *environmentStore) Update(_ context.Context, projectID, id int64, upd registry.EnvironmentUpdate) (registry.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	env, ok := s.environments[id]
	if !ok || env.ProjectID != projectID {
		return registry.Environment{}, registry.ErrNotFound
	}
	if upd.Code != nil {
		for _, other := range s.environments {
			if other.ID != id && other.ProjectID == projectID && other.Code == *upd.Code {
				return registry.Environment{}, registry.ErrConflict
			}
		}
		env.Code = *upd.Code
	}
	if upd.DisplayName != nil {
		env.DisplayName = *upd.DisplayName
	}
	env.UpdatedAt = time.Now().UTC()
	s.environments[id] = env
	return env, nil
}

func (s *environmentStore) Delete(_ context.Context, projectID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	env, ok := s.environments[id]
	if !ok || env.ProjectID != projectID {
		return registry.ErrNotFound
	}
	delete(s.environments, id)
	// SET NULL on referencing instances.
	for iid, inst := range s.instances {
		if inst.EnvironmentID != nil && *inst.EnvironmentID == id {
			inst.EnvironmentID = nil
			s.instances[iid] = inst
		}
	}
	return nil
}

// Service types ---------------------------------------------------------------

type serviceTypeStore Store

func (s *serviceTypeStore) Create(_ context.Context, st registry.ServiceType) (registry.ServiceType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.serviceTypes {
		if existing.Code == st.Code {
			return registry.ServiceType{}, registry.ErrConflict
		}
	}
	st.ID = (*Store)(s).id()
	st.CreatedAt = time.Now().UTC()
	s.serviceTypes[st.ID] = st
	return st, nil
}

func (s *serviceTypeStore) Find(_ context.Context, id int64) (registry.ServiceType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.serviceTypes[id]
	if !ok {
		return registry.ServiceType{}, registry.ErrNotFound
	}
	return st, nil
}

func (s *serviceTypeStore) List(_ context.Context) ([]registry.ServiceType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]registry.ServiceType, 0, len(s.serviceTypes))
	for _, st := range s.serviceTypes {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *serviceTypeStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.serviceTypes[id]; !ok {
		return registry.ErrNotFound
	}
	// Restrict-delete while instances reference the type.
	for _, inst := range s.instances {
		if inst.ServiceTypeID == id {
			return registry.ErrConflict
		}
	}
	delete(s.serviceTypes, id)
	return nil
}

// Service instances -----------------------------------------------------------

type instanceStore Store

func (s *instanceStore) Create(_ context.Context, projectID int64, c registry.ServiceInstanceCreate) (registry.ServiceInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.instances {
		if existing.ProjectID == projectID && existing.Name == c.Name {
			return registry.ServiceInstance{}, registry.ErrConflict
		}
	}
	if _, ok := s.serviceTypes[c.ServiceTypeID]; !ok {
		return registry.ServiceInstance{}, registry.ErrNotFound
	}
	now := time.Now().UTC()
	inst := registry.ServiceInstance{
		ID:            (*Store)(s).id(),
		ProjectID:     projectID,
		ServiceTypeID: c.ServiceTypeID,
		EnvironmentID: c.EnvironmentID,
		Name:          c.Name,
		Endpoint:      c.Endpoint,
		Port:          c.Port,
		Status:        c.Status,
		Metadata:      c.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.instances[inst.ID] = inst
	return inst, nil
}

func (s *instanceStore) Find(_ context.Context, projectID, id int64) (registry.ServiceInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok || inst.ProjectID != projectID {
		return registry.ServiceInstance{}, registry.ErrNotFound
	}
	return inst, nil
}

func (s *instanceStore) FindByName(_ context.Context, projectID int64, name string) (registry.ServiceInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inst := range s.instances {
		if inst.ProjectID == projectID && inst.Name == name {
			return inst, nil
		}
	}
	return registry.ServiceInstance{}, registry.ErrNotFound
}

func (s *instanceStore) ListByProject(_ context.Context, projectID int64) ([]registry.ServiceInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []registry.ServiceInstance{}
	for _, inst := range s.instances {
		if inst.ProjectID == projectID {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *instanceStore) Update(_ context.Context, projectID, id int64, upd registry.ServiceInstanceUpdate) (registry.ServiceInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok || inst.ProjectID != projectID {
		return registry.ServiceInstance{}, registry.ErrNotFound
	}
	if upd.Name != nil {
		for _, other := range s.instances {
			if other.ID != id && other.ProjectID == projectID && other.Name == *upd.Name {
				return registry.ServiceInstance{}, registry.ErrConflict
			}
		}
		inst.Name = *upd.Name
	}
	if upd.ServiceTypeID != nil {
		inst.ServiceTypeID = *upd.ServiceTypeID
	}
	if upd.EnvironmentID != nil {
		inst.EnvironmentID = upd.EnvironmentID
	}
	if upd.Endpoint != nil {
		inst.Endpoint = *upd.Endpoint
	}
	if upd.Port != nil {
		inst.Port = upd.Port
	}
	if upd.Status != nil {
		inst.Status = *upd.Status
	}
	if upd.Metadata != nil {
		inst.Metadata = upd.Metadata
	}
	inst.UpdatedAt = time.Now().UTC()
	s.instances[id] = inst
	return inst, nil
}

func (s *instanceStore) Delete(_ context.Context, projectID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok || inst.ProjectID != projectID {
		return registry.ErrNotFound
	}
	delete(s.instances, id)
	for lid, l := range s.links {
		if l.ServiceInstanceID == id {
			delete(s.links, lid)
		}
	}
	return nil
}

func (s *instanceStore) AttachCredential(_ context.Context, instanceID, credentialID int64, usage registry.CredentialUsage) (registry.ServiceCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if l.ServiceInstanceID == instanceID && l.CredentialID == credentialID {
			return registry.ServiceCredential{}, registry.ErrConflict
		}
	}
	link := registry.ServiceCredential{
		ID:                (*Store)(s).id(),
		ServiceInstanceID: instanceID,
		CredentialID:      credentialID,
		Usage:             usage,
		CreatedAt:         time.Now().UTC(),
	}
	s.links[link.ID] = link
	return link, nil
}

func (s *instanceStore) DetachCredential(_ context.Context, instanceID, credentialID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, l := range s.links {
		if l.ServiceInstanceID == instanceID && l.CredentialID == credentialID {
			delete(s.links, id)
			return nil
		}
	}
	return registry.ErrNotFound
}

func (s *instanceStore) ListCredentialLinks(_ context.Context, instanceID int64) ([]registry.ServiceCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []registry.ServiceCredential{}
	for _, l := range s.links {
		if l.ServiceInstanceID == instanceID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Credentials -----------------------------------------------------------------

type credentialStore Store

func (s *credentialStore) Create(_ context.Context, projectID int64, c registry.CredentialCreate) (registry.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	cred := registry.Credential{
		ID:        (*Store)(s).id(),
		ProjectID: projectID,
		Kind:      c.Kind,
		SecretRef: c.SecretRef,
		ExpiresAt: c.ExpiresAt,
		Metadata:  c.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.credentials[cred.ID] = cred
	return cred, nil
}

func (s *credentialStore) Find(_ context.Context, projectID, id int64) (registry.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[id]
	if !ok || c.ProjectID != projectID {
		return registry.Credential{}, registry.ErrNotFound
	}
	return c, nil
}

func (s *credentialStore) ListByProject(_ context.Context, projectID int64) ([]registry.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []registry.Credential{}
	for _, c := range s.credentials {
		if c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *credentialStore) Update(_ context.Context, projectID, id int64, upd registry.CredentialUpdate) (registry.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[id]
	if !ok || c.ProjectID != projectID {
		return registry.Credential{}, registry.ErrNotFound
	}
	if upd.Kind != nil {
		c.Kind = *upd.Kind
	}
	if upd.SecretRef != nil {
		c.SecretRef = *upd.SecretRef
	}
	if upd.ExpiresAt != nil {
		c.ExpiresAt = upd.ExpiresAt
	}
	if upd.Metadata != nil {
		c.Metadata = upd.Metadata
	}
	c.UpdatedAt = time.Now().UTC()
	s.credentials[id] = c
	return c, nil
}

func (s *credentialStore) Delete(_ context.Context, projectID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[id]
	if !ok || c.ProjectID != projectID {
		return registry.ErrNotFound
	}
	delete(s.credentials, id)
	for lid, l := range s.links {
		if l.CredentialID == id {
			delete(s.links, lid)
		}
	}
	return nil
}

func (s *credentialStore) ListExpired(_ context.Context, asOf time.Time) ([]registry.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []registry.Credential{}
	for _, c := range s.credentials {
		if c.ExpiresAt != nil && c.ExpiresAt.Before(asOf) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// String satisfies fmt.Stringer for debugging test failures.
func (s *Store) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("registrytest.Store{users:%d projects:%d memberships:%d}",
		len(s.users), len(s.projects), len(s.memberships))
}
