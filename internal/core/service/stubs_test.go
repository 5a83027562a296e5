package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	seq   int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.RoleIDs = append([]string(nil), u.RoleIDs...)
	return &clone
}

func (r *stubUserRepo) put(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		r.seq++
		u.ID = fmt.Sprintf("u%d", r.seq)
	}
	r.users[u.ID] = cloneUser(u)
	return u
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return nil, domain.ErrUserExists
		}
	}
	c := cloneUser(user)
	r.seq++
	c.ID = fmt.Sprintf("u%d", r.seq)
	r.users[c.ID] = cloneUser(c)
	return c, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) ExistsByEmailOrUsername(_ context.Context, email, username, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.users {
		if id == excludeID {
			continue
		}
		if (email != "" && u.Email == email) || (username != "" && u.Username == username) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubUserRepo) UpdateProfile(_ context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *stubUserRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastLogin = &at
	return nil
}

func (r *stubUserRepo) SetCompany(_ context.Context, id, companyID, actorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.CompanyID = companyID
	u.UpdatedBy = actorID
	return nil
}

func (r *stubUserRepo) AddRole(_ context.Context, userID, roleID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return false, domain.ErrUserNotFound
	}
	if u.HasRole(roleID) {
		return false, nil
	}
	u.RoleIDs = append(u.RoleIDs, roleID)
	return true, nil
}

func (r *stubUserRepo) RemoveRole(_ context.Context, userID, roleID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return false, domain.ErrUserNotFound
	}
	kept := u.RoleIDs[:0]
	for _, id := range u.RoleIDs {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	changed := len(kept) != len(u.RoleIDs)
	u.RoleIDs = kept
	return changed, nil
}

func (r *stubUserRepo) ListByCompany(_ context.Context, companyID string) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.users {
		if u.CompanyID == companyID {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) List(_ context.Context, f domain.UserFilter) ([]*domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.users {
		if f.CompanyID != "" && u.CompanyID != f.CompanyID {
			continue
		}
		if f.RoleID != "" && !u.HasRole(f.RoleID) {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		if f.Search != "" && !strings.Contains(u.Email, f.Search) && !strings.Contains(u.Username, f.Search) {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *stubUserRepo) Update(_ context.Context, id string, upd domain.UserUpdate, actorID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	u.UpdatedBy = actorID
	return cloneUser(u), nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *stubUserRepo) CountByRole(ctx context.Context, roleID string) (int64, error) {
	_, n, err := r.List(ctx, domain.UserFilter{RoleID: roleID})
	return n, err
}

func (r *stubUserRepo) CountSuperusers(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if u.IsSuperuser {
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Roles
// ---------------------------------------------------------------------------

type stubRoleRepo struct {
	mu      sync.Mutex
	roles   map[string]*domain.Role
	seq     int
	lookups int
}

func newStubRoleRepo(roles ...*domain.Role) *stubRoleRepo {
	r := &stubRoleRepo{roles: make(map[string]*domain.Role)}
	for _, role := range roles {
		r.roles[role.ID] = role
	}
	return r
}

func (r *stubRoleRepo) Create(_ context.Context, role *domain.Role) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.roles {
		if existing.Name == role.Name && existing.CompanyID == role.CompanyID {
			return nil, domain.ErrRoleExists
		}
	}
	r.seq++
	c := *role
	c.ID = fmt.Sprintf("r%d", r.seq)
	r.roles[c.ID] = &c
	return &c, nil
}

func (r *stubRoleRepo) FindByID(_ context.Context, id string) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	c := *role
	return &c, nil
}

func (r *stubRoleRepo) FindByIDs(_ context.Context, ids []string) ([]*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	var out []*domain.Role
	for _, id := range ids {
		if role, ok := r.roles[id]; ok {
			c := *role
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *stubRoleRepo) FindSystemByType(_ context.Context, t domain.RoleType) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range r.roles {
		if role.IsSystemRole && role.RoleType == t {
			c := *role
			return &c, nil
		}
	}
	return nil, domain.ErrRoleNotFound
}

func (r *stubRoleRepo) List(_ context.Context, f domain.RoleFilter) ([]*domain.Role, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Role
	for _, role := range r.roles {
		if f.Scope != "" && string(role.Scope) != f.Scope {
			continue
		}
		c := *role
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *stubRoleRepo) Update(_ context.Context, id string, upd domain.RoleUpdate, actorID string) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	if upd.DisplayName != nil {
		role.DisplayName = *upd.DisplayName
	}
	if upd.Permissions != nil {
		role.Permissions = *upd.Permissions
	}
	if upd.IsActive != nil {
		role.IsActive = *upd.IsActive
	}
	if upd.Description != nil {
		role.Description = *upd.Description
	}
	role.UpdatedBy = actorID
	c := *role
	return &c, nil
}

func (r *stubRoleRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[id]; !ok {
		return domain.ErrRoleNotFound
	}
	delete(r.roles, id)
	return nil
}

func (r *stubRoleRepo) EnsureSystemRole(_ context.Context, role *domain.Role) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.roles {
		if existing.IsSystemRole && existing.RoleType == role.RoleType {
			return false, nil
		}
	}
	r.seq++
	c := *role
	c.ID = fmt.Sprintf("r%d", r.seq)
	r.roles[c.ID] = &c
	return true, nil
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

type stubSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *stubSessionRepo) Insert(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	r.sessions[s.ID] = &c
	return nil
}

func (r *stubSessionRepo) FindActive(_ context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !s.IsActive {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (r *stubSessionRepo) Touch(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.LastActivity = at
	}
	return nil
}

func (r *stubSessionRepo) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.IsActive = false
	}
	return nil
}

func (r *stubSessionRepo) BindToken(_ context.Context, id, tokenID string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.TokenID = tokenID
	s.TokenExpiresAt = expiresAt
	return true, nil
}

func (r *stubSessionRepo) ListActiveByUser(_ context.Context, userID string) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *stubSessionRepo) DeactivateByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *stubSessionRepo) CountActiveByUser(ctx context.Context, userID string) (int64, error) {
	open, err := r.ListActiveByUser(ctx, userID)
	return int64(len(open)), err
}

func (r *stubSessionRepo) DeactivateCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.IsActive && s.CreatedAt.Before(cutoff) {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Companies and quota counts
// ---------------------------------------------------------------------------

type stubCompanyRepo struct {
	mu        sync.Mutex
	companies map[string]*domain.Company
	seq       int
}

func newStubCompanyRepo(companies ...*domain.Company) *stubCompanyRepo {
	r := &stubCompanyRepo{companies: make(map[string]*domain.Company)}
	for _, c := range companies {
		r.companies[c.ID] = c
	}
	return r
}

func (r *stubCompanyRepo) Create(_ context.Context, c *domain.Company) (*domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	cp := *c
	cp.ID = fmt.Sprintf("c%d", r.seq)
	r.companies[cp.ID] = &cp
	return &cp, nil
}

func (r *stubCompanyRepo) FindByID(_ context.Context, id string) (*domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[id]
	if !ok {
		return nil, domain.ErrCompanyNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubCompanyRepo) List(_ context.Context, _ string, _ domain.Page) ([]*domain.Company, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Company
	for _, c := range r.companies {
		cp := *c
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *stubCompanyRepo) Update(_ context.Context, id string, upd domain.CompanyUpdate) (*domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[id]
	if !ok {
		return nil, domain.ErrCompanyNotFound
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Settings != nil {
		c.Settings = *upd.Settings
	}
	cp := *c
	return &cp, nil
}

func (r *stubCompanyRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.companies[id]; !ok {
		return domain.ErrCompanyNotFound
	}
	delete(r.companies, id)
	return nil
}

// stubCounter returns fixed counts keyed by company and resource.
type stubCounter struct {
	counts map[string]int64
}

func newStubCounter() *stubCounter {
	return &stubCounter{counts: make(map[string]int64)}
}

func (c *stubCounter) set(companyID string, resource domain.ResourceType, n int64) {
	c.counts[companyID+"/"+string(resource)] = n
}

func (c *stubCounter) CountByCompany(_ context.Context, resource domain.ResourceType, companyID string) (int64, error) {
	return c.counts[companyID+"/"+string(resource)], nil
}

// ---------------------------------------------------------------------------
// Stores
// ---------------------------------------------------------------------------

type stubDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func newStubDenylist() *stubDenylist {
	return &stubDenylist{revoked: make(map[string]time.Duration)}
}

func (d *stubDenylist) Revoke(_ context.Context, id string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[id] = ttl
	return nil
}

func (d *stubDenylist) IsRevoked(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	_, ok := d.revoked[id]
	return ok, nil
}

type stubAuditor struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (a *stubAuditor) Record(e domain.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *stubAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Action)
	}
	return out
}

type stubSequence struct {
	mu   sync.Mutex
	next map[string]int64
}

func (s *stubSequence) Next(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next == nil {
		s.next = make(map[string]int64)
	}
	s.next[name]++
	return s.next[name], nil
}

type stubObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newStubObjectStore() *stubObjectStore {
	return &stubObjectStore{objects: make(map[string][]byte)}
}

func (s *stubObjectStore) Put(_ context.Context, key string, body []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), body...)
	return nil
}

func (s *stubObjectStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, domain.ErrTemplateNotFound
	}
	return b, nil
}

func (s *stubObjectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

var (
	_ ports.UserRepository    = (*stubUserRepo)(nil)
	_ ports.RoleRepository    = (*stubRoleRepo)(nil)
	_ ports.SessionRepository = (*stubSessionRepo)(nil)
	_ ports.CompanyRepository = (*stubCompanyRepo)(nil)
	_ ports.ResourceCounter   = (*stubCounter)(nil)
	_ ports.TokenDenylist     = (*stubDenylist)(nil)
	_ ports.Auditor           = (*stubAuditor)(nil)
	_ ports.SequenceGenerator = (*stubSequence)(nil)
	_ ports.ObjectStore       = (*stubObjectStore)(nil)
)
