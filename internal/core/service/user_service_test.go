package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
)

// stubCloser records whose sessions were closed.
type stubCloser struct {
	mu     sync.Mutex
	closed []string
}

func (c *stubCloser) InvalidateAll(_ context.Context, userID string) ([]*domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = append(c.closed, userID)
	return nil, nil
}

type userFixture struct {
	svc     *UserService
	users   *stubUserRepo
	counter *stubCounter
	closer  *stubCloser
	cadmin  *authz.Principal
}

// newUserFixture seeds the roles of tenantRoleFixture, a platform account
// parked in c1 and a company admin of c1 as the acting principal.
func newUserFixture() *userFixture {
	companies, counter := newCompanyFixture(domain.CompanySettings{MaxUsers: 10})

	sa := role("sa", domain.RoleTypeSuperAdmin, domain.AllPermissions...)
	sa.Scope = domain.ScopeSystem
	sa.IsSystemRole = true
	ca := role("ca", domain.RoleTypeCompanyAdmin, domain.PermUserView, domain.PermUserCreate)
	ca.IsSystemRole = true
	agent := role("agent", domain.RoleTypeAgent, domain.PermMessageView)
	agent.Scope = domain.ScopeTeam
	agent.IsSystemRole = true
	own := role("ops-c1", domain.RoleTypeCustom, domain.PermMessageView)
	own.CompanyID = "c1"
	foreign := role("ops-c2", domain.RoleTypeCustom, domain.PermMessageView)
	foreign.CompanyID = "c2"
	roles := newStubRoleRepo(sa, ca, agent, own, foreign)

	users := newStubUserRepo()
	cadmin := users.put(&domain.User{ID: "cadmin", Username: "cadmin", CompanyID: "c1", IsActive: true, RoleIDs: []string{"ca"}})
	users.put(&domain.User{ID: "u-c1", Username: "u-c1", Email: "u1@c1.test", CompanyID: "c1", IsActive: true})
	users.put(&domain.User{ID: "u-c2", Username: "u-c2", Email: "u2@c2.test", CompanyID: "c2", IsActive: true})
	users.put(&domain.User{ID: "root", Username: "root", CompanyID: "c1", IsActive: true, IsSuperuser: true})

	closer := &stubCloser{}
	svc := NewUserService(users, roles, companies, NewRoleResolver(users, roles, 0), closer, &stubAuditor{}, zerolog.Nop())
	return &userFixture{
		svc:     svc,
		users:   users,
		counter: counter,
		closer:  closer,
		cadmin:  &authz.Principal{User: cadmin, Roles: []*domain.Role{ca}},
	}
}

func newUserInput(username string, roleIDs ...string) UserInput {
	return UserInput{
		Email:     username + "@c1.test",
		Password:  "s3cret-pass",
		FullName:  "New User",
		Username:  username,
		CompanyID: "c1",
		RoleIDs:   roleIDs,
		IsActive:  true,
	}
}

func TestUserService_CreateDefaultsToAgentRole(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture()

	got, err := f.svc.Create(ctx, f.cadmin, newUserInput("fresh"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.User.CompanyID != "c1" || got.User.CreatedBy != "cadmin" {
		t.Fatalf("unexpected user: %+v", got.User)
	}
	if len(got.Roles) != 1 || got.Roles[0].ID != "agent" {
		t.Fatalf("expected the agent role, got %+v", got.Roles)
	}
	if got.User.PasswordHash == "" || got.User.PasswordHash == "s3cret-pass" {
		t.Fatalf("password must be stored hashed")
	}
}

func TestUserService_CreateInAnotherCompanyDenied(t *testing.T) {
	f := newUserFixture()
	in := newUserInput("intruder")
	in.CompanyID = "c2"

	_, err := f.svc.Create(context.Background(), f.cadmin, in)
	assertForbidden(t, "create", err)
}

func TestUserService_CompanyAdminCannotGrantPlatformRoles(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture()

	for _, roleID := range []string{"sa", "ca", "ops-c2"} {
		_, err := f.svc.Create(ctx, f.cadmin, newUserInput("via-"+roleID, roleID))
		assertForbidden(t, "create with "+roleID, err)
	}
	if _, n, _ := f.users.List(ctx, domain.UserFilter{}); n != 4 {
		t.Fatalf("denied creates must not store users, have %d", n)
	}

	got, err := f.svc.Create(ctx, f.cadmin, newUserInput("ops", "ops-c1"))
	if err != nil {
		t.Fatalf("Create with own role: %v", err)
	}
	if len(got.Roles) != 1 || got.Roles[0].ID != "ops-c1" {
		t.Fatalf("unexpected roles %+v", got.Roles)
	}

	if _, err := f.svc.Create(ctx, adminActor, newUserInput("boss", "ca")); err != nil {
		t.Fatalf("platform admin grant: %v", err)
	}
}

func TestUserService_CreateRespectsQuota(t *testing.T) {
	f := newUserFixture()
	f.counter.set("c1", domain.ResourceUsers, 10)

	var quota *domain.QuotaExceededError
	if _, err := f.svc.Create(context.Background(), f.cadmin, newUserInput("late")); !errors.As(err, &quota) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
}

func TestUserService_CreateRejectsTakenEmail(t *testing.T) {
	f := newUserFixture()
	in := newUserInput("other")
	in.Email = " U1@C1.test "

	if _, err := f.svc.Create(context.Background(), f.cadmin, in); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserService_CrossTenantDenied(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture()
	name := "Renamed"

	_, err := f.svc.Get(ctx, f.cadmin, "u-c2")
	assertForbidden(t, "get", err)
	_, err = f.svc.Update(ctx, f.cadmin, "u-c2", domain.UserUpdate{FullName: &name})
	assertForbidden(t, "update", err)
	assertForbidden(t, "delete", f.svc.Delete(ctx, f.cadmin, "u-c2"))

	if u, _ := f.users.FindByID(ctx, "u-c2"); u == nil || u.FullName == name {
		t.Fatalf("foreign user was modified or removed: %+v", u)
	}
	if len(f.closer.closed) != 0 {
		t.Fatalf("no session may be closed on a denied call, got %v", f.closer.closed)
	}
}

func TestUserService_CannotDeleteOrDeactivateSelf(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture()
	off := false

	assertForbidden(t, "delete self", f.svc.Delete(ctx, f.cadmin, "cadmin"))
	_, err := f.svc.Update(ctx, f.cadmin, "cadmin", domain.UserUpdate{IsActive: &off})
	assertForbidden(t, "deactivate self", err)

	name := "Me"
	if _, err := f.svc.Update(ctx, f.cadmin, "cadmin", domain.UserUpdate{FullName: &name}); err != nil {
		t.Fatalf("self rename: %v", err)
	}
}

func TestUserService_PlatformAccountsNeedPlatformAdmin(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture()
	off := false

	_, err := f.svc.Update(ctx, f.cadmin, "root", domain.UserUpdate{IsActive: &off})
	assertForbidden(t, "deactivate superuser", err)
	assertForbidden(t, "delete superuser", f.svc.Delete(ctx, f.cadmin, "root"))

	name := "Root"
	if _, err := f.svc.Update(ctx, adminActor, "root", domain.UserUpdate{FullName: &name}); err != nil {
		t.Fatalf("platform admin edit: %v", err)
	}
}

func TestUserService_DeactivationClosesSessions(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture()
	off := false

	got, err := f.svc.Update(ctx, f.cadmin, "u-c1", domain.UserUpdate{IsActive: &off})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.User.IsActive || got.User.UpdatedBy != "cadmin" {
		t.Fatalf("unexpected user: %+v", got.User)
	}
	if len(f.closer.closed) != 1 || f.closer.closed[0] != "u-c1" {
		t.Fatalf("expected u-c1 sessions closed, got %v", f.closer.closed)
	}

	if err := f.svc.Delete(ctx, f.cadmin, "u-c1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.users.FindByID(ctx, "u-c1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user removed, got %v", err)
	}
	if len(f.closer.closed) != 2 {
		t.Fatalf("delete must close sessions too, got %v", f.closer.closed)
	}
}

func TestUserService_UpdateNeedsFields(t *testing.T) {
	f := newUserFixture()
	if _, err := f.svc.Update(context.Background(), f.cadmin, "u-c1", domain.UserUpdate{}); !errors.Is(err, domain.ErrNoFieldsToUpdate) {
		t.Fatalf("expected ErrNoFieldsToUpdate, got %v", err)
	}
}
