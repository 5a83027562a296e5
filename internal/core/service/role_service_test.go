package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
)

func newRoleFixture() (*RoleService, *stubRoleRepo, *stubUserRepo, *stubAuditor) {
	roles := newStubRoleRepo()
	users := newStubUserRepo()
	audit := &stubAuditor{}
	svc := NewRoleService(roles, users, NewRoleResolver(users, roles, 0), audit, zerolog.Nop())
	return svc, roles, users, audit
}

var adminActor = &authz.Principal{User: &domain.User{ID: "admin", IsActive: true, IsSuperuser: true}}

func TestRoleService_CreateDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _, _, audit := newRoleFixture()

	created, err := svc.Create(ctx, adminActor, &domain.Role{
		Name:         "support",
		DisplayName:  "Support",
		Scope:        domain.ScopeCompany,
		Permissions:  []string{domain.PermMessageView},
		IsSystemRole: true,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.IsSystemRole {
		t.Fatalf("expected created role to be non-system")
	}
	if created.RoleType != domain.RoleTypeCustom || created.CreatedBy != "admin" {
		t.Fatalf("unexpected role: %+v", created.Role)
	}

	if _, err := svc.Create(ctx, adminActor, &domain.Role{Name: "support"}); !errors.Is(err, domain.ErrRoleExists) {
		t.Fatalf("expected ErrRoleExists, got %v", err)
	}

	if err := svc.Delete(ctx, adminActor, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, adminActor, created.ID); !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound after delete, got %v", err)
	}

	want := []string{"role.create", "role.delete"}
	got := audit.actions()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("unexpected audit trail: %v", got)
	}
}

func TestRoleService_DeleteRefusals(t *testing.T) {
	ctx := context.Background()
	svc, roles, users, _ := newRoleFixture()

	if err := svc.SeedSystemRoles(ctx); err != nil {
		t.Fatalf("SeedSystemRoles: %v", err)
	}
	agent, err := roles.FindSystemByType(ctx, domain.RoleTypeAgent)
	if err != nil {
		t.Fatalf("agent role not seeded: %v", err)
	}
	err = svc.Delete(ctx, adminActor, agent.ID)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected system role delete to be forbidden, got %v", err)
	}

	custom, _ := svc.Create(ctx, adminActor, &domain.Role{Name: "custom", IsActive: true})
	users.put(&domain.User{ID: "u1", RoleIDs: []string{custom.ID}})
	var inUse *domain.RoleInUseError
	if err := svc.Delete(ctx, adminActor, custom.ID); !errors.As(err, &inUse) || inUse.Count != 1 {
		t.Fatalf("expected RoleInUseError, got %v", err)
	}
}

func TestRoleService_SeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, roles, _, _ := newRoleFixture()

	for i := 0; i < 2; i++ {
		if err := svc.SeedSystemRoles(ctx); err != nil {
			t.Fatalf("SeedSystemRoles: %v", err)
		}
	}
	if len(roles.roles) != len(domain.RoleTemplates) {
		t.Fatalf("expected %d roles, got %d", len(domain.RoleTemplates), len(roles.roles))
	}
}

func TestRoleService_UpdateSystemRoleRestricted(t *testing.T) {
	ctx := context.Background()
	svc, roles, _, _ := newRoleFixture()
	if err := svc.SeedSystemRoles(ctx); err != nil {
		t.Fatalf("SeedSystemRoles: %v", err)
	}
	viewer, _ := roles.FindSystemByType(ctx, domain.RoleTypeViewer)

	perms := []string{domain.PermSystemAdmin}
	if _, err := svc.Update(ctx, adminActor, viewer.ID, domain.RoleUpdate{Permissions: &perms}); !errors.Is(err, domain.ErrNoFieldsToUpdate) {
		t.Fatalf("expected permission change on system role to be dropped, got %v", err)
	}

	desc := "read only"
	got, err := svc.Update(ctx, adminActor, viewer.ID, domain.RoleUpdate{Permissions: &perms, Description: &desc})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Description != desc {
		t.Fatalf("expected description update, got %q", got.Description)
	}
	for _, p := range got.Permissions {
		if p == domain.PermSystemAdmin {
			t.Fatalf("system role permissions must not change")
		}
	}
}

func TestRoleService_AssignUserHonoursMaxUsers(t *testing.T) {
	ctx := context.Background()
	svc, _, users, _ := newRoleFixture()
	capacity := 1
	r, _ := svc.Create(ctx, adminActor, &domain.Role{Name: "limited", IsActive: true, MaxUsers: &capacity})
	users.put(&domain.User{ID: "u1"})
	users.put(&domain.User{ID: "u2"})

	changed, err := svc.AssignUser(ctx, adminActor, r.ID, "u1")
	if err != nil || !changed {
		t.Fatalf("AssignUser(u1) = %v, %v", changed, err)
	}
	changed, err = svc.AssignUser(ctx, adminActor, r.ID, "u1")
	if err != nil || changed {
		t.Fatalf("expected repeat assignment to be a no-op, got %v, %v", changed, err)
	}

	var limit *domain.RoleUserLimitError
	if _, err := svc.AssignUser(ctx, adminActor, r.ID, "u2"); !errors.As(err, &limit) {
		t.Fatalf("expected RoleUserLimitError, got %v", err)
	}

	changed, err = svc.RemoveUser(ctx, adminActor, r.ID, "u1")
	if err != nil || !changed {
		t.Fatalf("RemoveUser = %v, %v", changed, err)
	}
	if _, err := svc.AssignUser(ctx, adminActor, r.ID, "u2"); err != nil {
		t.Fatalf("expected room after removal: %v", err)
	}
}

func TestRoleService_ListCountsHolders(t *testing.T) {
	ctx := context.Background()
	svc, _, users, _ := newRoleFixture()
	r, _ := svc.Create(ctx, adminActor, &domain.Role{Name: "team", IsActive: true})
	users.put(&domain.User{ID: "u1", RoleIDs: []string{r.ID}})
	users.put(&domain.User{ID: "u2", RoleIDs: []string{r.ID}})

	list, err := svc.List(ctx, domain.RoleFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.Total != 1 || list.Roles[0].CurrentUsers != 2 {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list.Page != 1 || list.PageSize != 20 || list.TotalPages != 1 {
		t.Fatalf("unexpected paging: %+v", list)
	}
	if len(svc.Templates()) != len(domain.RoleTemplates) {
		t.Fatalf("unexpected templates count")
	}
}

// tenantRoleFixture seeds the platform roles, one custom role in each of two
// companies, and returns a company admin of c1 as the actor.
func tenantRoleFixture() (*RoleService, *stubUserRepo, *authz.Principal) {
	svc, roles, users, _ := newRoleFixture()

	sa := role("sa", domain.RoleTypeSuperAdmin, domain.AllPermissions...)
	sa.Scope = domain.ScopeSystem
	sa.IsSystemRole = true
	ca := role("ca", domain.RoleTypeCompanyAdmin, domain.PermUserView, domain.PermUserAssignRole, domain.PermMessageView)
	ca.IsSystemRole = true
	agent := role("agent", domain.RoleTypeAgent, domain.PermMessageView)
	agent.Scope = domain.ScopeTeam
	agent.IsSystemRole = true
	own := role("ops-c1", domain.RoleTypeCustom, domain.PermMessageView)
	own.CompanyID = "c1"
	foreign := role("ops-c2", domain.RoleTypeCustom, domain.PermMessageView)
	foreign.CompanyID = "c2"
	for _, r := range []*domain.Role{sa, ca, agent, own, foreign} {
		roles.roles[r.ID] = r
	}

	cadmin := users.put(&domain.User{ID: "cadmin", CompanyID: "c1", IsActive: true, RoleIDs: []string{"ca"}})
	users.put(&domain.User{ID: "u-c1", CompanyID: "c1", IsActive: true})
	users.put(&domain.User{ID: "u-c2", CompanyID: "c2", IsActive: true})
	return svc, users, &authz.Principal{User: cadmin, Roles: []*domain.Role{ca}}
}

func TestRoleService_CompanyAdminCannotGrantPlatformRoles(t *testing.T) {
	ctx := context.Background()
	svc, users, actor := tenantRoleFixture()

	for _, roleID := range []string{"sa", "ca"} {
		changed, err := svc.AssignUser(ctx, actor, roleID, "cadmin")
		if !errors.Is(err, domain.ErrForbidden) || changed {
			t.Fatalf("AssignUser(%s, self) = %v, %v; want forbidden", roleID, changed, err)
		}
	}
	u, _ := users.FindByID(ctx, "cadmin")
	if u.HasRole("sa") {
		t.Fatalf("company admin gained the super admin role")
	}

	p := &authz.Principal{User: u, Roles: actor.Roles}
	if err := authz.RequireSuperAdmin(p); err == nil {
		t.Fatalf("company admin passes RequireSuperAdmin after a denied grant")
	}
}

func TestRoleService_CompanyAdminAssignmentScope(t *testing.T) {
	ctx := context.Background()
	svc, _, actor := tenantRoleFixture()

	tests := []struct {
		name    string
		roleID  string
		userID  string
		allowed bool
	}{
		{"own role to own user", "ops-c1", "u-c1", true},
		{"global agent role to own user", "agent", "u-c1", true},
		{"own role to foreign user", "ops-c1", "u-c2", false},
		{"foreign role to own user", "ops-c2", "u-c1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AssignUser(ctx, actor, tt.roleID, tt.userID)
			if tt.allowed && err != nil {
				t.Fatalf("expected allow, got %v", err)
			}
			if !tt.allowed && !errors.Is(err, domain.ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
		})
	}

	if _, err := svc.RemoveUser(ctx, actor, "ops-c2", "u-c2"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected foreign revoke to be forbidden, got %v", err)
	}
}

func TestRoleService_CompanyAdminCreateRestrictions(t *testing.T) {
	ctx := context.Background()
	svc, _, actor := tenantRoleFixture()

	denied := []*domain.Role{
		{Name: "root", RoleType: domain.RoleTypeSuperAdmin, Scope: domain.ScopeCompany},
		{Name: "boss", RoleType: domain.RoleTypeCompanyAdmin, Scope: domain.ScopeCompany},
		{Name: "wide", Scope: domain.ScopeSystem},
		{Name: "elsewhere", CompanyID: "c2", Scope: domain.ScopeCompany},
		{Name: "greedy", Scope: domain.ScopeCompany, Permissions: []string{domain.PermSystemAdmin}},
	}
	for _, r := range denied {
		if _, err := svc.Create(ctx, actor, r); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("Create(%s): expected ErrForbidden, got %v", r.Name, err)
		}
	}

	created, err := svc.Create(ctx, actor, &domain.Role{Name: "triage", Scope: domain.ScopeCompany, Permissions: []string{domain.PermMessageView}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.CompanyID != "c1" {
		t.Fatalf("expected role pinned to c1, got %q", created.CompanyID)
	}
}

func TestRoleService_CompanyAdminEditScope(t *testing.T) {
	ctx := context.Background()
	svc, _, actor := tenantRoleFixture()
	desc := "changed"

	for _, id := range []string{"ops-c2", "agent", "sa"} {
		if _, err := svc.Update(ctx, actor, id, domain.RoleUpdate{Description: &desc}); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("Update(%s): expected ErrForbidden, got %v", id, err)
		}
		if err := svc.Delete(ctx, actor, id); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("Delete(%s): expected ErrForbidden, got %v", id, err)
		}
	}

	if _, err := svc.Update(ctx, actor, "ops-c1", domain.RoleUpdate{Description: &desc}); err != nil {
		t.Fatalf("Update(own): %v", err)
	}
	perms := []string{domain.PermSystemConfig}
	if _, err := svc.Update(ctx, actor, "ops-c1", domain.RoleUpdate{Permissions: &perms}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected undelegable permission to be forbidden, got %v", err)
	}
	if err := svc.Delete(ctx, actor, "ops-c1"); err != nil {
		t.Fatalf("Delete(own): %v", err)
	}
}

func TestRoleService_ReadsAreTenantScoped(t *testing.T) {
	ctx := context.Background()
	svc, users, actor := tenantRoleFixture()
	users.put(&domain.User{ID: "u2-c1", CompanyID: "c1", IsActive: true, RoleIDs: []string{"agent"}})
	users.put(&domain.User{ID: "u2-c2", CompanyID: "c2", IsActive: true, RoleIDs: []string{"agent"}})

	if _, err := svc.Get(ctx, actor, "ops-c2"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected foreign role read to be forbidden, got %v", err)
	}
	if _, _, err := svc.Users(ctx, actor, "ops-c2", domain.Page{}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected foreign role holders to be forbidden, got %v", err)
	}
	if _, err := svc.Get(ctx, actor, "agent"); err != nil {
		t.Fatalf("global role hidden: %v", err)
	}

	holders, total, err := svc.Users(ctx, actor, "agent", domain.Page{})
	if err != nil {
		t.Fatalf("Users: %v", err)
	}
	if total != 1 || holders[0].ID != "u2-c1" {
		t.Fatalf("expected only c1 holders, got %d", total)
	}

	_, total, _ = svc.Users(ctx, adminActor, "agent", domain.Page{})
	if total != 2 {
		t.Fatalf("platform admin should see every holder, got %d", total)
	}
}
