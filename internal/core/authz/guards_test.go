package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/conversia/admin-platform/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func principal(user *domain.User, roles ...*domain.Role) *Principal {
	return &Principal{User: user, Roles: roles}
}

func activeUser() *domain.User {
	return &domain.User{ID: "u1", Email: "a@x.com", IsActive: true, CompanyID: "c1"}
}

func role(t domain.RoleType, scope domain.RoleScope, perms ...string) *domain.Role {
	return &domain.Role{ID: string(t), Name: string(t), RoleType: t, Scope: scope, Permissions: perms, IsActive: true}
}

func assertDenied(t *testing.T, err error, guard string) {
	t.Helper()
	var d *domain.Denial
	if !errors.As(err, &d) {
		t.Fatalf("expected denial from %s, got %v", guard, err)
	}
	if d.Guard != guard {
		t.Fatalf("expected guard %s, got %s", guard, d.Guard)
	}
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("denial should match ErrForbidden")
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSuperuserPassesEveryRoleGuard(t *testing.T) {
	u := activeUser()
	u.IsSuperuser = true
	p := principal(u) // no roles at all

	guards := map[string]Guard{
		"admin":        RequireAdmin,
		"super_admin":  RequireSuperAdmin,
		"brand":        RequireBrandAccess("brand1"),
		"team":         RequireTeamAccess("team1"),
		"company":      RequireCompanyMatch("other-company"),
		"permission":   RequirePermission(domain.PermSystemAudit),
		"active":       RequireActive,
		"combinations": AllOf(RequireAdmin, RequirePermission("anything:at_all")),
	}
	for name, g := range guards {
		if err := g(p); err != nil {
			t.Fatalf("%s: superuser denied: %v", name, err)
		}
	}
}

func TestRequireActive(t *testing.T) {
	u := activeUser()
	if err := RequireActive(principal(u)); err != nil {
		t.Fatalf("active user denied: %v", err)
	}
	u.IsActive = false
	err := RequireActive(principal(u))
	assertDenied(t, err, GuardActive)
	if err.Error() != "Inactive user" {
		t.Fatalf("unexpected reason: %s", err.Error())
	}
	assertDenied(t, RequireActive(nil), GuardActive)
}

func TestRequireAdmin(t *testing.T) {
	cases := []struct {
		name  string
		roles []*domain.Role
		allow bool
	}{
		{"no roles", nil, false},
		{"agent only", []*domain.Role{role(domain.RoleTypeAgent, domain.ScopeBrand)}, false},
		{"company admin", []*domain.Role{role(domain.RoleTypeCompanyAdmin, domain.ScopeCompany)}, true},
		{"super admin role", []*domain.Role{role(domain.RoleTypeSuperAdmin, domain.ScopeSystem)}, true},
		{"mixed", []*domain.Role{role(domain.RoleTypeViewer, domain.ScopeCompany), role(domain.RoleTypeCompanyAdmin, domain.ScopeCompany)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := RequireAdmin(principal(activeUser(), tc.roles...))
			if tc.allow && err != nil {
				t.Fatalf("expected allow, got %v", err)
			}
			if !tc.allow {
				assertDenied(t, err, GuardAdmin)
			}
		})
	}
}

func TestRequireSuperAdmin_CompanyAdminDenied(t *testing.T) {
	p := principal(activeUser(), role(domain.RoleTypeCompanyAdmin, domain.ScopeCompany))
	assertDenied(t, RequireSuperAdmin(p), GuardSuperAdmin)

	p = principal(activeUser(), role(domain.RoleTypeSuperAdmin, domain.ScopeSystem))
	if err := RequireSuperAdmin(p); err != nil {
		t.Fatalf("super_admin role denied: %v", err)
	}
}

func TestRequireBrandAccess(t *testing.T) {
	brandRole := role(domain.RoleTypeBrandAdmin, domain.ScopeBrand)
	brandRole.BrandIDs = []string{"brand2"}

	err := RequireBrandAccess("brand1")(principal(activeUser(), brandRole))
	assertDenied(t, err, GuardBrandAccess)
	if err.Error() != "No access to brand brand1" {
		t.Fatalf("unexpected reason: %s", err.Error())
	}

	if err := RequireBrandAccess("brand2")(principal(activeUser(), brandRole)); err != nil {
		t.Fatalf("listed brand denied: %v", err)
	}

	systemRole := role(domain.RoleTypeCustom, domain.ScopeSystem)
	systemRole.BrandIDs = []string{"brand2"}
	if err := RequireBrandAccess("brand1")(principal(activeUser(), systemRole)); err != nil {
		t.Fatalf("system scope denied: %v", err)
	}

	companyRole := role(domain.RoleTypeCompanyAdmin, domain.ScopeCompany)
	companyRole.BrandIDs = []string{"brand1"}
	assertDenied(t, RequireBrandAccess("brand1")(principal(activeUser(), companyRole)), GuardBrandAccess)
}

func TestRequireTeamAccess(t *testing.T) {
	lead := role(domain.RoleTypeTeamLead, domain.ScopeTeam)
	lead.TeamIDs = []string{"team2"}

	assertDenied(t, RequireTeamAccess("team1")(principal(activeUser(), lead)), GuardTeamAccess)
	if err := RequireTeamAccess("team2")(principal(activeUser(), lead)); err != nil {
		t.Fatalf("listed team denied: %v", err)
	}

	if err := RequireTeamAccess("team1")(principal(activeUser(), role(domain.RoleTypeCustom, domain.ScopeSystem))); err != nil {
		t.Fatalf("system scope denied: %v", err)
	}

	brandRole := role(domain.RoleTypeBrandAdmin, domain.ScopeBrand)
	brandRole.TeamIDs = []string{"team1"}
	assertDenied(t, RequireTeamAccess("team1")(principal(activeUser(), brandRole)), GuardTeamAccess)
}

func TestRequireCompanyMatch(t *testing.T) {
	admin := role(domain.RoleTypeCompanyAdmin, domain.ScopeCompany)

	if err := RequireCompanyMatch("c1")(principal(activeUser(), admin)); err != nil {
		t.Fatalf("own company denied: %v", err)
	}
	assertDenied(t, RequireCompanyMatch("c2")(principal(activeUser(), admin)), GuardCompanyMatch)
	assertDenied(t, RequireCompanyMatch("c1")(principal(activeUser(), role(domain.RoleTypeAgent, domain.ScopeBrand))), GuardCompanyMatch)

	noCompany := activeUser()
	noCompany.CompanyID = ""
	assertDenied(t, RequireCompanyMatch("")(principal(noCompany, admin)), GuardCompanyMatch)
}

func TestRequireTenant(t *testing.T) {
	agent := principal(activeUser(), role(domain.RoleTypeAgent, domain.ScopeTeam))
	if err := RequireTenant("c1")(agent); err != nil {
		t.Fatalf("own company denied: %v", err)
	}
	assertDenied(t, RequireTenant("c2")(agent), GuardTenant)
	assertDenied(t, RequireTenant("")(agent), GuardTenant)

	platform := principal(activeUser(), role(domain.RoleTypeSuperAdmin, domain.ScopeSystem))
	if err := RequireTenant("c2")(platform); err != nil {
		t.Fatalf("super admin denied: %v", err)
	}

	drifter := activeUser()
	drifter.CompanyID = ""
	assertDenied(t, RequireTenant("")(principal(drifter)), GuardTenant)
}

func TestRequireRoleGrant(t *testing.T) {
	companyAdmin := principal(activeUser(), role(domain.RoleTypeCompanyAdmin, domain.ScopeCompany))

	global := func(rt domain.RoleType, scope domain.RoleScope) *domain.Role {
		r := role(rt, scope)
		r.IsSystemRole = true
		return r
	}
	own := &domain.Role{Name: "ops", CompanyID: "c1", RoleType: domain.RoleTypeCustom, Scope: domain.ScopeCompany}
	foreign := &domain.Role{Name: "ops", CompanyID: "c2", RoleType: domain.RoleTypeCustom, Scope: domain.ScopeCompany}

	tests := []struct {
		name    string
		role    *domain.Role
		allowed bool
	}{
		{"own company custom role", own, true},
		{"global agent role", global(domain.RoleTypeAgent, domain.ScopeTeam), true},
		{"foreign company role", foreign, false},
		{"global super admin role", global(domain.RoleTypeSuperAdmin, domain.ScopeSystem), false},
		{"global company admin role", global(domain.RoleTypeCompanyAdmin, domain.ScopeCompany), false},
		{"own company system-scoped role", &domain.Role{Name: "x", CompanyID: "c1", RoleType: domain.RoleTypeCustom, Scope: domain.ScopeSystem}, false},
		{"own company super admin type", &domain.Role{Name: "x", CompanyID: "c1", RoleType: domain.RoleTypeSuperAdmin, Scope: domain.ScopeCompany}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireRoleGrant(tt.role)(companyAdmin)
			if tt.allowed && err != nil {
				t.Fatalf("expected allow, got %v", err)
			}
			if !tt.allowed {
				assertDenied(t, err, GuardRoleGrant)
			}
		})
	}

	platform := principal(activeUser(), role(domain.RoleTypeSuperAdmin, domain.ScopeSystem))
	if err := RequireRoleGrant(global(domain.RoleTypeSuperAdmin, domain.ScopeSystem))(platform); err != nil {
		t.Fatalf("super admin denied: %v", err)
	}
}

func TestRequireRoleVisible(t *testing.T) {
	agent := principal(activeUser(), role(domain.RoleTypeAgent, domain.ScopeTeam))
	if err := RequireRoleVisible(&domain.Role{Name: "agent"})(agent); err != nil {
		t.Fatalf("global role hidden: %v", err)
	}
	if err := RequireRoleVisible(&domain.Role{Name: "ops", CompanyID: "c1"})(agent); err != nil {
		t.Fatalf("own company role hidden: %v", err)
	}
	assertDenied(t, RequireRoleVisible(&domain.Role{Name: "ops", CompanyID: "c2"})(agent), GuardTenant)
}

func TestRequirePermission_UnionAcrossRoles(t *testing.T) {
	p := principal(activeUser(),
		role(domain.RoleTypeViewer, domain.ScopeCompany, domain.PermBrandView),
		role(domain.RoleTypeCustom, domain.ScopeCompany, domain.PermMessageCreate),
	)
	for _, perm := range []string{domain.PermBrandView, domain.PermMessageCreate} {
		if err := RequirePermission(perm)(p); err != nil {
			t.Fatalf("%s denied: %v", perm, err)
		}
	}
	err := RequirePermission(domain.PermCompanyDelete)(p)
	assertDenied(t, err, GuardPermission)
	if err.Error() != "Permission 'company:delete' required" {
		t.Fatalf("unexpected reason: %s", err.Error())
	}
}

func TestPrincipal_EmptyRolesHaveNoPermissions(t *testing.T) {
	p := principal(activeUser())
	if got := p.Permissions(); len(got) != 0 {
		t.Fatalf("expected empty permission set, got %v", got)
	}
	var nilPrincipal *Principal
	if got := nilPrincipal.Permissions(); len(got) != 0 {
		t.Fatalf("nil principal should have no permissions")
	}
}

func TestAnyOf(t *testing.T) {
	admin := role(domain.RoleTypeCompanyAdmin, domain.ScopeCompany)
	g := AnyOf(RequireSuperAdmin, RequireCompanyMatch("c1"))
	if err := g(principal(activeUser(), admin)); err != nil {
		t.Fatalf("company admin of c1 denied: %v", err)
	}
	assertDenied(t, g(principal(activeUser())), GuardSuperAdmin)
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	p := principal(activeUser())
	got, ok := FromContext(WithPrincipal(context.Background(), p))
	if !ok || got != p {
		t.Fatalf("principal not carried by context")
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("empty context should carry no principal")
	}
}
