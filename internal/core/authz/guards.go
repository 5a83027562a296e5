package authz

import (
	"fmt"

	"github.com/conversia/admin-platform/internal/core/domain"
)

// Guard names, used as the Denial.Guard value and as a metrics label.
const (
	GuardActive       = "require_active"
	GuardAdmin        = "require_admin"
	GuardSuperAdmin   = "require_super_admin"
	GuardBrandAccess  = "require_brand_access"
	GuardTeamAccess   = "require_team_access"
	GuardCompanyMatch = "require_company_match"
	GuardPermission   = "require_permission"
	GuardTenant       = "require_tenant"
	GuardRoleGrant    = "require_role_grant"
)

// Guard allows (nil) or denies (*domain.Denial) a principal.
type Guard func(p *Principal) error

// RequireActive denies inactive users.
func RequireActive(p *Principal) error {
	if p == nil || p.User == nil || !p.User.IsActive {
		return domain.Deny(GuardActive, "Inactive user")
	}
	return nil
}

// RequireAdmin is the single admin-equivalence rule: superuser, or any role
// of type super_admin or company_admin.
func RequireAdmin(p *Principal) error {
	if p.IsSuperuser() {
		return nil
	}
	if p.HasRoleType(domain.RoleTypeSuperAdmin, domain.RoleTypeCompanyAdmin) {
		return nil
	}
	return domain.Deny(GuardAdmin, "Admin access required")
}

// RequireSuperAdmin gates platform-level operations: superuser, or a
// super_admin role.
func RequireSuperAdmin(p *Principal) error {
	if p.IsSuperuser() {
		return nil
	}
	if p.HasRoleType(domain.RoleTypeSuperAdmin) {
		return nil
	}
	return domain.Deny(GuardSuperAdmin, "Super admin access required")
}

// RequireBrandAccess allows superusers, any system-scoped role, or a
// brand-scoped role listing brandID.
func RequireBrandAccess(brandID string) Guard {
	return func(p *Principal) error {
		if p.IsSuperuser() {
			return nil
		}
		for _, r := range rolesOf(p) {
			switch r.Scope {
			case domain.ScopeSystem:
				return nil
			case domain.ScopeBrand:
				if r.CoversBrand(brandID) {
					return nil
				}
			}
		}
		return domain.Deny(GuardBrandAccess, fmt.Sprintf("No access to brand %s", brandID))
	}
}

// RequireTeamAccess allows superusers, any system-scoped role, or a
// team-scoped role listing teamID.
func RequireTeamAccess(teamID string) Guard {
	return func(p *Principal) error {
		if p.IsSuperuser() {
			return nil
		}
		for _, r := range rolesOf(p) {
			switch r.Scope {
			case domain.ScopeSystem:
				return nil
			case domain.ScopeTeam:
				if r.CoversTeam(teamID) {
					return nil
				}
			}
		}
		return domain.Deny(GuardTeamAccess, fmt.Sprintf("No access to team %s", teamID))
	}
}

// RequireCompanyMatch allows superusers, or company admins whose own company
// is companyID.
func RequireCompanyMatch(companyID string) Guard {
	return func(p *Principal) error {
		if p.IsSuperuser() {
			return nil
		}
		if p != nil && p.User != nil && companyID != "" &&
			p.User.CompanyID == companyID && p.HasRoleType(domain.RoleTypeCompanyAdmin) {
			return nil
		}
		return domain.Deny(GuardCompanyMatch, fmt.Sprintf("No access to company %s", companyID))
	}
}

// RequireTenant allows platform admins, or any user whose own company is
// companyID. Resources without a company are reachable by platform admins
// only.
func RequireTenant(companyID string) Guard {
	return func(p *Principal) error {
		if RequireSuperAdmin(p) == nil {
			return nil
		}
		if p != nil && p.User != nil && companyID != "" && p.User.CompanyID == companyID {
			return nil
		}
		return domain.Deny(GuardTenant, "Resource belongs to another company")
	}
}

// RequireRoleVisible allows reading role: platform admins see every role,
// everyone else sees global roles and the roles of their own company.
func RequireRoleVisible(role *domain.Role) Guard {
	return func(p *Principal) error {
		if role.CompanyID == "" {
			return nil
		}
		return RequireTenant(role.CompanyID)(p)
	}
}

// RequireRoleGrant decides whether p may create, edit or hand out role.
// Platform admins may manage any role. Everyone else is limited to roles of
// their own company, or global non-administrative roles when assigning, and
// never to roles of type super_admin or company_admin or of system scope.
func RequireRoleGrant(role *domain.Role) Guard {
	return func(p *Principal) error {
		if RequireSuperAdmin(p) == nil {
			return nil
		}
		if role.RoleType == domain.RoleTypeSuperAdmin || role.RoleType == domain.RoleTypeCompanyAdmin {
			return domain.Deny(GuardRoleGrant, fmt.Sprintf("Only platform admins can manage %s roles", role.RoleType))
		}
		if role.Scope == domain.ScopeSystem {
			return domain.Deny(GuardRoleGrant, "Only platform admins can manage system-scoped roles")
		}
		if role.CompanyID == "" && role.IsSystemRole {
			if p != nil && p.User != nil && p.User.CompanyID != "" {
				return nil
			}
			return domain.Deny(GuardRoleGrant, "User is not assigned to a company")
		}
		if err := RequireTenant(role.CompanyID)(p); err != nil {
			return domain.Deny(GuardRoleGrant, fmt.Sprintf("No access to role %s", role.Name))
		}
		return nil
	}
}

// RequirePermission allows superusers, or principals whose role union
// contains permission.
func RequirePermission(permission string) Guard {
	return func(p *Principal) error {
		if p.IsSuperuser() {
			return nil
		}
		if _, ok := p.Permissions()[permission]; ok {
			return nil
		}
		return domain.Deny(GuardPermission, fmt.Sprintf("Permission '%s' required", permission))
	}
}

// AnyOf allows when at least one guard allows. The first denial is returned
// otherwise.
func AnyOf(guards ...Guard) Guard {
	return func(p *Principal) error {
		var first error
		for _, g := range guards {
			err := g(p)
			if err == nil {
				return nil
			}
			if first == nil {
				first = err
			}
		}
		if first == nil {
			return domain.Deny("any_of", "access forbidden")
		}
		return first
	}
}

// AllOf allows only when every guard allows.
func AllOf(guards ...Guard) Guard {
	return func(p *Principal) error {
		for _, g := range guards {
			if err := g(p); err != nil {
				return err
			}
		}
		return nil
	}
}
