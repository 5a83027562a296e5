// Package authz holds the request principal and the guards that decide
// whether it may proceed. Guards are pure functions of the principal snapshot
// and an optional target; they never perform I/O.
package authz

import (
	"sort"
	"time"

	"github.com/conversia/admin-platform/internal/core/domain"
)

// Principal is the authenticated caller of a request: the user as loaded at
// authentication time plus the roles resolved from its role_ids.
type Principal struct {
	User           *domain.User
	Roles          []*domain.Role
	TokenID        string
	TokenExpiresAt time.Time
	// SessionID is the sid claim of the token; empty for tokens not bound
	// to a login session.
	SessionID string
}

// UserID returns the principal's user id, or "" for a nil principal.
func (p *Principal) UserID() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.ID
}

// IsSuperuser reports the superuser flag.
func (p *Principal) IsSuperuser() bool {
	return p != nil && p.User != nil && p.User.IsSuperuser
}

// HasRoleType reports whether any resolved role has one of types.
func (p *Principal) HasRoleType(types ...domain.RoleType) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		for _, t := range types {
			if r.RoleType == t {
				return true
			}
		}
	}
	return false
}

// Permissions is the union of every resolved role's permissions.
func (p *Principal) Permissions() map[string]struct{} {
	return UnionPermissions(rolesOf(p))
}

// PermissionList is Permissions sorted for stable output.
func (p *Principal) PermissionList() []string {
	set := p.Permissions()
	out := make([]string, 0, len(set))
	for perm := range set {
		out = append(out, perm)
	}
	sort.Strings(out)
	return out
}

// RoleNames returns role names in resolution order.
func (p *Principal) RoleNames() []string {
	return RoleNames(rolesOf(p))
}

func rolesOf(p *Principal) []*domain.Role {
	if p == nil {
		return nil
	}
	return p.Roles
}

// UnionPermissions merges role permission lists. A permission present in any
// role is granted.
func UnionPermissions(roles []*domain.Role) map[string]struct{} {
	set := make(map[string]struct{})
	for _, r := range roles {
		for _, perm := range r.Permissions {
			set[perm] = struct{}{}
		}
	}
	return set
}

// RoleNames lists the names of roles.
func RoleNames(roles []*domain.Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names
}
