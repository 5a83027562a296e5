package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

const roleCacheSize = 1024

// RoleResolver loads a user's roles and derives permissions from them.
//
// Missing users, empty role_ids and ids that resolve to nothing all yield an
// empty role list: such users simply have no permissions. Inactive roles are
// skipped. Only storage failures surface as errors.
type RoleResolver struct {
	users ports.UserRepository
	roles ports.RoleRepository
	cache *expirable.LRU[string, *domain.Role]
}

// NewRoleResolver builds a resolver. A positive cacheTTL keeps role
// documents in memory for that long; role mutations must call Forget.
func NewRoleResolver(users ports.UserRepository, roles ports.RoleRepository, cacheTTL time.Duration) *RoleResolver {
	r := &RoleResolver{users: users, roles: roles}
	if cacheTTL > 0 {
		r.cache = expirable.NewLRU[string, *domain.Role](roleCacheSize, nil, cacheTTL)
	}
	return r
}

// RolesFor loads userID and resolves its roles.
func (r *RoleResolver) RolesFor(ctx context.Context, userID string) ([]*domain.Role, error) {
	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return []*domain.Role{}, nil
		}
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	return r.RolesForUser(ctx, user)
}

// RolesForUser resolves the roles of an already loaded user, preserving the
// order of its role_ids.
func (r *RoleResolver) RolesForUser(ctx context.Context, user *domain.User) ([]*domain.Role, error) {
	if user == nil || len(user.RoleIDs) == 0 {
		return []*domain.Role{}, nil
	}

	byID := make(map[string]*domain.Role, len(user.RoleIDs))
	missing := make([]string, 0, len(user.RoleIDs))
	for _, id := range user.RoleIDs {
		if cached, ok := r.cached(id); ok {
			byID[id] = cached
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		found, err := r.roles.FindByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("resolve roles: %w", err)
		}
		for _, role := range found {
			byID[role.ID] = role
			if r.cache != nil {
				r.cache.Add(role.ID, role)
			}
		}
	}

	out := make([]*domain.Role, 0, len(byID))
	seen := make(map[string]struct{}, len(byID))
	for _, id := range user.RoleIDs {
		role, ok := byID[id]
		if !ok || !role.IsActive {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, role)
	}
	return out, nil
}

// PermissionsFor is the union of the permissions of userID's roles.
func (r *RoleResolver) PermissionsFor(ctx context.Context, userID string) (map[string]struct{}, error) {
	roles, err := r.RolesFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return authz.UnionPermissions(roles), nil
}

// HasPermission reports whether any role of userID grants permission. A
// lookup failure reports false.
func (r *RoleResolver) HasPermission(ctx context.Context, userID, permission string) bool {
	perms, err := r.PermissionsFor(ctx, userID)
	if err != nil {
		return false
	}
	_, ok := perms[permission]
	return ok
}

// Forget drops cached role documents.
func (r *RoleResolver) Forget(roleIDs ...string) {
	if r.cache == nil {
		return
	}
	for _, id := range roleIDs {
		r.cache.Remove(id)
	}
}

func (r *RoleResolver) cached(id string) (*domain.Role, bool) {
	if r.cache == nil {
		return nil, false
	}
	return r.cache.Get(id)
}
