package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

// RoleWithUsage is a role plus the number of users holding it.
type RoleWithUsage struct {
	*domain.Role
	CurrentUsers int64 `json:"current_users"`
}

// RoleList is one page of roles.
type RoleList struct {
	Roles      []RoleWithUsage
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// RoleTemplateSummary describes a seedable role template.
type RoleTemplateSummary struct {
	Type             domain.RoleType  `json:"type"`
	DisplayName      string           `json:"display_name"`
	Scope            domain.RoleScope `json:"scope"`
	Description      string           `json:"description"`
	PermissionsCount int              `json:"permissions_count"`
}

// RoleService manages role documents and their assignment to users.
type RoleService struct {
	roles    ports.RoleRepository
	users    ports.UserRepository
	resolver *RoleResolver
	audit    ports.Auditor
	log      zerolog.Logger
}

func NewRoleService(roles ports.RoleRepository, users ports.UserRepository, resolver *RoleResolver, audit ports.Auditor, log zerolog.Logger) *RoleService {
	return &RoleService{roles: roles, users: users, resolver: resolver, audit: audit, log: log}
}

// Create inserts a custom role. Names are unique per company. Company
// admins create roles for their own company only, and only with
// permissions they hold themselves.
func (s *RoleService) Create(ctx context.Context, actor *authz.Principal, role *domain.Role) (*RoleWithUsage, error) {
	role.IsSystemRole = false
	if authz.RequireSuperAdmin(actor) != nil && role.CompanyID == "" {
		role.CompanyID = actor.User.CompanyID
	}
	if role.RoleType == "" {
		role.RoleType = domain.RoleTypeCustom
	}
	if err := authz.RequireRoleGrant(role)(actor); err != nil {
		return nil, err
	}
	if err := requireDelegable(actor, role.Permissions); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	role.ID = ""
	role.CreatedAt = now
	role.UpdatedAt = now
	role.CreatedBy = actor.UserID()
	role.UpdatedBy = actor.UserID()

	created, err := s.roles.Create(ctx, role)
	if err != nil {
		return nil, err
	}
	s.record(actor, "role.create", created.ID)
	return &RoleWithUsage{Role: created}, nil
}

// List returns a page of roles with holder counts.
func (s *RoleService) List(ctx context.Context, filter domain.RoleFilter) (*RoleList, error) {
	page := domain.Page{Page: filter.Page, PageSize: filter.PageSize}.Normalize()
	filter.Page, filter.PageSize = page.Page, page.PageSize

	roles, total, err := s.roles.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]RoleWithUsage, 0, len(roles))
	for _, r := range roles {
		n, err := s.users.CountByRole(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RoleWithUsage{Role: r, CurrentUsers: n})
	}
	return &RoleList{
		Roles:      out,
		Total:      total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: domain.TotalPages(total, page.PageSize),
	}, nil
}

// Get returns one role with its holder count. Roles of another company are
// denied.
func (s *RoleService) Get(ctx context.Context, actor *authz.Principal, id string) (*RoleWithUsage, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireRoleVisible(role)(actor); err != nil {
		return nil, err
	}
	return s.withUsage(ctx, role)
}

// Update edits a role. System roles only accept is_active, description and
// metadata; other fields are silently dropped.
func (s *RoleService) Update(ctx context.Context, actor *authz.Principal, id string, upd domain.RoleUpdate) (*RoleWithUsage, error) {
	existing, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if upd.Permissions != nil {
		if err := requireDelegable(actor, *upd.Permissions); err != nil {
			return nil, err
		}
	}
	if existing.IsSystemRole {
		upd = upd.RestrictToSystemFields()
	}
	if upd.Empty() {
		return nil, domain.ErrNoFieldsToUpdate
	}

	updated, err := s.roles.Update(ctx, id, upd, actor.UserID())
	if err != nil {
		return nil, err
	}
	s.resolver.Forget(id)
	s.record(actor, "role.update", id)
	return s.withUsage(ctx, updated)
}

// Delete removes a non-system role nobody holds.
func (s *RoleService) Delete(ctx context.Context, actor *authz.Principal, id string) error {
	role, err := s.manageable(ctx, actor, id)
	if err != nil {
		return err
	}
	if role.IsSystemRole {
		return domain.Deny("role_delete", domain.ErrSystemRole.Error())
	}
	n, err := s.users.CountByRole(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return &domain.RoleInUseError{Count: n}
	}
	if err := s.roles.Delete(ctx, id); err != nil {
		return err
	}
	s.resolver.Forget(id)
	s.record(actor, "role.delete", id)
	return nil
}

// AssignUser grants roleID to userID, honouring max_users. It reports
// whether the user's roles changed.
func (s *RoleService) AssignUser(ctx context.Context, actor *authz.Principal, roleID, userID string) (bool, error) {
	role, user, err := s.assignment(ctx, actor, roleID, userID)
	if err != nil {
		return false, err
	}
	if user.HasRole(roleID) {
		return false, nil
	}
	if role.MaxUsers != nil && *role.MaxUsers > 0 {
		n, err := s.users.CountByRole(ctx, roleID)
		if err != nil {
			return false, err
		}
		if n >= int64(*role.MaxUsers) {
			return false, &domain.RoleUserLimitError{Max: *role.MaxUsers}
		}
	}

	changed, err := s.users.AddRole(ctx, userID, roleID)
	if err != nil {
		return false, err
	}
	if changed {
		s.record(actor, "role.assign", roleID, "user_id", userID)
	}
	return changed, nil
}

// RemoveUser revokes roleID from userID. It reports whether anything changed.
func (s *RoleService) RemoveUser(ctx context.Context, actor *authz.Principal, roleID, userID string) (bool, error) {
	if _, _, err := s.assignment(ctx, actor, roleID, userID); err != nil {
		return false, err
	}
	changed, err := s.users.RemoveRole(ctx, userID, roleID)
	if err != nil {
		return false, err
	}
	if changed {
		s.record(actor, "role.remove", roleID, "user_id", userID)
	}
	return changed, nil
}

// Users lists the holders of roleID. Outside the platform admins only
// holders from the caller's own company are listed.
func (s *RoleService) Users(ctx context.Context, actor *authz.Principal, roleID string, page domain.Page) ([]*domain.User, int64, error) {
	role, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return nil, 0, err
	}
	if err := authz.RequireRoleVisible(role)(actor); err != nil {
		return nil, 0, err
	}
	filter := domain.UserFilter{RoleID: roleID, Page: page.Normalize()}
	if authz.RequireSuperAdmin(actor) != nil {
		filter.CompanyID = actor.User.CompanyID
		if filter.CompanyID == "" {
			return nil, 0, domain.Deny(authz.GuardTenant, "User is not assigned to a company")
		}
	}
	return s.users.List(ctx, filter)
}

// Templates summarises the built-in role templates.
func (s *RoleService) Templates() []RoleTemplateSummary {
	out := make([]RoleTemplateSummary, 0, len(domain.RoleTemplates))
	for _, t := range domain.RoleTemplates {
		out = append(out, RoleTemplateSummary{
			Type:             t.Type,
			DisplayName:      t.DisplayName,
			Scope:            t.Scope,
			Description:      t.Description,
			PermissionsCount: len(t.Permissions),
		})
	}
	return out
}

// Permissions lists every known permission.
func (s *RoleService) Permissions() []string {
	return append([]string(nil), domain.AllPermissions...)
}

// SeedSystemRoles makes sure every role template exists as a system role.
func (s *RoleService) SeedSystemRoles(ctx context.Context) error {
	now := time.Now().UTC()
	for _, t := range domain.RoleTemplates {
		created, err := s.roles.EnsureSystemRole(ctx, &domain.Role{
			Name:         string(t.Type),
			DisplayName:  t.DisplayName,
			RoleType:     t.Type,
			Scope:        t.Scope,
			Permissions:  append([]string(nil), t.Permissions...),
			IsSystemRole: true,
			IsActive:     true,
			Description:  t.Description,
			CreatedAt:    now,
			UpdatedAt:    now,
			CreatedBy:    "system",
		})
		if err != nil {
			return err
		}
		if created {
			s.log.Info().Str("role_type", string(t.Type)).Msg("system role seeded")
		}
	}
	return nil
}

// manageable loads role id for an edit by actor: only roles of the actor's
// own company, and never administrative ones, unless actor is a platform
// admin.
func (s *RoleService) manageable(ctx context.Context, actor *authz.Principal, id string) (*domain.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireRoleGrant(role)(actor); err != nil {
		return nil, err
	}
	if err := authz.RequireTenant(role.CompanyID)(actor); err != nil {
		return nil, domain.Deny(authz.GuardRoleGrant, "Global roles can only be edited by platform admins")
	}
	return role, nil
}

// assignment loads the role and user of a grant or revoke and checks that
// actor may hand out the role to that user.
func (s *RoleService) assignment(ctx context.Context, actor *authz.Principal, roleID, userID string) (*domain.Role, *domain.User, error) {
	role, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.RequireRoleGrant(role)(actor); err != nil {
		return nil, nil, err
	}
	if err := authz.RequireTenant(user.CompanyID)(actor); err != nil {
		return nil, nil, err
	}
	return role, user, nil
}

// requireDelegable denies non platform admins granting a permission they do
// not hold.
func requireDelegable(actor *authz.Principal, perms []string) error {
	if authz.RequireSuperAdmin(actor) == nil {
		return nil
	}
	held := actor.Permissions()
	for _, perm := range perms {
		if _, ok := held[perm]; !ok {
			return domain.Deny(authz.GuardRoleGrant, fmt.Sprintf("Cannot grant permission '%s' you do not hold", perm))
		}
	}
	return nil
}

func (s *RoleService) withUsage(ctx context.Context, role *domain.Role) (*RoleWithUsage, error) {
	n, err := s.users.CountByRole(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	return &RoleWithUsage{Role: role, CurrentUsers: n}, nil
}

func (s *RoleService) record(actor *authz.Principal, action, target string, kv ...string) {
	recordAudit(s.audit, actor, action, target, kv...)
}
