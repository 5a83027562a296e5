package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

const guardSelf = "require_other_user"

// UserInput describes an account created by an administrator.
type UserInput struct {
	Email     string
	Password  string
	FullName  string
	Username  string
	CompanyID string
	// RoleIDs defaults to the system agent role when empty.
	RoleIDs  []string
	IsActive bool
}

// sessionCloser ends every session of a user.
type sessionCloser interface {
	InvalidateAll(ctx context.Context, userID string) ([]*domain.Session, error)
}

// UserService is the tenant-scoped user directory administrators manage.
// Every by-id operation is limited to users of the actor's company.
type UserService struct {
	users     ports.UserRepository
	roles     ports.RoleRepository
	companies *CompanyService
	resolver  *RoleResolver
	sessions  sessionCloser
	audit     ports.Auditor
	log       zerolog.Logger
}

func NewUserService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	companies *CompanyService,
	resolver *RoleResolver,
	sessions sessionCloser,
	audit ports.Auditor,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		roles:     roles,
		companies: companies,
		resolver:  resolver,
		sessions:  sessions,
		audit:     audit,
		log:       log,
	}
}

func (s *UserService) List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error) {
	filter.Page = filter.Page.Normalize()
	return s.users.List(ctx, filter)
}

// Get returns user id with its roles.
func (s *UserService) Get(ctx context.Context, actor *authz.Principal, id string) (*ports.UserWithRoles, error) {
	u, err := loadOwned(ctx, actor, id, s.users.FindByID)
	if err != nil {
		return nil, err
	}
	return s.withRoles(ctx, u)
}

// Create adds an account to in.CompanyID within the company's user quota.
// Every role handed out must pass RequireRoleGrant for actor and belong to
// the same company, or be global.
func (s *UserService) Create(ctx context.Context, actor *authz.Principal, in UserInput) (*ports.UserWithRoles, error) {
	if err := authz.RequireTenant(in.CompanyID)(actor); err != nil {
		return nil, err
	}
	if in.CompanyID != "" {
		if _, err := s.companies.Get(ctx, in.CompanyID); err != nil {
			return nil, err
		}
		if err := s.companies.EnsureCapacity(ctx, in.CompanyID, domain.ResourceUsers); err != nil {
			return nil, err
		}
	}

	roleIDs, err := s.grantableRoles(ctx, actor, in.CompanyID, in.RoleIDs)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(in.Email)
	if err := ensureUnique(ctx, s.users, &email, &in.Username, ""); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Email:        email,
		Username:     in.Username,
		FullName:     in.FullName,
		PasswordHash: hash,
		IsActive:     in.IsActive,
		RoleIDs:      roleIDs,
		CompanyID:    in.CompanyID,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    actor.UserID(),
	})
	if err != nil {
		return nil, err
	}
	recordAudit(s.audit, actor, "user.create", created.ID, "company_id", in.CompanyID)
	return s.withRoles(ctx, created)
}

// Update edits another user's profile or active flag. Deactivating a user
// closes all of their sessions.
func (s *UserService) Update(ctx context.Context, actor *authz.Principal, id string, upd domain.UserUpdate) (*ports.UserWithRoles, error) {
	if upd.Empty() {
		return nil, domain.ErrNoFieldsToUpdate
	}
	if _, err := s.editable(ctx, actor, id); err != nil {
		return nil, err
	}
	if upd.IsActive != nil && !*upd.IsActive && id == actor.UserID() {
		return nil, domain.Deny(guardSelf, "You cannot deactivate your own account")
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		upd.Email = &email
	}
	if err := ensureUnique(ctx, s.users, upd.Email, upd.Username, id); err != nil {
		return nil, err
	}

	updated, err := s.users.Update(ctx, id, upd, actor.UserID())
	if err != nil {
		return nil, err
	}
	if !updated.IsActive {
		s.closeSessions(ctx, id)
	}
	recordAudit(s.audit, actor, "user.update", id)
	return s.withRoles(ctx, updated)
}

// Delete removes another user and closes their sessions.
func (s *UserService) Delete(ctx context.Context, actor *authz.Principal, id string) error {
	if id == actor.UserID() {
		return domain.Deny(guardSelf, "You cannot delete your own account")
	}
	if _, err := s.editable(ctx, actor, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.closeSessions(ctx, id)
	recordAudit(s.audit, actor, "user.delete", id)
	return nil
}

// editable loads user id for a change by actor. Platform accounts are only
// editable by platform admins.
func (s *UserService) editable(ctx context.Context, actor *authz.Principal, id string) (*domain.User, error) {
	u, err := loadOwned(ctx, actor, id, s.users.FindByID)
	if err != nil {
		return nil, err
	}
	if u.IsSuperuser {
		if err := authz.RequireSuperAdmin(actor); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// grantableRoles resolves the roles a new user of companyID starts with.
func (s *UserService) grantableRoles(ctx context.Context, actor *authz.Principal, companyID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		agent, err := s.roles.FindSystemByType(ctx, domain.RoleTypeAgent)
		if err != nil {
			return nil, err
		}
		return []string{agent.ID}, nil
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		role, err := s.roles.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := authz.RequireRoleGrant(role)(actor); err != nil {
			return nil, err
		}
		if role.CompanyID != "" && role.CompanyID != companyID {
			return nil, domain.Deny(authz.GuardRoleGrant, "Role "+role.Name+" belongs to another company")
		}
		out = append(out, role.ID)
	}
	return out, nil
}

func (s *UserService) closeSessions(ctx context.Context, userID string) {
	if _, err := s.sessions.InvalidateAll(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to close sessions")
	}
}

func (s *UserService) withRoles(ctx context.Context, u *domain.User) (*ports.UserWithRoles, error) {
	roles, err := s.resolver.RolesForUser(ctx, u)
	if err != nil {
		return nil, err
	}
	return &ports.UserWithRoles{User: u, Roles: roles}, nil
}

// ensureUnique rejects an email or username already taken by a user other
// than excludeID. Nil or empty values are not checked.
func ensureUnique(ctx context.Context, users ports.UserRepository, email, username *string, excludeID string) error {
	var e, u string
	if email != nil {
		e = *email
	}
	if username != nil {
		u = *username
	}
	if e == "" && u == "" {
		return nil
	}
	exists, err := users.ExistsByEmailOrUsername(ctx, e, u, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrUserExists
	}
	return nil
}
