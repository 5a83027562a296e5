package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

// AdminUserInput describes a user created by a platform administrator.
type AdminUserInput struct {
	Email     string
	Password  string
	FullName  string
	Username  string
	CompanyID string
	RoleType  domain.RoleType
	IsActive  bool
}

// CompanyAssignment is the outcome of attaching a user to a company.
type CompanyAssignment struct {
	UserID      string
	CompanyID   string
	CompanyName string
}

// AdminService runs privileged user and company assignment flows. Callers
// are expected to have passed the relevant guard already.
type AdminService struct {
	users     ports.UserRepository
	roles     ports.RoleRepository
	companies *CompanyService
	resolver  *RoleResolver
	audit     ports.Auditor
	log       zerolog.Logger
}

func NewAdminService(users ports.UserRepository, roles ports.RoleRepository, companies *CompanyService, resolver *RoleResolver, audit ports.Auditor, log zerolog.Logger) *AdminService {
	return &AdminService{users: users, roles: roles, companies: companies, resolver: resolver, audit: audit, log: log}
}

// CreateCompanyAdmin creates a user holding the system role of in.RoleType
// (company_admin by default), optionally attached to a company. The company
// must exist and have room for another user.
func (s *AdminService) CreateCompanyAdmin(ctx context.Context, actor *authz.Principal, in AdminUserInput) (*ports.UserWithRoles, error) {
	if in.RoleType == "" {
		in.RoleType = domain.RoleTypeCompanyAdmin
	}
	if in.CompanyID != "" {
		if _, err := s.companies.Get(ctx, in.CompanyID); err != nil {
			return nil, err
		}
		if err := s.companies.EnsureCapacity(ctx, in.CompanyID, domain.ResourceUsers); err != nil {
			return nil, err
		}
	}

	role, err := s.roles.FindSystemByType(ctx, in.RoleType)
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			return nil, fmt.Errorf("role type '%s' not found: %w", in.RoleType, domain.ErrRoleNotFound)
		}
		return nil, err
	}

	created, err := s.createUser(ctx, in, role, actor.UserID())
	if err != nil {
		return nil, err
	}
	recordAudit(s.audit, actor, "admin.create_user", created.User.ID,
		"role_type", string(in.RoleType), "company_id", in.CompanyID)
	return created, nil
}

// CreateSuperAdmin bootstraps the first superuser. It refuses once any
// superuser exists.
func (s *AdminService) CreateSuperAdmin(ctx context.Context, in ports.RegisterInput) (*ports.UserWithRoles, error) {
	n, err := s.users.CountSuperusers(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, domain.ErrSuperAdminExists
	}

	role, err := s.roles.FindSystemByType(ctx, domain.RoleTypeSuperAdmin)
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			return nil, fmt.Errorf("super admin role not seeded: %w", err)
		}
		return nil, err
	}

	created, err := s.createUser(ctx, AdminUserInput{
		Email:    in.Email,
		Password: in.Password,
		FullName: in.FullName,
		Username: in.Username,
		RoleType: domain.RoleTypeSuperAdmin,
		IsActive: true,
	}, role, "system")
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", created.User.ID).Msg("super admin created")
	return created, nil
}

// AssignUserToCompany moves userID into companyID.
func (s *AdminService) AssignUserToCompany(ctx context.Context, actor *authz.Principal, userID, companyID string) (*CompanyAssignment, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	company, err := s.companies.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetCompany(ctx, userID, companyID, actor.UserID()); err != nil {
		return nil, err
	}
	recordAudit(s.audit, actor, "admin.assign_company", userID, "company_id", companyID)
	return &CompanyAssignment{UserID: userID, CompanyID: companyID, CompanyName: company.Name}, nil
}

// UsersByCompany lists the users of companyID with their roles.
func (s *AdminService) UsersByCompany(ctx context.Context, companyID string) ([]*ports.UserWithRoles, error) {
	users, err := s.users.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]*ports.UserWithRoles, 0, len(users))
	for _, u := range users {
		roles, err := s.resolver.RolesForUser(ctx, u)
		if err != nil {
			return nil, err
		}
		out = append(out, &ports.UserWithRoles{User: u, Roles: roles})
	}
	return out, nil
}

func (s *AdminService) createUser(ctx context.Context, in AdminUserInput, role *domain.Role, createdBy string) (*ports.UserWithRoles, error) {
	email := normalizeEmail(in.Email)
	exists, err := s.users.ExistsByEmailOrUsername(ctx, email, in.Username, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrUserExists
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
		IsSuperuser:  in.RoleType == domain.RoleTypeSuperAdmin,
		RoleIDs:      []string{role.ID},
		CompanyID:    in.CompanyID,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    createdBy,
	})
	if err != nil {
		return nil, err
	}
	roles, err := s.resolver.RolesForUser(ctx, created)
	if err != nil {
		return nil, err
	}
	return &ports.UserWithRoles{User: created, Roles: roles}, nil
}
