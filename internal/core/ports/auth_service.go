package ports

import (
	"context"
	"time"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
)

type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Username string
}

type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

// TokenResult is what clients receive after login or refresh.
type TokenResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int
	ExpiresAt   time.Time
	SessionID   string
}

type LoginResult struct {
	TokenResult
	User *domain.User
}

// UserWithRoles is a user plus its resolved roles.
type UserWithRoles struct {
	User  *domain.User
	Roles []*domain.Role
}

// Profile is the /auth/me view.
type Profile struct {
	UserWithRoles
	CompanyName    string
	Permissions    []string
	ActiveSessions int64
}

type VerifyResult struct {
	Valid  bool
	UserID string
	Email  string
}

type PermissionsView struct {
	UserID      string
	Permissions []string
	Roles       []*domain.Role
}

// AuthService is the authentication surface used by handlers and middleware.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*UserWithRoles, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	// Authenticate turns a bearer token into a principal. Bad tokens and
	// missing users yield domain.ErrUnauthenticated; inactive users a Denial.
	Authenticate(ctx context.Context, token string) (*authz.Principal, error)
	Logout(ctx context.Context, p *authz.Principal, sessionID string) error
	LogoutAll(ctx context.Context, p *authz.Principal) (int, error)
	ChangePassword(ctx context.Context, p *authz.Principal, current, next string) error
	Me(ctx context.Context, p *authz.Principal) (*Profile, error)
	UpdateProfile(ctx context.Context, p *authz.Principal, upd domain.ProfileUpdate) (*UserWithRoles, error)
	RefreshToken(ctx context.Context, p *authz.Principal) (*TokenResult, error)
	VerifyToken(ctx context.Context, token string) VerifyResult
	Permissions(p *authz.Principal) PermissionsView
}
