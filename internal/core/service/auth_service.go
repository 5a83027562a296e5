package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
	"github.com/conversia/admin-platform/internal/metrics"
)

const tokenTypeBearer = "bearer"

// AuthService implements registration, login and the session/token lifecycle.
type AuthService struct {
	users     ports.UserRepository
	roles     ports.RoleRepository
	companies ports.CompanyRepository
	resolver  *RoleResolver
	tokens    *TokenService
	sessions  *SessionRegistry
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	companies ports.CompanyRepository,
	resolver *RoleResolver,
	tokens *TokenService,
	sessions *SessionRegistry,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		roles:     roles,
		companies: companies,
		resolver:  resolver,
		tokens:    tokens,
		sessions:  sessions,
		log:       log,
		now:       time.Now,
	}
}

// ---------------------------------------------------------------------------
// Registration and login
// ---------------------------------------------------------------------------

// Register creates an active, non-superuser account holding the system agent
// role (when it has been seeded).
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.UserWithRoles, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" || in.Username == "" {
		return nil, domain.ErrInvalidCredentials
	}

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

	roleIDs := []string{}
	agent, err := s.roles.FindSystemByType(ctx, domain.RoleTypeAgent)
	switch {
	case err == nil:
		roleIDs = append(roleIDs, agent.ID)
	case errors.Is(err, domain.ErrRoleNotFound):
		s.log.Warn().Msg("agent system role missing, registering user without roles")
	default:
		return nil, err
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Email:        email,
		Username:     in.Username,
		FullName:     in.FullName,
		PasswordHash: hash,
		IsActive:     true,
		RoleIDs:      roleIDs,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	roles, err := s.resolver.RolesForUser(ctx, created)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", created.ID).Msg("user registered")
	return &ports.UserWithRoles{User: created, Roles: roles}, nil
}

// Login checks credentials, records last login, opens a session and issues a
// token bound to it. Unknown email and wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !checkPassword(user.PasswordHash, in.Password) {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	if err := authz.RequireActive(&authz.Principal{User: user}); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("inactive").Inc()
		return nil, err
	}

	roles, err := s.resolver.RolesForUser(ctx, user)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	} else {
		user.LastLogin = &now
	}

	sessionID, err := s.sessions.Create(ctx, user.ID, in.IP, in.UserAgent)
	if err != nil {
		return nil, err
	}
	tok, err := s.tokens.IssueForSession(sessionID, user.ID, user.Email, authz.RoleNames(roles))
	if err == nil {
		err = s.sessions.BindToken(ctx, sessionID, tok.ID, tok.ExpiresAt)
	}
	if err != nil {
		if ierr := s.sessions.Invalidate(ctx, sessionID); ierr != nil {
			s.log.Warn().Err(ierr).Str("session_id", sessionID).Msg("failed to close orphan session")
		}
		return nil, fmt.Errorf("issue token: %w", err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", user.ID).Str("ip", in.IP).Msg("user logged in")
	return &ports.LoginResult{
		TokenResult: tokenResult(tok, sessionID),
		User:        user,
	}, nil
}

// ---------------------------------------------------------------------------
// Request authentication
// ---------------------------------------------------------------------------

// Authenticate verifies token, loads its subject and resolves roles, in
// that order.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*authz.Principal, error) {
	data, ok := s.tokens.Verify(ctx, token)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}

	user, err := s.users.FindByID(ctx, data.SubjectID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}

	p := &authz.Principal{
		User:           user,
		TokenID:        data.TokenID,
		TokenExpiresAt: data.ExpiresAt,
		SessionID:      data.SessionID,
	}
	if err := authz.RequireActive(p); err != nil {
		return nil, err
	}

	roles, err := s.resolver.RolesForUser(ctx, user)
	if err != nil {
		return nil, err
	}
	p.Roles = roles
	return p, nil
}

// ---------------------------------------------------------------------------
// Session and token lifecycle
// ---------------------------------------------------------------------------

// Logout closes sessionID, or the token's own session when none is given,
// and revokes the caller's token. A session of another user is denied.
func (s *AuthService) Logout(ctx context.Context, p *authz.Principal, sessionID string) error {
	if sessionID == "" {
		sessionID = p.SessionID
	}
	if sessionID != "" {
		sess, err := s.sessions.Lookup(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess != nil {
			if sess.UserID != p.UserID() {
				return domain.Deny("session_owner", "Session belongs to another user")
			}
			if err := s.sessions.Invalidate(ctx, sessionID); err != nil {
				return err
			}
		}
	}
	if err := s.tokens.Revoke(ctx, p.TokenID, p.TokenExpiresAt); err != nil {
		s.log.Warn().Err(err).Str("user_id", p.UserID()).Msg("failed to revoke token on logout")
	}
	return nil
}

// LogoutAll closes every session of the caller and revokes the tokens issued
// with them. It returns the number of sessions closed.
func (s *AuthService) LogoutAll(ctx context.Context, p *authz.Principal) (int, error) {
	closed, err := s.revokeEverything(ctx, p.UserID())
	if err != nil {
		return 0, err
	}
	if err := s.tokens.Revoke(ctx, p.TokenID, p.TokenExpiresAt); err != nil {
		s.log.Warn().Err(err).Str("user_id", p.UserID()).Msg("failed to revoke current token")
	}
	return closed, nil
}

// ChangePassword replaces the caller's password after checking the current
// one, then signs the user out everywhere.
func (s *AuthService) ChangePassword(ctx context.Context, p *authz.Principal, current, next string) error {
	user, err := s.users.FindByID(ctx, p.UserID())
	if err != nil {
		return err
	}
	if !checkPassword(user.PasswordHash, current) {
		return domain.ErrWrongPassword
	}

	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	if _, err := s.LogoutAll(ctx, p); err != nil {
		return err
	}
	s.log.Info().Str("user_id", user.ID).Msg("password changed, sessions invalidated")
	return nil
}

// RefreshToken issues a new token for the caller's session and revokes the
// old one. The session is rebound to the new token, so signing out that
// session (or everywhere) also revokes it. Tokens without a live session
// cannot be refreshed.
func (s *AuthService) RefreshToken(ctx context.Context, p *authz.Principal) (*ports.TokenResult, error) {
	if p.SessionID == "" {
		return nil, domain.ErrUnauthenticated
	}
	tok, err := s.tokens.IssueForSession(p.SessionID, p.User.ID, p.User.Email, p.RoleNames())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	if err := s.sessions.BindToken(ctx, p.SessionID, tok.ID, tok.ExpiresAt); err != nil {
		return nil, err
	}
	if err := s.tokens.Revoke(ctx, p.TokenID, p.TokenExpiresAt); err != nil {
		s.log.Warn().Err(err).Str("user_id", p.UserID()).Msg("failed to revoke refreshed token")
	}
	res := tokenResult(tok, p.SessionID)
	return &res, nil
}

// VerifyToken reports whether token is currently acceptable.
func (s *AuthService) VerifyToken(ctx context.Context, token string) ports.VerifyResult {
	data, ok := s.tokens.Verify(ctx, token)
	if !ok {
		return ports.VerifyResult{Valid: false}
	}
	return ports.VerifyResult{Valid: true, UserID: data.SubjectID, Email: data.Email}
}

func (s *AuthService) revokeEverything(ctx context.Context, userID string) (int, error) {
	open, err := s.sessions.InvalidateAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, sess := range open {
		if err := s.tokens.Revoke(ctx, sess.TokenID, sess.TokenExpiresAt); err != nil {
			s.log.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to revoke session token")
		}
	}
	return len(open), nil
}

// ---------------------------------------------------------------------------
// Profile
// ---------------------------------------------------------------------------

// Me returns the caller's profile. Company name and session count load
// concurrently.
func (s *AuthService) Me(ctx context.Context, p *authz.Principal) (*ports.Profile, error) {
	profile := &ports.Profile{
		UserWithRoles: ports.UserWithRoles{User: p.User, Roles: p.Roles},
		Permissions:   p.PermissionList(),
	}

	g, gctx := errgroup.WithContext(ctx)
	if p.User.CompanyID != "" {
		g.Go(func() error {
			company, err := s.companies.FindByID(gctx, p.User.CompanyID)
			if err != nil {
				if errors.Is(err, domain.ErrCompanyNotFound) || errors.Is(err, domain.ErrInvalidID) {
					return nil
				}
				return err
			}
			profile.CompanyName = company.Name
			return nil
		})
	}
	g.Go(func() error {
		n, err := s.sessions.ActiveCount(gctx, p.User.ID)
		if err != nil {
			return err
		}
		profile.ActiveSessions = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateProfile edits the caller's own name, username or email.
func (s *AuthService) UpdateProfile(ctx context.Context, p *authz.Principal, upd domain.ProfileUpdate) (*ports.UserWithRoles, error) {
	if upd.Empty() {
		return nil, domain.ErrNoFieldsToUpdate
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		upd.Email = &email
	}

	if err := ensureUnique(ctx, s.users, upd.Email, upd.Username, p.UserID()); err != nil {
		return nil, err
	}

	updated, err := s.users.UpdateProfile(ctx, p.UserID(), upd)
	if err != nil {
		return nil, err
	}
	return &ports.UserWithRoles{User: updated, Roles: p.Roles}, nil
}

// Permissions lists the caller's effective permissions.
func (s *AuthService) Permissions(p *authz.Principal) ports.PermissionsView {
	return ports.PermissionsView{
		UserID:      p.UserID(),
		Permissions: p.PermissionList(),
		Roles:       p.Roles,
	}
}

func tokenResult(tok IssuedToken, sessionID string) ports.TokenResult {
	return ports.TokenResult{
		AccessToken: tok.Token,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   tok.ExpiresIn,
		ExpiresAt:   tok.ExpiresAt,
		SessionID:   sessionID,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
