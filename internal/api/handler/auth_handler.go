package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/conversia/admin-platform/internal/api/middleware"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

// HeaderSessionID carries the login session id, both on the login response
// and on logout requests.
const HeaderSessionID = "X-Session-Id"

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request / Response types ---

type registerRequest struct {
	Email    string `json:"email"     validate:"required,email"`
	Password string `json:"password"  validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,max=100"`
	Username string `json:"username"  validate:"required,min=3,max=50"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=100"`
	Username *string `json:"username"  validate:"omitempty,min=3,max=50"`
	Email    *string `json:"email"     validate:"omitempty,email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	SessionID   string `json:"session_id,omitempty"`
}

type roleSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type userResponse struct {
	ID          string        `json:"id"`
	Email       string        `json:"email"`
	Username    string        `json:"username"`
	FullName    string        `json:"full_name"`
	IsActive    bool          `json:"is_active"`
	IsSuperuser bool          `json:"is_superuser"`
	CompanyID   string        `json:"company_id,omitempty"`
	RoleIDs     []string      `json:"role_ids"`
	Roles       []roleSummary `json:"roles"`
	LastLogin   *time.Time    `json:"last_login,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

type profileResponse struct {
	userResponse
	CompanyName    string   `json:"company_name,omitempty"`
	Permissions    []string `json:"permissions"`
	ActiveSessions int64    `json:"active_sessions"`
}

type verifyResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
}

type permissionsResponse struct {
	UserID      string        `json:"user_id"`
	Permissions []string      `json:"permissions"`
	Roles       []roleSummary `json:"roles"`
}

func summarizeRoles(roles []*domain.Role) []roleSummary {
	out := make([]roleSummary, 0, len(roles))
	for _, r := range roles {
		out = append(out, roleSummary{ID: r.ID, Name: r.Name, DisplayName: r.DisplayName})
	}
	return out
}

func toUserResponse(u *ports.UserWithRoles) userResponse {
	roleIDs := u.User.RoleIDs
	if roleIDs == nil {
		roleIDs = []string{}
	}
	return userResponse{
		ID:          u.User.ID,
		Email:       u.User.Email,
		Username:    u.User.Username,
		FullName:    u.User.FullName,
		IsActive:    u.User.IsActive,
		IsSuperuser: u.User.IsSuperuser,
		CompanyID:   u.User.CompanyID,
		RoleIDs:     roleIDs,
		Roles:       summarizeRoles(u.Roles),
		LastLogin:   u.User.LastLogin,
		CreatedAt:   u.User.CreatedAt,
	}
}

func toTokenResponse(t ports.TokenResult) tokenResponse {
	return tokenResponse{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		ExpiresIn:   t.ExpiresIn,
		SessionID:   t.SessionID,
	}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Username: req.Username,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// Login authenticates a user and opens a session.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Header       200   {string}  X-Session-Id  "Session id to send on logout"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return err
	}

	c.Response().Header().Set(HeaderSessionID, res.SessionID)
	return c.JSON(http.StatusOK, toTokenResponse(res.TokenResult))
}

// Logout closes the session named by X-Session-Id and revokes the token.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Param        X-Session-Id  header    string  false  "Session id returned by login"
// @Success      200           {object}  messageResponse
// @Failure      401           {object}  map[string]string
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.authService.Logout(c.Request().Context(), p, c.Request().Header.Get(HeaderSessionID)); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Successfully logged out")
}

// LogoutAll closes every session of the caller.
//
// @Summary      Logout from all sessions
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]any
// @Failure      401  {object}  map[string]string
// @Router       /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	n, err := h.authService.LogoutAll(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":              "Successfully logged out from all sessions",
		"sessions_invalidated": n,
	})
}

// Me returns the caller's profile.
//
// @Summary      Current user profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	profile, err := h.authService.Me(c.Request().Context(), p)
	if err != nil {
		return err
	}
	perms := profile.Permissions
	if perms == nil {
		perms = []string{}
	}
	return c.JSON(http.StatusOK, profileResponse{
		userResponse:   toUserResponse(&profile.UserWithRoles),
		CompanyName:    profile.CompanyName,
		Permissions:    perms,
		ActiveSessions: profile.ActiveSessions,
	})
}

// UpdateMe edits the caller's own profile.
//
// @Summary      Update current user profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/me [put]
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.authService.UpdateProfile(c.Request().Context(), p, domain.ProfileUpdate{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// ChangePassword replaces the caller's password and closes all sessions.
//
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.authService.ChangePassword(c.Request().Context(), p, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Password changed successfully")
}

// RefreshToken issues a new token and revokes the presented one.
//
// @Summary      Refresh access token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  tokenResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/refresh-token [post]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	res, err := h.authService.RefreshToken(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTokenResponse(*res))
}

// VerifyToken reports whether the bearer token is valid. It never fails.
//
// @Summary      Verify access token
// @Tags         auth
// @Produce      json
// @Param        Authorization  header    string  true  "Bearer token"
// @Success      200            {object}  verifyResponse
// @Router       /auth/verify-token [post]
func (h *AuthHandler) VerifyToken(c echo.Context) error {
	res := h.authService.VerifyToken(c.Request().Context(), middleware.BearerToken(c))
	return c.JSON(http.StatusOK, verifyResponse{Valid: res.Valid, UserID: res.UserID, Email: res.Email})
}

// Permissions lists the caller's effective permissions.
//
// @Summary      Current user permissions
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  permissionsResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/permissions [get]
func (h *AuthHandler) Permissions(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	view := h.authService.Permissions(p)
	perms := view.Permissions
	if perms == nil {
		perms = []string{}
	}
	return c.JSON(http.StatusOK, permissionsResponse{
		UserID:      view.UserID,
		Permissions: perms,
		Roles:       summarizeRoles(view.Roles),
	})
}
