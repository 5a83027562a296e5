package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
	"github.com/conversia/admin-platform/internal/core/service"
)

type userService interface {
	List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error)
	Get(ctx context.Context, actor *authz.Principal, id string) (*ports.UserWithRoles, error)
	Create(ctx context.Context, actor *authz.Principal, in service.UserInput) (*ports.UserWithRoles, error)
	Update(ctx context.Context, actor *authz.Principal, id string, upd domain.UserUpdate) (*ports.UserWithRoles, error)
	Delete(ctx context.Context, actor *authz.Principal, id string) error
}

// UserHandler serves /users.
type UserHandler struct {
	users userService
}

func NewUserHandler(users userService) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	Email     string   `json:"email"      validate:"required,email"`
	Password  string   `json:"password"   validate:"required,min=8"`
	FullName  string   `json:"full_name"  validate:"required,max=100"`
	Username  string   `json:"username"   validate:"required,min=3,max=50"`
	CompanyID string   `json:"company_id"`
	RoleIDs   []string `json:"role_ids"`
	IsActive  *bool    `json:"is_active"`
}

type updateUserRequest struct {
	Email    *string `json:"email"     validate:"omitempty,email"`
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=100"`
	Username *string `json:"username"  validate:"omitempty,min=3,max=50"`
	IsActive *bool   `json:"is_active"`
}

// List returns the users of a company.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        company_id  query     string  false  "Company id; defaults to the caller's company"
// @Param        role_id     query     string  false  "Only holders of this role"
// @Param        is_active   query     bool    false  "Filter by active flag"
// @Param        search      query     string  false  "Matches email, username or full name"
// @Param        page        query     int     false  "Page number"
// @Param        page_size   query     int     false  "Page size (max 100)"
// @Success      200         {object}  pageResponse[userResponse]
// @Failure      400         {object}  map[string]string
// @Failure      403         {object}  map[string]string
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	companyID, err := tenantScope(p, c.QueryParam("company_id"))
	if err != nil {
		return err
	}
	active, err := boolParam(c, "is_active")
	if err != nil {
		return err
	}

	page := pageParams(c)
	users, total, err := h.users.List(c.Request().Context(), domain.UserFilter{
		CompanyID: companyID,
		RoleID:    c.QueryParam("role_id"),
		IsActive:  active,
		Search:    c.QueryParam("search"),
		Page:      page,
	})
	if err != nil {
		return err
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(&ports.UserWithRoles{User: u}))
	}
	return c.JSON(http.StatusOK, newPage(out, total, page))
}

// Get returns one user with roles.
//
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  userResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	u, err := h.users.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

// Create adds a user within the company's user quota.
//
// @Summary      Create user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "User"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	companyID, err := tenantScope(p, req.CompanyID)
	if err != nil {
		return err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	u, err := h.users.Create(c.Request().Context(), p, service.UserInput{
		Email:     req.Email,
		Password:  req.Password,
		FullName:  req.FullName,
		Username:  req.Username,
		CompanyID: companyID,
		RoleIDs:   req.RoleIDs,
		IsActive:  active,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toUserResponse(u))
}

// Update edits another user.
//
// @Summary      Update user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User id"
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.users.Update(c.Request().Context(), p, c.Param("id"), domain.UserUpdate{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

// Delete removes a user and closes their sessions.
//
// @Summary      Delete user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return message(c, http.StatusOK, "User deleted successfully")
}
