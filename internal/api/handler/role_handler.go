package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
	"github.com/conversia/admin-platform/internal/core/service"
)

type roleService interface {
	Create(ctx context.Context, actor *authz.Principal, role *domain.Role) (*service.RoleWithUsage, error)
	List(ctx context.Context, filter domain.RoleFilter) (*service.RoleList, error)
	Get(ctx context.Context, actor *authz.Principal, id string) (*service.RoleWithUsage, error)
	Update(ctx context.Context, actor *authz.Principal, id string, upd domain.RoleUpdate) (*service.RoleWithUsage, error)
	Delete(ctx context.Context, actor *authz.Principal, id string) error
	AssignUser(ctx context.Context, actor *authz.Principal, roleID, userID string) (bool, error)
	RemoveUser(ctx context.Context, actor *authz.Principal, roleID, userID string) (bool, error)
	Users(ctx context.Context, actor *authz.Principal, roleID string, page domain.Page) ([]*domain.User, int64, error)
	Templates() []service.RoleTemplateSummary
	Permissions() []string
}

// RoleHandler serves /roles.
type RoleHandler struct {
	roles roleService
}

func NewRoleHandler(roles roleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

type createRoleRequest struct {
	Name           string         `json:"name"             validate:"required,min=1,max=50"`
	DisplayName    string         `json:"display_name"     validate:"required,max=100"`
	RoleType       string         `json:"role_type"        validate:"omitempty,oneof=super_admin company_admin brand_admin team_lead agent analyst viewer custom"`
	Scope          string         `json:"scope"            validate:"required,oneof=system company brand team"`
	CompanyID      string         `json:"company_id"`
	Permissions    []string       `json:"permissions"`
	BrandIDs       []string       `json:"brand_ids"`
	TeamIDs        []string       `json:"team_ids"`
	CanBeDelegated bool           `json:"can_be_delegated"`
	MaxUsers       *int           `json:"max_users"        validate:"omitempty,min=1"`
	Description    string         `json:"description"      validate:"max=500"`
	Metadata       map[string]any `json:"metadata"`
}

type updateRoleRequest struct {
	DisplayName    *string        `json:"display_name" validate:"omitempty,max=100"`
	Permissions    *[]string      `json:"permissions"`
	BrandIDs       *[]string      `json:"brand_ids"`
	TeamIDs        *[]string      `json:"team_ids"`
	IsActive       *bool          `json:"is_active"`
	CanBeDelegated *bool          `json:"can_be_delegated"`
	MaxUsers       *int           `json:"max_users"    validate:"omitempty,min=1"`
	Description    *string        `json:"description"  validate:"omitempty,max=500"`
	Metadata       map[string]any `json:"metadata"`
}

type roleListResponse struct {
	Roles      []service.RoleWithUsage `json:"roles"`
	Total      int64                   `json:"total"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"page_size"`
	TotalPages int                     `json:"total_pages"`
}

func checkPermissions(perms []string) error {
	for _, p := range perms {
		if !domain.IsKnownPermission(p) {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown permission %q", p))
		}
	}
	return nil
}

// List pages through roles.
//
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        page        query     int     false  "Page number"
// @Param        page_size   query     int     false  "Page size (max 100)"
// @Param        company_id  query     string  false  "Company filter; system roles are always included. Pinned to the caller's company outside platform admins"
// @Param        scope       query     string  false  "Scope filter"
// @Param        is_active   query     bool    false  "Active filter"
// @Success      200         {object}  roleListResponse
// @Router       /roles [get]
func (h *RoleHandler) List(c echo.Context) error {
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
	list, err := h.roles.List(c.Request().Context(), domain.RoleFilter{
		CompanyID: companyID,
		Scope:     c.QueryParam("scope"),
		IsActive:  active,
		Page:      page.Page,
		PageSize:  page.PageSize,
	})
	if err != nil {
		return err
	}
	roles := list.Roles
	if roles == nil {
		roles = []service.RoleWithUsage{}
	}
	return c.JSON(http.StatusOK, roleListResponse{
		Roles:      roles,
		Total:      list.Total,
		Page:       list.Page,
		PageSize:   list.PageSize,
		TotalPages: list.TotalPages,
	})
}

// Templates lists the built-in role templates.
//
// @Summary      Role templates
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  service.RoleTemplateSummary
// @Router       /roles/templates [get]
func (h *RoleHandler) Templates(c echo.Context) error {
	return c.JSON(http.StatusOK, h.roles.Templates())
}

// Permissions lists every grantable permission.
//
// @Summary      Available permissions
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string][]string
// @Router       /roles/permissions [get]
func (h *RoleHandler) Permissions(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"permissions": h.roles.Permissions()})
}

// Get returns one role.
//
// @Summary      Get role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Role id"
// @Success      200  {object}  service.RoleWithUsage
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /roles/{id} [get]
func (h *RoleHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	role, err := h.roles.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, role)
}

// Create adds a custom role.
//
// @Summary      Create role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createRoleRequest  true  "Role"
// @Success      201   {object}  service.RoleWithUsage
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /roles [post]
func (h *RoleHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := checkPermissions(req.Permissions); err != nil {
		return err
	}
	perms := req.Permissions
	if perms == nil {
		perms = []string{}
	}

	role, err := h.roles.Create(c.Request().Context(), p, &domain.Role{
		CompanyID:      req.CompanyID,
		Name:           req.Name,
		DisplayName:    req.DisplayName,
		RoleType:       domain.RoleType(req.RoleType),
		Scope:          domain.RoleScope(req.Scope),
		Permissions:    perms,
		BrandIDs:       req.BrandIDs,
		TeamIDs:        req.TeamIDs,
		IsActive:       true,
		CanBeDelegated: req.CanBeDelegated,
		MaxUsers:       req.MaxUsers,
		Description:    req.Description,
		Metadata:       req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, role)
}

// Update edits a role. System roles accept is_active, description and
// metadata only.
//
// @Summary      Update role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Role id"
// @Param        body  body      updateRoleRequest  true  "Fields to change"
// @Success      200   {object}  service.RoleWithUsage
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /roles/{id} [put]
func (h *RoleHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Permissions != nil {
		if err := checkPermissions(*req.Permissions); err != nil {
			return err
		}
	}

	role, err := h.roles.Update(c.Request().Context(), p, c.Param("id"), domain.RoleUpdate{
		DisplayName:    req.DisplayName,
		Permissions:    req.Permissions,
		BrandIDs:       req.BrandIDs,
		TeamIDs:        req.TeamIDs,
		IsActive:       req.IsActive,
		CanBeDelegated: req.CanBeDelegated,
		MaxUsers:       req.MaxUsers,
		Description:    req.Description,
		Metadata:       req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, role)
}

// Delete removes a custom role nobody holds.
//
// @Summary      Delete role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Role id"
// @Success      200  {object}  messageResponse
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /roles/{id} [delete]
func (h *RoleHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.roles.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Role deleted successfully")
}

// AssignUser grants the role to a user.
//
// @Summary      Assign role to user
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Role id"
// @Param        user_id  path      string  true  "User id"
// @Success      200      {object}  messageResponse
// @Failure      400      {object}  map[string]string
// @Failure      403      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /roles/{id}/assign-user/{user_id} [post]
func (h *RoleHandler) AssignUser(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	changed, err := h.roles.AssignUser(c.Request().Context(), p, c.Param("id"), c.Param("user_id"))
	if err != nil {
		return err
	}
	if !changed {
		return message(c, http.StatusOK, "User already has this role")
	}
	return message(c, http.StatusOK, "Role assigned successfully")
}

// RemoveUser revokes the role from a user.
//
// @Summary      Remove role from user
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Role id"
// @Param        user_id  path      string  true  "User id"
// @Success      200      {object}  messageResponse
// @Failure      404      {object}  map[string]string
// @Router       /roles/{id}/remove-user/{user_id} [delete]
func (h *RoleHandler) RemoveUser(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	changed, err := h.roles.RemoveUser(c.Request().Context(), p, c.Param("id"), c.Param("user_id"))
	if err != nil {
		return err
	}
	if !changed {
		return message(c, http.StatusOK, "User does not have this role")
	}
	return message(c, http.StatusOK, "Role removed successfully")
}

// Users lists the holders of a role.
//
// @Summary      Users holding a role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id         path      string  true   "Role id"
// @Param        page       query     int     false  "Page number"
// @Param        page_size  query     int     false  "Page size (max 100)"
// @Success      200        {object}  pageResponse[userResponse]
// @Failure      403        {object}  map[string]string
// @Failure      404        {object}  map[string]string
// @Router       /roles/{id}/users [get]
func (h *RoleHandler) Users(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	page := pageParams(c)
	users, total, err := h.roles.Users(c.Request().Context(), p, c.Param("id"), page)
	if err != nil {
		return err
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(&ports.UserWithRoles{User: u}))
	}
	return c.JSON(http.StatusOK, newPage(out, total, page))
}
