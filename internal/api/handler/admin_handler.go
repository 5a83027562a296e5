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

type adminService interface {
	CreateCompanyAdmin(ctx context.Context, actor *authz.Principal, in service.AdminUserInput) (*ports.UserWithRoles, error)
	CreateSuperAdmin(ctx context.Context, in ports.RegisterInput) (*ports.UserWithRoles, error)
	AssignUserToCompany(ctx context.Context, actor *authz.Principal, userID, companyID string) (*service.CompanyAssignment, error)
	UsersByCompany(ctx context.Context, companyID string) ([]*ports.UserWithRoles, error)
}

type auditReader interface {
	List(ctx context.Context, page domain.Page) ([]*domain.AuditEvent, int64, error)
}

// AdminHandler serves /admin.
type AdminHandler struct {
	admin adminService
	audit auditReader
}

func NewAdminHandler(admin adminService, audit auditReader) *AdminHandler {
	return &AdminHandler{admin: admin, audit: audit}
}

type createCompanyAdminRequest struct {
	Email     string `json:"email"      validate:"required,email"`
	Password  string `json:"password"   validate:"required,min=8"`
	FullName  string `json:"full_name"  validate:"required,max=100"`
	Username  string `json:"username"   validate:"required,min=3,max=50"`
	CompanyID string `json:"company_id"`
	RoleType  string `json:"role_type"  validate:"omitempty,oneof=super_admin company_admin brand_admin team_lead agent analyst viewer"`
	IsActive  *bool  `json:"is_active"`
}

type assignmentResponse struct {
	Message     string `json:"message"`
	UserID      string `json:"user_id"`
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name"`
}

type companyUsersResponse struct {
	CompanyID string         `json:"company_id"`
	Users     []userResponse `json:"users"`
	Total     int            `json:"total"`
}

// CreateCompanyAdmin creates a user holding a system role, usually
// company_admin, inside a company.
//
// @Summary      Create company admin
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createCompanyAdminRequest  true  "User"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /admin/create-company-admin [post]
func (h *AdminHandler) CreateCompanyAdmin(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createCompanyAdminRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	user, err := h.admin.CreateCompanyAdmin(c.Request().Context(), p, service.AdminUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FullName:  req.FullName,
		Username:  req.Username,
		CompanyID: req.CompanyID,
		RoleType:  domain.RoleType(req.RoleType),
		IsActive:  active,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// CreateSuperAdmin bootstraps the first platform administrator. It is
// refused once any superuser exists.
//
// @Summary      Bootstrap super admin
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /admin/create-super-admin [post]
func (h *AdminHandler) CreateSuperAdmin(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.admin.CreateSuperAdmin(c.Request().Context(), ports.RegisterInput{
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

// AssignUserToCompany moves a user into a company.
//
// @Summary      Assign user to company
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        user_id     path      string  true  "User id"
// @Param        company_id  path      string  true  "Company id"
// @Success      200         {object}  assignmentResponse
// @Failure      403         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Router       /admin/assign-user-to-company/{user_id}/{company_id} [post]
func (h *AdminHandler) AssignUserToCompany(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	res, err := h.admin.AssignUserToCompany(c.Request().Context(), p, c.Param("user_id"), c.Param("company_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, assignmentResponse{
		Message:     "User assigned to company " + res.CompanyName,
		UserID:      res.UserID,
		CompanyID:   res.CompanyID,
		CompanyName: res.CompanyName,
	})
}

// UsersByCompany lists the users of a company with their roles.
//
// @Summary      List users of a company
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        company_id  path      string  true  "Company id"
// @Success      200         {object}  companyUsersResponse
// @Failure      403         {object}  map[string]string
// @Router       /admin/users-by-company/{company_id} [get]
func (h *AdminHandler) UsersByCompany(c echo.Context) error {
	companyID := c.Param("company_id")
	users, err := h.admin.UsersByCompany(c.Request().Context(), companyID)
	if err != nil {
		return err
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return c.JSON(http.StatusOK, companyUsersResponse{CompanyID: companyID, Users: out, Total: len(out)})
}

// AuditLogs pages through the audit trail, newest first.
//
// @Summary      Audit trail
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        page       query     int  false  "Page number"
// @Param        page_size  query     int  false  "Page size (max 100)"
// @Success      200        {object}  pageResponse[domain.AuditEvent]
// @Failure      403        {object}  map[string]string
// @Router       /admin/audit-logs [get]
func (h *AdminHandler) AuditLogs(c echo.Context) error {
	page := pageParams(c)
	events, total, err := h.audit.List(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPage(events, total, page))
}
