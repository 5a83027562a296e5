package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/service"
)

type companyService interface {
	Create(ctx context.Context, actor *authz.Principal, c *domain.Company) (*service.CompanyView, error)
	Get(ctx context.Context, id string) (*service.CompanyView, error)
	List(ctx context.Context, status string, page domain.Page) ([]*service.CompanyView, int64, error)
	Update(ctx context.Context, actor *authz.Principal, id string, upd domain.CompanyUpdate) (*service.CompanyView, error)
	Delete(ctx context.Context, actor *authz.Principal, id string) error
	CheckLimit(ctx context.Context, companyID string, resource domain.ResourceType) (*domain.LimitStatus, error)
}

// CompanyHandler serves /companies.
type CompanyHandler struct {
	companies companyService
}

func NewCompanyHandler(companies companyService) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

type settingsRequest struct {
	MaxBrands             int `json:"max_brands"               validate:"gte=0"`
	MaxAgents             int `json:"max_agents"               validate:"gte=0"`
	MaxUsers              int `json:"max_users"                validate:"gte=0"`
	MaxKnowledgeBaseItems int `json:"max_knowledge_base_items" validate:"gte=0"`
	StorageQuotaGB        int `json:"storage_quota_gb"         validate:"gte=0"`
	APIRateLimit          int `json:"api_rate_limit"           validate:"gte=0"`
}

func (s *settingsRequest) toDomain() *domain.CompanySettings {
	if s == nil {
		return nil
	}
	return &domain.CompanySettings{
		MaxBrands:             s.MaxBrands,
		MaxAgents:             s.MaxAgents,
		MaxUsers:              s.MaxUsers,
		MaxKnowledgeBaseItems: s.MaxKnowledgeBaseItems,
		StorageQuotaGB:        s.StorageQuotaGB,
		APIRateLimit:          s.APIRateLimit,
	}
}

type createCompanyRequest struct {
	Name         string           `json:"name"          validate:"required,max=100"`
	Domain       string           `json:"domain"        validate:"omitempty,fqdn"`
	Industry     string           `json:"industry"      validate:"max=100"`
	ContactEmail string           `json:"contact_email" validate:"required,email"`
	Plan         string           `json:"plan"          validate:"omitempty,oneof=starter professional enterprise custom"`
	Status       string           `json:"status"        validate:"omitempty,oneof=active suspended trial expired"`
	Settings     *settingsRequest `json:"settings"`
	Description  string           `json:"description"   validate:"max=500"`
}

type updateCompanyRequest struct {
	Name         *string          `json:"name"          validate:"omitempty,max=100"`
	Domain       *string          `json:"domain"        validate:"omitempty,fqdn"`
	Industry     *string          `json:"industry"      validate:"omitempty,max=100"`
	ContactEmail *string          `json:"contact_email" validate:"omitempty,email"`
	Plan         *string          `json:"plan"          validate:"omitempty,oneof=starter professional enterprise custom"`
	Status       *string          `json:"status"        validate:"omitempty,oneof=active suspended trial expired"`
	Settings     *settingsRequest `json:"settings"`
	Description  *string          `json:"description"   validate:"omitempty,max=500"`
}

type companyResponse struct {
	*domain.Company
	service.CompanyTotals
}

func toCompanyResponse(v *service.CompanyView) companyResponse {
	return companyResponse{Company: v.Company, CompanyTotals: v.Totals}
}

// List pages through companies.
//
// @Summary      List companies
// @Tags         companies
// @Produce      json
// @Security     BearerAuth
// @Param        status     query     string  false  "Status filter"
// @Param        page       query     int     false  "Page number"
// @Param        page_size  query     int     false  "Page size (max 100)"
// @Success      200        {object}  pageResponse[companyResponse]
// @Router       /companies [get]
func (h *CompanyHandler) List(c echo.Context) error {
	page := pageParams(c)
	views, total, err := h.companies.List(c.Request().Context(), c.QueryParam("status"), page)
	if err != nil {
		return err
	}
	out := make([]companyResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toCompanyResponse(v))
	}
	return c.JSON(http.StatusOK, newPage(out, total, page))
}

// Get returns one company with its resource totals.
//
// @Summary      Get company
// @Tags         companies
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Company id"
// @Success      200  {object}  companyResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /companies/{id} [get]
func (h *CompanyHandler) Get(c echo.Context) error {
	v, err := h.companies.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCompanyResponse(v))
}

// Create adds a tenant. Missing settings default to the starter plan.
//
// @Summary      Create company
// @Tags         companies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createCompanyRequest  true  "Company"
// @Success      201   {object}  companyResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /companies [post]
func (h *CompanyHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createCompanyRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	company := &domain.Company{
		Name:         req.Name,
		Domain:       req.Domain,
		Industry:     req.Industry,
		ContactEmail: req.ContactEmail,
		Plan:         domain.CompanyPlan(req.Plan),
		Status:       domain.CompanyStatus(req.Status),
		Description:  req.Description,
	}
	if s := req.Settings.toDomain(); s != nil {
		company.Settings = *s
	}

	v, err := h.companies.Create(c.Request().Context(), p, company)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCompanyResponse(v))
}

// Update edits a company.
//
// @Summary      Update company
// @Tags         companies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "Company id"
// @Param        body  body      updateCompanyRequest  true  "Fields to change"
// @Success      200   {object}  companyResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /companies/{id} [put]
func (h *CompanyHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateCompanyRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	upd := domain.CompanyUpdate{
		Name:         req.Name,
		Domain:       req.Domain,
		Industry:     req.Industry,
		ContactEmail: req.ContactEmail,
		Settings:     req.Settings.toDomain(),
		Description:  req.Description,
	}
	if req.Plan != nil {
		plan := domain.CompanyPlan(*req.Plan)
		upd.Plan = &plan
	}
	if req.Status != nil {
		status := domain.CompanyStatus(*req.Status)
		upd.Status = &status
	}

	v, err := h.companies.Update(c.Request().Context(), p, c.Param("id"), upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCompanyResponse(v))
}

// Delete removes a company that owns no brands.
//
// @Summary      Delete company
// @Tags         companies
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Company id"
// @Success      200  {object}  messageResponse
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /companies/{id} [delete]
func (h *CompanyHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.companies.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Company deleted successfully")
}

// Limits reports whether the company is at its limit for a resource type.
//
// @Summary      Check company resource limit
// @Tags         companies
// @Produce      json
// @Security     BearerAuth
// @Param        id             path      string  true  "Company id"
// @Param        resource_type  query     string  true  "brands, agents, users or knowledge_items"
// @Success      200            {object}  domain.LimitStatus
// @Failure      400            {object}  map[string]string
// @Failure      404            {object}  map[string]string
// @Router       /companies/{id}/limits [get]
func (h *CompanyHandler) Limits(c echo.Context) error {
	resource, err := domain.ParseResourceType(c.QueryParam("resource_type"))
	if err != nil {
		return err
	}
	status, err := h.companies.CheckLimit(c.Request().Context(), c.Param("id"), resource)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}
