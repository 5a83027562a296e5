package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
)

type brandService interface {
	Create(ctx context.Context, actor *authz.Principal, b *domain.Brand) (*domain.Brand, error)
	Get(ctx context.Context, actor *authz.Principal, id string) (*domain.Brand, error)
	ListByCompany(ctx context.Context, companyID string, page domain.Page) ([]*domain.Brand, int64, error)
	Update(ctx context.Context, actor *authz.Principal, id string, upd domain.BrandUpdate) (*domain.Brand, error)
	Delete(ctx context.Context, actor *authz.Principal, id string) error
}

// BrandHandler serves /brands.
type BrandHandler struct {
	brands brandService
}

func NewBrandHandler(brands brandService) *BrandHandler {
	return &BrandHandler{brands: brands}
}

type createBrandRequest struct {
	CompanyID   string `json:"company_id"  validate:"required"`
	Name        string `json:"name"        validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type updateBrandRequest struct {
	Name        *string `json:"name"        validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active"`
}

// List returns the brands of a company.
//
// @Summary      List brands
// @Tags         brands
// @Produce      json
// @Security     BearerAuth
// @Param        company_id  query     string  false  "Company id; defaults to the caller's company"
// @Param        page        query     int     false  "Page number"
// @Param        page_size   query     int     false  "Page size (max 100)"
// @Success      200         {object}  pageResponse[domain.Brand]
// @Failure      403         {object}  map[string]string
// @Router       /brands [get]
func (h *BrandHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	companyID, err := tenantScope(p, c.QueryParam("company_id"))
	if err != nil {
		return err
	}
	if companyID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "company_id is required")
	}

	page := pageParams(c)
	brands, total, err := h.brands.ListByCompany(c.Request().Context(), companyID, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPage(brands, total, page))
}

// Get returns one brand.
//
// @Summary      Get brand
// @Tags         brands
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Brand id"
// @Success      200  {object}  domain.Brand
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /brands/{id} [get]
func (h *BrandHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	b, err := h.brands.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

// Create adds a brand within the company's brand quota.
//
// @Summary      Create brand
// @Tags         brands
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createBrandRequest  true  "Brand"
// @Success      201   {object}  domain.Brand
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /brands [post]
func (h *BrandHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createBrandRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	companyID, err := tenantScope(p, req.CompanyID)
	if err != nil {
		return err
	}

	b, err := h.brands.Create(c.Request().Context(), p, &domain.Brand{
		CompanyID:   companyID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

// Update edits a brand.
//
// @Summary      Update brand
// @Tags         brands
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Brand id"
// @Param        body  body      updateBrandRequest  true  "Fields to change"
// @Success      200   {object}  domain.Brand
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /brands/{id} [put]
func (h *BrandHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateBrandRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	b, err := h.brands.Update(c.Request().Context(), p, c.Param("id"), domain.BrandUpdate{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

// Delete removes a brand.
//
// @Summary      Delete brand
// @Tags         brands
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Brand id"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /brands/{id} [delete]
func (h *BrandHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.brands.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Brand deleted successfully")
}
