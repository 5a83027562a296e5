package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/service"
)

type templateService interface {
	Create(ctx context.Context, actor *authz.Principal, t *domain.Template, body []byte) (*domain.Template, error)
	Get(ctx context.Context, actor *authz.Principal, id string) (*domain.Template, error)
	List(ctx context.Context, companyID string, page domain.Page) ([]*domain.Template, int64, error)
	Content(ctx context.Context, actor *authz.Principal, id string) (*service.TemplateContent, error)
	Delete(ctx context.Context, actor *authz.Principal, id string) error
}

// TemplateHandler serves /templates. Bodies are kept in object storage.
type TemplateHandler struct {
	templates templateService
}

func NewTemplateHandler(templates templateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

type createTemplateRequest struct {
	CompanyID   string `json:"company_id"`
	Name        string `json:"name"         validate:"required,max=100"`
	Description string `json:"description"  validate:"max=500"`
	Category    string `json:"category"     validate:"max=50"`
	ContentType string `json:"content_type" validate:"omitempty,max=100"`
	Content     string `json:"content"      validate:"required"`
}

// List pages through templates.
//
// @Summary      List templates
// @Tags         templates
// @Produce      json
// @Security     BearerAuth
// @Param        company_id  query     string  false  "Company id"
// @Param        page        query     int     false  "Page number"
// @Param        page_size   query     int     false  "Page size (max 100)"
// @Success      200         {object}  pageResponse[domain.Template]
// @Router       /templates [get]
func (h *TemplateHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	companyID, err := tenantScope(p, c.QueryParam("company_id"))
	if err != nil {
		return err
	}
	page := pageParams(c)
	items, total, err := h.templates.List(c.Request().Context(), companyID, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPage(items, total, page))
}

// Get returns template metadata.
//
// @Summary      Get template
// @Tags         templates
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Template id"
// @Success      200  {object}  domain.Template
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /templates/{id} [get]
func (h *TemplateHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	t, err := h.templates.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// Content streams the stored template body.
//
// @Summary      Download template content
// @Tags         templates
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        id   path  string  true  "Template id"
// @Success      200  {file}  binary
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /templates/{id}/content [get]
func (h *TemplateHandler) Content(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	content, err := h.templates.Content(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, content.ContentType, content.Body)
}

// Create stores a template body and its metadata.
//
// @Summary      Create template
// @Tags         templates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createTemplateRequest  true  "Template"
// @Success      201   {object}  domain.Template
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /templates [post]
func (h *TemplateHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createTemplateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	companyID, err := tenantScope(p, req.CompanyID)
	if err != nil {
		return err
	}

	t, err := h.templates.Create(c.Request().Context(), p, &domain.Template{
		CompanyID:   companyID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		ContentType: req.ContentType,
	}, []byte(req.Content))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

// Delete removes a template and its stored body.
//
// @Summary      Delete template
// @Tags         templates
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Template id"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  map[string]string
// @Router       /templates/{id} [delete]
func (h *TemplateHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.templates.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Template deleted successfully")
}
