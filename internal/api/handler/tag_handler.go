package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
)

type tagService interface {
	Create(ctx context.Context, actor *authz.Principal, t *domain.Tag) (*domain.Tag, error)
	Get(ctx context.Context, actor *authz.Principal, id string) (*domain.Tag, error)
	List(ctx context.Context, companyID, category string, page domain.Page) ([]*domain.Tag, int64, error)
	Update(ctx context.Context, actor *authz.Principal, id string, upd domain.TagUpdate) (*domain.Tag, error)
	Delete(ctx context.Context, actor *authz.Principal, id string) error
}

// TagHandler serves /tags.
type TagHandler struct {
	tags tagService
}

func NewTagHandler(tags tagService) *TagHandler {
	return &TagHandler{tags: tags}
}

type createTagRequest struct {
	CompanyID   string `json:"company_id"`
	Name        string `json:"name"        validate:"required,max=50"`
	Description string `json:"description" validate:"max=200"`
	Category    string `json:"category"    validate:"max=50"`
	Color       string `json:"color"       validate:"omitempty,hexcolor"`
}

type updateTagRequest struct {
	Name        *string `json:"name"        validate:"omitempty,min=1,max=50"`
	Description *string `json:"description" validate:"omitempty,max=200"`
	Category    *string `json:"category"    validate:"omitempty,max=50"`
	Color       *string `json:"color"       validate:"omitempty,hexcolor"`
	Enabled     *bool   `json:"enabled"`
}

// List pages through tags.
//
// @Summary      List tags
// @Tags         tags
// @Produce      json
// @Security     BearerAuth
// @Param        company_id  query     string  false  "Company id"
// @Param        category    query     string  false  "Category filter"
// @Param        page        query     int     false  "Page number"
// @Param        page_size   query     int     false  "Page size (max 100)"
// @Success      200         {object}  pageResponse[domain.Tag]
// @Router       /tags [get]
func (h *TagHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	companyID, err := tenantScope(p, c.QueryParam("company_id"))
	if err != nil {
		return err
	}
	page := pageParams(c)
	tags, total, err := h.tags.List(c.Request().Context(), companyID, c.QueryParam("category"), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPage(tags, total, page))
}

// Get returns one tag.
//
// @Summary      Get tag
// @Tags         tags
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Tag id"
// @Success      200  {object}  domain.Tag
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /tags/{id} [get]
func (h *TagHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	t, err := h.tags.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// Create adds a tag. Names are unique per company.
//
// @Summary      Create tag
// @Tags         tags
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createTagRequest  true  "Tag"
// @Success      201   {object}  domain.Tag
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /tags [post]
func (h *TagHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createTagRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	companyID, err := tenantScope(p, req.CompanyID)
	if err != nil {
		return err
	}

	t, err := h.tags.Create(c.Request().Context(), p, &domain.Tag{
		CompanyID:   companyID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Color:       req.Color,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

// Update edits a tag.
//
// @Summary      Update tag
// @Tags         tags
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "Tag id"
// @Param        body  body      updateTagRequest  true  "Fields to change"
// @Success      200   {object}  domain.Tag
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /tags/{id} [put]
func (h *TagHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateTagRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	t, err := h.tags.Update(c.Request().Context(), p, c.Param("id"), domain.TagUpdate{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Color:       req.Color,
		Enabled:     req.Enabled,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// Delete removes a tag.
//
// @Summary      Delete tag
// @Tags         tags
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Tag id"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  map[string]string
// @Router       /tags/{id} [delete]
func (h *TagHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.tags.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Tag deleted successfully")
}
