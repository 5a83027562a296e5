package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/service"
)

type aiProviderService interface {
	Create(ctx context.Context, actor *authz.Principal, in service.AIProviderInput) (*domain.AIProvider, error)
	Get(ctx context.Context, actor *authz.Principal, id string) (*domain.AIProvider, error)
	List(ctx context.Context, filter domain.AIProviderFilter) ([]*domain.AIProvider, int64, error)
	Update(ctx context.Context, actor *authz.Principal, id string, ch service.AIProviderChange) (*domain.AIProvider, error)
	Delete(ctx context.Context, actor *authz.Principal, id string) error
	Test(ctx context.Context, actor *authz.Principal, id string) (domain.ProviderCheck, error)
}

type aiModelService interface {
	Create(ctx context.Context, actor *authz.Principal, m *domain.AIModel) (*domain.AIModel, error)
	Get(ctx context.Context, actor *authz.Principal, id string) (*domain.AIModel, error)
	List(ctx context.Context, filter domain.AIModelFilter) ([]*domain.AIModel, int64, error)
	Update(ctx context.Context, actor *authz.Principal, id string, upd domain.AIModelUpdate) (*domain.AIModel, error)
	Toggle(ctx context.Context, actor *authz.Principal, id string) (*domain.AIModel, error)
	Delete(ctx context.Context, actor *authz.Principal, id string) error
}

// AIHandler serves /ai-providers and /ai-models.
type AIHandler struct {
	providers aiProviderService
	models    aiModelService
}

func NewAIHandler(providers aiProviderService, models aiModelService) *AIHandler {
	return &AIHandler{providers: providers, models: models}
}

type createProviderRequest struct {
	CompanyID      string `json:"company_id"`
	Name           string `json:"name"            validate:"required,min=2,max=100"`
	ProviderType   string `json:"provider_type"   validate:"required,oneof=openai anthropic google azure_openai custom"`
	BaseURL        string `json:"base_url"        validate:"omitempty,url"`
	APIKey         string `json:"api_key"         validate:"max=512"`
	Description    string `json:"description"     validate:"max=500"`
	TimeoutSeconds int    `json:"timeout_seconds" validate:"omitempty,min=1,max=300"`
}

type updateProviderRequest struct {
	Name           *string `json:"name"            validate:"omitempty,min=2,max=100"`
	BaseURL        *string `json:"base_url"        validate:"omitempty,url"`
	APIKey         *string `json:"api_key"         validate:"omitempty,max=512"`
	Description    *string `json:"description"     validate:"omitempty,max=500"`
	TimeoutSeconds *int    `json:"timeout_seconds" validate:"omitempty,min=1,max=300"`
	IsActive       *bool   `json:"is_active"`
}

type createModelRequest struct {
	CompanyID   string   `json:"company_id"`
	ProviderID  string   `json:"provider_id"  validate:"required"`
	Name        string   `json:"name"         validate:"required,min=2,max=100"`
	ModelID     string   `json:"model_id"     validate:"required,max=200"`
	ModelType   string   `json:"model_type"   validate:"omitempty,oneof=chat completion embedding image"`
	MaxTokens   int      `json:"max_tokens"   validate:"omitempty,min=1,max=2000000"`
	Temperature *float64 `json:"temperature"  validate:"omitempty,min=0,max=2"`
	Description string   `json:"description"  validate:"max=500"`
	IsDefault   bool     `json:"is_default"`
}

type updateModelRequest struct {
	Name        *string  `json:"name"        validate:"omitempty,min=2,max=100"`
	ModelID     *string  `json:"model_id"    validate:"omitempty,min=1,max=200"`
	MaxTokens   *int     `json:"max_tokens"  validate:"omitempty,min=1,max=2000000"`
	Temperature *float64 `json:"temperature" validate:"omitempty,min=0,max=2"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	IsDefault   *bool    `json:"is_default"`
	IsActive    *bool    `json:"is_active"`
}

// ListProviders returns the AI providers of a company.
//
// @Summary      List AI providers
// @Tags         ai
// @Produce      json
// @Security     BearerAuth
// @Param        company_id     query     string  false  "Company id; defaults to the caller's company"
// @Param        provider_type  query     string  false  "Filter by provider type"
// @Param        is_active      query     bool    false  "Filter by active flag"
// @Param        page           query     int     false  "Page number"
// @Param        page_size      query     int     false  "Page size (max 100)"
// @Success      200            {object}  pageResponse[domain.AIProvider]
// @Failure      403            {object}  map[string]string
// @Router       /ai-providers [get]
func (h *AIHandler) ListProviders(c echo.Context) error {
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
	providers, total, err := h.providers.List(c.Request().Context(), domain.AIProviderFilter{
		CompanyID:    companyID,
		ProviderType: c.QueryParam("provider_type"),
		IsActive:     active,
		Page:         page,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPage(providers, total, page))
}

// GetProvider returns one provider. The API key is never returned.
//
// @Summary      Get AI provider
// @Tags         ai
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Provider id"
// @Success      200  {object}  domain.AIProvider
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /ai-providers/{id} [get]
func (h *AIHandler) GetProvider(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	provider, err := h.providers.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, provider)
}

// CreateProvider adds a provider; its API key is sealed before storage.
//
// @Summary      Create AI provider
// @Tags         ai
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createProviderRequest  true  "Provider"
// @Success      201   {object}  domain.AIProvider
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /ai-providers [post]
func (h *AIHandler) CreateProvider(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createProviderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	companyID, err := tenantScope(p, req.CompanyID)
	if err != nil {
		return err
	}
	if companyID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "company_id is required")
	}

	provider, err := h.providers.Create(c.Request().Context(), p, service.AIProviderInput{
		CompanyID:      companyID,
		Name:           req.Name,
		ProviderType:   domain.ProviderType(req.ProviderType),
		BaseURL:        req.BaseURL,
		APIKey:         req.APIKey,
		Description:    req.Description,
		TimeoutSeconds: req.TimeoutSeconds,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, provider)
}

// UpdateProvider edits a provider. Sending api_key rotates it; an empty
// api_key removes it.
//
// @Summary      Update AI provider
// @Tags         ai
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                 true  "Provider id"
// @Param        body  body      updateProviderRequest  true  "Fields to change"
// @Success      200   {object}  domain.AIProvider
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /ai-providers/{id} [put]
func (h *AIHandler) UpdateProvider(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateProviderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	provider, err := h.providers.Update(c.Request().Context(), p, c.Param("id"), service.AIProviderChange{
		Name:           req.Name,
		BaseURL:        req.BaseURL,
		APIKey:         req.APIKey,
		Description:    req.Description,
		TimeoutSeconds: req.TimeoutSeconds,
		IsActive:       req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, provider)
}

// DeleteProvider removes a provider no model uses.
//
// @Summary      Delete AI provider
// @Tags         ai
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Provider id"
// @Success      200  {object}  messageResponse
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /ai-providers/{id} [delete]
func (h *AIHandler) DeleteProvider(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.providers.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return message(c, http.StatusOK, "AI provider deleted successfully")
}

// TestProvider checks that the provider answers with its stored key.
//
// @Summary      Test AI provider
// @Tags         ai
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Provider id"
// @Success      200  {object}  domain.ProviderCheck
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /ai-providers/{id}/test [post]
func (h *AIHandler) TestProvider(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	check, err := h.providers.Test(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, check)
}

// ListModels returns the AI models of a company.
//
// @Summary      List AI models
// @Tags         ai
// @Produce      json
// @Security     BearerAuth
// @Param        company_id   query     string  false  "Company id; defaults to the caller's company"
// @Param        provider_id  query     string  false  "Only models of this provider"
// @Param        model_type   query     string  false  "Filter by model type"
// @Param        is_active    query     bool    false  "Filter by active flag"
// @Param        page         query     int     false  "Page number"
// @Param        page_size    query     int     false  "Page size (max 100)"
// @Success      200          {object}  pageResponse[domain.AIModel]
// @Failure      403          {object}  map[string]string
// @Router       /ai-models [get]
func (h *AIHandler) ListModels(c echo.Context) error {
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
	models, total, err := h.models.List(c.Request().Context(), domain.AIModelFilter{
		CompanyID:  companyID,
		ProviderID: c.QueryParam("provider_id"),
		ModelType:  c.QueryParam("model_type"),
		IsActive:   active,
		Page:       page,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPage(models, total, page))
}

// GetModel returns one model.
//
// @Summary      Get AI model
// @Tags         ai
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Model id"
// @Success      200  {object}  domain.AIModel
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /ai-models/{id} [get]
func (h *AIHandler) GetModel(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	m, err := h.models.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// CreateModel adds a model under a provider of the same company.
//
// @Summary      Create AI model
// @Tags         ai
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createModelRequest  true  "Model"
// @Success      201   {object}  domain.AIModel
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /ai-models [post]
func (h *AIHandler) CreateModel(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createModelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	companyID, err := tenantScope(p, req.CompanyID)
	if err != nil {
		return err
	}
	if companyID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "company_id is required")
	}

	m, err := h.models.Create(c.Request().Context(), p, &domain.AIModel{
		CompanyID:   companyID,
		ProviderID:  req.ProviderID,
		Name:        req.Name,
		ModelID:     req.ModelID,
		ModelType:   domain.ModelType(req.ModelType),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Description: req.Description,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

// UpdateModel edits a model.
//
// @Summary      Update AI model
// @Tags         ai
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Model id"
// @Param        body  body      updateModelRequest  true  "Fields to change"
// @Success      200   {object}  domain.AIModel
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /ai-models/{id} [put]
func (h *AIHandler) UpdateModel(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateModelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	m, err := h.models.Update(c.Request().Context(), p, c.Param("id"), domain.AIModelUpdate{
		Name:        req.Name,
		ModelID:     req.ModelID,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Description: req.Description,
		IsDefault:   req.IsDefault,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// ToggleModel flips a model's active flag.
//
// @Summary      Toggle AI model
// @Tags         ai
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Model id"
// @Success      200  {object}  domain.AIModel
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /ai-models/{id}/toggle [post]
func (h *AIHandler) ToggleModel(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	m, err := h.models.Toggle(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// DeleteModel removes a model.
//
// @Summary      Delete AI model
// @Tags         ai
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Model id"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /ai-models/{id} [delete]
func (h *AIHandler) DeleteModel(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.models.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return message(c, http.StatusOK, "AI model deleted successfully")
}
