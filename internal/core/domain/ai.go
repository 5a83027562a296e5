package domain

import (
	"errors"
	"time"
)

var (
	ErrProviderNotFound = errors.New("ai provider not found")
	ErrProviderExists   = errors.New("ai provider with this name already exists")
	ErrProviderInUse    = errors.New("ai provider is still used by models")
	ErrModelNotFound    = errors.New("ai model not found")
	ErrModelExists      = errors.New("ai model with this name already exists")
	ErrProviderEndpoint = errors.New("base_url is required for this provider type")
)

type ProviderType string

const (
	ProviderOpenAI      ProviderType = "openai"
	ProviderAnthropic   ProviderType = "anthropic"
	ProviderGoogle      ProviderType = "google"
	ProviderAzureOpenAI ProviderType = "azure_openai"
	ProviderCustom      ProviderType = "custom"
)

// DefaultBaseURL is the public API root of t; empty for provider types that
// need an explicit endpoint.
func (t ProviderType) DefaultBaseURL() string {
	switch t {
	case ProviderOpenAI:
		return "https://api.openai.com/v1"
	case ProviderAnthropic:
		return "https://api.anthropic.com/v1"
	case ProviderGoogle:
		return "https://generativelanguage.googleapis.com/v1beta"
	}
	return ""
}

// AIProvider is a company's connection to an LLM vendor. The API key is only
// ever stored sealed; KeyHint keeps its last characters for display.
type AIProvider struct {
	ID             string       `json:"id"`
	CompanyID      string       `json:"company_id"`
	Name           string       `json:"name"`
	ProviderType   ProviderType `json:"provider_type"`
	BaseURL        string       `json:"base_url,omitempty"`
	SealedKey      []byte       `json:"-"`
	KeyHint        string       `json:"api_key_hint,omitempty"`
	Description    string       `json:"description,omitempty"`
	TimeoutSeconds int          `json:"timeout_seconds"`
	IsActive       bool         `json:"is_active"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	CreatedBy      string       `json:"created_by,omitempty"`
}

func (p *AIProvider) TenantID() string { return p.CompanyID }

// Endpoint is BaseURL, or the provider type's public root when unset.
func (p *AIProvider) Endpoint() string {
	if p.BaseURL != "" {
		return p.BaseURL
	}
	return p.ProviderType.DefaultBaseURL()
}

// AIProviderUpdate holds the optional fields of a provider edit.
type AIProviderUpdate struct {
	Name           *string
	BaseURL        *string
	Description    *string
	SealedKey      *[]byte
	KeyHint        *string
	TimeoutSeconds *int
	IsActive       *bool
}

func (u AIProviderUpdate) Empty() bool {
	return u.Name == nil && u.BaseURL == nil && u.Description == nil &&
		u.SealedKey == nil && u.KeyHint == nil && u.TimeoutSeconds == nil && u.IsActive == nil
}

// AIProviderFilter narrows provider listings.
type AIProviderFilter struct {
	CompanyID    string
	ProviderType string
	IsActive     *bool
	Page         Page
}

// ProviderCheck is the outcome of a connectivity test against a provider.
type ProviderCheck struct {
	Reachable  bool   `json:"reachable"`
	StatusCode int    `json:"status_code,omitempty"`
	LatencyMS  int64  `json:"latency_ms"`
	Error      string `json:"error,omitempty"`
}

type ModelType string

const (
	ModelChat       ModelType = "chat"
	ModelCompletion ModelType = "completion"
	ModelEmbedding  ModelType = "embedding"
	ModelImage      ModelType = "image"
)

// AIModel is one model offered through a provider. At most one active model
// per company and model type is the default.
type AIModel struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	ProviderID  string    `json:"provider_id"`
	Name        string    `json:"name"`
	ModelID     string    `json:"model_id"`
	ModelType   ModelType `json:"model_type"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
	Description string    `json:"description,omitempty"`
	IsDefault   bool      `json:"is_default"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

func (m *AIModel) TenantID() string { return m.CompanyID }

// AIModelUpdate holds the optional fields of a model edit.
type AIModelUpdate struct {
	Name        *string
	ModelID     *string
	MaxTokens   *int
	Temperature *float64
	Description *string
	IsDefault   *bool
	IsActive    *bool
}

func (u AIModelUpdate) Empty() bool {
	return u.Name == nil && u.ModelID == nil && u.MaxTokens == nil && u.Temperature == nil &&
		u.Description == nil && u.IsDefault == nil && u.IsActive == nil
}

// AIModelFilter narrows model listings.
type AIModelFilter struct {
	CompanyID  string
	ProviderID string
	ModelType  string
	IsActive   *bool
	Page       Page
}
