package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

const (
	defaultProviderTimeout = 30
	defaultModelMaxTokens  = 4096
)

// AIProviderInput describes a new provider. APIKey is sealed before storage.
type AIProviderInput struct {
	CompanyID      string
	Name           string
	ProviderType   domain.ProviderType
	BaseURL        string
	APIKey         string
	Description    string
	TimeoutSeconds int
}

// AIProviderChange holds the optional fields of a provider edit. A non-nil
// APIKey replaces the stored key.
type AIProviderChange struct {
	Name           *string
	BaseURL        *string
	APIKey         *string
	Description    *string
	TimeoutSeconds *int
	IsActive       *bool
}

// AIProviderService manages the LLM vendor connections of each company.
type AIProviderService struct {
	providers ports.AIProviderRepository
	models    ports.AIModelRepository
	companies *CompanyService
	sealer    ports.SecretSealer
	checker   ports.ProviderChecker
	audit     ports.Auditor
	log       zerolog.Logger
}

func NewAIProviderService(
	providers ports.AIProviderRepository,
	models ports.AIModelRepository,
	companies *CompanyService,
	sealer ports.SecretSealer,
	checker ports.ProviderChecker,
	audit ports.Auditor,
	log zerolog.Logger,
) *AIProviderService {
	return &AIProviderService{
		providers: providers,
		models:    models,
		companies: companies,
		sealer:    sealer,
		checker:   checker,
		audit:     audit,
		log:       log,
	}
}

func (s *AIProviderService) Create(ctx context.Context, actor *authz.Principal, in AIProviderInput) (*domain.AIProvider, error) {
	if err := authz.RequireTenant(in.CompanyID)(actor); err != nil {
		return nil, err
	}
	if _, err := s.companies.Get(ctx, in.CompanyID); err != nil {
		return nil, err
	}
	if in.BaseURL == "" && in.ProviderType.DefaultBaseURL() == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderEndpoint, in.ProviderType)
	}

	now := time.Now().UTC()
	p := &domain.AIProvider{
		CompanyID:      in.CompanyID,
		Name:           strings.TrimSpace(in.Name),
		ProviderType:   in.ProviderType,
		BaseURL:        in.BaseURL,
		Description:    in.Description,
		TimeoutSeconds: in.TimeoutSeconds,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      actor.UserID(),
	}
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = defaultProviderTimeout
	}
	if in.APIKey != "" {
		sealed, err := s.sealer.Seal([]byte(in.APIKey))
		if err != nil {
			return nil, err
		}
		p.SealedKey = sealed
		p.KeyHint = keyHint(in.APIKey)
	}

	created, err := s.providers.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	recordAudit(s.audit, actor, "ai_provider.create", created.ID, "company_id", in.CompanyID)
	return created, nil
}

func (s *AIProviderService) Get(ctx context.Context, actor *authz.Principal, id string) (*domain.AIProvider, error) {
	return loadOwned(ctx, actor, id, s.providers.FindByID)
}

func (s *AIProviderService) List(ctx context.Context, filter domain.AIProviderFilter) ([]*domain.AIProvider, int64, error) {
	filter.Page = filter.Page.Normalize()
	return s.providers.List(ctx, filter)
}

func (s *AIProviderService) Update(ctx context.Context, actor *authz.Principal, id string, ch AIProviderChange) (*domain.AIProvider, error) {
	upd := domain.AIProviderUpdate{
		Name:           ch.Name,
		BaseURL:        ch.BaseURL,
		Description:    ch.Description,
		TimeoutSeconds: ch.TimeoutSeconds,
		IsActive:       ch.IsActive,
	}
	if upd.Empty() && ch.APIKey == nil {
		return nil, domain.ErrNoFieldsToUpdate
	}
	p, err := loadOwned(ctx, actor, id, s.providers.FindByID)
	if err != nil {
		return nil, err
	}
	if ch.BaseURL != nil && *ch.BaseURL == "" && p.ProviderType.DefaultBaseURL() == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderEndpoint, p.ProviderType)
	}
	if ch.APIKey != nil {
		var sealed []byte
		hint := ""
		if *ch.APIKey != "" {
			if sealed, err = s.sealer.Seal([]byte(*ch.APIKey)); err != nil {
				return nil, err
			}
			hint = keyHint(*ch.APIKey)
		}
		upd.SealedKey = &sealed
		upd.KeyHint = &hint
	}

	updated, err := s.providers.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	kv := []string{}
	if ch.APIKey != nil {
		kv = append(kv, "api_key", "rotated")
	}
	recordAudit(s.audit, actor, "ai_provider.update", id, kv...)
	return updated, nil
}

// Delete removes provider id once no model refers to it.
func (s *AIProviderService) Delete(ctx context.Context, actor *authz.Principal, id string) error {
	if _, err := loadOwned(ctx, actor, id, s.providers.FindByID); err != nil {
		return err
	}
	n, err := s.models.CountByProvider(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w (%d models)", domain.ErrProviderInUse, n)
	}
	if err := s.providers.Delete(ctx, id); err != nil {
		return err
	}
	recordAudit(s.audit, actor, "ai_provider.delete", id)
	return nil
}

// Test calls the provider with its stored key and reports whether it
// answered.
func (s *AIProviderService) Test(ctx context.Context, actor *authz.Principal, id string) (domain.ProviderCheck, error) {
	p, err := loadOwned(ctx, actor, id, s.providers.FindByID)
	if err != nil {
		return domain.ProviderCheck{}, err
	}
	var key string
	if len(p.SealedKey) > 0 {
		plain, err := s.sealer.Open(p.SealedKey)
		if err != nil {
			s.log.Error().Err(err).Str("provider_id", id).Msg("cannot open provider key")
			return domain.ProviderCheck{}, err
		}
		key = string(plain)
	}
	check := s.checker.Check(ctx, p, key)
	recordAudit(s.audit, actor, "ai_provider.test", id, "reachable", fmt.Sprint(check.Reachable))
	return check, nil
}

// keyHint keeps the last four characters of a key for display.
func keyHint(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// AIModelService manages the models each company exposes through its
// providers.
type AIModelService struct {
	models    ports.AIModelRepository
	providers ports.AIProviderRepository
	audit     ports.Auditor
}

func NewAIModelService(models ports.AIModelRepository, providers ports.AIProviderRepository, audit ports.Auditor) *AIModelService {
	return &AIModelService{models: models, providers: providers, audit: audit}
}

// Create adds a model under a provider of the same company. A default model
// replaces the previous default of its type.
func (s *AIModelService) Create(ctx context.Context, actor *authz.Principal, m *domain.AIModel) (*domain.AIModel, error) {
	if err := authz.RequireTenant(m.CompanyID)(actor); err != nil {
		return nil, err
	}
	if _, err := s.provider(ctx, m.CompanyID, m.ProviderID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m.ID = ""
	m.Name = strings.TrimSpace(m.Name)
	if m.ModelType == "" {
		m.ModelType = domain.ModelChat
	}
	if m.MaxTokens <= 0 {
		m.MaxTokens = defaultModelMaxTokens
	}
	m.IsActive = true
	m.CreatedAt = now
	m.UpdatedAt = now
	m.CreatedBy = actor.UserID()

	created, err := s.models.Create(ctx, m)
	if err != nil {
		return nil, err
	}
	if created.IsDefault {
		if err := s.models.ClearDefault(ctx, created.CompanyID, created.ModelType, created.ID); err != nil {
			return nil, err
		}
	}
	recordAudit(s.audit, actor, "ai_model.create", created.ID, "provider_id", m.ProviderID)
	return created, nil
}

func (s *AIModelService) Get(ctx context.Context, actor *authz.Principal, id string) (*domain.AIModel, error) {
	return loadOwned(ctx, actor, id, s.models.FindByID)
}

func (s *AIModelService) List(ctx context.Context, filter domain.AIModelFilter) ([]*domain.AIModel, int64, error) {
	filter.Page = filter.Page.Normalize()
	return s.models.List(ctx, filter)
}

func (s *AIModelService) Update(ctx context.Context, actor *authz.Principal, id string, upd domain.AIModelUpdate) (*domain.AIModel, error) {
	if upd.Empty() {
		return nil, domain.ErrNoFieldsToUpdate
	}
	if _, err := loadOwned(ctx, actor, id, s.models.FindByID); err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, id, upd)
}

// Toggle flips the active flag. A deactivated model stops being the default.
func (s *AIModelService) Toggle(ctx context.Context, actor *authz.Principal, id string) (*domain.AIModel, error) {
	m, err := loadOwned(ctx, actor, id, s.models.FindByID)
	if err != nil {
		return nil, err
	}
	active := !m.IsActive
	upd := domain.AIModelUpdate{IsActive: &active}
	if !active && m.IsDefault {
		no := false
		upd.IsDefault = &no
	}
	return s.apply(ctx, actor, id, upd)
}

func (s *AIModelService) Delete(ctx context.Context, actor *authz.Principal, id string) error {
	if _, err := loadOwned(ctx, actor, id, s.models.FindByID); err != nil {
		return err
	}
	if err := s.models.Delete(ctx, id); err != nil {
		return err
	}
	recordAudit(s.audit, actor, "ai_model.delete", id)
	return nil
}

func (s *AIModelService) apply(ctx context.Context, actor *authz.Principal, id string, upd domain.AIModelUpdate) (*domain.AIModel, error) {
	updated, err := s.models.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	if upd.IsDefault != nil && *upd.IsDefault {
		if err := s.models.ClearDefault(ctx, updated.CompanyID, updated.ModelType, updated.ID); err != nil {
			return nil, err
		}
	}
	recordAudit(s.audit, actor, "ai_model.update", id)
	return updated, nil
}

// provider loads providerID and checks it belongs to companyID.
func (s *AIModelService) provider(ctx context.Context, companyID, providerID string) (*domain.AIProvider, error) {
	p, err := s.providers.FindByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if p.CompanyID != companyID {
		return nil, domain.Deny(authz.GuardTenant, "Provider belongs to another company")
	}
	return p, nil
}
