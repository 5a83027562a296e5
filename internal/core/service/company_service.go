package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
	"github.com/conversia/admin-platform/internal/metrics"
)

// CompanyTotals are the live resource counts of a company.
type CompanyTotals struct {
	Brands         int64 `json:"total_brands"`
	Agents         int64 `json:"total_agents"`
	Users          int64 `json:"total_users"`
	KnowledgeItems int64 `json:"total_knowledge_items"`
}

// CompanyView is a company plus its totals.
type CompanyView struct {
	*domain.Company
	Totals CompanyTotals
}

// CompanyService manages tenants and their plan limits.
type CompanyService struct {
	companies ports.CompanyRepository
	counter   ports.ResourceCounter
	audit     ports.Auditor
	log       zerolog.Logger
}

func NewCompanyService(companies ports.CompanyRepository, counter ports.ResourceCounter, audit ports.Auditor, log zerolog.Logger) *CompanyService {
	return &CompanyService{companies: companies, counter: counter, audit: audit, log: log}
}

// Create inserts a company; zero-valued limits fall back to plan defaults.
func (s *CompanyService) Create(ctx context.Context, actor *authz.Principal, c *domain.Company) (*CompanyView, error) {
	now := time.Now().UTC()
	c.ID = ""
	c.CreatedAt = now
	c.UpdatedAt = now
	c.CreatedBy = actor.UserID()
	if c.Plan == "" {
		c.Plan = domain.PlanStarter
	}
	if c.Status == "" {
		c.Status = domain.CompanyTrial
	}
	c.Settings = withDefaultLimits(c.Settings)

	created, err := s.companies.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	recordAudit(s.audit, actor, "company.create", created.ID)
	return &CompanyView{Company: created}, nil
}

// Get returns a company with its totals.
func (s *CompanyService) Get(ctx context.Context, id string) (*CompanyView, error) {
	c, err := s.companies.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

// List returns a page of companies with totals.
func (s *CompanyService) List(ctx context.Context, status string, page domain.Page) ([]*CompanyView, int64, error) {
	companies, total, err := s.companies.List(ctx, status, page.Normalize())
	if err != nil {
		return nil, 0, err
	}
	out := make([]*CompanyView, 0, len(companies))
	for _, c := range companies {
		v, err := s.view(ctx, c)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, nil
}

// Update edits a company.
func (s *CompanyService) Update(ctx context.Context, actor *authz.Principal, id string, upd domain.CompanyUpdate) (*CompanyView, error) {
	if upd.Settings != nil {
		settings := withDefaultLimits(*upd.Settings)
		upd.Settings = &settings
	}
	c, err := s.companies.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	recordAudit(s.audit, actor, "company.update", id)
	return s.view(ctx, c)
}

// Delete removes a company that owns no brands.
func (s *CompanyService) Delete(ctx context.Context, actor *authz.Principal, id string) error {
	if _, err := s.companies.FindByID(ctx, id); err != nil {
		return err
	}
	brands, err := s.counter.CountByCompany(ctx, domain.ResourceBrands, id)
	if err != nil {
		return err
	}
	if brands > 0 {
		return domain.ErrCompanyHasBrands
	}
	if err := s.companies.Delete(ctx, id); err != nil {
		return err
	}
	recordAudit(s.audit, actor, "company.delete", id)
	return nil
}

// CheckLimit reports whether companyID has reached its configured maximum
// for resource. It is advisory: callers decide whether to refuse.
func (s *CompanyService) CheckLimit(ctx context.Context, companyID string, resource domain.ResourceType) (*domain.LimitStatus, error) {
	if _, err := domain.ParseResourceType(string(resource)); err != nil {
		return nil, err
	}
	c, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	current, err := s.counter.CountByCompany(ctx, resource, companyID)
	if err != nil {
		return nil, err
	}
	limit := c.Settings.Limit(resource)
	status := &domain.LimitStatus{
		Resource: resource,
		AtLimit:  current >= int64(limit),
		Current:  current,
		Max:      limit,
	}

	result := "within"
	if status.AtLimit {
		result = "at_limit"
	}
	metrics.QuotaChecksTotal.WithLabelValues(string(resource), result).Inc()
	return status, nil
}

// EnsureCapacity turns an at-limit CheckLimit into a QuotaExceededError.
func (s *CompanyService) EnsureCapacity(ctx context.Context, companyID string, resource domain.ResourceType) error {
	st, err := s.CheckLimit(ctx, companyID, resource)
	if err != nil {
		return err
	}
	if st.AtLimit {
		s.log.Info().Str("company_id", companyID).Str("resource", string(resource)).
			Int64("current", st.Current).Int("max", st.Max).Msg("quota reached")
		return &domain.QuotaExceededError{Resource: resource, Current: st.Current, Limit: st.Max}
	}
	return nil
}

func (s *CompanyService) view(ctx context.Context, c *domain.Company) (*CompanyView, error) {
	v := &CompanyView{Company: c}
	counts := []struct {
		resource domain.ResourceType
		dst      *int64
	}{
		{domain.ResourceBrands, &v.Totals.Brands},
		{domain.ResourceAgents, &v.Totals.Agents},
		{domain.ResourceUsers, &v.Totals.Users},
		{domain.ResourceKnowledgeItems, &v.Totals.KnowledgeItems},
	}
	for _, rc := range counts {
		n, err := s.counter.CountByCompany(ctx, rc.resource, c.ID)
		if err != nil {
			return nil, err
		}
		*rc.dst = n
	}
	return v, nil
}

func withDefaultLimits(s domain.CompanySettings) domain.CompanySettings {
	d := domain.DefaultCompanySettings()
	if s.MaxBrands <= 0 {
		s.MaxBrands = d.MaxBrands
	}
	if s.MaxAgents <= 0 {
		s.MaxAgents = d.MaxAgents
	}
	if s.MaxUsers <= 0 {
		s.MaxUsers = d.MaxUsers
	}
	if s.MaxKnowledgeBaseItems <= 0 {
		s.MaxKnowledgeBaseItems = d.MaxKnowledgeBaseItems
	}
	if s.StorageQuotaGB <= 0 {
		s.StorageQuotaGB = d.StorageQuotaGB
	}
	if s.APIRateLimit <= 0 {
		s.APIRateLimit = d.APIRateLimit
	}
	return s
}
