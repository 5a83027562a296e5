package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

type BrandService struct {
	brands    ports.BrandRepository
	companies *CompanyService
	audit     ports.Auditor
	log       zerolog.Logger
}

func NewBrandService(brands ports.BrandRepository, companies *CompanyService, audit ports.Auditor, log zerolog.Logger) *BrandService {
	return &BrandService{brands: brands, companies: companies, audit: audit, log: log}
}

// Create adds a brand to its company, refusing once the company's brand
// limit is reached.
func (s *BrandService) Create(ctx context.Context, actor *authz.Principal, b *domain.Brand) (*domain.Brand, error) {
	if _, err := s.companies.Get(ctx, b.CompanyID); err != nil {
		return nil, err
	}
	if err := s.companies.EnsureCapacity(ctx, b.CompanyID, domain.ResourceBrands); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b.ID = ""
	b.IsActive = true
	b.CreatedAt = now
	b.UpdatedAt = now
	b.CreatedBy = actor.UserID()

	created, err := s.brands.Create(ctx, b)
	if err != nil {
		return nil, err
	}
	recordAudit(s.audit, actor, "brand.create", created.ID, "company_id", b.CompanyID)
	return created, nil
}

// Get returns brand id to users of its company or holders of a role
// covering the brand.
func (s *BrandService) Get(ctx context.Context, actor *authz.Principal, id string) (*domain.Brand, error) {
	b, err := s.brands.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.AnyOf(authz.RequireBrandAccess(b.ID), authz.RequireTenant(b.CompanyID))(actor); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BrandService) ListByCompany(ctx context.Context, companyID string, page domain.Page) ([]*domain.Brand, int64, error) {
	return s.brands.ListByCompany(ctx, companyID, page.Normalize())
}

func (s *BrandService) Update(ctx context.Context, actor *authz.Principal, id string, upd domain.BrandUpdate) (*domain.Brand, error) {
	if upd.Name == nil && upd.Description == nil && upd.IsActive == nil {
		return nil, domain.ErrNoFieldsToUpdate
	}
	if _, err := s.manageable(ctx, actor, id); err != nil {
		return nil, err
	}
	b, err := s.brands.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	recordAudit(s.audit, actor, "brand.update", id)
	return b, nil
}

func (s *BrandService) Delete(ctx context.Context, actor *authz.Principal, id string) error {
	if _, err := s.manageable(ctx, actor, id); err != nil {
		return err
	}
	if err := s.brands.Delete(ctx, id); err != nil {
		return err
	}
	recordAudit(s.audit, actor, "brand.delete", id)
	return nil
}

// manageable loads brand id for a change by actor: a role covering the
// brand, or admin rights over the brand's company.
func (s *BrandService) manageable(ctx context.Context, actor *authz.Principal, id string) (*domain.Brand, error) {
	b, err := s.brands.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.AnyOf(authz.RequireBrandAccess(b.ID), authz.RequireCompanyMatch(b.CompanyID))(actor); err != nil {
		return nil, err
	}
	return b, nil
}
