package ports

import (
	"context"

	"github.com/conversia/admin-platform/internal/core/domain"
)

type CompanyRepository interface {
	Create(ctx context.Context, c *domain.Company) (*domain.Company, error)
	FindByID(ctx context.Context, id string) (*domain.Company, error)
	List(ctx context.Context, status string, page domain.Page) ([]*domain.Company, int64, error)
	Update(ctx context.Context, id string, upd domain.CompanyUpdate) (*domain.Company, error)
	Delete(ctx context.Context, id string) error
}

// ResourceCounter counts company-owned documents for quota checks.
type ResourceCounter interface {
	CountByCompany(ctx context.Context, resource domain.ResourceType, companyID string) (int64, error)
}
