package ports

import (
	"context"

	"github.com/conversia/admin-platform/internal/core/domain"
)

type BrandRepository interface {
	Create(ctx context.Context, b *domain.Brand) (*domain.Brand, error)
	FindByID(ctx context.Context, id string) (*domain.Brand, error)
	ListByCompany(ctx context.Context, companyID string, page domain.Page) ([]*domain.Brand, int64, error)
	Update(ctx context.Context, id string, upd domain.BrandUpdate) (*domain.Brand, error)
	Delete(ctx context.Context, id string) error
}

type TagRepository interface {
	Create(ctx context.Context, t *domain.Tag) (*domain.Tag, error)
	FindByID(ctx context.Context, id string) (*domain.Tag, error)
	List(ctx context.Context, companyID, category string, page domain.Page) ([]*domain.Tag, int64, error)
	Update(ctx context.Context, id string, upd domain.TagUpdate) (*domain.Tag, error)
	Delete(ctx context.Context, id string) error
}

// TicketFilter narrows ticket listings.
type TicketFilter struct {
	CompanyID string
	Status    string
	Page      domain.Page
}

type TicketRepository interface {
	Create(ctx context.Context, t *domain.Ticket) error
	FindByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]*domain.Ticket, int64, error)
	Update(ctx context.Context, id string, upd domain.TicketUpdate) (*domain.Ticket, error)
	Delete(ctx context.Context, id string) error
}

type FeedbackRepository interface {
	Create(ctx context.Context, f *domain.Feedback) error
	FindByID(ctx context.Context, id string) (*domain.Feedback, error)
	List(ctx context.Context, companyID string, page domain.Page) ([]*domain.Feedback, int64, error)
	Delete(ctx context.Context, id string) error
}

type TemplateRepository interface {
	Create(ctx context.Context, t *domain.Template) error
	FindByID(ctx context.Context, id string) (*domain.Template, error)
	List(ctx context.Context, companyID string, page domain.Page) ([]*domain.Template, int64, error)
	Delete(ctx context.Context, id string) error
}

type TeamRepository interface {
	Create(ctx context.Context, t *domain.Team) (*domain.Team, error)
	FindByID(ctx context.Context, id string) (*domain.Team, error)
	List(ctx context.Context, filter domain.TeamFilter) ([]*domain.Team, int64, error)
	Update(ctx context.Context, id string, upd domain.TeamUpdate) (*domain.Team, error)
	Delete(ctx context.Context, id string) error
	// AddMember and RemoveMember report whether member_ids actually changed.
	AddMember(ctx context.Context, id, userID string) (bool, error)
	RemoveMember(ctx context.Context, id, userID string) (bool, error)
}

type AIProviderRepository interface {
	Create(ctx context.Context, p *domain.AIProvider) (*domain.AIProvider, error)
	FindByID(ctx context.Context, id string) (*domain.AIProvider, error)
	List(ctx context.Context, filter domain.AIProviderFilter) ([]*domain.AIProvider, int64, error)
	Update(ctx context.Context, id string, upd domain.AIProviderUpdate) (*domain.AIProvider, error)
	Delete(ctx context.Context, id string) error
}

type AIModelRepository interface {
	Create(ctx context.Context, m *domain.AIModel) (*domain.AIModel, error)
	FindByID(ctx context.Context, id string) (*domain.AIModel, error)
	List(ctx context.Context, filter domain.AIModelFilter) ([]*domain.AIModel, int64, error)
	Update(ctx context.Context, id string, upd domain.AIModelUpdate) (*domain.AIModel, error)
	Delete(ctx context.Context, id string) error
	CountByProvider(ctx context.Context, providerID string) (int64, error)
	// ClearDefault unsets is_default on every model of companyID and
	// modelType except exceptID.
	ClearDefault(ctx context.Context, companyID string, modelType domain.ModelType, exceptID string) error
}

// SequenceGenerator hands out monotonically increasing numbers per name,
// persisted so restarts and replicas never reuse one.
type SequenceGenerator interface {
	Next(ctx context.Context, name string) (int64, error)
}

type AuditRepository interface {
	Insert(ctx context.Context, e *domain.AuditEvent) error
	List(ctx context.Context, page domain.Page) ([]*domain.AuditEvent, int64, error)
}
