package service

import (
	"context"
	"strings"
	"time"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

const (
	defaultTagCategory = "general"
	defaultTagColor    = "#6B7280"
)

type TagService struct {
	tags  ports.TagRepository
	audit ports.Auditor
}

func NewTagService(tags ports.TagRepository, audit ports.Auditor) *TagService {
	return &TagService{tags: tags, audit: audit}
}

// Create inserts a tag. Names are unique per company.
func (s *TagService) Create(ctx context.Context, actor *authz.Principal, t *domain.Tag) (*domain.Tag, error) {
	now := time.Now().UTC()
	t.ID = ""
	t.Name = strings.TrimSpace(t.Name)
	t.UsageCount = 0
	t.Enabled = true
	t.CreatedAt = now
	t.UpdatedAt = now
	t.CreatedBy = actor.UserID()
	if t.Category == "" {
		t.Category = defaultTagCategory
	}
	if t.Color == "" {
		t.Color = defaultTagColor
	}

	created, err := s.tags.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	recordAudit(s.audit, actor, "tag.create", created.ID)
	return created, nil
}

// Get returns tag id when it belongs to the actor's company.
func (s *TagService) Get(ctx context.Context, actor *authz.Principal, id string) (*domain.Tag, error) {
	return loadOwned(ctx, actor, id, s.tags.FindByID)
}

func (s *TagService) List(ctx context.Context, companyID, category string, page domain.Page) ([]*domain.Tag, int64, error) {
	return s.tags.List(ctx, companyID, category, page.Normalize())
}

func (s *TagService) Update(ctx context.Context, actor *authz.Principal, id string, upd domain.TagUpdate) (*domain.Tag, error) {
	if upd.Name == nil && upd.Description == nil && upd.Category == nil && upd.Color == nil && upd.Enabled == nil {
		return nil, domain.ErrNoFieldsToUpdate
	}
	if _, err := loadOwned(ctx, actor, id, s.tags.FindByID); err != nil {
		return nil, err
	}
	t, err := s.tags.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	recordAudit(s.audit, actor, "tag.update", id)
	return t, nil
}

func (s *TagService) Delete(ctx context.Context, actor *authz.Principal, id string) error {
	if _, err := loadOwned(ctx, actor, id, s.tags.FindByID); err != nil {
		return err
	}
	if err := s.tags.Delete(ctx, id); err != nil {
		return err
	}
	recordAudit(s.audit, actor, "tag.delete", id)
	return nil
}
