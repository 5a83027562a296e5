package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

// TemplateContent is a template body as read back from object storage.
type TemplateContent struct {
	Body        []byte
	ContentType string
}

// TemplateService keeps template metadata in the repository and bodies in
// the object store.
type TemplateService struct {
	templates ports.TemplateRepository
	objects   ports.ObjectStore
	audit     ports.Auditor
	log       zerolog.Logger
}

func NewTemplateService(templates ports.TemplateRepository, objects ports.ObjectStore, audit ports.Auditor, log zerolog.Logger) *TemplateService {
	return &TemplateService{templates: templates, objects: objects, audit: audit, log: log}
}

// Create uploads body first, then writes the metadata. If the metadata write
// fails the uploaded object is removed again.
func (s *TemplateService) Create(ctx context.Context, actor *authz.Principal, t *domain.Template, body []byte) (*domain.Template, error) {
	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.ContentKey = templateKey(t.CompanyID, t.ID)
	t.Size = int64(len(body))
	t.CreatedBy = actor.UserID()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.ContentType == "" {
		t.ContentType = "text/plain"
	}

	if err := s.objects.Put(ctx, t.ContentKey, body, t.ContentType); err != nil {
		return nil, fmt.Errorf("store template content: %w", err)
	}
	if err := s.templates.Create(ctx, t); err != nil {
		if delErr := s.objects.Delete(ctx, t.ContentKey); delErr != nil {
			s.log.Warn().Err(delErr).Str("key", t.ContentKey).Msg("orphaned template content")
		}
		return nil, err
	}
	recordAudit(s.audit, actor, "template.create", t.ID)
	return t, nil
}

func (s *TemplateService) Get(ctx context.Context, actor *authz.Principal, id string) (*domain.Template, error) {
	return loadOwned(ctx, actor, id, s.templates.FindByID)
}

func (s *TemplateService) List(ctx context.Context, companyID string, page domain.Page) ([]*domain.Template, int64, error) {
	return s.templates.List(ctx, companyID, page.Normalize())
}

// Content loads the stored body of template id.
func (s *TemplateService) Content(ctx context.Context, actor *authz.Principal, id string) (*TemplateContent, error) {
	t, err := loadOwned(ctx, actor, id, s.templates.FindByID)
	if err != nil {
		return nil, err
	}
	body, err := s.objects.Get(ctx, t.ContentKey)
	if err != nil {
		return nil, err
	}
	return &TemplateContent{Body: body, ContentType: t.ContentType}, nil
}

func (s *TemplateService) Delete(ctx context.Context, actor *authz.Principal, id string) error {
	t, err := loadOwned(ctx, actor, id, s.templates.FindByID)
	if err != nil {
		return err
	}
	if err := s.templates.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.objects.Delete(ctx, t.ContentKey); err != nil {
		s.log.Warn().Err(err).Str("key", t.ContentKey).Msg("template content not removed")
	}
	recordAudit(s.audit, actor, "template.delete", id)
	return nil
}

func templateKey(companyID, id string) string {
	if companyID == "" {
		companyID = "shared"
	}
	return fmt.Sprintf("templates/%s/%s", companyID, id)
}
