package service

import (
	"context"
	"time"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

// recordAudit hands an event to the auditor; kv are metadata pairs.
func recordAudit(a ports.Auditor, actor *authz.Principal, action, target string, kv ...string) {
	if a == nil {
		return
	}
	e := domain.AuditEvent{
		ActorID: actor.UserID(),
		Action:  action,
		Target:  target,
		At:      time.Now().UTC(),
	}
	if len(kv) > 1 {
		e.Metadata = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			e.Metadata[kv[i]] = kv[i+1]
		}
	}
	a.Record(e)
}

// AuditService reads the audit trail.
type AuditService struct {
	repo ports.AuditRepository
}

func NewAuditService(repo ports.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// List returns one page of audit events, newest first.
func (s *AuditService) List(ctx context.Context, page domain.Page) ([]*domain.AuditEvent, int64, error) {
	return s.repo.List(ctx, page.Normalize())
}
