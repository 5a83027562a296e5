package ports

import (
	"context"
	"time"

	"github.com/conversia/admin-platform/internal/core/domain"
)

// SessionRepository persists login sessions. Every write is a single
// document (or single filter) update.
type SessionRepository interface {
	Insert(ctx context.Context, s *domain.Session) error
	// FindActive returns nil, nil when no active session has this id.
	FindActive(ctx context.Context, id string) (*domain.Session, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Deactivate(ctx context.Context, id string) error
	// BindToken records the token issued for an active session. It reports
	// false when the session is unknown or closed.
	BindToken(ctx context.Context, id, tokenID string, expiresAt time.Time) (bool, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	DeactivateByUser(ctx context.Context, userID string) (int64, error)
	CountActiveByUser(ctx context.Context, userID string) (int64, error)
	DeactivateCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
