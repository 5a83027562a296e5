package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
	"github.com/conversia/admin-platform/internal/metrics"
)

// SessionRegistry tracks login sessions. Sessions older than the TTL are
// invalid even when still flagged active and get closed on the next
// validation attempt.
type SessionRegistry struct {
	repo ports.SessionRepository
	ttl  time.Duration
	log  zerolog.Logger
	now  func() time.Time
}

func NewSessionRegistry(repo ports.SessionRepository, ttl time.Duration, log zerolog.Logger) *SessionRegistry {
	if ttl <= 0 {
		ttl = domain.DefaultSessionTTL
	}
	return &SessionRegistry{repo: repo, ttl: ttl, log: log, now: time.Now}
}

// SessionOption customises a session at creation.
type SessionOption func(*domain.Session)

// WithToken links the session to the access token issued alongside it.
func WithToken(tokenID string, expiresAt time.Time) SessionOption {
	return func(s *domain.Session) {
		s.TokenID = tokenID
		s.TokenExpiresAt = expiresAt
	}
}

// Create opens a session and returns its opaque id.
func (r *SessionRegistry) Create(ctx context.Context, userID, ip, userAgent string, opts ...SessionOption) (string, error) {
	now := r.now().UTC()
	s := &domain.Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		IPAddress:    ip,
		UserAgent:    userAgent,
		CreatedAt:    now,
		LastActivity: now,
		IsActive:     true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := r.repo.Insert(ctx, s); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return s.ID, nil
}

// Validate returns the active session with id, or nil when there is none or
// it has outlived the TTL. Valid sessions get their last activity bumped.
func (r *SessionRegistry) Validate(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, nil
	}
	s, err := r.repo.FindActive(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("validate session: %w", err)
	}
	if s == nil {
		return nil, nil
	}

	now := r.now().UTC()
	if s.Expired(now, r.ttl) {
		if err := r.repo.Deactivate(ctx, id); err != nil {
			return nil, fmt.Errorf("expire session: %w", err)
		}
		r.log.Debug().Str("session_id", id).Str("user_id", s.UserID).Msg("session expired")
		return nil, nil
	}

	if err := r.repo.Touch(ctx, id, now); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	s.LastActivity = now
	return s, nil
}

// Lookup returns the active session with id without touching it, or nil.
func (r *SessionRegistry) Lookup(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, nil
	}
	s, err := r.repo.FindActive(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	return s, nil
}

// BindToken links the session to the latest token issued for it, so that
// closing the session revokes that token. A closed session yields
// ErrUnauthenticated.
func (r *SessionRegistry) BindToken(ctx context.Context, id, tokenID string, expiresAt time.Time) error {
	ok, err := r.repo.BindToken(ctx, id, tokenID, expiresAt)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthenticated
	}
	return nil
}

// Invalidate closes one session. Unknown or closed sessions are not an error.
func (r *SessionRegistry) Invalidate(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := r.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}

// InvalidateAll closes every active session of userID and returns the
// sessions that were open, so callers can revoke their tokens.
func (r *SessionRegistry) InvalidateAll(ctx context.Context, userID string) ([]*domain.Session, error) {
	open, err := r.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if _, err := r.repo.DeactivateByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("invalidate sessions: %w", err)
	}
	return open, nil
}

// ActiveCount counts the open sessions of userID.
func (r *SessionRegistry) ActiveCount(ctx context.Context, userID string) (int64, error) {
	return r.repo.CountActiveByUser(ctx, userID)
}

// SweepExpired closes every session past the TTL. Run periodically; Validate
// does the same lazily.
func (r *SessionRegistry) SweepExpired(ctx context.Context) (int64, error) {
	cutoff := r.now().UTC().Add(-r.ttl)
	n, err := r.repo.DeactivateCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	metrics.SessionsSweptTotal.Add(float64(n))
	return n, nil
}
